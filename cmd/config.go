package main

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/uvalib/solr-search-ws/internal/search"
)

const (
	configEnvPrefix  = "SOLR_SEARCH_WS_JSON_"
	solrURLOverride  = "SOLR_SEARCH_WS_SOLR_URL"
	defaultCacheSecs = 300
)

type serviceConfigService struct {
	Port               string `json:"port,omitempty" validate:"required,numeric"`
	JWTKey             string `json:"jwt_key,omitempty" validate:"required"`
	SiblingConcurrency int    `json:"sibling_concurrency,omitempty" validate:"gte=0,lte=64"`
	FacetCacheInterval int    `json:"facet_cache_interval,omitempty" validate:"gte=0"`
	LogLevel           string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

type serviceConfigSolr struct {
	URL         string `json:"url,omitempty" validate:"required,url"`
	ConnTimeout string `json:"conn_timeout,omitempty"`
	ReadTimeout string `json:"read_timeout,omitempty"`
}

type serviceConfigFacetRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

type serviceConfigFacetTransformation struct {
	Type      string            `json:"type,omitempty" validate:"required,oneof=range mapping"`
	Separator string            `json:"separator,omitempty"`
	Divisor   int               `json:"divisor,omitempty" validate:"gte=0"`
	Labels    map[string]string `json:"labels,omitempty" validate:"required_if=Type mapping"`
}

type serviceConfigFacet struct {
	XID            string                            `json:"xid,omitempty" validate:"required"`  // display name
	Code           string                            `json:"code,omitempty" validate:"required"` // solr attribute code
	Ranged         bool                              `json:"ranged,omitempty"`
	Ranges         []serviceConfigFacetRange         `json:"ranges,omitempty" validate:"required_if=Ranged true"`
	Transformation *serviceConfigFacetTransformation `json:"transformation,omitempty"`
	PreSearch      bool                              `json:"pre_search,omitempty"` // served from the facet cache
}

type serviceConfigSortOption struct {
	XID   string `json:"xid,omitempty" validate:"required"`
	Field string `json:"field,omitempty" validate:"required"`
}

type serviceConfigDefaultSort struct {
	XID   string `json:"xid,omitempty"`
	Order string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

type serviceConfig struct {
	Service        serviceConfigService      `json:"service,omitempty"`
	Solr           serviceConfigSolr         `json:"solr,omitempty"`
	GlobalCriteria json.RawMessage           `json:"global_criteria,omitempty"`
	DefaultContext search.MapContext         `json:"default_context,omitempty"`
	SortOptions    []serviceConfigSortOption `json:"sort_options,omitempty" validate:"dive"`
	DefaultSort    serviceConfigDefaultSort  `json:"default_sort,omitempty"`
	Facets         []serviceConfigFacet      `json:"facets,omitempty" validate:"dive"`
}

func getSortedJSONEnvVars() []string {
	var keys []string

	for _, keyval := range os.Environ() {
		key := strings.Split(keyval, "=")[0]
		if strings.HasPrefix(key, configEnvPrefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys
}

// decodeConfigValue accepts plain JSON or the base64-encoded gzip produced by the setup tool
func decodeConfigValue(val string) ([]byte, error) {
	trimmed := strings.TrimSpace(val)

	if strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}

	compressed, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("value is neither json nor base64: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("value is not gzip compressed: %w", err)
	}

	defer gz.Close()

	return io.ReadAll(gz)
}

// applyConfigValue decodes one fragment over cfg, rejecting unknown fields
func applyConfigValue(cfg *serviceConfig, val string) error {
	data, err := decodeConfigValue(val)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	return dec.Decode(cfg)
}

func validateConfig(cfg *serviceConfig) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	sortFields := make(map[string]bool)
	for _, opt := range cfg.SortOptions {
		sortFields[opt.XID] = true
	}

	if cfg.DefaultSort.XID != "" && sortFields[cfg.DefaultSort.XID] == false {
		return fmt.Errorf("default sort xid [%s] not found in sort options list", cfg.DefaultSort.XID)
	}

	seen := make(map[string]bool)
	for _, facet := range cfg.Facets {
		if seen[facet.XID] == true {
			return fmt.Errorf("duplicate facet xid [%s]", facet.XID)
		}
		seen[facet.XID] = true

		if facet.Ranged == true && facet.Transformation == nil {
			return fmt.Errorf("ranged facet [%s] requires a transformation", facet.XID)
		}
	}

	if len(cfg.GlobalCriteria) > 0 {
		if _, err := search.UnmarshalCriterion(cfg.GlobalCriteria); err != nil {
			return fmt.Errorf("global criteria: %w", err)
		}
	}

	return nil
}

func loadConfig() *serviceConfig {
	cfg := serviceConfig{}

	// json configs

	envs := getSortedJSONEnvVars()

	valid := true

	for _, env := range envs {
		log.Printf("[CONFIG] loading %s ...", env)
		if val := os.Getenv(env); val != "" {
			if err := applyConfigValue(&cfg, val); err != nil {
				log.Printf("error decoding %s: %s", env, err.Error())
				valid = false
			}
		}
	}

	if valid == false {
		log.Fatal("exiting due to json decode error(s) above")
	}

	// optional convenience override to simplify terraform config
	if url := os.Getenv(solrURLOverride); url != "" {
		cfg.Solr.URL = url
	}

	if cfg.Service.FacetCacheInterval == 0 {
		cfg.Service.FacetCacheInterval = defaultCacheSecs
	}

	if err := validateConfig(&cfg); err != nil {
		log.Fatalf("invalid configuration: %s", err.Error())
	}

	masked := cfg
	masked.Service.JWTKey = "********"

	bytes, err := json.Marshal(masked)
	if err != nil {
		log.Fatalf("error encoding service config json: %s", err.Error())
	}

	log.Printf("[CONFIG] composite json:")
	log.Printf("\n%s", string(bytes))

	return &cfg
}
