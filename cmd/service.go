package main

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/uvalib/solr-search-ws/internal/search"
	"github.com/uvalib/solr-search-ws/internal/solr"
)

// git commit used for this build; supplied at compile time
var gitCommit string

type serviceVersion struct {
	BuildVersion string `json:"build,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	GitCommit    string `json:"git_commit,omitempty"`
}

type serviceSolr struct {
	client  *solr.HTTPClient
	engine  *solr.Engine
	metrics *solr.Metrics
}

type serviceMaps struct {
	sortFields map[string]string             // sort xid -> solr attribute code
	facets     map[string]serviceConfigFacet // facet xid -> config
	facetXIDs  map[string]string             // solr attribute code -> facet xid
}

type serviceContext struct {
	config         *serviceConfig
	version        serviceVersion
	solr           serviceSolr
	maps           serviceMaps
	registry       *search.Registry
	globalCriteria search.Criterion
	facetCache     *facetCache
}

func (p *serviceContext) initVersion() {
	buildVersion := "unknown"
	files, _ := filepath.Glob("buildtag.*")
	if len(files) == 1 {
		buildVersion = strings.Replace(files[0], "buildtag.", "", 1)
	}

	p.version = serviceVersion{
		BuildVersion: buildVersion,
		GoVersion:    fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
		GitCommit:    gitCommit,
	}

	log.Printf("[SERVICE] version.BuildVersion = [%s]", p.version.BuildVersion)
	log.Printf("[SERVICE] version.GoVersion    = [%s]", p.version.GoVersion)
	log.Printf("[SERVICE] version.GitCommit    = [%s]", p.version.GitCommit)
}

func (p *serviceContext) initMaps() {
	// create sort field map
	p.maps.sortFields = make(map[string]string)
	for _, opt := range p.config.SortOptions {
		p.maps.sortFields[opt.XID] = opt.Field
	}

	// create facet map
	p.maps.facets = make(map[string]serviceConfigFacet)
	p.maps.facetXIDs = make(map[string]string)
	for _, facet := range p.config.Facets {
		p.maps.facets[facet.XID] = facet
		p.maps.facetXIDs[facet.Code] = facet.XID
	}

	log.Printf("[SERVICE] maps.sortFields      = [%d]", len(p.maps.sortFields))
	log.Printf("[SERVICE] maps.facets          = [%d]", len(p.maps.facets))
}

func (p *serviceContext) initTransformations() {
	p.registry = search.NewRegistry()

	for _, facet := range p.config.Facets {
		t := facet.Transformation
		if t == nil {
			continue
		}

		switch t.Type {
		case "range":
			p.registry.Register(facet.Code, search.RangeTransformation{Separator: t.Separator, Divisor: t.Divisor})
		case "mapping":
			p.registry.Register(facet.Code, search.NewMappingTransformation(t.Labels))
		}

		log.Printf("[FACET] %s: %s transformation", facet.Code, t.Type)
	}
}

func (p *serviceContext) initGlobalCriteria() {
	if len(p.config.GlobalCriteria) == 0 {
		return
	}

	// already validated when the config was loaded
	criteria, err := search.UnmarshalCriterion(p.config.GlobalCriteria)
	if err != nil {
		log.Fatalf("global criteria: %s", err.Error())
	}

	p.globalCriteria = criteria

	log.Printf("[SERVICE] globalCriteria       = [%s]", string(p.config.GlobalCriteria))
}

func (p *serviceContext) initSolr(reg prometheus.Registerer) {
	connTimeout := timeoutWithMinimum(p.config.Solr.ConnTimeout, 5)
	readTimeout := timeoutWithMinimum(p.config.Solr.ReadTimeout, 5)

	metrics := solr.NewMetrics(reg)

	client := solr.NewHTTPClient(solr.HTTPClientConfig{
		URL:         p.config.Solr.URL,
		ConnTimeout: time.Duration(connTimeout) * time.Second,
		ReadTimeout: time.Duration(readTimeout) * time.Second,
		Logger:      log.StandardLogger(),
		Metrics:     metrics,
	})

	p.solr = serviceSolr{
		client:  client,
		metrics: metrics,
		engine: solr.NewEngine(client, p.globalCriteria, p.registry,
			solr.WithSiblingConcurrency(p.config.Service.SiblingConcurrency),
			solr.WithMetrics(metrics),
		),
	}

	log.Printf("[SERVICE] solr.url             = [%s]", client.URL())
	log.Printf("[SERVICE] solr.connTimeout     = [%d]", connTimeout)
	log.Printf("[SERVICE] solr.readTimeout     = [%d]", readTimeout)
}

func initializeService(cfg *serviceConfig, reg prometheus.Registerer) *serviceContext {
	p := serviceContext{config: cfg}

	p.initVersion()
	p.initMaps()
	p.initTransformations()
	p.initGlobalCriteria()
	p.initSolr(reg)

	p.facetCache = newFacetCache(&p, cfg.Service.FacetCacheInterval)

	return &p
}
