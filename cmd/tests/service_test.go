package tests

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v2"
)

type testConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
}

var cfg = loadConfig()

func emptyField(field string) bool {
	return len(strings.TrimSpace(field)) == 0
}

func loadConfig() testConfig {
	var c testConfig

	// the configuration file is optional; without an endpoint every test is skipped
	data, err := os.ReadFile("service_test.yml")
	if err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			log.Fatal(err)
		}
	}

	// allow environment variables to override the configuration file
	if len(os.Getenv("TC_ENDPOINT")) != 0 {
		c.Endpoint = os.Getenv("TC_ENDPOINT")
	}

	if len(os.Getenv("TC_TOKEN")) != 0 {
		c.Token = os.Getenv("TC_TOKEN")
	}

	log.Printf("endpoint [%s]\n", c.Endpoint)

	return c
}

func requireEndpoint(t *testing.T) {
	t.Helper()

	if emptyField(cfg.Endpoint) == true {
		t.Skip("no service endpoint configured")
	}
}

var client = &http.Client{Timeout: 30 * time.Second}

func doRequest(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(cfg.Endpoint, "/")+path, reader)
	if err != nil {
		t.Fatalf("creating request: %s", err.Error())
	}

	req.Header.Set("Content-Type", "application/json")

	if emptyField(cfg.Token) == false {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %s", method, path, err.Error())
	}

	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("reading response: %s", err.Error())
	}

	return res.StatusCode, data
}

func TestHealthCheck(t *testing.T) {
	requireEndpoint(t)

	status, body := doRequest(t, http.MethodGet, "/healthcheck", "")
	if status != http.StatusOK {
		t.Fatalf("Expected %v, got %v (%s)\n", http.StatusOK, status, string(body))
	}

	var hc map[string]struct {
		Healthy bool `json:"healthy"`
	}

	if err := json.Unmarshal(body, &hc); err != nil {
		t.Fatalf("invalid healthcheck response: %s", err.Error())
	}

	if hc["solr"].Healthy == false {
		t.Fatalf("Expected solr to be healthy\n")
	}
}

func TestSearchMatchAll(t *testing.T) {
	requireEndpoint(t)

	if emptyField(cfg.Token) == true {
		t.Skip("no bearer token configured")
	}

	status, body := doRequest(t, http.MethodPost, "/api/search", `{"criteria": {"operation": "Anything"}, "rows": 5}`)
	if status != http.StatusOK {
		t.Fatalf("Expected %v, got %v (%s)\n", http.StatusOK, status, string(body))
	}

	var res struct {
		Total      int      `json:"total"`
		ProductIDs []string `json:"product_ids"`
	}

	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("invalid search response: %s", err.Error())
	}

	if len(res.ProductIDs) > 5 || len(res.ProductIDs) > res.Total {
		t.Fatalf("Expected at most 5 of %d product ids, got %d\n", res.Total, len(res.ProductIDs))
	}
}

func TestSearchRejectsInvalidCriteria(t *testing.T) {
	requireEndpoint(t)

	if emptyField(cfg.Token) == true {
		t.Skip("no bearer token configured")
	}

	status, _ := doRequest(t, http.MethodPost, "/api/search", `{"criteria": {"condition": "xor", "criteria": []}}`)
	if status != http.StatusBadRequest {
		t.Fatalf("Expected %v, got %v\n", http.StatusBadRequest, status)
	}
}

//
// end of file
//
