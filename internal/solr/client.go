package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
)

const (
	updateServlet = "update"
	selectServlet = "select"
)

var (
	indexedKeyPattern = regexp.MustCompile(`\[(?:[0-9]|[1-9][0-9]+)\]$`)
	htmlTitlePattern  = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
)

// Client is the transport to a single Solr core
type Client interface {
	// Update posts payload as JSON to the update servlet and commits
	Update(ctx context.Context, payload interface{}) (json.RawMessage, error)

	// Select sends params as a query string to the select servlet
	Select(ctx context.Context, params url.Values) (json.RawMessage, error)
}

// HTTPClientConfig configures an HTTPClient
type HTTPClientConfig struct {
	URL         string        // core url, e.g. http://solr:8983/solr/products/
	ConnTimeout time.Duration // dial timeout
	ReadTimeout time.Duration // overall request timeout
	Logger      logrus.FieldLogger
	Metrics     *Metrics
}

// HTTPClient is a Client over net/http
type HTTPClient struct {
	url     string
	client  *http.Client
	log     logrus.FieldLogger
	metrics *Metrics
}

// NewHTTPClient creates a client tuned for a single Solr host
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = 5 * time.Second
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	base := cfg.URL
	if strings.HasSuffix(base, "/") == false {
		base = base + "/"
	}

	return &HTTPClient{
		url: base,
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   connTimeout,
					KeepAlive: 60 * time.Second,
				}).DialContext,
				MaxIdleConns:        100, // we are hitting one solr host, so
				MaxIdleConnsPerHost: 100, // these two values can be the same
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log:     logger,
		metrics: cfg.Metrics,
	}
}

// URL returns the core url requests are sent to
func (c *HTTPClient) URL() string {
	return c.url
}

func (c *HTTPClient) Update(ctx context.Context, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal solr update: %w", err)
	}

	params := url.Values{}
	params.Set("commit", "true")

	endpoint := c.endpoint(updateServlet, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, serr.NewConnectionError(endpoint, "", err)
	}

	req.Header.Set("Content-Type", "application/json")

	c.log.Debugf("[SOLR] update: [%s]", string(body))

	return c.do(updateServlet, req)
}

func (c *HTTPClient) Select(ctx context.Context, params url.Values) (json.RawMessage, error) {
	endpoint := c.endpoint(selectServlet, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, serr.NewConnectionError(endpoint, "", err)
	}

	req.Header.Set("Content-Type", "application/json")

	c.log.Infof("[SOLR] req: [%s]", params.Get("q"))

	return c.do(selectServlet, req)
}

// endpoint builds {core}{servlet}?wt=json&... with indexed keys such as fq[0] collapsed to fq
func (c *HTTPClient) endpoint(servlet string, params url.Values) string {
	query := normalizeParams(params)
	query.Set("wt", "json")

	return c.url + servlet + "?" + query.Encode()
}

func normalizeParams(params url.Values) url.Values {
	res := url.Values{}

	for key, values := range params {
		plain := indexedKeyPattern.ReplaceAllString(key, "")
		res[plain] = append(res[plain], values...)
	}

	return res
}

func (c *HTTPClient) do(servlet string, req *http.Request) (json.RawMessage, error) {
	endpoint := req.URL.String()

	start := time.Now()
	res, err := c.client.Do(req)
	elapsed := time.Since(start)
	elapsedMS := int64(elapsed / time.Millisecond)

	// external service failure logging (scenario 1)

	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Timeout") || strings.Contains(errMsg, "deadline exceeded") {
			errMsg = fmt.Sprintf("%s timed out", c.url)
		} else if strings.Contains(errMsg, "connection refused") {
			errMsg = fmt.Sprintf("%s refused connection", c.url)
		}

		c.log.Errorf("Failed response from %s %s - %s. Elapsed Time: %d (ms)", req.Method, c.url+servlet, errMsg, elapsedMS)
		c.metrics.observeRequest(servlet, "transport_error", elapsed)

		return nil, serr.NewConnectionError(endpoint, errMsg, err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		c.metrics.observeRequest(servlet, "transport_error", elapsed)
		return nil, serr.NewConnectionError(endpoint, "", err)
	}

	// external service failure logging (scenario 2)

	if json.Valid(body) == false {
		msg := htmlErrorMessage(body)
		c.log.Errorf("Failed response from %s %s - %d:%s. Elapsed Time: %d (ms)", req.Method, c.url+servlet, res.StatusCode, msg, elapsedMS)
		c.metrics.observeRequest(servlet, "invalid_response", elapsed)

		return nil, serr.NewConnectionError(endpoint, msg, nil)
	}

	// external service success logging

	c.log.Infof("Successful Solr response from %s %s. Elapsed Time: %d (ms)", req.Method, c.url+servlet, elapsedMS)
	c.metrics.observeRequest(servlet, "ok", elapsed)

	return json.RawMessage(body), nil
}

// htmlErrorMessage extracts the <title> of an HTML error page, falling back to the trimmed body
func htmlErrorMessage(body []byte) string {
	if m := htmlTitlePattern.FindSubmatch(body); m != nil {
		return strings.TrimSpace(string(m[1]))
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}

	if msg == "" {
		msg = "empty response"
	}

	return msg
}
