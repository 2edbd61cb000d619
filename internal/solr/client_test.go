package solr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *Metrics) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, _ := test.NewNullLogger()
	metrics := NewMetrics(prometheus.NewRegistry())

	return NewHTTPClient(HTTPClientConfig{URL: server.URL + "/solr/products", Logger: logger, Metrics: metrics}), metrics
}

func TestHTTPClientSelect(t *testing.T) {
	var got *http.Request

	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`{"response": {"numFound": 0}}`))
	})

	params := url.Values{}
	params.Set("q", `foo:"bar"`)
	params["fq[0]"] = []string{"a:(1)"}
	params["fq[1]"] = []string{"b:(2)"}

	raw, err := client.Select(context.Background(), params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"response": {"numFound": 0}}`, string(raw))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/solr/products/select", got.URL.Path)

	query := got.URL.Query()
	assert.Equal(t, "json", query.Get("wt"))
	assert.Equal(t, `foo:"bar"`, query.Get("q"))
	assert.ElementsMatch(t, []string{"a:(1)", "b:(2)"}, query["fq"])
	assert.NotContains(t, got.URL.RawQuery, "%5B")

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.requestDuration))
}

func TestHTTPClientUpdate(t *testing.T) {
	var body []byte
	var got *http.Request

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"responseHeader": {"status": 0}}`))
	})

	_, err := client.Update(context.Background(), map[string]interface{}{"delete": map[string]string{"query": "*:*"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/solr/products/update", got.URL.Path)
	assert.Equal(t, "true", got.URL.Query().Get("commit"))
	assert.Equal(t, "json", got.URL.Query().Get("wt"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"delete": {"query": "*:*"}}`, string(body))
}

func TestHTTPClientHTMLErrorPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html><head><title>Error 404 Not Found</title></head><body>gone</body></html>"))
	})

	_, err := client.Select(context.Background(), url.Values{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, serr.ErrConnection))

	var connErr *serr.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "Error 404 Not Found", connErr.Message)
}

func TestHTTPClientJSONErrorStatusIsReturned(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"msg": "undefined field foo", "code": 400}}`))
	})

	raw, err := client.Select(context.Background(), url.Values{})
	require.NoError(t, err)

	_, err = DecodeResponse(raw, nil)
	assert.True(t, errors.Is(err, serr.ErrSolrQuery))
}

func TestHTTPClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := NewHTTPClient(HTTPClientConfig{URL: base + "/", ConnTimeout: time.Second, ReadTimeout: time.Second, Logger: logrus.New()})

	_, err := client.Select(context.Background(), url.Values{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, serr.ErrConnection))
}

func TestNormalizeParams(t *testing.T) {
	params := url.Values{
		"fq[0]":       {"a"},
		"fq[10]":      {"b"},
		"facet.field": {"c"},
		"odd[01]":     {"d"},
	}

	res := normalizeParams(params)

	assert.ElementsMatch(t, []string{"a", "b"}, res["fq"])
	assert.Equal(t, []string{"c"}, res["facet.field"])
	assert.Equal(t, []string{"d"}, res["odd[01]"])
}

func TestHTMLErrorMessage(t *testing.T) {
	assert.Equal(t, "Oops", htmlErrorMessage([]byte("<HTML><TITLE>\n Oops \n</TITLE></HTML>")))
	assert.Equal(t, "plain failure", htmlErrorMessage([]byte("  plain failure ")))
	assert.Equal(t, "empty response", htmlErrorMessage(nil))
}
