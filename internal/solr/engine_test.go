package solr

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/search"
)

type fakeClient struct {
	mu       sync.Mutex
	updates  []interface{}
	selects  []url.Values
	respond  func(params url.Values) (string, error)
	updateFn func(payload interface{}) (string, error)
}

func (f *fakeClient) Update(ctx context.Context, payload interface{}) (json.RawMessage, error) {
	f.mu.Lock()
	f.updates = append(f.updates, payload)
	f.mu.Unlock()

	if f.updateFn != nil {
		raw, err := f.updateFn(payload)
		return json.RawMessage(raw), err
	}

	return json.RawMessage(`{"responseHeader": {"status": 0}}`), nil
}

func (f *fakeClient) Select(ctx context.Context, params url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	f.selects = append(f.selects, params)
	f.mu.Unlock()

	if f.respond == nil {
		return json.RawMessage(`{}`), nil
	}

	raw, err := f.respond(params)
	return json.RawMessage(raw), err
}

func newTestEngine(client Client, opts ...Option) *Engine {
	logger, _ := test.NewNullLogger()
	return NewEngine(client, search.Equal("visible", "1"), search.NewRegistry(), append([]Option{WithLogger(logger)}, opts...)...)
}

func TestEngineAddDocument(t *testing.T) {
	client := &fakeClient{}
	engine := newTestEngine(client)

	doc := search.SearchDocument{ProductID: "p1", Context: search.NewMapContext("website", "ru")}
	require.NoError(t, engine.AddDocument(context.Background(), doc))

	require.Len(t, client.updates, 1)
	assert.Equal(t, []map[string]interface{}{BuildDocument(doc)}, client.updates[0])
}

func TestEngineAddDocumentsBatch(t *testing.T) {
	client := &fakeClient{}
	engine := newTestEngine(client)

	require.NoError(t, engine.AddDocuments(context.Background()))
	assert.Empty(t, client.updates)

	docs := []search.SearchDocument{{ProductID: "a"}, {ProductID: "b"}}
	require.NoError(t, engine.AddDocuments(context.Background(), docs...))

	require.Len(t, client.updates, 1)
	assert.Len(t, client.updates[0], 2)
}

func TestEngineClear(t *testing.T) {
	client := &fakeClient{}
	engine := newTestEngine(client)

	require.NoError(t, engine.Clear(context.Background()))

	raw, err := json.Marshal(client.updates[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"delete": {"query": "*:*"}}`, string(raw))
}

func TestEngineUpdateErrors(t *testing.T) {
	client := &fakeClient{updateFn: func(payload interface{}) (string, error) {
		return `{"error": {"msg": "document is missing mandatory uniqueKey field: id"}}`, nil
	}}
	engine := newTestEngine(client)

	err := engine.Clear(context.Background())
	assert.True(t, errors.Is(err, serr.ErrSolrQuery))

	client.updateFn = func(payload interface{}) (string, error) {
		return "", serr.NewConnectionError("http://solr/", "refused connection", nil)
	}

	err = engine.AddDocument(context.Background(), search.SearchDocument{ProductID: "x"})
	assert.True(t, errors.Is(err, serr.ErrConnection))
}

func TestEngineQuery(t *testing.T) {
	client := &fakeClient{respond: func(params url.Values) (string, error) {
		return `{
			"response": {"numFound": 2, "docs": [{"product_id": "a"}, {"product_id": "b"}]},
			"facet_counts": {"facet_fields": {"brand": ["Adidas", 1, "Puma", 1]}}
		}`, nil
	}}
	engine := newTestEngine(client)

	facets := search.FacetFiltersToIncludeInResult{search.NewFacetFilterRequestField("brand")}
	opts, err := search.NewQueryOptions(nil, search.NewMapContext("website", "ru"), facets, 10, 0, search.SortBy{})
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), search.Equal("category", "shoes"), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalNumberOfResults)
	assert.Equal(t, []search.ProductID{"a", "b"}, resp.ProductIDs)
	assert.Equal(t, search.FacetFieldCollection{
		{AttributeCode: "brand", Values: []search.FacetFieldValue{{Value: "Adidas", Count: 1}, {Value: "Puma", Count: 1}}},
	}, resp.FacetFields)

	require.Len(t, client.selects, 1)
	params := client.selects[0]
	assert.Equal(t, `(category:"shoes") AND ((-website:[* TO *] AND *:*) OR website:"ru")`, params.Get("q"))
	assert.Equal(t, "on", params.Get("facet"))
	assert.Equal(t, []string{"brand"}, params["facet.field"])
	assert.Empty(t, params["fq"])
}

func TestEngineQueryFullText(t *testing.T) {
	client := &fakeClient{}
	logger, _ := test.NewNullLogger()
	engine := NewEngine(client, search.Equal("bar", "baz"), nil, WithLogger(logger))

	opts, err := search.NewQueryOptions(nil, nil, nil, 1, 0, search.SortBy{})
	require.NoError(t, err)

	_, err = engine.QueryFullText(context.Background(), "foo", opts)
	require.NoError(t, err)

	require.Len(t, client.selects, 1)
	assert.Regexp(t, regexp.MustCompile(`^\(\(\(full_text_search:"foo"\) AND bar:"baz"\)\)`), client.selects[0].Get("q"))
}

func TestEngineQueryFullTextWithoutGlobalCriteria(t *testing.T) {
	client := &fakeClient{}
	logger, _ := test.NewNullLogger()
	engine := NewEngine(client, nil, nil, WithLogger(logger))

	opts, err := search.NewQueryOptions(nil, nil, nil, 1, 0, search.SortBy{})
	require.NoError(t, err)

	_, err = engine.QueryFullText(context.Background(), "red shoe", opts)
	require.NoError(t, err)

	assert.Equal(t, `((full_text_search:"red") AND (full_text_search:"shoe"))`, client.selects[0].Get("q"))
}

// siblingResponder answers like Solr would: facet counts depend on which filters are applied
func siblingResponder(params url.Values) (string, error) {
	fq := strings.Join(params["fq"], " ")
	hasBrand := strings.Contains(fq, "brand:")
	hasColor := strings.Contains(fq, "color:")

	switch {
	case hasBrand && hasColor:
		return `{"response": {"numFound": 1, "docs": [{"product_id": "x"}]},
			"facet_counts": {"facet_fields": {"brand": ["Adidas", 1], "color": ["red", 1], "size": ["40", 1]}}}`, nil
	case hasColor:
		return `{"response": {"numFound": 0, "docs": []},
			"facet_counts": {"facet_fields": {"brand": ["Adidas", 1, "Puma", 4], "color": ["red", 5], "size": ["40", 5]}}}`, nil
	case hasBrand:
		return `{"response": {"numFound": 0, "docs": []},
			"facet_counts": {"facet_fields": {"brand": ["Adidas", 2], "color": ["red", 1, "blue", 1], "size": ["40", 2]}}}`, nil
	}

	return `{"response": {"numFound": 0, "docs": []}, "facet_counts": {"facet_fields": {}}}`, nil
}

func TestEngineQuerySiblingFacets(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		client := &fakeClient{respond: siblingResponder}
		metrics := NewMetrics(prometheus.NewRegistry())
		engine := newTestEngine(client, WithSiblingConcurrency(concurrency), WithMetrics(metrics))

		facets := search.FacetFiltersToIncludeInResult{
			search.NewFacetFilterRequestField("brand"),
			search.NewFacetFilterRequestField("color"),
			search.NewFacetFilterRequestField("size"),
		}
		selection := search.FilterSelection{
			{Code: "brand", Values: []string{"Adidas"}},
			{Code: "color", Values: []string{"red"}},
		}

		opts, err := search.NewQueryOptions(selection, nil, facets, 10, 1, search.SortBy{AttributeCode: "name", Direction: search.SortAscending})
		require.NoError(t, err)

		resp, err := engine.Query(context.Background(), search.Equal("category", "shoes"), opts)
		require.NoError(t, err)

		assert.Equal(t, 1, resp.TotalNumberOfResults)
		assert.Equal(t, []search.ProductID{"x"}, resp.ProductIDs)
		assert.Equal(t, search.FacetFieldCollection{
			{AttributeCode: "size", Values: []search.FacetFieldValue{{Value: "40", Count: 1}}},
			{AttributeCode: "brand", Values: []search.FacetFieldValue{{Value: "Adidas", Count: 1}, {Value: "Puma", Count: 4}}},
			{AttributeCode: "size", Values: []search.FacetFieldValue{{Value: "40", Count: 5}}},
			{AttributeCode: "color", Values: []search.FacetFieldValue{{Value: "red", Count: 1}, {Value: "blue", Count: 1}}},
			{AttributeCode: "size", Values: []search.FacetFieldValue{{Value: "40", Count: 2}}},
		}, resp.FacetFields)

		require.Len(t, client.selects, 3)
		assert.Equal(t, "10", client.selects[0].Get("rows"))
		assert.Equal(t, "name_sort asc", client.selects[0].Get("sort"))

		for _, sibling := range client.selects[1:] {
			assert.Equal(t, "0", sibling.Get("rows"))
			assert.Len(t, sibling["fq"], 1)
			assert.Empty(t, sibling.Get("sort"))
		}

		assert.Equal(t, float64(2), testutil.ToFloat64(metrics.siblingQueries))
	}
}

func TestEngineQuerySingleSelectionSiblingFacets(t *testing.T) {
	client := &fakeClient{respond: func(params url.Values) (string, error) {
		if len(params["fq"]) > 0 {
			return `{"response": {"numFound": 2, "docs": [{"product_id": "a"}, {"product_id": "b"}]},
				"facet_counts": {"facet_fields": {"brand": ["Adidas", 2], "color": ["red", 1, "blue", 1]}}}`, nil
		}
		return `{"response": {"numFound": 0, "docs": []},
			"facet_counts": {"facet_fields": {"brand": ["Adidas", 2, "Puma", 4], "color": ["red", 3, "blue", 3]}}}`, nil
	}}
	engine := newTestEngine(client)

	facets := search.FacetFiltersToIncludeInResult{
		search.NewFacetFilterRequestField("brand"),
		search.NewFacetFilterRequestField("color"),
	}
	selection := search.FilterSelection{{Code: "brand", Values: []string{"Adidas"}}}

	opts, err := search.NewQueryOptions(selection, nil, facets, 10, 0, search.SortBy{})
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), search.Equal("category", "shoes"), opts)
	require.NoError(t, err)

	require.Len(t, client.selects, 2)
	assert.Empty(t, client.selects[1]["fq"])

	assert.Equal(t, search.FacetFieldCollection{
		{AttributeCode: "color", Values: []search.FacetFieldValue{{Value: "red", Count: 1}, {Value: "blue", Count: 1}}},
		{AttributeCode: "brand", Values: []search.FacetFieldValue{{Value: "Adidas", Count: 2}, {Value: "Puma", Count: 4}}},
		{AttributeCode: "color", Values: []search.FacetFieldValue{{Value: "red", Count: 3}, {Value: "blue", Count: 3}}},
	}, resp.FacetFields)
}

func TestEngineQuerySiblingFacetsSkippedWithoutFacets(t *testing.T) {
	client := &fakeClient{respond: siblingResponder}
	engine := newTestEngine(client)

	selection := search.FilterSelection{{Code: "brand", Values: []string{"Adidas"}}}
	opts, err := search.NewQueryOptions(selection, nil, nil, 10, 0, search.SortBy{})
	require.NoError(t, err)

	resp, err := engine.Query(context.Background(), search.Equal("a", "b"), opts)
	require.NoError(t, err)

	require.Len(t, client.selects, 1)
	assert.Equal(t, []string{`brand:("Adidas")`}, client.selects[0]["fq"])
	assert.Empty(t, resp.FacetFields)
}

func TestEngineQuerySiblingErrorAbortsQuery(t *testing.T) {
	client := &fakeClient{respond: func(params url.Values) (string, error) {
		if params.Get("rows") == "0" {
			return `{"error": {"msg": "sibling failed"}}`, nil
		}
		return `{}`, nil
	}}
	engine := newTestEngine(client, WithSiblingConcurrency(2))

	facets := search.FacetFiltersToIncludeInResult{search.NewFacetFilterRequestField("brand")}
	selection := search.FilterSelection{{Code: "brand", Values: []string{"Adidas"}}}
	opts, err := search.NewQueryOptions(selection, nil, facets, 10, 0, search.SortBy{})
	require.NoError(t, err)

	_, err = engine.Query(context.Background(), search.Equal("a", "b"), opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, serr.ErrSolrQuery))
}

func TestEngineQueryPropagatesErrors(t *testing.T) {
	client := &fakeClient{respond: func(params url.Values) (string, error) {
		return "", serr.NewConnectionError("http://solr/", "timed out", nil)
	}}
	engine := newTestEngine(client)

	opts, err := search.NewQueryOptions(nil, nil, nil, 10, 0, search.SortBy{})
	require.NoError(t, err)

	_, err = engine.Query(context.Background(), search.Equal("a", "b"), opts)
	assert.True(t, errors.Is(err, serr.ErrConnection))

	_, err = engine.Query(context.Background(), search.NewLeaf("Fuzzy", "a", "b"), opts)
	assert.True(t, errors.Is(err, serr.ErrUnsupportedOperation))
}

func TestEnginePing(t *testing.T) {
	client := &fakeClient{}
	engine := newTestEngine(client)

	require.NoError(t, engine.Ping(context.Background()))
	assert.Equal(t, "0", client.selects[0].Get("rows"))

	client.respond = func(params url.Values) (string, error) {
		return `{"responseHeader": {"status": 500}}`, nil
	}
	assert.Error(t, engine.Ping(context.Background()))
}
