package solr

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/uvalib/solr-search-ws/internal/search"
)

// Engine runs searches and index updates against one Solr core
type Engine struct {
	client             Client
	globalCriteria     search.Criterion
	registry           search.TransformationRegistry
	siblingConcurrency int
	log                logrus.FieldLogger
	metrics            *Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for query logging
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithSiblingConcurrency bounds how many sibling facet queries run at once; 1 runs them in order
func WithSiblingConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.siblingConcurrency = n
		}
	}
}

// WithMetrics records sibling query counts
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates an engine. globalCriteria is ANDed into every full text query and may be nil.
func NewEngine(client Client, globalCriteria search.Criterion, registry search.TransformationRegistry, opts ...Option) *Engine {
	e := &Engine{
		client:             client,
		globalCriteria:     globalCriteria,
		registry:           registry,
		siblingConcurrency: 1,
		log:                logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = search.NewRegistry()
	}

	return e
}

// WithRequestLogger returns a shallow copy of the engine logging through l
func (e *Engine) WithRequestLogger(l logrus.FieldLogger) *Engine {
	c := *e
	c.log = l
	return &c
}

// AddDocument indexes a single document
func (e *Engine) AddDocument(ctx context.Context, doc search.SearchDocument) error {
	return e.AddDocuments(ctx, doc)
}

// AddDocuments indexes documents in one update batch
func (e *Engine) AddDocuments(ctx context.Context, docs ...search.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	batch := make([]map[string]interface{}, 0, len(docs))

	for _, doc := range docs {
		batch = append(batch, BuildDocument(doc))
	}

	e.log.Infof("[SOLR] adding %d document(s)", len(batch))

	return e.update(ctx, batch)
}

// Clear deletes every document of the core
func (e *Engine) Clear(ctx context.Context) error {
	e.log.Infof("[SOLR] deleting all documents")

	request := map[string]interface{}{
		"delete": map[string]string{"query": "*:*"},
	}

	return e.update(ctx, request)
}

func (e *Engine) update(ctx context.Context, payload interface{}) error {
	raw, err := e.client.Update(ctx, payload)
	if err != nil {
		return err
	}

	return solrErrorOf(raw)
}

// Ping issues an empty query to verify Solr answers
func (e *Engine) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("q", "*:*")
	params.Set("rows", "0")

	raw, err := e.client.Select(ctx, params)
	if err != nil {
		return err
	}

	resp, err := DecodeResponse(raw, e.registry)
	if err != nil {
		return err
	}

	if resp.Status() != 0 {
		return fmt.Errorf("solr ping returned status %d", resp.Status())
	}

	return nil
}

// QueryFullText matches text against the full text field, restricted by the global criteria
func (e *Engine) QueryFullText(ctx context.Context, text string, options *search.QueryOptions) (*search.SearchEngineResponse, error) {
	var criteria search.Criterion = search.Like(FullTextSearchFieldName, text)

	if e.globalCriteria != nil {
		criteria = search.And(criteria, e.globalCriteria)
	}

	return e.Query(ctx, criteria, options)
}

// Query runs criteria and returns matching ids with facets. Non-selected facet fields of the main
// response come first, followed by those of one sibling query per selected attribute.
func (e *Engine) Query(ctx context.Context, criteria search.Criterion, options *search.QueryOptions) (*search.SearchEngineResponse, error) {
	query := NewQuery(criteria, options)
	selection := options.FilterSelection()
	facets := options.FacetFiltersToIncludeInResult()

	resp, err := e.querySolr(ctx, query, NewFacetFilterRequest(facets, selection, e.registry), false)
	if err != nil {
		return nil, err
	}

	nonSelected, err := resp.NonSelectedFacetFields(selection.Codes())
	if err != nil {
		return nil, err
	}

	siblings, err := e.siblingFacetFields(ctx, query, selection, facets)
	if err != nil {
		return nil, err
	}

	e.log.Infof("[SOLR] res: total = %d, ids = %d, facets = %d + %d sibling(s)", resp.TotalNumberOfResults(), len(resp.MatchingProductIDs()), len(nonSelected), len(siblings))

	return &search.SearchEngineResponse{
		FacetFields:          append(nonSelected, siblings...),
		TotalNumberOfResults: resp.TotalNumberOfResults(),
		ProductIDs:           resp.MatchingProductIDs(),
	}, nil
}

// siblingFacetFields re-queries once per selected code with that code's filter removed and
// collects the non-selected facet fields of each response. Results follow selection order.
func (e *Engine) siblingFacetFields(ctx context.Context, query *Query, selection search.FilterSelection, facets search.FacetFiltersToIncludeInResult) ([]search.FacetField, error) {
	codes := selection.Codes()

	if len(codes) == 0 || len(facets) == 0 {
		return nil, nil
	}

	results := make([]search.FacetFieldCollection, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.siblingConcurrency)

	for i, code := range codes {
		g.Go(func() error {
			rest := selection.Without(code)

			e.metrics.countSiblingQuery()

			resp, err := e.querySolr(gctx, query, NewFacetFilterRequest(facets, rest, e.registry), true)
			if err != nil {
				return fmt.Errorf("sibling facet query for '%s': %w", code, err)
			}

			fields, err := resp.NonSelectedFacetFields(rest.Codes())
			if err != nil {
				return fmt.Errorf("sibling facet query for '%s': %w", code, err)
			}

			results[i] = fields

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var siblings []search.FacetField

	for _, fields := range results {
		siblings = append(siblings, fields...)
	}

	return siblings, nil
}

// querySolr merges query and facet params into one select; facetsOnly asks for no documents
func (e *Engine) querySolr(ctx context.Context, query *Query, facetRequest *FacetFilterRequest, facetsOnly bool) (*Response, error) {
	params, err := query.Params()
	if err != nil {
		return nil, err
	}

	facetParams, err := facetRequest.Params()
	if err != nil {
		return nil, err
	}

	params = mergeValues(params, facetParams)

	if facetsOnly == true {
		params.Set("rows", "0")
		params.Del("sort")
	}

	raw, err := e.client.Select(ctx, params)
	if err != nil {
		return nil, err
	}

	return DecodeResponse(raw, e.registry)
}
