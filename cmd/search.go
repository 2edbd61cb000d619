package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uvalib/virgo4-api/v4api"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/search"
	"github.com/uvalib/solr-search-ws/internal/solr"
)

const defaultRowsPerPage = 20

type searchRequest struct {
	Criteria json.RawMessage        `json:"criteria,omitempty"` // structured searches
	Query    string                 `json:"query,omitempty"`    // full text searches
	Context  search.MapContext      `json:"context,omitempty"`
	Filters  search.FilterSelection `json:"filters,omitempty"` // keyed by facet xid
	Facets   []string               `json:"facets,omitempty"`  // facet xids
	Sort     *v4api.SortOrder       `json:"sort,omitempty"`
	Page     int                    `json:"page"`
	Rows     int                    `json:"rows"`
}

type searchResult struct {
	Total         int                    `json:"total"`
	ProductIDs    []search.ProductID     `json:"product_ids"`
	FacetList     []v4api.Facet          `json:"facet_list"`
	ElapsedMS     int64                  `json:"elapsed_ms,omitempty"`
	StatusCode    int                    `json:"status_code"`
	StatusMessage string                 `json:"status_msg,omitempty"`
	Debug         map[string]interface{} `json:"debug,omitempty"`
}

type searchContext struct {
	svc      *serviceContext
	client   *clientContext
	engine   *solr.Engine
	req      searchRequest
	criteria search.Criterion // nil for full text searches
	opts     *search.QueryOptions
	res      *search.SearchEngineResponse
}

type searchResponse struct {
	status int         // http status code
	data   interface{} // data to return as JSON
	err    error       // error, if any
}

func (s *searchContext) init(p *serviceContext, c *clientContext) {
	s.svc = p
	s.client = c
	s.engine = p.solr.engine.WithRequestLogger(c.logger)
}

func (s *searchContext) log(format string, args ...interface{}) {
	s.client.log(format, args...)
}

func (s *searchContext) err(format string, args ...interface{}) {
	s.client.err(format, args...)
}

func (s *searchContext) requestContext() context.Context {
	if s.client.ginCtx != nil {
		return s.client.ginCtx.Request.Context()
	}

	return context.Background()
}

// errorStatus maps engine errors onto the status reported to callers
func errorStatus(err error) int {
	switch {
	case errors.Is(err, serr.ErrInvalidInput), errors.Is(err, serr.ErrUnsupportedOperation):
		return http.StatusBadRequest

	case errors.Is(err, serr.ErrConnection):
		return http.StatusServiceUnavailable

	case errors.Is(err, serr.ErrSolrQuery):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

func (s *searchContext) filterSelection() (search.FilterSelection, error) {
	var selection search.FilterSelection

	for _, filter := range s.req.Filters {
		facet, ok := s.svc.maps.facets[filter.Code]
		if ok == false {
			return nil, serr.NewValidationError("filters", fmt.Sprintf("received unrecognized filter: [%s]", filter.Code))
		}

		selection = append(selection, search.FilterSelectionEntry{Code: facet.Code, Values: filter.Values})
	}

	return selection, nil
}

func (s *searchContext) facetFields() (search.FacetFiltersToIncludeInResult, error) {
	var fields search.FacetFiltersToIncludeInResult

	for _, xid := range s.req.Facets {
		facet, ok := s.svc.maps.facets[xid]
		if ok == false {
			return nil, serr.NewValidationError("facets", fmt.Sprintf("received unrecognized facet: [%s]", xid))
		}

		fields = append(fields, facetRequestField(facet))
	}

	return fields, nil
}

func facetRequestField(facet serviceConfigFacet) search.FacetFilterRequestField {
	if facet.Ranged == false {
		return search.NewFacetFilterRequestField(facet.Code)
	}

	var ranges []search.FacetFilterRange
	for _, r := range facet.Ranges {
		ranges = append(ranges, search.FacetFilterRange{From: r.From, To: r.To})
	}

	return search.NewRangedFacetFilterRequestField(facet.Code, ranges...)
}

func (s *searchContext) sortBy() (search.SortBy, error) {
	sortID := s.svc.config.DefaultSort.XID
	order := s.svc.config.DefaultSort.Order

	if s.req.Sort != nil {
		if s.req.Sort.SortID != "" {
			sortID = s.req.Sort.SortID
		}

		if s.req.Sort.Order != "" {
			order = s.req.Sort.Order
		}
	}

	// relevance
	if sortID == "" {
		return search.SortBy{}, nil
	}

	field, ok := s.svc.maps.sortFields[sortID]
	if ok == false {
		return search.SortBy{}, serr.NewValidationError("sort", fmt.Sprintf("received unrecognized sort id: [%s]", sortID))
	}

	if order == "" {
		order = string(search.SortAscending)
	}

	return search.NewSortBy(field, search.SortDirection(order))
}

func (s *searchContext) queryOptions() (*search.QueryOptions, error) {
	filters, err := s.filterSelection()
	if err != nil {
		return nil, err
	}

	facets, err := s.facetFields()
	if err != nil {
		return nil, err
	}

	sortBy, err := s.sortBy()
	if err != nil {
		return nil, err
	}

	ctx := s.req.Context
	if len(ctx) == 0 {
		ctx = s.svc.config.DefaultContext
	}

	rows := s.req.Rows
	if rows == 0 {
		rows = defaultRowsPerPage
	}

	return search.NewQueryOptions(filters, ctx, facets, rows, s.req.Page, sortBy)
}

func (s *searchContext) performQuery() searchResponse {
	s.log("**********  START SOLR QUERY  **********")

	var err error

	if s.criteria == nil {
		s.res, err = s.engine.QueryFullText(s.requestContext(), s.req.Query, s.opts)
	} else {
		s.res, err = s.engine.Query(s.requestContext(), s.criteria, s.opts)
	}

	s.log("**********   END SOLR QUERY   **********")

	if err != nil {
		s.err("query execution error: %s", err.Error())
		return searchResponse{status: errorStatus(err), err: err}
	}

	return searchResponse{status: http.StatusOK}
}

// buildFacetList converts facet results into api facets, in requested order
func (s *searchContext) buildFacetList() []v4api.Facet {
	facetList := []v4api.Facet{}

	selection := s.opts.FilterSelection()

	for _, requested := range s.opts.FacetFiltersToIncludeInResult() {
		field, ok := s.res.FacetFields.Get(requested.AttributeCode)
		if ok == false {
			continue
		}

		xid := s.svc.maps.facetXIDs[field.AttributeCode]

		facet := v4api.Facet{
			ID:   xid,
			Name: xid,
		}

		if requested.Ranged == true {
			facet.Type = "range"
		}

		selected := make(map[string]bool)
		for _, val := range selection.Values(field.AttributeCode) {
			selected[val] = true
		}

		for _, val := range field.Values {
			facet.Buckets = append(facet.Buckets, v4api.FacetBucket{Value: val.Value, Count: val.Count, Selected: selected[val.Value]})
		}

		facetList = append(facetList, facet)
	}

	return facetList
}

func (s *searchContext) buildSearchResult() *searchResult {
	result := &searchResult{
		Total:      s.res.TotalNumberOfResults,
		ProductIDs: s.res.ProductIDs,
		FacetList:  s.buildFacetList(),
		ElapsedMS:  int64(time.Since(s.client.start) / time.Millisecond),
		StatusCode: http.StatusOK,
	}

	if result.ProductIDs == nil {
		result.ProductIDs = []search.ProductID{}
	}

	if s.client.opts.debug == true {
		result.Debug = make(map[string]interface{})
		result.Debug["context"] = s.opts.Context().String()
		result.Debug["page"] = s.opts.PageNumber()
		result.Debug["rows"] = s.opts.RowsPerPage()
		if s.criteria != nil {
			result.Debug["criteria"] = s.criteria
		}
	}

	return result
}

func (s *searchContext) prepareSearch(c *gin.Context, fullText bool) error {
	if err := c.ShouldBindJSON(&s.req); err != nil {
		return serr.NewValidationError("request", err.Error())
	}

	if fullText == true {
		s.log("[SEARCH] full text query: [%s]", s.req.Query)

		if strings.TrimSpace(s.req.Query) == "" {
			return serr.NewValidationError("query", "full text query is empty")
		}
	} else {
		s.log("[SEARCH] criteria: [%s]", string(s.req.Criteria))

		if len(s.req.Criteria) == 0 {
			return serr.NewValidationError("criteria", "search criteria are missing")
		}

		criteria, err := search.UnmarshalCriterion(s.req.Criteria)
		if err != nil {
			return err
		}

		s.criteria = criteria
	}

	opts, err := s.queryOptions()
	if err != nil {
		return err
	}

	s.opts = opts

	return nil
}

func (s *searchContext) handleSearchRequest(c *gin.Context, fullText bool) searchResponse {
	if err := s.prepareSearch(c, fullText); err != nil {
		status := errorStatus(err)
		return searchResponse{status: status, data: searchResult{StatusCode: status, StatusMessage: err.Error()}, err: err}
	}

	if resp := s.performQuery(); resp.err != nil {
		resp.data = searchResult{StatusCode: resp.status, StatusMessage: resp.err.Error()}
		return resp
	}

	return searchResponse{status: http.StatusOK, data: s.buildSearchResult()}
}

func (s *searchContext) handleAddDocumentsRequest(c *gin.Context) searchResponse {
	var docs []search.SearchDocument

	if err := c.ShouldBindJSON(&docs); err != nil {
		return searchResponse{status: http.StatusBadRequest, err: err}
	}

	s.log("[INDEX] received %d document(s)", len(docs))

	if err := s.engine.AddDocuments(s.requestContext(), docs...); err != nil {
		s.err("indexing error: %s", err.Error())
		return searchResponse{status: errorStatus(err), err: err}
	}

	return searchResponse{status: http.StatusOK, data: map[string]int{"added": len(docs)}}
}

func (s *searchContext) handleClearRequest() searchResponse {
	if err := s.engine.Clear(s.requestContext()); err != nil {
		s.err("clear error: %s", err.Error())
		return searchResponse{status: errorStatus(err), err: err}
	}

	return searchResponse{status: http.StatusOK}
}

func (s *searchContext) handlePingRequest() searchResponse {
	if err := s.engine.Ping(s.requestContext()); err != nil {
		return searchResponse{status: errorStatus(err), err: err}
	}

	return searchResponse{status: http.StatusOK}
}
