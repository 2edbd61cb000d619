package search

import (
	"fmt"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
)

// SortDirection is either asc or desc
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SortBy names the attribute to order results by
type SortBy struct {
	AttributeCode string
	Direction     SortDirection
}

// NewSortBy validates the direction; an empty attribute code means unsorted
func NewSortBy(code string, direction SortDirection) (SortBy, error) {
	switch direction {
	case SortAscending, SortDescending:
	default:
		return SortBy{}, serr.NewValidationError("sort", fmt.Sprintf("invalid sort direction '%s'", direction))
	}

	return SortBy{AttributeCode: code, Direction: direction}, nil
}

// QueryOptions bundles everything about a query except its criteria
type QueryOptions struct {
	context      Context
	filters      FilterSelection
	facetFilters FacetFiltersToIncludeInResult
	rowsPerPage  int
	pageNumber   int
	sortBy       SortBy
}

// NewQueryOptions validates paging and returns immutable options
func NewQueryOptions(filters FilterSelection, ctx Context, facetFilters FacetFiltersToIncludeInResult, rowsPerPage, pageNumber int, sortBy SortBy) (*QueryOptions, error) {
	if rowsPerPage <= 0 {
		return nil, serr.NewValidationError("rows", fmt.Sprintf("rows per page must be positive, got %d", rowsPerPage))
	}

	if pageNumber < 0 {
		return nil, serr.NewValidationError("page", fmt.Sprintf("page number must not be negative, got %d", pageNumber))
	}

	if sortBy.AttributeCode != "" && sortBy.Direction != SortAscending && sortBy.Direction != SortDescending {
		return nil, serr.NewValidationError("sort", fmt.Sprintf("invalid sort direction '%s'", sortBy.Direction))
	}

	if ctx == nil {
		ctx = MapContext{}
	}

	return &QueryOptions{
		context:      ctx,
		filters:      filters,
		facetFilters: facetFilters,
		rowsPerPage:  rowsPerPage,
		pageNumber:   pageNumber,
		sortBy:       sortBy,
	}, nil
}

func (o *QueryOptions) Context() Context {
	return o.context
}

func (o *QueryOptions) FilterSelection() FilterSelection {
	return o.filters
}

func (o *QueryOptions) FacetFiltersToIncludeInResult() FacetFiltersToIncludeInResult {
	return o.facetFilters
}

func (o *QueryOptions) RowsPerPage() int {
	return o.rowsPerPage
}

func (o *QueryOptions) PageNumber() int {
	return o.pageNumber
}

func (o *QueryOptions) SortBy() SortBy {
	return o.sortBy
}

