package solr

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/uvalib/solr-search-ws/internal/search"
)

// FacetFilterRequest turns requested facets and the current filter selection into facet and fq parameters
type FacetFilterRequest struct {
	fields    search.FacetFiltersToIncludeInResult
	selection search.FilterSelection
	registry  search.TransformationRegistry
}

// NewFacetFilterRequest creates a facet request
func NewFacetFilterRequest(fields search.FacetFiltersToIncludeInResult, selection search.FilterSelection, registry search.TransformationRegistry) *FacetFilterRequest {
	return &FacetFilterRequest{fields: fields, selection: selection, registry: registry}
}

// Params builds the parameter set; an empty request yields an empty set
func (r *FacetFilterRequest) Params() (url.Values, error) {
	params := url.Values{}

	if len(r.fields) > 0 {
		params.Set("facet", "on")
		params.Set("facet.mincount", "1")
		params.Set("facet.limit", "-1")
		params.Set("facet.sort", "index")
		params["facet.field"] = r.facetFields()
		params["facet.query"] = r.facetQueries()
	}

	fq, err := r.filterQueries()
	if err != nil {
		return nil, err
	}

	if len(fq) > 0 {
		params["fq"] = fq
	}

	return params, nil
}

func (r *FacetFilterRequest) facetFields() []string {
	fields := []string{}

	for _, field := range r.fields {
		if field.Ranged == false {
			fields = append(fields, field.AttributeCode)
		}
	}

	return fields
}

func (r *FacetFilterRequest) facetQueries() []string {
	queries := []string{}

	for _, field := range r.fields {
		if field.Ranged == false {
			continue
		}

		for _, rng := range field.Ranges {
			queries = append(queries, fmt.Sprintf("%s:[%s TO %s]", field.AttributeCode, rangeBoundary(rng.From), rangeBoundary(rng.To)))
		}
	}

	return queries
}

func (r *FacetFilterRequest) filterQueries() ([]string, error) {
	var queries []string

	for _, entry := range r.selection {
		if len(entry.Values) == 0 {
			continue
		}

		query, err := r.formatFilterQuery(entry.Code, entry.Values)
		if err != nil {
			return nil, err
		}

		queries = append(queries, query)
	}

	return queries, nil
}

func (r *FacetFilterRequest) formatFilterQuery(code string, values []string) (string, error) {
	formatted := make([]string, 0, len(values))

	if r.registry != nil && r.registry.HasTransformationForCode(code) {
		transformation, err := r.registry.TransformationByCode(code)
		if err != nil {
			return "", err
		}

		for _, value := range values {
			decoded, err := transformation.Decode(value)
			if err != nil {
				return "", err
			}

			if decoded.IsRange() {
				formatted = append(formatted, fmt.Sprintf("[%s TO %s]", escapedRangeBoundary(decoded.Range.From), escapedRangeBoundary(decoded.Range.To)))
				continue
			}

			formatted = append(formatted, fmt.Sprintf(`"%s"`, EscapeQueryChars(decoded.Plain)))
		}
	} else {
		for _, value := range values {
			formatted = append(formatted, fmt.Sprintf(`"%s"`, EscapeQueryChars(value)))
		}
	}

	return fmt.Sprintf("%s:(%s)", EscapeQueryChars(code), strings.Join(formatted, " OR ")), nil
}

func rangeBoundary(bound string) string {
	if bound == "" {
		return "*"
	}

	return bound
}

func escapedRangeBoundary(bound string) string {
	if bound == "" {
		return "*"
	}

	return EscapeQueryChars(bound)
}
