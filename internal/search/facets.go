package search

import (
	"encoding/json"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/ordered"
)

// FacetFilterRange is a bucket of a ranged facet; an empty bound is open
type FacetFilterRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// FacetFilterRequestField asks for facet counts on one attribute
type FacetFilterRequestField struct {
	AttributeCode string
	Ranged        bool
	Ranges        []FacetFilterRange
}

// NewFacetFilterRequestField requests exact-value facet counts
func NewFacetFilterRequestField(code string) FacetFilterRequestField {
	return FacetFilterRequestField{AttributeCode: code}
}

// NewRangedFacetFilterRequestField requests one count per range
func NewRangedFacetFilterRequestField(code string, ranges ...FacetFilterRange) FacetFilterRequestField {
	return FacetFilterRequestField{AttributeCode: code, Ranged: true, Ranges: ranges}
}

// FacetFiltersToIncludeInResult lists the facets to compute, in output order
type FacetFiltersToIncludeInResult []FacetFilterRequestField

// Codes returns the requested attribute codes
func (f FacetFiltersToIncludeInResult) Codes() []string {
	codes := make([]string, 0, len(f))

	for _, field := range f {
		codes = append(codes, field.AttributeCode)
	}

	return codes
}

// FilterSelectionEntry holds the values selected for one attribute
type FilterSelectionEntry struct {
	Code   string
	Values []string
}

// FilterSelection is the user's applied facet filters, in the order they were given
type FilterSelection []FilterSelectionEntry

// Codes returns every selected attribute code, including codes with no values
func (f FilterSelection) Codes() []string {
	codes := make([]string, 0, len(f))

	for _, entry := range f {
		codes = append(codes, entry.Code)
	}

	return codes
}

// Values returns the values selected for code
func (f FilterSelection) Values(code string) []string {
	for _, entry := range f {
		if entry.Code == code {
			return entry.Values
		}
	}

	return nil
}

// Has reports whether code is part of the selection
func (f FilterSelection) Has(code string) bool {
	for _, entry := range f {
		if entry.Code == code {
			return true
		}
	}

	return false
}

// Without returns a copy of the selection minus code
func (f FilterSelection) Without(code string) FilterSelection {
	res := FilterSelection{}

	for _, entry := range f {
		if entry.Code != code {
			res = append(res, entry)
		}
	}

	return res
}

// UnmarshalJSON decodes {"code": ["v1", "v2"], ...} keeping code order
func (f *FilterSelection) UnmarshalJSON(data []byte) error {
	var obj ordered.Object

	if err := json.Unmarshal(data, &obj); err != nil {
		return serr.NewValidationError("filters", err.Error())
	}

	sel := FilterSelection{}

	for _, member := range obj {
		var values []string
		if err := json.Unmarshal(member.Value, &values); err != nil {
			return serr.NewValidationError("filters", err.Error())
		}

		if sel.Has(member.Key) {
			continue
		}

		sel = append(sel, FilterSelectionEntry{Code: member.Key, Values: values})
	}

	*f = sel

	return nil
}

// MarshalJSON encodes the selection as an object in code order
func (f FilterSelection) MarshalJSON() ([]byte, error) {
	pairs := make([]pair, 0, len(f))

	for _, entry := range f {
		values := entry.Values
		if values == nil {
			values = []string{}
		}
		pairs = append(pairs, pair{key: entry.Code, value: values})
	}

	return marshalPairs(pairs)
}

// FacetFieldValue is one bucket of a facet result
type FacetFieldValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FacetField is the facet result for one attribute
type FacetField struct {
	AttributeCode string            `json:"attribute_code"`
	Values        []FacetFieldValue `json:"values"`
}

// FacetFieldCollection is an ordered set of facet results
type FacetFieldCollection []FacetField

// Get returns the facet field for code
func (c FacetFieldCollection) Get(code string) (FacetField, bool) {
	for _, field := range c {
		if field.AttributeCode == code {
			return field, true
		}
	}

	return FacetField{}, false
}

// ProductID identifies a matching product
type ProductID string

// SearchEngineResponse is the decoded result of a query
type SearchEngineResponse struct {
	FacetFields          FacetFieldCollection `json:"facet_fields"`
	TotalNumberOfResults int                  `json:"total"`
	ProductIDs           []ProductID          `json:"product_ids"`
}
