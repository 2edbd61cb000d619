package solr

import (
	"regexp"
	"strings"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/search"
)

var (
	rangedFacetQueryPattern = regexp.MustCompile(`^([^:]+):\[(.* TO .*)\]$`)
	plainFacetQueryPattern  = regexp.MustCompile(`^([^:]+):\((.*)\)$`)
)

// FacetQuery is one parsed key of Solr's facet_queries block
type FacetQuery struct {
	attributeCode string
	value         string
	count         int
	ranged        bool
}

// ParseFacetQuery recognises "attr:[from TO to]" and "attr:(value)"
func ParseFacetQuery(raw string, count int) (*FacetQuery, error) {
	if m := rangedFacetQueryPattern.FindStringSubmatch(raw); m != nil {
		return &FacetQuery{attributeCode: m[1], value: m[2], count: count, ranged: true}, nil
	}

	if m := plainFacetQueryPattern.FindStringSubmatch(raw); m != nil {
		return &FacetQuery{attributeCode: m[1], value: m[2], count: count}, nil
	}

	return nil, serr.NewInvalidFacetQueryFormatError(raw)
}

func (q *FacetQuery) AttributeCode() string {
	return q.attributeCode
}

func (q *FacetQuery) Value() string {
	return q.value
}

func (q *FacetQuery) Count() int {
	return q.count
}

func (q *FacetQuery) IsRanged() bool {
	return q.ranged
}

// EncodedValue converts the raw value into its client-facing form
func (q *FacetQuery) EncodedValue(registry search.TransformationRegistry) (string, error) {
	hasTransformation := registry != nil && registry.HasTransformationForCode(q.attributeCode)

	if q.ranged == true {
		if hasTransformation == false {
			return "", serr.NewMissingTransformationError(q.attributeCode)
		}

		transformation, err := registry.TransformationByCode(q.attributeCode)
		if err != nil {
			return "", err
		}

		bounds := strings.SplitN(q.value, " TO ", 2)

		return transformation.Encode(search.RangeValue(openBoundary(bounds[0]), openBoundary(bounds[1])))
	}

	if hasTransformation == false {
		return q.value, nil
	}

	transformation, err := registry.TransformationByCode(q.attributeCode)
	if err != nil {
		return "", err
	}

	return transformation.Encode(search.PlainValue(q.value))
}

func openBoundary(bound string) string {
	if bound == "*" {
		return ""
	}

	return bound
}
