package search

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
)

// FacetValue is the decoded form of a filter token: either a plain value or a range
type FacetValue struct {
	Plain string
	Range *FacetFilterRange
}

// PlainValue wraps a literal value
func PlainValue(v string) FacetValue {
	return FacetValue{Plain: v}
}

// RangeValue wraps a range; empty bounds are open
func RangeValue(from, to string) FacetValue {
	return FacetValue{Range: &FacetFilterRange{From: from, To: to}}
}

// IsRange reports whether the value is a range
func (v FacetValue) IsRange() bool {
	return v.Range != nil
}

// FacetFieldTransformation maps between client filter tokens and indexed values
type FacetFieldTransformation interface {
	Encode(value FacetValue) (string, error)
	Decode(token string) (FacetValue, error)
}

// TransformationRegistry looks up transformations by attribute code
type TransformationRegistry interface {
	HasTransformationForCode(code string) bool
	TransformationByCode(code string) (FacetFieldTransformation, error)
}

// Registry is a TransformationRegistry safe for concurrent reads
type Registry struct {
	mu              sync.RWMutex
	transformations map[string]FacetFieldTransformation
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{transformations: make(map[string]FacetFieldTransformation)}
}

// Register adds or replaces the transformation for code
func (r *Registry) Register(code string, t FacetFieldTransformation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transformations[code] = t
}

func (r *Registry) HasTransformationForCode(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.transformations[code]
	return ok
}

func (r *Registry) TransformationByCode(code string) (FacetFieldTransformation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transformations[code]
	if ok == false {
		return nil, serr.NewMissingTransformationError(code)
	}

	return t, nil
}

// RangeTransformation renders ranges as "from-to" labels. With a Divisor above 1,
// indexed bounds are in minor units (e.g. cents) and labels in major units.
type RangeTransformation struct {
	Separator string
	Divisor   int
}

func (t RangeTransformation) separator() string {
	if t.Separator == "" {
		return "-"
	}
	return t.Separator
}

func (t RangeTransformation) Encode(value FacetValue) (string, error) {
	if value.IsRange() == false {
		return value.Plain, nil
	}

	return t.scaleDown(value.Range.From) + t.separator() + t.scaleDown(value.Range.To), nil
}

// Decode splits at the first separator leaving two valid bounds, so negative bounds such as
// "-10-0" or "-10--5" survive a default "-" separator
func (t RangeTransformation) Decode(token string) (FacetValue, error) {
	sep := t.separator()

	var lastErr error

	for offset := 0; offset < len(token); {
		i := strings.Index(token[offset:], sep)
		if i < 0 {
			break
		}
		i += offset

		from, err := t.scaleUp(strings.TrimSpace(token[:i]))
		if err == nil {
			var to string
			if to, err = t.scaleUp(strings.TrimSpace(token[i+len(sep):])); err == nil {
				return RangeValue(from, to), nil
			}
		}

		lastErr = err
		offset = i + len(sep)
	}

	if lastErr != nil {
		return FacetValue{}, lastErr
	}

	return FacetValue{}, serr.NewValidationError("filters", fmt.Sprintf("'%s' is not a range", token))
}

func (t RangeTransformation) scaleDown(bound string) string {
	if bound == "" || t.Divisor <= 1 {
		return bound
	}

	val, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return bound
	}

	return strconv.FormatFloat(val/float64(t.Divisor), 'f', -1, 64)
}

func (t RangeTransformation) scaleUp(bound string) (string, error) {
	if bound == "" {
		return "", nil
	}

	val, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return "", serr.NewValidationError("filters", fmt.Sprintf("range bound '%s' is not numeric", bound))
	}

	if t.Divisor > 1 {
		val = val * float64(t.Divisor)
	}

	return strconv.FormatFloat(val, 'f', -1, 64), nil
}

// MappingTransformation translates indexed values to display labels and back.
// Unmapped values pass through unchanged.
type MappingTransformation struct {
	labels  map[string]string
	reverse map[string]string
}

// NewMappingTransformation builds a transformation from indexed value to label
func NewMappingTransformation(labels map[string]string) *MappingTransformation {
	m := MappingTransformation{
		labels:  make(map[string]string),
		reverse: make(map[string]string),
	}

	for value, label := range labels {
		m.labels[value] = label
		m.reverse[label] = value
	}

	return &m
}

func (m *MappingTransformation) Encode(value FacetValue) (string, error) {
	if value.IsRange() {
		return "", serr.NewValidationError("filters", "mapped facets do not support ranges")
	}

	if label, ok := m.labels[value.Plain]; ok == true {
		return label, nil
	}

	return value.Plain, nil
}

func (m *MappingTransformation) Decode(token string) (FacetValue, error) {
	if value, ok := m.reverse[token]; ok == true {
		return PlainValue(value), nil
	}

	return PlainValue(token), nil
}
