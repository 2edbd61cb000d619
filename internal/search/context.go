package search

import (
	"encoding/json"
	"strings"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/ordered"
)

// Context describes the dimensions (website, locale, ...) a document or query belongs to
type Context interface {
	SupportedCodes() []string
	Value(code string) string
	String() string
}

// ContextPart is one dimension of a MapContext
type ContextPart struct {
	Code  string
	Value string
}

// MapContext is a Context with a fixed code order
type MapContext []ContextPart

// NewMapContext builds a context from alternating code/value arguments
func NewMapContext(codesAndValues ...string) MapContext {
	ctx := MapContext{}

	for i := 0; i+1 < len(codesAndValues); i += 2 {
		ctx = ctx.With(codesAndValues[i], codesAndValues[i+1])
	}

	return ctx
}

// With returns a copy of the context with code set to value
func (m MapContext) With(code, value string) MapContext {
	res := make(MapContext, 0, len(m)+1)
	replaced := false

	for _, part := range m {
		if part.Code == code {
			part.Value = value
			replaced = true
		}
		res = append(res, part)
	}

	if replaced == false {
		res = append(res, ContextPart{Code: code, Value: value})
	}

	return res
}

func (m MapContext) SupportedCodes() []string {
	codes := make([]string, 0, len(m))

	for _, part := range m {
		codes = append(codes, part.Code)
	}

	return codes
}

func (m MapContext) Value(code string) string {
	for _, part := range m {
		if part.Code == code {
			return part.Value
		}
	}

	return ""
}

// String renders code:value pairs joined by underscores, e.g. "website:ru_locale:en_US"
func (m MapContext) String() string {
	parts := make([]string, 0, len(m))

	for _, part := range m {
		parts = append(parts, part.Code+":"+part.Value)
	}

	return strings.Join(parts, "_")
}

// UnmarshalJSON decodes {"code": "value", ...} keeping code order
func (m *MapContext) UnmarshalJSON(data []byte) error {
	var obj ordered.Object

	if err := json.Unmarshal(data, &obj); err != nil {
		return serr.NewValidationError("context", err.Error())
	}

	ctx := MapContext{}

	for _, member := range obj {
		value, err := scalarString(member.Value)
		if err != nil {
			return serr.NewValidationError("context", err.Error())
		}
		ctx = ctx.With(member.Key, value)
	}

	*m = ctx

	return nil
}

// MarshalJSON encodes the context as an object in code order
func (m MapContext) MarshalJSON() ([]byte, error) {
	pairs := make([]pair, 0, len(m))

	for _, part := range m {
		pairs = append(pairs, pair{key: part.Code, value: part.Value})
	}

	return marshalPairs(pairs)
}
