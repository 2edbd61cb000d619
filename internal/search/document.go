package search

import (
	"encoding/json"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/ordered"
)

// DocumentField is one indexed field; single values are still lists
type DocumentField struct {
	Key    string
	Values []string
}

// SearchDocument is a product prepared for indexing in one context
type SearchDocument struct {
	ProductID ProductID
	Context   Context
	Fields    []DocumentField
}

type searchDocumentWire struct {
	ProductID ProductID      `json:"product_id"`
	Context   MapContext     `json:"context"`
	Fields    ordered.Object `json:"fields"`
}

// UnmarshalJSON decodes {"product_id": ..., "context": {...}, "fields": {"k": "v" | ["v", ...]}}
func (d *SearchDocument) UnmarshalJSON(data []byte) error {
	var wire searchDocumentWire

	if err := json.Unmarshal(data, &wire); err != nil {
		return serr.NewValidationError("document", err.Error())
	}

	if wire.ProductID == "" {
		return serr.NewValidationError("product_id", "missing product id")
	}

	doc := SearchDocument{ProductID: wire.ProductID, Context: wire.Context}

	if doc.Context == nil {
		doc.Context = MapContext{}
	}

	for _, member := range wire.Fields {
		values, err := fieldValues(member.Value)
		if err != nil {
			return serr.NewValidationError(member.Key, err.Error())
		}
		doc.Fields = append(doc.Fields, DocumentField{Key: member.Key, Values: values})
	}

	*d = doc

	return nil
}

func fieldValues(raw json.RawMessage) ([]string, error) {
	var list []json.RawMessage

	if err := json.Unmarshal(raw, &list); err != nil {
		single, err := scalarString(raw)
		if err != nil {
			return nil, err
		}
		return []string{single}, nil
	}

	values := make([]string, 0, len(list))

	for _, item := range list {
		val, err := scalarString(item)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}

	return values, nil
}
