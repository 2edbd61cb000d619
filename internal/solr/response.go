package solr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/ordered"
	"github.com/uvalib/solr-search-ws/internal/search"
)

type solrResponseHeader struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

type solrError struct {
	Msg  string `json:"msg"`
	Code int    `json:"code"`
}

type solrResponseBody struct {
	NumFound *int                     `json:"numFound"`
	Docs     []map[string]interface{} `json:"docs"`
}

type solrFacetCounts struct {
	FacetFields  ordered.Object `json:"facet_fields"`
	FacetQueries ordered.Object `json:"facet_queries"`
}

type solrResponse struct {
	ResponseHeader solrResponseHeader `json:"responseHeader"`
	Error          *solrError         `json:"error"`
	Response       *solrResponseBody  `json:"response"`
	FacetCounts    *solrFacetCounts   `json:"facet_counts"`
}

type solrDocument struct {
	ProductID *string `json:"product_id"`
}

type rawFacetField struct {
	attributeCode string
	values        []search.FacetFieldValue
}

// Response is a decoded Solr select response
type Response struct {
	header       solrResponseHeader
	total        int
	productIDs   []search.ProductID
	facetFields  []rawFacetField
	facetQueries []*FacetQuery
	registry     search.TransformationRegistry
}

// DecodeResponse parses a select response. A Solr error object always wins over any other content.
func DecodeResponse(raw []byte, registry search.TransformationRegistry) (*Response, error) {
	if err := solrErrorOf(raw); err != nil {
		return nil, err
	}

	var res solrResponse

	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode solr response: %w", err)
	}

	r := Response{header: res.ResponseHeader, registry: registry, productIDs: []search.ProductID{}}

	if res.Response != nil {
		if res.Response.NumFound != nil {
			r.total = *res.Response.NumFound
		}

		ids, err := decodeProductIDs(res.Response.Docs)
		if err != nil {
			return nil, err
		}
		r.productIDs = ids
	}

	if res.FacetCounts != nil {
		fields, err := decodeFacetFields(res.FacetCounts.FacetFields)
		if err != nil {
			return nil, err
		}
		r.facetFields = fields

		queries, err := decodeFacetQueries(res.FacetCounts.FacetQueries)
		if err != nil {
			return nil, err
		}
		r.facetQueries = queries
	}

	return &r, nil
}

// solrErrorOf returns a SolrQueryError when raw carries an error object
func solrErrorOf(raw []byte) error {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}

	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode solr response: %w", err)
	}

	if len(envelope.Error) == 0 || bytes.Equal(envelope.Error, []byte("null")) {
		return nil
	}

	var e solrError
	if err := json.Unmarshal(envelope.Error, &e); err != nil {
		return serr.NewSolrQueryError(string(envelope.Error))
	}

	return serr.NewSolrQueryError(e.Msg, e.Code)
}

func decodeProductIDs(docs []map[string]interface{}) ([]search.ProductID, error) {
	var decoded []solrDocument

	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &decoded,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}

	if err := dec.Decode(docs); err != nil {
		return nil, fmt.Errorf("failed to decode solr documents: %w", err)
	}

	ids := make([]search.ProductID, 0, len(decoded))

	for i, doc := range decoded {
		if doc.ProductID == nil {
			return nil, fmt.Errorf("failed to decode solr documents: document %d has no product_id", i)
		}

		ids = append(ids, search.ProductID(*doc.ProductID))
	}

	return ids, nil
}

// decodeFacetFields rebuilds [value1, count1, value2, count2, ...] into pairs
func decodeFacetFields(obj ordered.Object) ([]rawFacetField, error) {
	var fields []rawFacetField

	for _, member := range obj {
		var flat []json.RawMessage
		if err := json.Unmarshal(member.Value, &flat); err != nil {
			return nil, fmt.Errorf("failed to decode facet field '%s': %w", member.Key, err)
		}

		field := rawFacetField{attributeCode: member.Key, values: []search.FacetFieldValue{}}

		for i := 0; i+1 < len(flat); i += 2 {
			value, err := scalarText(flat[i])
			if err != nil {
				return nil, fmt.Errorf("failed to decode facet field '%s': %w", member.Key, err)
			}

			var count int
			if err := json.Unmarshal(flat[i+1], &count); err != nil {
				return nil, fmt.Errorf("failed to decode facet field '%s': %w", member.Key, err)
			}

			field.values = append(field.values, search.FacetFieldValue{Value: value, Count: count})
		}

		fields = append(fields, field)
	}

	return fields, nil
}

func decodeFacetQueries(obj ordered.Object) ([]*FacetQuery, error) {
	var queries []*FacetQuery

	for _, member := range obj {
		var count int
		if err := json.Unmarshal(member.Value, &count); err != nil {
			return nil, fmt.Errorf("failed to decode facet query '%s': %w", member.Key, err)
		}

		query, err := ParseFacetQuery(member.Key, count)
		if err != nil {
			return nil, err
		}

		queries = append(queries, query)
	}

	return queries, nil
}

// scalarText returns the text of a JSON string or number
func scalarText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}

	return n.String(), nil
}

// TotalNumberOfResults is response.numFound, or 0 when absent
func (r *Response) TotalNumberOfResults() int {
	return r.total
}

// MatchingProductIDs lists response.docs[].product_id in order
func (r *Response) MatchingProductIDs() []search.ProductID {
	return r.productIDs
}

// Status is the responseHeader status
func (r *Response) Status() int {
	return r.header.Status
}

// QTime is the responseHeader query time
func (r *Response) QTime() int {
	return r.header.QTime
}

// NonSelectedFacetFields returns facet fields and facet queries whose attribute is not in selectedCodes
func (r *Response) NonSelectedFacetFields(selectedCodes []string) (search.FacetFieldCollection, error) {
	selected := make(map[string]bool)
	for _, code := range selectedCodes {
		selected[code] = true
	}

	collection := search.FacetFieldCollection{}

	for _, field := range r.facetFields {
		if selected[field.attributeCode] == true {
			continue
		}

		collection = append(collection, search.FacetField{AttributeCode: field.attributeCode, Values: field.values})
	}

	fromQueries, err := r.facetFieldsFromQueries(selected)
	if err != nil {
		return nil, err
	}

	return append(collection, fromQueries...), nil
}

func (r *Response) facetFieldsFromQueries(selected map[string]bool) ([]search.FacetField, error) {
	var fields []search.FacetField
	fieldIndex := make(map[string]int)
	valueIndex := make(map[string]map[string]int)

	for _, query := range r.facetQueries {
		code := query.AttributeCode()

		if selected[code] == true {
			continue
		}

		value, err := query.EncodedValue(r.registry)
		if err != nil {
			return nil, err
		}

		idx, ok := fieldIndex[code]
		if ok == false {
			idx = len(fields)
			fieldIndex[code] = idx
			valueIndex[code] = make(map[string]int)
			fields = append(fields, search.FacetField{AttributeCode: code, Values: []search.FacetFieldValue{}})
		}

		// a repeated value keeps its first position but takes the latest count
		if pos, seen := valueIndex[code][value]; seen == true {
			fields[idx].Values[pos].Count = query.Count()
			continue
		}

		valueIndex[code][value] = len(fields[idx].Values)
		fields[idx].Values = append(fields[idx].Values, search.FacetFieldValue{Value: value, Count: query.Count()})
	}

	return fields, nil
}
