package solr

import "github.com/uvalib/solr-search-ws/internal/search"

const (
	// DocumentIDFieldName holds the product id joined with the context string
	DocumentIDFieldName = "id"

	// ProductIDFieldName holds the bare product id
	ProductIDFieldName = "product_id"
)

// BuildDocument flattens a search document into the field map sent to /update.
// Later sources override earlier ones: id fields, then document fields, then context codes.
// Within the document fields the first occurrence of a key wins.
func BuildDocument(doc search.SearchDocument) map[string]interface{} {
	ctxString := ""
	if doc.Context != nil {
		ctxString = doc.Context.String()
	}

	res := map[string]interface{}{
		DocumentIDFieldName: string(doc.ProductID) + "_" + ctxString,
		ProductIDFieldName:  string(doc.ProductID),
	}

	seen := make(map[string]bool)

	for _, field := range doc.Fields {
		if seen[field.Key] == true {
			continue
		}
		seen[field.Key] = true

		values := field.Values
		if values == nil {
			values = []string{}
		}

		res[field.Key] = values
	}

	if doc.Context != nil {
		for _, code := range doc.Context.SupportedCodes() {
			res[code] = doc.Context.Value(code)
		}
	}

	return res
}
