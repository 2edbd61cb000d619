package solr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uvalib/solr-search-ws/internal/search"
)

func TestBuildDocument(t *testing.T) {
	doc := search.SearchDocument{
		ProductID: "SKU-1",
		Context:   search.NewMapContext("website", "ru", "locale", "en_US"),
		Fields: []search.DocumentField{
			{Key: "name", Values: []string{"Shoe"}},
			{Key: "size", Values: []string{"40", "41"}},
			{Key: "name", Values: []string{"Ignored"}},
			{Key: "website", Values: []string{"overridden by context"}},
		},
	}

	assert.Equal(t, map[string]interface{}{
		"id":         "SKU-1_website:ru_locale:en_US",
		"product_id": "SKU-1",
		"name":       []string{"Shoe"},
		"size":       []string{"40", "41"},
		"website":    "ru",
		"locale":     "en_US",
	}, BuildDocument(doc))
}

func TestBuildDocumentWithoutContext(t *testing.T) {
	doc := search.SearchDocument{ProductID: "p", Fields: []search.DocumentField{{Key: "tags"}}}

	assert.Equal(t, map[string]interface{}{
		"id":         "p_",
		"product_id": "p",
		"tags":       []string{},
	}, BuildDocument(doc))
}
