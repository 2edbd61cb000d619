package solr

import (
	"fmt"
	"strings"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/search"
)

// FullTextSearchFieldName is the catch-all field targeted by full text queries
const FullTextSearchFieldName = "full_text_search"

// operatorFormatter renders one comparison; field and value arrive escaped
type operatorFormatter func(field, value string) string

var operatorFormatters = map[search.Operation]operatorFormatter{
	search.OperationAnything: func(field, value string) string {
		return "*:*"
	},
	search.OperationEqual: func(field, value string) string {
		return fmt.Sprintf(`%s:"%s"`, field, value)
	},
	search.OperationNotEqual: func(field, value string) string {
		return fmt.Sprintf(`(-%s:"%s" AND *:*)`, field, value)
	},
	search.OperationLessThan: func(field, value string) string {
		return fmt.Sprintf(`(%[1]s:[* TO %[2]s] AND -%[1]s:%[2]s)`, field, value)
	},
	search.OperationLessOrEqualThan: func(field, value string) string {
		return fmt.Sprintf(`%s:[* TO %s]`, field, value)
	},
	search.OperationGreaterThan: func(field, value string) string {
		return fmt.Sprintf(`(%[1]s:[%[2]s TO *] AND -%[1]s:%[2]s)`, field, value)
	},
	search.OperationGreaterOrEqualThan: func(field, value string) string {
		return fmt.Sprintf(`%s:[%s TO *]`, field, value)
	},
	search.OperationLike: func(field, value string) string {
		var tokens []string
		for _, token := range strings.Fields(value) {
			tokens = append(tokens, fmt.Sprintf(`(%s:"%s")`, field, token))
		}
		return strings.Join(tokens, " AND ")
	},
	search.OperationFullText: func(field, value string) string {
		return fmt.Sprintf(`(%s:"%s")`, FullTextSearchFieldName, value)
	},
}

// FormatOperation renders a leaf comparison from an escaped field and value
func FormatOperation(op search.Operation, field, value string) (string, error) {
	formatter, ok := operatorFormatters[op]
	if ok == false {
		return "", serr.NewUnsupportedOperationError(string(op))
	}

	return formatter(field, value), nil
}
