package solr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/search"
)

const sortSuffix = "_sort"

// Query compiles criteria and options into the q/rows/start/sort parameters.
// The result is computed once and shared by every caller.
type Query struct {
	criteria search.Criterion
	options  *search.QueryOptions

	once   sync.Once
	params url.Values
	err    error
}

// NewQuery creates a query; nothing is compiled until Params is called
func NewQuery(criteria search.Criterion, options *search.QueryOptions) *Query {
	return &Query{criteria: criteria, options: options}
}

// Params returns a copy of the compiled parameters
func (q *Query) Params() (url.Values, error) {
	q.once.Do(func() {
		q.params, q.err = q.compile()
	})

	if q.err != nil {
		return nil, q.err
	}

	return cloneValues(q.params), nil
}

func (q *Query) compile() (url.Values, error) {
	if q.criteria == nil {
		return nil, serr.NewValidationError("criteria", "missing search criteria")
	}

	criteriaClause, err := renderCriterion(q.criteria)
	if err != nil {
		return nil, err
	}

	queryString := fmt.Sprintf("(%s)", criteriaClause)

	if contextClause := renderContext(q.options.Context()); contextClause != "" {
		queryString = fmt.Sprintf("%s AND %s", queryString, contextClause)
	}

	rows := q.options.RowsPerPage()

	params := url.Values{}
	params.Set("q", queryString)
	params.Set("rows", strconv.Itoa(rows))
	params.Set("start", strconv.Itoa(q.options.PageNumber()*rows))

	if sortBy := q.options.SortBy(); sortBy.AttributeCode != "" {
		params.Set("sort", fmt.Sprintf("%s%s %s", sortBy.AttributeCode, sortSuffix, sortBy.Direction))
	}

	return params, nil
}

func renderCriterion(criterion search.Criterion) (string, error) {
	switch c := criterion.(type) {
	case *search.Composite:
		if len(c.Criteria) == 0 {
			return "", serr.NewValidationError("criteria", fmt.Sprintf("composite '%s' criterion has no children", c.Condition))
		}

		clauses := make([]string, 0, len(c.Criteria))

		for _, child := range c.Criteria {
			clause, err := renderCriterion(child)
			if err != nil {
				return "", err
			}
			clauses = append(clauses, clause)
		}

		glue := fmt.Sprintf(" %s ", strings.ToUpper(string(c.Condition)))

		return "(" + strings.Join(clauses, glue) + ")", nil

	case *search.Leaf:
		return FormatOperation(c.Operation, EscapeQueryChars(c.FieldName), EscapeQueryChars(c.FieldValue))
	}

	return "", serr.NewValidationError("criteria", fmt.Sprintf("unknown criterion type %T", criterion))
}

// renderContext matches documents that either lack a dimension or carry exactly its value
func renderContext(ctx search.Context) string {
	if ctx == nil {
		return ""
	}

	var clauses []string

	for _, code := range ctx.SupportedCodes() {
		field := EscapeQueryChars(code)
		value := EscapeQueryChars(ctx.Value(code))
		clauses = append(clauses, fmt.Sprintf(`((-%[1]s:[* TO *] AND *:*) OR %[1]s:"%[2]s")`, field, value))
	}

	return strings.Join(clauses, " AND ")
}

func cloneValues(v url.Values) url.Values {
	res := make(url.Values, len(v))

	for key, values := range v {
		res[key] = append([]string{}, values...)
	}

	return res
}

// mergeValues appends every value of src onto dst
func mergeValues(dst, src url.Values) url.Values {
	for key, values := range src {
		if _, ok := dst[key]; ok == false {
			dst[key] = []string{}
		}
		dst[key] = append(dst[key], values...)
	}

	return dst
}
