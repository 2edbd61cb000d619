package solr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serr "github.com/uvalib/solr-search-ws/internal/errors"
	"github.com/uvalib/solr-search-ws/internal/search"
)

func TestEscapeQueryChars(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{`fo"o`, `fo\"o`},
		{`b(a):[r]"`, `b\(a\)\:\[r\]\"`},
		{`ba\r`, `ba\\r`},
		{`a && b || c & d | e`, `a \&& b \|| c & d | e`},
		{`+-!{}^~*?;/`, `\+\-\!\{\}\^\~\*\?\;\/`},
		{`plain text`, `plain text`},
		{``, ``},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, EscapeQueryChars(tt.raw))
		})
	}
}

func TestFormatOperation(t *testing.T) {
	tests := []struct {
		op       search.Operation
		expected string
	}{
		{search.OperationAnything, `*:*`},
		{search.OperationEqual, `foo:"bar"`},
		{search.OperationNotEqual, `(-foo:"bar" AND *:*)`},
		{search.OperationLessThan, `(foo:[* TO bar] AND -foo:bar)`},
		{search.OperationLessOrEqualThan, `foo:[* TO bar]`},
		{search.OperationGreaterThan, `(foo:[bar TO *] AND -foo:bar)`},
		{search.OperationGreaterOrEqualThan, `foo:[bar TO *]`},
		{search.OperationLike, `(foo:"bar")`},
		{search.OperationFullText, `(full_text_search:"bar")`},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			res, err := FormatOperation(tt.op, "foo", "bar")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res)
		})
	}
}

func TestFormatOperationLikeTokens(t *testing.T) {
	res, err := FormatOperation(search.OperationLike, "foo", " bar ")
	require.NoError(t, err)
	assert.Equal(t, `(foo:"bar")`, res)

	res, err = FormatOperation(search.OperationLike, "foo", "red  leather\tshoe")
	require.NoError(t, err)
	assert.Equal(t, `(foo:"red") AND (foo:"leather") AND (foo:"shoe")`, res)
}

func TestFormatOperationUnsupported(t *testing.T) {
	_, err := FormatOperation("Between", "foo", "bar")
	require.Error(t, err)
	assert.True(t, errors.Is(err, serr.ErrUnsupportedOperation))
}
