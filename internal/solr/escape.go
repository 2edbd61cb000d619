package solr

import "strings"

var queryCharsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`+`, `\+`,
	`-`, `\-`,
	`&&`, `\&&`,
	`||`, `\||`,
	`!`, `\!`,
	`(`, `\(`,
	`)`, `\)`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`^`, `\^`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`:`, `\:`,
	`"`, `\"`,
	`;`, `\;`,
	`/`, `\/`,
)

// EscapeQueryChars backslash-escapes Solr query syntax in a single pass,
// so backslashes it inserts are never escaped again.
func EscapeQueryChars(raw string) string {
	return queryCharsEscaper.Replace(raw)
}
