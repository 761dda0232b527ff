package app

import (
	"regexp"
	"strconv"
	"strings"
)

const maxTracedQueryLength = 512

var (
	queryWhitespaceRegex = regexp.MustCompile(`\s+`)
	queryCommentRegex    = regexp.MustCompile(`--[^\n]*`)
	valuesTupleRegex     = regexp.MustCompile(`\(\s*\$\d+(?:\s*,\s*\$\d+)*\s*\)`)
	valuesListRegex      = regexp.MustCompile(`(?i)VALUES\s+(\(\s*\$\d+(?:\s*,\s*\$\d+)*\s*\)(?:\s*,\s*\(\s*\$\d+(?:\s*,\s*\$\d+)*\s*\))+)`)
)

// formatDBQueryForTrace flattens a statement into one span attribute.
// Multi-row inserts keep their first tuple and a row count.
func formatDBQueryForTrace(query string) string {
	query = queryCommentRegex.ReplaceAllString(query, " ")
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	normalized = valuesListRegex.ReplaceAllStringFunc(normalized, func(list string) string {
		tuples := valuesTupleRegex.FindAllString(list, -1)
		if len(tuples) < 2 {
			return list
		}
		return "VALUES " + tuples[0] + " /* " + strconv.Itoa(len(tuples)) + " rows */"
	})
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	return normalized[:maxTracedQueryLength] + "..."
}
