// Package safety holds pure guard functions applied at the edges of the
// agent: the row-limit guarantee for generated queries, the outbound message
// size check, and strict envelope decoding.
package safety

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultRowLimit is appended to read queries that carry no bound.
const DefaultRowLimit = 50

var limitClauseRe = regexp.MustCompile(`(?i)\blimit\s+\d+`)

// EnsureQueryLimit guarantees that a read-shaped query carries a row bound.
// Non-read statements (insert/update/delete/DDL) are returned unmodified, as
// is any query that already contains a LIMIT clause. Otherwise LIMIT 50 is
// appended before a trailing semicolon if present, else at the end.
// Idempotent: applying it twice equals applying it once.
func EnsureQueryLimit(query string) string {
	return EnsureQueryLimitN(query, DefaultRowLimit)
}

// EnsureQueryLimitN is EnsureQueryLimit with an explicit bound.
func EnsureQueryLimitN(query string, limit int) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return query
	}
	if !isReadQuery(trimmed) {
		return query
	}
	if limitClauseRe.MatchString(trimmed) {
		return query
	}

	if limit <= 0 {
		limit = DefaultRowLimit
	}
	clause := " LIMIT " + strconv.Itoa(limit)
	if strings.HasSuffix(trimmed, ";") {
		body := strings.TrimRight(strings.TrimSuffix(trimmed, ";"), " \t\n\r")
		return body + clause + ";"
	}
	return trimmed + clause
}

// isReadQuery reports whether the statement is SELECT-shaped, accounting for
// a leading WITH common-table-expression clause. For WITH statements the
// deciding keyword is the first top-level (paren depth zero) statement
// keyword after the CTE list.
func isReadQuery(q string) bool {
	first := firstKeyword(q)
	switch first {
	case "SELECT":
		return true
	case "WITH":
		return mainKeywordAfterCTE(q) == "SELECT"
	default:
		return false
	}
}

// mainKeywordAfterCTE scans past the CTE list and returns the statement
// keyword that follows it, uppercased.
func mainKeywordAfterCTE(q string) string {
	depth := 0
	upper := strings.ToUpper(q)
	for i := 0; i < len(upper); i++ {
		switch upper[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth != 0 {
				continue
			}
			for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
				if wordAt(upper, i, kw) {
					return kw
				}
			}
		}
	}
	return ""
}

// wordAt reports whether kw appears at offset i as a standalone word.
func wordAt(upper string, i int, kw string) bool {
	if !strings.HasPrefix(upper[i:], kw) {
		return false
	}
	if i > 0 && isWordByte(upper[i-1]) {
		return false
	}
	end := i + len(kw)
	if end < len(upper) && isWordByte(upper[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// firstKeyword returns the first SQL word of the statement, uppercased.
func firstKeyword(q string) string {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
