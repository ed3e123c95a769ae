// Package sqltext classifies SQL text into the command the query layer
// needs in order to route it: is it a read or a write, and — for EXPLAIN —
// does it need a prefix added. The specification treats a fully general SQL
// parser as an external collaborator; this is the minimal pure function the
// core actually calls; it handles the one non-trivial case the spec calls
// out by name (a WITH [RECURSIVE] CTE prefix in front of the real command).
package sqltext

import "strings"

// Command is the uppercased leading keyword that determines how a query is
// dispatched.
type Command string

const (
	SELECT             Command = "SELECT"
	INSERT             Command = "INSERT"
	UPDATE             Command = "UPDATE"
	DELETE             Command = "DELETE"
	EXPLAIN            Command = "EXPLAIN"
	EXPLAIN_QUERY_PLAN Command = "EXPLAIN QUERY PLAN"
	UNKNOWN            Command = ""
)

// IsRead reports whether the command is served by the read endpoint.
func (c Command) IsRead() bool {
	return c == SELECT || c == EXPLAIN || c == EXPLAIN_QUERY_PLAN
}

// Classify returns the command a SQL string dispatches as. A leading
// `WITH [RECURSIVE] name AS (...), ...` clause list is peeled off first; the
// command is then the first of SELECT/INSERT/UPDATE/DELETE found after it.
// EXPLAIN and EXPLAIN QUERY PLAN are recognized directly and never peeled.
func Classify(sql string) Command {
	s := strings.TrimSpace(sql)
	upper := strings.ToUpper(s)

	if strings.HasPrefix(upper, "EXPLAIN") {
		rest := strings.TrimSpace(upper[len("EXPLAIN"):])
		if strings.HasPrefix(rest, "QUERY PLAN") {
			return EXPLAIN_QUERY_PLAN
		}
		return EXPLAIN
	}

	if strings.HasPrefix(upper, "WITH") {
		if rest, ok := skipCTEList(s); ok {
			return leadingCommand(strings.ToUpper(strings.TrimSpace(rest)))
		}
	}

	return leadingCommand(upper)
}

func leadingCommand(upper string) Command {
	for _, c := range []Command{SELECT, INSERT, UPDATE, DELETE} {
		if strings.HasPrefix(upper, string(c)) {
			return c
		}
	}
	return UNKNOWN
}

// skipCTEList walks past `WITH [RECURSIVE] name [(cols)] AS (subquery)` ,
// repeated as a comma-separated list, tracking parenthesis depth and string
// literals so commas and parens inside the CTE bodies don't confuse it.
// It returns the remaining text starting at the statement that follows.
func skipCTEList(s string) (string, bool) {
	upper := strings.ToUpper(s)
	i := len("WITH")
	if rest := strings.TrimLeft(upper[i:], " \t\r\n"); strings.HasPrefix(rest, "RECURSIVE") {
		i = len(upper) - len(rest) + len("RECURSIVE")
	}

	depth := 0
	inString := false
	for i < len(s) {
		switch s[i] {
		case '\'':
			inString = !inString
		case '(':
			if !inString {
				depth++
			}
		case ')':
			if !inString {
				depth--
			}
		case ',':
			if !inString && depth == 0 {
				// another CTE follows; keep scanning past it.
			}
		default:
			if !inString && depth == 0 {
				// Once we hit a non-separator, non-whitespace byte at
				// depth 0 that isn't part of "name AS", we've reached the
				// statement that follows the CTE list only once we've
				// already consumed at least one "AS (...)" block. We
				// detect that by looking ahead for the statement keywords.
				if cmd := leadingCommand(strings.ToUpper(strings.TrimSpace(s[i:]))); cmd != UNKNOWN {
					return s[i:], true
				}
			}
		}
		i++
	}
	return "", false
}
