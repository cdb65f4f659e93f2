package permission

import "strings"

// Segment is one raw slice of a command line together with the control
// operator that closed it.
type Segment struct {
	Raw      string
	Operator Operator
}

// controlOperators are matched longest first so `&&` wins over `&` followed
// by `&`, and `||` wins over two pipes.
var controlOperators = []Operator{OpAnd, OpOr, OpPipe, OpSequence}

// Split breaks a raw command line into ordered segments joined by shell
// control operators, respecting single quotes, double quotes, and backslash
// escapes. Operator-like characters inside quotes are literal. Escape
// characters are kept in the segment so downstream tokenization sees the
// same escaping the shell would.
//
// Empty segments (two operators with nothing between them) are dropped. An
// empty or all-whitespace line yields no segments.
func Split(line string) []Segment {
	var segments []Segment
	var current strings.Builder

	inQuotes := false
	var quoteChar byte
	escaped := false

	flush := func(op Operator) {
		raw := strings.TrimSpace(current.String())
		current.Reset()
		if raw != "" {
			segments = append(segments, Segment{Raw: raw, Operator: op})
		}
	}

	i := 0
	for i < len(line) {
		ch := line[i]

		if ch == '\\' && !escaped {
			escaped = true
			current.WriteByte(ch)
			i++
			continue
		}

		if (ch == '"' || ch == '\'') && !escaped {
			if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else if ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			}
		}

		if inQuotes {
			current.WriteByte(ch)
			escaped = false
			i++
			continue
		}

		if !escaped {
			if op, n := matchOperator(line[i:]); n > 0 {
				flush(op)
				i += n
				continue
			}
		}

		current.WriteByte(ch)
		escaped = false
		i++
	}

	flush(OpNone)
	return segments
}

// matchOperator reports the control operator starting at s, if any,
// preferring the longest token.
func matchOperator(s string) (Operator, int) {
	for _, op := range controlOperators {
		if strings.HasPrefix(s, string(op)) {
			return op, len(op)
		}
	}
	return OpNone, 0
}
