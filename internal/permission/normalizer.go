package permission

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// redirectionTokens are checked longest first so `2>>` is recognized before
// `2>` and `>` at the same position.
var redirectionTokens = []string{"&>>", "2>>", ">>", "<<", "&>", "2>", ">", "<"}

// nestedShells are invocation names whose `-c` form wraps a literal script.
var nestedShells = map[string]bool{
	"bash": true,
	"sh":   true,
	"zsh":  true,
}

// nestedShellFlags request execution of the following word as a script.
var nestedShellFlags = map[string]bool{
	"-c":  true,
	"-lc": true,
}

// Normalize turns one raw segment into a Component: it strips a trailing
// redirection clause, tokenizes the remaining text into shell words, and
// unwraps nested shell invocations such as `bash -c "ls -la"`.
//
// A segment that cannot be tokenized (unbalanced quote) is never dropped;
// it degrades to naive whitespace splitting with FellBack set so the policy
// can treat it with the configured default instead of evaluating it as empty.
func Normalize(seg Segment) Component {
	raw, hadRedirection := stripRedirection(seg.Raw)

	comp := Component{
		Raw:            raw,
		Operator:       seg.Operator,
		HadRedirection: hadRedirection,
	}

	words, ok := tokenize(raw)
	if !ok {
		comp.FellBack = true
		words = strings.Fields(raw)
	}
	if len(words) == 0 {
		return comp
	}

	comp.Name = words[0]
	if len(words) > 1 {
		comp.Args = words[1:]
	}

	// Unwrap `bash -c "script"` so the inner command is what gets evaluated.
	// Exactly three words: anything after the script (extra positional
	// arguments, a backgrounded tail) keeps the outer invocation as the
	// component instead of evaluating a subset of it.
	if !comp.FellBack && nestedShells[words[0]] && len(words) == 3 && nestedShellFlags[words[1]] {
		if inner, ok := tokenize(words[2]); ok && len(inner) > 0 {
			comp.Name = inner[0]
			comp.Args = nil
			if len(inner) > 1 {
				comp.Args = inner[1:]
			}
			comp.ViaNestedShell = true
		}
	}

	return comp
}

// NormalizeLine splits a raw command line and normalizes every segment.
func NormalizeLine(line string) []Component {
	segments := Split(line)
	components := make([]Component, 0, len(segments))
	for _, seg := range segments {
		components = append(components, Normalize(seg))
	}
	return components
}

// stripRedirection truncates the segment at the first redirection token that
// is not inside quotes. Longer tokens win at the same position, so `cmd 2> f`
// truncates before the `2`, not after it.
func stripRedirection(raw string) (string, bool) {
	inQuotes := false
	var quoteChar byte
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]

		if ch == '\\' && !escaped {
			escaped = true
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

		if !inQuotes && !escaped {
			for _, tok := range redirectionTokens {
				if strings.HasPrefix(raw[i:], tok) {
					return strings.TrimSpace(raw[:i]), true
				}
			}
		}

		escaped = false
	}

	return raw, false
}

// tokenize splits text into shell words, honoring quotes and escapes.
// It parses with the bash grammar and flattens every statement in source
// order, keeping control operators the splitter does not break on (`&`, and
// `&&`/`;` inside nested shell scripts) as words of their own — so a trailing
// command can never vanish from the argument list and ride an approval of
// the leading one. Constructs with no flat word form (subshells, loops)
// report failure so the caller degrades to whitespace splitting instead of
// matching a truncated form.
func tokenize(text string) ([]string, bool) {
	parser := syntax.NewParser(
		syntax.Variant(syntax.LangBash),
		syntax.KeepComments(false),
	)

	file, err := parser.Parse(strings.NewReader(text), "")
	if err != nil {
		return nil, false
	}

	var words []string
	for i, stmt := range file.Stmts {
		if i > 0 && !file.Stmts[i-1].Background {
			words = append(words, ";")
		}
		if !flattenStmt(stmt, &words) {
			return nil, false
		}
	}
	return words, true
}

// flattenStmt appends the word form of one statement: call-expression words,
// binary operators between nested statements, redirect tokens, and a
// trailing `&` for background statements.
func flattenStmt(stmt *syntax.Stmt, words *[]string) bool {
	if stmt.Coprocess {
		return false
	}
	if stmt.Negated {
		*words = append(*words, "!")
	}

	switch cmd := stmt.Cmd.(type) {
	case *syntax.CallExpr:
		for _, assign := range cmd.Assigns {
			if assign.Name == nil {
				return false
			}
			text := assign.Name.Value + "="
			if assign.Value != nil {
				text += wordToString(assign.Value)
			}
			*words = append(*words, text)
		}
		for _, arg := range cmd.Args {
			*words = append(*words, wordToString(arg))
		}
	case *syntax.BinaryCmd:
		if !flattenStmt(cmd.X, words) {
			return false
		}
		*words = append(*words, cmd.Op.String())
		if !flattenStmt(cmd.Y, words) {
			return false
		}
	case nil:
		// redirection-only statement
	default:
		return false
	}

	for _, redir := range stmt.Redirs {
		op := redir.Op.String()
		if redir.N != nil {
			op = redir.N.Value + op
		}
		*words = append(*words, op)
		if redir.Word != nil {
			*words = append(*words, wordToString(redir.Word))
		}
	}
	if stmt.Background {
		*words = append(*words, "&")
	}
	return true
}

// wordToString flattens a syntax.Word into the literal text the policy
// matches on. Parameter expansions and command substitutions become
// placeholders; the engine reasons about text, not runtime expansion.
func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				switch dp := qp.(type) {
				case *syntax.Lit:
					sb.WriteString(dp.Value)
				case *syntax.ParamExp:
					sb.WriteString("$" + dp.Param.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}
