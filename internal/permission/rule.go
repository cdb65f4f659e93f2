package permission

import (
	"fmt"
	"regexp"
	"strings"
)

// Direction marks a rule as granting or blocking execution.
type Direction string

const (
	DirectionAllow Direction = "allow"
	DirectionDeny  Direction = "deny"
)

// matcherKind is the closed set of matcher variants, decided once at parse
// time so matching is a plain dispatch instead of repeated string inspection.
type matcherKind int

const (
	matchLiteral matcherKind = iota
	matchGlob
	matchRegex
)

// matcher is one compiled side of a rule (command name or arguments).
type matcher struct {
	kind matcherKind
	text string
	re   *regexp.Regexp
}

// Rule is one compiled entry of an allow or deny list.
//
// The textual form is `command` or `command:args`, split on the first
// unescaped `:`. Either side may be a literal, a glob (`*`, `?`), or a
// regex enclosed in `/slashes/`. A wildcard-free literal argument matcher
// uses subcommand-prefix semantics: it matches when it equals the first
// argument exactly, no matter how many arguments follow.
type Rule struct {
	// Text is the rule as written in configuration.
	Text string
	// Direction says which list the rule belongs to.
	Direction Direction

	command matcher
	args    *matcher
	// subcommandPrefix is derived at parse time from "argument matcher is a
	// wildcard-free literal".
	subcommandPrefix bool
	// disabled is set when a regex side failed to compile; the rule then
	// never matches but evaluation of the remaining rules continues.
	disabled bool
}

// ParseRule compiles a pattern string into a Rule. A malformed regex returns
// the rule in disabled state along with the compile error so the caller can
// report it once at policy load time.
func ParseRule(text string, direction Direction) (*Rule, error) {
	rule := &Rule{Text: text, Direction: direction}

	cmdText, argText, hasArgs := splitPattern(text)

	var err error
	rule.command, err = compileMatcher(cmdText)
	if err != nil {
		rule.disabled = true
		return rule, fmt.Errorf("rule %q: %w", text, err)
	}

	if hasArgs {
		m, err := compileMatcher(argText)
		if err != nil {
			rule.disabled = true
			return rule, fmt.Errorf("rule %q: %w", text, err)
		}
		rule.args = &m
		rule.subcommandPrefix = m.kind == matchLiteral
	}

	return rule, nil
}

// splitPattern splits rule text on the first unescaped `:` and unescapes
// `\:` sequences in the command side.
func splitPattern(text string) (cmd, args string, hasArgs bool) {
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch == '\\' && !escaped {
			escaped = true
			continue
		}
		if ch == ':' && !escaped {
			return unescapeColons(text[:i]), text[i+1:], true
		}
		escaped = false
	}
	return unescapeColons(text), "", false
}

func unescapeColons(s string) string {
	return strings.ReplaceAll(s, `\:`, ":")
}

// compileMatcher classifies matcher text into its variant.
func compileMatcher(text string) (matcher, error) {
	if len(text) >= 2 && strings.HasPrefix(text, "/") && strings.HasSuffix(text, "/") {
		re, err := regexp.Compile(text[1 : len(text)-1])
		if err != nil {
			return matcher{}, fmt.Errorf("invalid regex %q: %w", text, err)
		}
		return matcher{kind: matchRegex, text: text, re: re}, nil
	}
	if strings.ContainsAny(text, "*?") {
		return matcher{kind: matchGlob, text: text, re: globToRegexp(text)}, nil
	}
	return matcher{kind: matchLiteral, text: text}, nil
}

// globToRegexp compiles a glob into an anchored regexp. Only `*` (any run of
// characters) and `?` (any single character) are special; there is no
// character-class syntax, and unlike path globbing `*` crosses `/`, so a
// pattern like `http*` matches a full URL.
func globToRegexp(glob string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(glob[i])))
		}
	}
	sb.WriteString("$")
	return regexp.MustCompile(sb.String())
}

// match evaluates the matcher against a single string (the command name or
// the space-joined arguments). Regexes use unanchored search semantics; the
// rule author controls anchoring with `^` and `$`.
func (m matcher) match(s string) bool {
	switch m.kind {
	case matchLiteral:
		return m.text == s
	case matchGlob:
		return m.re.MatchString(s)
	case matchRegex:
		return m.re.MatchString(s)
	}
	return false
}

// Disabled reports whether the rule was disabled by a compile error.
func (r *Rule) Disabled() bool {
	return r.disabled
}

// Wildcarded reports whether any side of the rule matches as a glob or regex
// rather than as literal text, and so can match more commands than one.
func (r *Rule) Wildcarded() bool {
	if r.command.kind != matchLiteral {
		return true
	}
	return r.args != nil && r.args.kind != matchLiteral
}

// Matches evaluates the rule against a command name and argument list.
// The command matcher must match the name; an argument matcher, when
// present, must additionally match the arguments. Matching has no hidden
// state: the same inputs always produce the same answer.
func (r *Rule) Matches(name string, args []string) bool {
	if r.disabled {
		return false
	}
	// Empty rules match nothing.
	if r.command.text == "" && r.command.kind != matchRegex {
		return false
	}
	if !r.command.match(name) {
		return false
	}
	if r.args == nil {
		return true
	}

	joined := strings.Join(args, " ")
	if r.subcommandPrefix {
		// Wildcard-free literal: strict equality of the first argument,
		// ignoring anything that follows. Multi-word literals only match
		// the whole joined string.
		if len(args) > 0 && args[0] == r.args.text {
			return true
		}
		return joined == r.args.text
	}
	return r.args.match(joined)
}
