package permission

import (
	"github.com/rs/zerolog"

	"github.com/shellbot-ai/shellbot/internal/logging"
)

// Policy holds the ordered deny and allow rule lists and the default for
// commands neither list mentions. Rules are evaluated in list order; the
// deny list is always consulted before the allow list, so a command matching
// both is denied.
//
// A Policy is loaded once per bot at session start and mutated in memory
// only when the operator chooses an "always" decision; appended rules are
// the only state that needs persisting back to configuration.
type Policy struct {
	deny  []*Rule
	allow []*Rule

	// AskIfUnspecified controls the verdict for commands no rule matches:
	// ASK when true, DENY when false.
	AskIfUnspecified bool

	log zerolog.Logger
}

// NewPolicy compiles the allow and deny pattern lists into a Policy.
// Malformed rules (bad regexes) are reported once here, stay in the lists in
// disabled state, and never match; evaluation continues with the rest.
func NewPolicy(allow, deny []string, askIfUnspecified bool) *Policy {
	p := &Policy{
		AskIfUnspecified: askIfUnspecified,
		log:              logging.For("policy"),
	}
	for _, text := range deny {
		p.deny = append(p.deny, p.compile(text, DirectionDeny))
	}
	for _, text := range allow {
		p.allow = append(p.allow, p.compile(text, DirectionAllow))
	}
	return p
}

func (p *Policy) compile(text string, direction Direction) *Rule {
	rule, err := ParseRule(text, direction)
	if err != nil {
		p.log.Error().
			Str("rule", text).
			Str("direction", string(direction)).
			Err(err).
			Msg("pattern failed to compile, rule disabled")
	}
	return rule
}

// Default is the verdict for components no rule matches.
func (p *Policy) Default() Verdict {
	if p.AskIfUnspecified {
		return VerdictAsk
	}
	return VerdictDeny
}

// Evaluate runs one normalized component through the rule lists.
// Degraded components (whitespace-split fallback) are never matched against
// rules; they resolve to the configured default so an unparseable command
// can never slip through an allow pattern.
func (p *Policy) Evaluate(c Component) Verdict {
	if c.Empty() || c.FellBack {
		return p.Default()
	}

	for _, rule := range p.deny {
		if rule.Matches(c.Name, c.Args) {
			p.log.Debug().Str("rule", rule.Text).Str("command", c.Signature()).Msg("deny rule matched")
			return VerdictDeny
		}
	}
	for _, rule := range p.allow {
		if rule.Matches(c.Name, c.Args) {
			return VerdictExecute
		}
	}
	return p.Default()
}

// Append compiles and appends one rule to the list named by direction,
// returning the compiled rule so callers can inspect how it will match.
func (p *Policy) Append(text string, direction Direction) *Rule {
	rule := p.compile(text, direction)
	if direction == DirectionDeny {
		p.deny = append(p.deny, rule)
	} else {
		p.allow = append(p.allow, rule)
	}
	return rule
}

// AllowPatterns returns the allow list as pattern strings, in order.
func (p *Policy) AllowPatterns() []string {
	return patternTexts(p.allow)
}

// DenyPatterns returns the deny list as pattern strings, in order.
func (p *Policy) DenyPatterns() []string {
	return patternTexts(p.deny)
}

// DisabledRules returns the rules that were disabled by compile errors, so
// the operator can fix configuration.
func (p *Policy) DisabledRules() []*Rule {
	var disabled []*Rule
	for _, rule := range append(append([]*Rule{}, p.deny...), p.allow...) {
		if rule.Disabled() {
			disabled = append(disabled, rule)
		}
	}
	return disabled
}

func patternTexts(rules []*Rule) []string {
	texts := make([]string, len(rules))
	for i, rule := range rules {
		texts[i] = rule.Text
	}
	return texts
}
