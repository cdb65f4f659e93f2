package permission

import "strings"

// Verdict is the outcome of authorizing a component or a whole command line.
type Verdict string

const (
	VerdictExecute Verdict = "execute"
	VerdictAsk     Verdict = "ask"
	VerdictDeny    Verdict = "deny"
)

// restrictiveness orders verdicts so aggregation can pick the strictest one.
var restrictiveness = map[Verdict]int{
	VerdictExecute: 0,
	VerdictAsk:     1,
	VerdictDeny:    2,
}

// MostRestrictive returns the stricter of two verdicts (DENY > ASK > EXECUTE).
func MostRestrictive(a, b Verdict) Verdict {
	if restrictiveness[b] > restrictiveness[a] {
		return b
	}
	return a
}

// Operator is the shell control operator that followed a component.
type Operator string

const (
	OpPipe     Operator = "|"
	OpAnd      Operator = "&&"
	OpOr       Operator = "||"
	OpSequence Operator = ";"
	OpNone     Operator = ""
)

// Decision is a human response to an approval request.
type Decision string

const (
	ApproveOnce   Decision = "approve_once"
	ApproveAlways Decision = "approve_always"
	DenyOnce      Decision = "deny_once"
	DenyAlways    Decision = "deny_always"
)

// Approves reports whether the decision grants execution.
func (d Decision) Approves() bool {
	return d == ApproveOnce || d == ApproveAlways
}

// Persists reports whether the decision should be written back to the policy.
func (d Decision) Persists() bool {
	return d == ApproveAlways || d == DenyAlways
}

// Component is one command between shell control operators, after
// normalization. It is the unit the policy evaluates.
type Component struct {
	// Raw is the segment as typed, trimmed of any trailing redirection clause.
	Raw string
	// Name is the base command name, after unwrapping nested shells.
	Name string
	// Args are the remaining shell words in order.
	Args []string
	// Operator is the control operator that followed this component
	// in the original line (OpNone for the last or only component).
	Operator Operator
	// HadRedirection is true if a redirection clause was stripped.
	HadRedirection bool
	// ViaNestedShell is true if the component was extracted from inside a
	// nested shell invocation such as `bash -c "..."`.
	ViaNestedShell bool
	// FellBack is true when shell-word tokenization failed (unbalanced
	// quote) and the component was produced by naive whitespace splitting.
	// Degraded components are never matched against allow rules.
	FellBack bool
}

// Empty reports whether the component carries no command at all.
// Empty components (pure redirection fragments) contribute no verdict.
func (c Component) Empty() bool {
	return c.Name == ""
}

// Signature is the session-cache key for a component: the command name and
// its space-joined arguments.
func (c Component) Signature() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// DeniedError is returned by callers (e.g. the executor front end) when a
// command line was denied, either by policy or by the operator.
type DeniedError struct {
	SessionID string
	Command   string
	Message   string
}

func (e *DeniedError) Error() string {
	return e.Message
}

// IsDeniedError checks if an error is a command denial.
func IsDeniedError(err error) bool {
	_, ok := err.(*DeniedError)
	return ok
}
