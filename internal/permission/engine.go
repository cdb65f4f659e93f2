package permission

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/shellbot-ai/shellbot/internal/event"
	"github.com/shellbot-ai/shellbot/internal/logging"
)

// ApprovalRequest carries everything the approval collaborator needs to put
// in front of a human: the full raw line, not just the offending component.
type ApprovalRequest struct {
	ID         string
	SessionID  string
	Command    string
	Components []Component
}

// Prompter is the external approval collaborator. It may suspend
// indefinitely awaiting a human; cancellation is signaled through ctx and is
// treated as an implicit deny-once for the line, without caching.
type Prompter interface {
	RequestApproval(ctx context.Context, req ApprovalRequest) (Decision, error)
}

// PolicyStore is the external configuration collaborator. It persists the
// policy after an "always" decision appends rules.
type PolicyStore interface {
	SavePolicy(allow, deny []string, askIfUnspecified bool) error
}

// ComponentResult pairs a component with its individual verdict.
type ComponentResult struct {
	Component Component
	Verdict   Verdict
}

// Result is the outcome of authorizing one command line.
type Result struct {
	Command    string
	Verdict    Verdict
	Components []ComponentResult
	// Decision is set when the line went through the approval collaborator.
	Decision Decision
}

// Engine authorizes raw command lines for one interactive session. It owns
// that session's ApprovalCache; the Policy and the cache are passed around
// explicitly so persistence logic can never serialize session-only state.
//
// Evaluation is synchronous: one line is fully authorized (including any
// blocking approval request) before the next is considered.
type Engine struct {
	sessionID string
	policy    *Policy
	cache     *ApprovalCache
	prompter  Prompter
	store     PolicyStore
	log       zerolog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPrompter sets the approval collaborator. Without one, ASK verdicts are
// returned to the caller unresolved.
func WithPrompter(p Prompter) EngineOption {
	return func(e *Engine) { e.prompter = p }
}

// WithPolicyStore sets the configuration collaborator that persists
// "always" decisions.
func WithPolicyStore(s PolicyStore) EngineOption {
	return func(e *Engine) { e.store = s }
}

// NewEngine creates an authorization engine for one session.
func NewEngine(sessionID string, policy *Policy, opts ...EngineOption) *Engine {
	e := &Engine{
		sessionID: sessionID,
		policy:    policy,
		cache:     NewApprovalCache(),
		log:       logging.For("engine").With().Str("session", sessionID).Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SessionID returns the session this engine authorizes for.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Policy returns the engine's current policy.
func (e *Engine) Policy() *Policy {
	return e.policy
}

// ReplacePolicy swaps in a newly loaded policy and clears the session cache,
// so approvals granted under the old rules do not outlive them.
func (e *Engine) ReplacePolicy(p *Policy) {
	e.policy = p
	e.cache.Clear()
	event.Publish(event.Event{
		Type: event.PolicyUpdated,
		Data: event.PolicyUpdatedData{
			Source: "reload",
			Rules:  len(p.AllowPatterns()) + len(p.DenyPatterns()),
		},
	})
}

// Authorize decides whether a raw command line may run. It never returns an
// error: every failure mode inside evaluation resolves to a verdict, and no
// failure resolves toward EXECUTE.
func (e *Engine) Authorize(ctx context.Context, line string) Result {
	components := NormalizeLine(line)

	result := Result{Command: line, Verdict: VerdictExecute}
	evaluated := 0
	for _, comp := range components {
		if comp.Empty() {
			// Pure redirection fragments contribute no verdict.
			continue
		}
		verdict := e.evaluateComponent(comp)
		result.Components = append(result.Components, ComponentResult{Component: comp, Verdict: verdict})
		result.Verdict = MostRestrictive(result.Verdict, verdict)
		evaluated++
	}

	if evaluated == 0 {
		result.Verdict = e.policy.Default()
	}

	if result.Verdict == VerdictAsk && e.prompter != nil {
		result = e.resolveAsk(ctx, result)
	}

	e.log.Debug().
		Str("command", line).
		Str("verdict", string(result.Verdict)).
		Int("components", evaluated).
		Msg("command authorized")

	event.Publish(event.Event{
		Type: event.CommandAuthorized,
		Data: event.CommandAuthorizedData{
			SessionID: e.sessionID,
			Command:   line,
			Verdict:   string(result.Verdict),
		},
	})

	return result
}

// evaluateComponent applies the cache-first, deny-before-allow order.
func (e *Engine) evaluateComponent(c Component) Verdict {
	if approved, ok := e.cache.Lookup(c.Signature()); ok {
		if approved {
			return VerdictExecute
		}
		return VerdictDeny
	}
	return e.policy.Evaluate(c)
}

// resolveAsk surfaces the line to the approval collaborator and applies the
// decision to the cache and, for "always" decisions, to the policy.
func (e *Engine) resolveAsk(ctx context.Context, result Result) Result {
	req := ApprovalRequest{
		ID:        ulid.Make().String(),
		SessionID: e.sessionID,
		Command:   result.Command,
	}
	for _, cr := range result.Components {
		req.Components = append(req.Components, cr.Component)
	}

	event.Publish(event.Event{
		Type: event.ApprovalRequired,
		Data: event.ApprovalRequiredData{
			RequestID:  req.ID,
			SessionID:  req.SessionID,
			Command:    req.Command,
			Signatures: signatures(req.Components),
		},
	})

	decision, err := e.prompter.RequestApproval(ctx, req)
	if err != nil || ctx.Err() != nil {
		// Aborted approval is an implicit deny-once for this line only:
		// nothing is cached, nothing is persisted.
		e.log.Warn().Err(err).Str("command", result.Command).Msg("approval aborted, denying once")
		result.Verdict = VerdictDeny
		return result
	}

	e.applyDecision(decision, req.Components)

	event.Publish(event.Event{
		Type: event.ApprovalResolved,
		Data: event.ApprovalResolvedData{
			RequestID: req.ID,
			Granted:   decision.Approves(),
		},
	})

	result.Decision = decision
	if decision.Approves() {
		result.Verdict = VerdictExecute
	} else {
		result.Verdict = VerdictDeny
	}
	return result
}

// applyDecision records the decision for every non-empty component and, for
// "always" decisions, appends literal rules and requests persistence.
func (e *Engine) applyDecision(decision Decision, components []Component) {
	approved := decision.Approves()
	for _, comp := range components {
		if comp.Empty() {
			continue
		}
		e.cache.Record(comp.Signature(), approved)
	}

	if !decision.Persists() {
		return
	}

	direction := DirectionAllow
	if !approved {
		direction = DirectionDeny
	}
	appended := 0
	for _, comp := range components {
		if comp.Empty() {
			continue
		}
		rule := e.policy.Append(ruleText(comp), direction)
		if rule.Wildcarded() {
			// Arguments containing `*` or `?` reparse as a glob, so the
			// persisted rule covers more than the command that was approved.
			e.log.Warn().
				Str("rule", rule.Text).
				Str("direction", string(direction)).
				Msg("persisted rule contains wildcards and matches more than the approved command")
		}
		appended++
	}
	if appended == 0 {
		return
	}

	event.Publish(event.Event{
		Type: event.PolicyUpdated,
		Data: event.PolicyUpdatedData{Source: "always-decision", Rules: appended},
	})

	if e.store == nil {
		return
	}
	if err := e.store.SavePolicy(e.policy.AllowPatterns(), e.policy.DenyPatterns(), e.policy.AskIfUnspecified); err != nil {
		e.log.Error().Err(err).Msg("failed to persist policy")
	}
}

// ruleText builds the literal pattern for an "always" decision: the command
// name, plus the joined argument string when there are arguments. Colons in
// the command name are escaped so the pattern round-trips through parsing.
func ruleText(c Component) string {
	name := strings.ReplaceAll(c.Name, ":", `\:`)
	if len(c.Args) == 0 {
		return name
	}
	return name + ":" + strings.Join(c.Args, " ")
}

func signatures(components []Component) []string {
	sigs := make([]string, 0, len(components))
	for _, comp := range components {
		if !comp.Empty() {
			sigs = append(sigs, comp.Signature())
		}
	}
	return sigs
}
