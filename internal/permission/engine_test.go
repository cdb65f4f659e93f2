package permission

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellbot-ai/shellbot/internal/logging"
)

type stubPrompter struct {
	decision Decision
	err      error
	calls    int
	last     ApprovalRequest
}

func (s *stubPrompter) RequestApproval(_ context.Context, req ApprovalRequest) (Decision, error) {
	s.calls++
	s.last = req
	return s.decision, s.err
}

type stubStore struct {
	calls int
	allow []string
	deny  []string
	ask   bool
	err   error
}

func (s *stubStore) SavePolicy(allow, deny []string, askIfUnspecified bool) error {
	s.calls++
	s.allow = allow
	s.deny = deny
	s.ask = askIfUnspecified
	return s.err
}

func newTestEngine(allow, deny []string, opts ...EngineOption) *Engine {
	return NewEngine("sess-1", NewPolicy(allow, deny, true), opts...)
}

func TestEngineAllowedCommandExecutes(t *testing.T) {
	prompter := &stubPrompter{decision: DenyOnce}
	engine := newTestEngine([]string{"ls"}, nil, WithPrompter(prompter))

	result := engine.Authorize(context.Background(), "ls -la")

	assert.Equal(t, VerdictExecute, result.Verdict)
	assert.Zero(t, prompter.calls)
}

func TestEngineDeniedComponentDeniesWholeLine(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveOnce}
	engine := newTestEngine([]string{"ls", "grep"}, []string{"rm"}, WithPrompter(prompter))

	result := engine.Authorize(context.Background(), "ls -la && rm -rf /tmp/x")

	assert.Equal(t, VerdictDeny, result.Verdict)
	// A denied line never reaches the approval collaborator.
	assert.Zero(t, prompter.calls)

	require.Len(t, result.Components, 2)
	assert.Equal(t, VerdictExecute, result.Components[0].Verdict)
	assert.Equal(t, VerdictDeny, result.Components[1].Verdict)
}

func TestEngineAggregatesMostRestrictive(t *testing.T) {
	engine := newTestEngine([]string{"ls"}, nil)

	result := engine.Authorize(context.Background(), "ls | grep foo")

	assert.Equal(t, VerdictAsk, result.Verdict)
	require.Len(t, result.Components, 2)
	assert.Equal(t, VerdictExecute, result.Components[0].Verdict)
	assert.Equal(t, VerdictAsk, result.Components[1].Verdict)
}

func TestEngineAskWithoutPrompterStaysAsk(t *testing.T) {
	engine := newTestEngine(nil, nil)

	result := engine.Authorize(context.Background(), "grep foo file")

	assert.Equal(t, VerdictAsk, result.Verdict)
	assert.Empty(t, result.Decision)
}

func TestEngineApproveOnceIsCachedForSession(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveOnce}
	engine := newTestEngine(nil, nil, WithPrompter(prompter))

	first := engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, VerdictExecute, first.Verdict)
	assert.Equal(t, ApproveOnce, first.Decision)
	assert.Equal(t, 1, prompter.calls)

	// Identical signature resolves from the cache without prompting.
	second := engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, VerdictExecute, second.Verdict)
	assert.Equal(t, 1, prompter.calls)

	// Different arguments are a different signature.
	engine.Authorize(context.Background(), "grep bar file")
	assert.Equal(t, 2, prompter.calls)
}

func TestEngineDenyOnceIsCachedForSession(t *testing.T) {
	prompter := &stubPrompter{decision: DenyOnce}
	engine := newTestEngine(nil, nil, WithPrompter(prompter))

	first := engine.Authorize(context.Background(), "curl https://x")
	assert.Equal(t, VerdictDeny, first.Verdict)
	assert.Equal(t, 1, prompter.calls)

	second := engine.Authorize(context.Background(), "curl https://x")
	assert.Equal(t, VerdictDeny, second.Verdict)
	assert.Equal(t, 1, prompter.calls)
}

func TestEngineApproveAlwaysPersistsRule(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveAlways}
	store := &stubStore{}
	engine := newTestEngine(nil, nil, WithPrompter(prompter), WithPolicyStore(store))

	result := engine.Authorize(context.Background(), "git status --short")
	assert.Equal(t, VerdictExecute, result.Verdict)

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, []string{"git:status --short"}, store.allow)
	assert.Empty(t, store.deny)
	assert.True(t, store.ask)

	// The appended rule now matches without the cache: a fresh engine over
	// the same policy allows it outright.
	fresh := NewEngine("sess-2", engine.Policy(), WithPrompter(prompter))
	result = fresh.Authorize(context.Background(), "git status --short")
	assert.Equal(t, VerdictExecute, result.Verdict)
	assert.Equal(t, 1, prompter.calls)
}

func TestEngineWarnsWhenPersistedRuleWidens(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: logging.WarnLevel, Output: &buf})
	defer logging.Init(logging.DefaultConfig())

	prompter := &stubPrompter{decision: ApproveAlways}
	store := &stubStore{}
	engine := newTestEngine(nil, nil, WithPrompter(prompter), WithPolicyStore(store))

	// An unquoted glob in the arguments survives into the persisted rule,
	// where it reparses as a glob matcher instead of literal text.
	result := engine.Authorize(context.Background(), "find . -name *.go")
	assert.Equal(t, VerdictExecute, result.Verdict)
	assert.Equal(t, []string{"find:. -name *.go"}, engine.Policy().AllowPatterns())

	assert.Contains(t, buf.String(), "wildcards")
}

func TestEngineDenyAlwaysPersistsRule(t *testing.T) {
	prompter := &stubPrompter{decision: DenyAlways}
	store := &stubStore{}
	engine := newTestEngine(nil, nil, WithPrompter(prompter), WithPolicyStore(store))

	result := engine.Authorize(context.Background(), "shutdown now")
	assert.Equal(t, VerdictDeny, result.Verdict)

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, []string{"shutdown:now"}, store.deny)
	assert.Empty(t, store.allow)
}

func TestEngineAlwaysDecisionCoversAllComponents(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveAlways}
	store := &stubStore{}
	engine := newTestEngine(nil, nil, WithPrompter(prompter), WithPolicyStore(store))

	engine.Authorize(context.Background(), "mkdir -p /tmp/x && touch /tmp/x/f")

	assert.Equal(t, []string{"mkdir:-p /tmp/x", "touch:/tmp/x/f"}, store.allow)
}

func TestEnginePrompterErrorDeniesOnceWithoutCaching(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveOnce, err: errors.New("prompt channel closed")}
	store := &stubStore{}
	engine := newTestEngine(nil, nil, WithPrompter(prompter), WithPolicyStore(store))

	result := engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, VerdictDeny, result.Verdict)
	assert.Zero(t, store.calls)

	// Nothing was cached: the same line prompts again.
	prompter.err = nil
	result = engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, VerdictExecute, result.Verdict)
	assert.Equal(t, 2, prompter.calls)
}

func TestEngineCancelledContextDeniesOnce(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveAlways}
	store := &stubStore{}
	engine := newTestEngine(nil, nil, WithPrompter(prompter), WithPolicyStore(store))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Authorize(ctx, "grep foo file")
	assert.Equal(t, VerdictDeny, result.Verdict)
	assert.Zero(t, store.calls)
	assert.Empty(t, engine.Policy().AllowPatterns())
}

func TestEngineEmptyLineGetsDefault(t *testing.T) {
	engine := newTestEngine([]string{"ls"}, nil)
	result := engine.Authorize(context.Background(), "")
	assert.Equal(t, VerdictAsk, result.Verdict)

	strict := NewEngine("sess-1", NewPolicy([]string{"ls"}, nil, false))
	result = strict.Authorize(context.Background(), "   ")
	assert.Equal(t, VerdictDeny, result.Verdict)
}

func TestEngineRedirectionOnlyFragmentIgnored(t *testing.T) {
	engine := newTestEngine([]string{"echo"}, nil)

	result := engine.Authorize(context.Background(), "echo hi > out.txt")
	assert.Equal(t, VerdictExecute, result.Verdict)
	require.Len(t, result.Components, 1)
}

func TestEngineNestedShellIsUnwrapped(t *testing.T) {
	engine := newTestEngine([]string{"ls"}, []string{"rm"})

	result := engine.Authorize(context.Background(), `bash -c "rm -rf /"`)
	assert.Equal(t, VerdictDeny, result.Verdict)

	result = engine.Authorize(context.Background(), `bash -c "ls -la"`)
	assert.Equal(t, VerdictExecute, result.Verdict)
}

func TestEngineDenyRuleSeesWordsAfterBackgroundOperator(t *testing.T) {
	engine := newTestEngine([]string{"ls"}, []string{"ls:*rm*"})

	// The backgrounded tail is part of the component's arguments, so the
	// deny rule matches even though the line starts with an allowed command.
	result := engine.Authorize(context.Background(), "ls & rm -rf /tmp/x")
	assert.Equal(t, VerdictDeny, result.Verdict)

	result = engine.Authorize(context.Background(), `bash -c "ls && rm -rf /tmp/x"`)
	assert.Equal(t, VerdictDeny, result.Verdict)
}

func TestEngineBackgroundTailCannotRideCachedApproval(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveOnce}
	engine := newTestEngine(nil, nil, WithPrompter(prompter))

	result := engine.Authorize(context.Background(), "ls")
	assert.Equal(t, VerdictExecute, result.Verdict)
	assert.Equal(t, 1, prompter.calls)

	// A line with a backgrounded tail is a different signature from the
	// approved `ls`; it prompts on its own and can be denied.
	prompter.decision = DenyOnce
	result = engine.Authorize(context.Background(), "ls & rm -rf /tmp/x")
	assert.Equal(t, VerdictDeny, result.Verdict)
	assert.Equal(t, 2, prompter.calls)
}

func TestEngineDegradedLineNeverExecutesSilently(t *testing.T) {
	prompter := &stubPrompter{decision: DenyOnce}
	engine := newTestEngine([]string{"echo"}, nil, WithPrompter(prompter))

	result := engine.Authorize(context.Background(), `echo "unterminated`)
	assert.Equal(t, VerdictDeny, result.Verdict)
	assert.Equal(t, 1, prompter.calls)
}

func TestEngineReplacePolicyClearsCache(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveOnce}
	engine := newTestEngine(nil, nil, WithPrompter(prompter))

	engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, 1, prompter.calls)

	engine.ReplacePolicy(NewPolicy(nil, nil, true))

	// Session approvals do not outlive the policy they were granted under.
	engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, 2, prompter.calls)
}

func TestEngineApprovalRequestCarriesContext(t *testing.T) {
	prompter := &stubPrompter{decision: DenyOnce}
	engine := newTestEngine(nil, nil, WithPrompter(prompter))

	engine.Authorize(context.Background(), "ls | grep foo")

	assert.NotEmpty(t, prompter.last.ID)
	assert.Equal(t, "sess-1", prompter.last.SessionID)
	assert.Equal(t, "ls | grep foo", prompter.last.Command)
	require.Len(t, prompter.last.Components, 2)
}

func TestRuleTextEscapesColons(t *testing.T) {
	comp := Component{Name: "foo:bar", Args: []string{"baz"}}
	assert.Equal(t, `foo\:bar:baz`, ruleText(comp))

	comp = Component{Name: "pwd"}
	assert.Equal(t, "pwd", ruleText(comp))
}

func TestEngineCacheLookupBeatsLaterDenyRule(t *testing.T) {
	prompter := &stubPrompter{decision: ApproveOnce}
	engine := newTestEngine(nil, nil, WithPrompter(prompter))

	engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, 1, prompter.calls)

	// A rule appended mid-session does not retract the cached approval;
	// only ReplacePolicy resets the session.
	engine.Policy().Append("grep", DirectionDeny)
	result := engine.Authorize(context.Background(), "grep foo file")
	assert.Equal(t, VerdictExecute, result.Verdict)
}
