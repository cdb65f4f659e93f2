// Package permission implements the command authorization engine: given a
// raw, possibly compound shell command line proposed by an AI assistant, it
// decides whether to execute it, deny it, or ask a human, without letting a
// malicious or ambiguous construction bypass a deny rule.
//
// # Pipeline
//
// Authorization is a one-way data flow:
//
//	raw line -> Split -> Normalize -> Policy (per component) -> Engine -> Verdict
//
// Split breaks the line into segments joined by the control operators `|`,
// `&&`, `||`, and `;`, respecting quoting and escaping. Normalize strips
// redirections, tokenizes each segment into shell words, and unwraps nested
// invocations like `bash -c "rm -rf /"` so the inner command is what gets
// judged. The Policy evaluates each component against ordered deny and allow
// rule lists, and the Engine folds per-component verdicts into one verdict
// for the whole line with most-restrictive-wins (DENY > ASK > EXECUTE).
//
// # Rules
//
// A rule is written as `command` or `command:args`:
//
//	"ls"                   allow ls with any arguments
//	"git:status"           allow git when the first argument is status
//	"wget:http*"           glob over the joined argument string
//	"/^kubectl|oc$/:get"   regex command matcher, subcommand argument
//
// Either side may be a literal, a glob (`*` any run, `?` any one character),
// or a regex enclosed in slashes. Classification happens once at parse time.
//
// # Fail-closed behavior
//
// Deny rules are checked before allow rules unconditionally. Unparseable
// segments degrade to whitespace splitting and resolve to the configured
// default instead of being skipped. No error path inside evaluation can
// produce EXECUTE.
//
// # Sessions
//
// The Engine owns a per-session ApprovalCache keyed by component signature.
// Once/always decisions from the approval collaborator populate the cache;
// "always" decisions additionally append literal rules to the policy and
// request persistence through the configuration collaborator. The cache is
// never persisted and dies with the session.
package permission
