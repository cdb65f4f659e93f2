package event

// EventType represents the type of event.
type EventType string

const (
	ApprovalRequired  EventType = "approval.required"
	ApprovalResolved  EventType = "approval.resolved"
	CommandAuthorized EventType = "command.authorized"
	CommandExecuted   EventType = "command.executed"
	PolicyUpdated     EventType = "policy.updated"
)

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// ApprovalRequiredData is published when a command line needs a human decision.
type ApprovalRequiredData struct {
	RequestID  string   `json:"requestID"`
	SessionID  string   `json:"sessionID"`
	Command    string   `json:"command"`
	Signatures []string `json:"signatures"`
}

// ApprovalResolvedData is published when a pending approval request is answered.
type ApprovalResolvedData struct {
	RequestID string `json:"requestID"`
	Granted   bool   `json:"granted"`
}

// CommandAuthorizedData is published after a command line receives a final verdict.
type CommandAuthorizedData struct {
	SessionID string `json:"sessionID"`
	Command   string `json:"command"`
	Verdict   string `json:"verdict"`
}

// CommandExecutedData is published after an authorized command finishes running.
type CommandExecutedData struct {
	SessionID string `json:"sessionID"`
	Command   string `json:"command"`
	ExitCode  int    `json:"exitCode"`
	TimedOut  bool   `json:"timedOut,omitempty"`
}

// PolicyUpdatedData is published when rules are appended or the policy is reloaded.
type PolicyUpdatedData struct {
	Source string `json:"source"` // "always-decision" | "reload"
	Rules  int    `json:"rules"`
}
