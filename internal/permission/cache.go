package permission

// ApprovalCache remembers per-session approval decisions keyed by component
// signature (command name + space-joined arguments). It is created empty at
// session start, owned exclusively by that session's Engine, and discarded
// at session end; it is never persisted.
type ApprovalCache struct {
	decisions map[string]bool
}

// NewApprovalCache creates an empty cache.
func NewApprovalCache() *ApprovalCache {
	return &ApprovalCache{decisions: make(map[string]bool)}
}

// Lookup returns the cached decision for a signature, if any.
func (c *ApprovalCache) Lookup(signature string) (approved, ok bool) {
	approved, ok = c.decisions[signature]
	return approved, ok
}

// Record stores a decision for a signature, overwriting any earlier one.
func (c *ApprovalCache) Record(signature string, approved bool) {
	c.decisions[signature] = approved
}

// Len returns the number of cached signatures.
func (c *ApprovalCache) Len() int {
	return len(c.decisions)
}

// Clear drops all cached decisions.
func (c *ApprovalCache) Clear() {
	c.decisions = make(map[string]bool)
}
