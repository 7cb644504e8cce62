package dispatch

import "sync"

// CallState tracks the voice-call lifecycle the webhook reports. The
// controller consults it to decide whether a "working" notification fires
// immediately or after the grace delay. It is injected rather than global
// so tests can build controllers with arbitrary initial call state.
type CallState struct {
	mu              sync.Mutex
	ongoing         bool
	activeCallID    string
	lastStartedAtMs int64
}

// NewCallState returns an idle call state.
func NewCallState() *CallState {
	return &CallState{}
}

// Begin marks a call as ongoing.
func (c *CallState) Begin(callID string, startedAtMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ongoing = true
	c.activeCallID = callID
	c.lastStartedAtMs = startedAtMs
}

// End clears the ongoing flag. A call id that doesn't match the active
// call is a stale event and is ignored.
func (c *CallState) End(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if callID != "" && c.activeCallID != "" && callID != c.activeCallID {
		return
	}
	c.ongoing = false
	c.activeCallID = ""
}

// Ongoing reports whether a call is currently active.
func (c *CallState) Ongoing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ongoing
}

// Snapshot returns the current flags for logging and status output.
func (c *CallState) Snapshot() (ongoing bool, activeCallID string, lastStartedAtMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ongoing, c.activeCallID, c.lastStartedAtMs
}
