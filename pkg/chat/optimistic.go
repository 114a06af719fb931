package chat

import "github.com/spyglasshq/spyglass/pkg/api"

// viewSnapshot captures the controller's mutable view state so a failed
// optimistic operation can restore the exact prior state instead of
// attempting a merge.
type viewSnapshot struct {
	state            State
	sessions         []api.SessionSummary
	currentSessionID string
	messages         []Message
}

func (c *Controller) captureLocked() viewSnapshot {
	return viewSnapshot{
		state:            c.state,
		sessions:         append([]api.SessionSummary(nil), c.sessions...),
		currentSessionID: c.currentSessionID,
		messages:         append([]Message(nil), c.messages...),
	}
}

func (c *Controller) restoreLocked(snap viewSnapshot) {
	c.state = snap.state
	c.sessions = snap.sessions
	c.currentSessionID = snap.currentSessionID
	c.messages = snap.messages
}

// applyOptimistic is the shared snapshot/apply/confirm-or-revert helper
// behind every optimistic mutation. mutate runs under the lock and may
// decline by returning false (a silent no-op); confirm runs without the
// lock. On confirm failure the pre-mutation snapshot is restored and the
// notice surfaced. The second return value reports whether the mutation
// was confirmed.
func (c *Controller) applyOptimistic(failNotice string, mutate func() bool, confirm func() (any, error)) (any, bool) {
	c.mu.Lock()
	snap := c.captureLocked()
	if !mutate() {
		c.mu.Unlock()
		return nil, false
	}
	c.emitLocked()
	c.mu.Unlock()

	result, err := confirm()
	if err != nil {
		c.logger.Warn().Err(err).Msg("optimistic operation failed, rolling back")
		c.mu.Lock()
		c.restoreLocked(snap)
		c.emitLocked()
		c.mu.Unlock()
		c.notifier.Notify(Notice{Level: NoticeError, Text: failNotice})
		return nil, false
	}
	return result, true
}
