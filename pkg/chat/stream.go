package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/spyglasshq/spyglass/pkg/api"
)

// openStreamLocked aborts any previous connection and starts the consumer
// goroutine for turnID. Exactly one stream is open per controller.
func (c *Controller) openStreamLocked(turnID string) {
	c.abortStreamLocked()
	c.streamGen++
	gen := c.streamGen

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancelStream = cancel
	c.streamingTurnID = turnID
	c.steps = newStepMap()
	c.state = StateStreaming

	go c.runStream(ctx, gen, turnID)
}

// abortStreamLocked cancels the open connection, if any, and bumps the
// stream generation so late-arriving events from the old connection can
// no longer mutate state.
func (c *Controller) abortStreamLocked() {
	if c.cancelStream != nil {
		c.cancelStream()
		c.cancelStream = nil
	}
	c.streamGen++
	c.streamingTurnID = ""
}

func (c *Controller) runStream(ctx context.Context, gen uint64, turnID string) {
	logger := c.logger.With().Str("turn_id", turnID).Logger()
	stream, err := c.streams.OpenTurnStream(ctx, turnID)
	if err != nil {
		logger.Warn().Err(err).Msg("turn stream open failed")
		c.finishStream(gen, turnID, err)
		return
	}
	logger.Debug().Msg("turn stream open")

	for ev := range stream.Events() {
		if c.applyEvent(gen, turnID, ev) {
			logger.Debug().Str("event", string(ev.Event)).Msg("turn stream finished")
			return
		}
	}
	c.finishStream(gen, turnID, stream.Err())
}

// applyEvent folds one stream event into view state and reports whether
// the event was terminal. Events from a superseded connection are
// dropped.
func (c *Controller) applyEvent(gen uint64, turnID string, ev api.TurnEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.streamGen {
		return true
	}

	switch ev.Event {
	case api.EventStatus:
		// No content change; re-render the current step list.
		c.emitLocked()

	case api.EventToolStart:
		if ev.StepID == "" {
			return false
		}
		c.steps.Set(ev.StepID, Step{
			ID:       ev.StepID,
			ToolName: ev.ToolName,
			Status:   StepRunning,
		})
		c.syncStepsLocked(turnID)
		c.emitLocked()

	case api.EventToolEnd:
		// Out-of-order or duplicate delivery: unknown step ids are a no-op.
		step, ok := c.steps.Get(ev.StepID)
		if !ok {
			return false
		}
		step.Status = StepCompleted
		if ev.Status == string(StepFailed) {
			step.Status = StepFailed
		}
		step.Content = ev.Content
		c.steps.Set(ev.StepID, step)
		c.syncStepsLocked(turnID)
		c.emitLocked()

	case api.EventThinking:
		// Reserved for future display.

	case api.EventComplete:
		c.completeLocked(turnID, ev.FinalResponse)
		return true

	case api.EventError:
		if m := c.messageLocked(turnID); m != nil {
			m.Content = "Error: " + ev.Message
			m.Status = api.TurnFailed
		}
		c.endStreamingLocked()
		c.emitLocked()
		c.notifier.Notify(Notice{Level: NoticeError, Text: ev.Message})
		return true

	default:
		c.logger.Debug().Str("event", string(ev.Event)).Msg("ignoring unknown stream event")
	}
	return false
}

// completeLocked closes out a successfully streamed turn: every step the
// server did not explicitly close is marked completed, the assistant
// message gets its final content, and the session list is refreshed in
// the background so preview text catches up.
func (c *Controller) completeLocked(turnID string, finalResponse string) {
	for pair := c.steps.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Status == StepRunning {
			step := pair.Value
			step.Status = StepCompleted
			c.steps.Set(pair.Key, step)
		}
	}

	var userMessage string
	if um := c.messageLocked(userMessageID(turnID)); um != nil {
		userMessage = um.Content
	}
	if m := c.messageLocked(turnID); m != nil {
		m.Content = finalResponse
		m.Status = api.TurnCompleted
		m.Steps = stepsInOrder(c.steps)
	}
	sessionID := c.currentSessionID
	c.endStreamingLocked()
	c.emitLocked()

	if c.archiver != nil {
		go c.archiver(ArchivedTurn{
			SessionID:     sessionID,
			TurnID:        turnID,
			UserMessage:   userMessage,
			FinalResponse: finalResponse,
			CompletedAt:   time.Now(),
		})
	}
	go c.LoadSessions(c.baseCtx)
}

// finishStream handles the connection ending without a terminal event:
// cleanly (EOF), by cancellation (silent), or by transport failure.
func (c *Controller) finishStream(gen uint64, turnID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.streamGen {
		return
	}

	if err != nil && errors.Is(err, context.Canceled) {
		// Intentional abort; the aborting operation already reshaped state.
		return
	}
	if err != nil {
		if m := c.messageLocked(turnID); m != nil {
			m.Status = api.TurnFailed
		}
		c.endStreamingLocked()
		c.emitLocked()
		c.notifier.Notify(Notice{Level: NoticeError, Text: "Connection to the assistant was lost"})
		return
	}
	c.endStreamingLocked()
	c.emitLocked()
}

func (c *Controller) endStreamingLocked() {
	if c.cancelStream != nil {
		c.cancelStream()
		c.cancelStream = nil
	}
	c.streamingTurnID = ""
	if c.currentSessionID != "" {
		c.state = StateSessionLoaded
	} else {
		c.state = StateIdle
	}
}

func (c *Controller) syncStepsLocked(turnID string) {
	if m := c.messageLocked(turnID); m != nil {
		m.Steps = stepsInOrder(c.steps)
	}
}
