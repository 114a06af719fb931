package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventKind discriminates the events delivered over a turn stream.
type EventKind string

const (
	EventStatus    EventKind = "status"
	EventToolStart EventKind = "tool_start"
	EventToolEnd   EventKind = "tool_end"
	EventThinking  EventKind = "thinking"
	EventComplete  EventKind = "complete"
	EventError     EventKind = "error"
)

// TurnEvent is one newline-delimited JSON event from the turn stream.
// Fields beyond Event are kind-specific and empty otherwise.
type TurnEvent struct {
	Event         EventKind `json:"event"`
	StepID        string    `json:"step_id,omitempty"`
	ToolName      string    `json:"tool_name,omitempty"`
	Status        string    `json:"status,omitempty"`
	Content       string    `json:"content,omitempty"`
	FinalResponse string    `json:"final_response,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// Terminal reports whether no further events follow on the stream.
func (e TurnEvent) Terminal() bool {
	return e.Event == EventComplete || e.Event == EventError
}

// TurnStream is the finite lazy sequence of events for one turn. The
// channel closes after a terminal event, on end of stream, or once the
// opening context is cancelled; a stream is not restartable, a new call
// to StreamTurnEvents makes a fresh connection. Err is valid only after
// the channel has closed, mirroring bufio.Scanner.
type TurnStream struct {
	events chan TurnEvent

	mu  sync.Mutex
	err error
}

// Events returns the receive-only event sequence.
func (s *TurnStream) Events() <-chan TurnEvent {
	return s.events
}

// Err reports why the stream ended. It is nil after a clean end and wraps
// context.Canceled when the consumer aborted the connection.
func (s *TurnStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *TurnStream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// StreamTurnEvents opens the long-lived event connection for one turn.
// A non-2xx handshake is reported synchronously as *StatusError; after
// that all delivery happens on the returned stream. Cancel ctx to abort.
func (c *Client) StreamTurnEvents(ctx context.Context, turnID string) (*TurnStream, error) {
	if strings.TrimSpace(turnID) == "" {
		return nil, errors.New("api: empty turn id")
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/turns/"+url.PathEscape(turnID)+"/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	// The default client enforces a request timeout; a turn stream stays
	// open for as long as the assistant needs, so it gets its own client
	// and relies on ctx for termination.
	streamClient := &http.Client{Transport: c.httpc.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "api: open turn stream %s", turnID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}

	stream := &TurnStream{events: make(chan TurnEvent, 16)}
	go stream.consume(ctx, turnID, resp.Body)
	return stream, nil
}

func (s *TurnStream) consume(ctx context.Context, turnID string, body io.ReadCloser) {
	defer close(s.events)
	defer func() { _ = body.Close() }()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev TurnEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			log.Warn().Str("component", "api").Str("turn_id", turnID).Err(err).Msg("turn stream: skipping malformed event")
			continue
		}
		if ev.Event == "" {
			log.Warn().Str("component", "api").Str("turn_id", turnID).Msg("turn stream: skipping event without kind")
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		}
		if ev.Terminal() {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		// An aborted connection surfaces as a read error on the body;
		// report it as the cancellation so consumers can stay silent.
		if ctx.Err() != nil {
			s.setErr(ctx.Err())
			return
		}
		s.setErr(errors.Wrapf(err, "api: turn stream %s", turnID))
		return
	}
	if ctx.Err() != nil {
		s.setErr(ctx.Err())
	}
}
