package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spyglasshq/spyglass/pkg/api"
)

// State is the controller's lifecycle position.
type State int

const (
	// StateIdle means no session is loaded.
	StateIdle State = iota
	// StateSessionLoaded means messages are populated and no stream is open.
	StateSessionLoaded
	// StateStreaming means exactly one turn's event connection is open.
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSessionLoaded:
		return "session_loaded"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// BackendClient is the session CRUD surface the controller composes.
type BackendClient interface {
	ListSessions(ctx context.Context, workspaceID string) ([]api.SessionSummary, error)
	GetSession(ctx context.Context, id string) (*api.SessionDetail, error)
	SendMessage(ctx context.Context, req api.SendRequest) (*api.SendResponse, error)
	RenameSession(ctx context.Context, id string, title string) error
	DeleteSession(ctx context.Context, id string) error
	SubmitFeedback(ctx context.Context, turnID string, score api.FeedbackScore) error
}

// TurnStream is the finite event sequence for one turn; *api.TurnStream
// satisfies it.
type TurnStream interface {
	Events() <-chan api.TurnEvent
	Err() error
}

// StreamOpener opens the event connection for a turn.
type StreamOpener interface {
	OpenTurnStream(ctx context.Context, turnID string) (TurnStream, error)
}

// StreamOpenerFunc adapts a function to StreamOpener.
type StreamOpenerFunc func(ctx context.Context, turnID string) (TurnStream, error)

func (f StreamOpenerFunc) OpenTurnStream(ctx context.Context, turnID string) (TurnStream, error) {
	return f(ctx, turnID)
}

// APIStreamOpener adapts *api.Client to StreamOpener.
func APIStreamOpener(c *api.Client) StreamOpener {
	return StreamOpenerFunc(func(ctx context.Context, turnID string) (TurnStream, error) {
		return c.StreamTurnEvents(ctx, turnID)
	})
}

// NoticeLevel classifies transient user-facing notifications.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a transient user-visible notification. Failures never
// propagate past the controller; they become notices or failed messages.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// Notifier receives transient notices. Implementations must not call back
// into the controller.
type Notifier interface {
	Notify(n Notice)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

// ArchivedTurn is handed to the optional archive hook when a turn
// completes.
type ArchivedTurn struct {
	SessionID     string
	TurnID        string
	UserMessage   string
	FinalResponse string
	CompletedAt   time.Time
}

// Snapshot is an immutable view of controller state handed to renderers.
type Snapshot struct {
	State            State
	CurrentSessionID string
	StreamingTurnID  string
	Sessions         []api.SessionSummary
	Messages         []Message
}

// Controller mediates between UI actions and the two backend surfaces:
// the session CRUD API and the per-turn event stream. One controller owns
// one workspace's chat view; all failures are absorbed here and surfaced
// as notices or failed messages, never as errors to the rendering layer.
type Controller struct {
	client      BackendClient
	streams     StreamOpener
	notifier    Notifier
	logger      zerolog.Logger
	workspaceID string
	baseCtx     context.Context

	// onChange receives a fresh snapshot after every visible mutation. It
	// is invoked with the controller lock held and must not re-enter.
	onChange func(Snapshot)

	// archiver, when set, receives completed turns for local archival.
	archiver func(ArchivedTurn)

	mu               sync.Mutex
	state            State
	sessions         []api.SessionSummary
	currentSessionID string
	messages         []Message

	// streaming turn state
	streamingTurnID string
	steps           *stepMap
	streamGen       uint64
	cancelStream    context.CancelFunc
}

type ControllerOption func(*Controller)

func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithOnChange(f func(Snapshot)) ControllerOption {
	return func(c *Controller) { c.onChange = f }
}

func WithArchiver(f func(ArchivedTurn)) ControllerOption {
	return func(c *Controller) { c.archiver = f }
}

func WithLogger(l zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

func NewController(baseCtx context.Context, client BackendClient, streams StreamOpener, workspaceID string, opts ...ControllerOption) *Controller {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	c := &Controller{
		client:      client,
		streams:     streams,
		notifier:    nopNotifier{},
		logger:      log.With().Str("component", "chat").Str("workspace_id", workspaceID).Logger(),
		workspaceID: workspaceID,
		baseCtx:     baseCtx,
		state:       StateIdle,
		steps:       newStepMap(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current view state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close aborts any open stream. The controller must not be used after.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortStreamLocked()
}

// SendMessage submits one user message. Empty/whitespace content and an
// already-active stream are both silent no-ops. The user message is
// appended optimistically and rolled back if the send call fails.
func (c *Controller) SendMessage(ctx context.Context, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	tempID := "local-" + uuid.NewString()
	var sessionID string
	result, ok := c.applyOptimistic("Could not send the message", func() bool {
		if c.state == StateStreaming {
			return false
		}
		sessionID = c.currentSessionID
		c.messages = append(c.messages, Message{
			ID:        tempID,
			Role:      RoleUser,
			Content:   content,
			CreatedAt: time.Now(),
		})
		c.state = StateStreaming
		return true
	}, func() (any, error) {
		return c.client.SendMessage(ctx, api.SendRequest{Message: content, SessionID: sessionID})
	})
	if !ok {
		return
	}
	resp, ok := result.(*api.SendResponse)
	if !ok || resp == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The send raced with StartNewSession or LoadSession: the optimistic
	// message is gone, so the turn belongs to an abandoned view. Drop the
	// response instead of resurrecting the old session.
	if c.messageLocked(tempID) == nil {
		c.logger.Debug().Str("turn_id", resp.TurnID).Msg("discarding send response for an abandoned view")
		return
	}
	// Adopt the session id when this was the first message of a new
	// session, and give the optimistic message its server-derived id.
	c.currentSessionID = resp.SessionID
	for i := range c.messages {
		if c.messages[i].ID == tempID {
			c.messages[i].ID = userMessageID(resp.TurnID)
			break
		}
	}
	c.messages = append(c.messages, Message{
		ID:        resp.TurnID,
		Role:      RoleAssistant,
		Status:    api.TurnProcessing,
		CreatedAt: time.Now(),
	})
	c.openStreamLocked(resp.TurnID)
	c.emitLocked()
}

// LoadSessions replaces the in-memory session list. Failures surface as a
// transient notice.
func (c *Controller) LoadSessions(ctx context.Context) {
	sessions, err := c.client.ListSessions(ctx, c.workspaceID)
	if err != nil {
		c.logger.Warn().Err(err).Msg("load sessions failed")
		c.notifier.Notify(Notice{Level: NoticeError, Text: "Could not load chat sessions"})
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = sessions
	c.emitLocked()
}

// LoadSession loads one session's full detail, flattening its turns into
// (user, assistant) message pairs. When a turn is still unfinished the
// controller immediately resumes streaming for it; prior step history is
// not reconstructed, only final content and status.
func (c *Controller) LoadSession(ctx context.Context, id string) {
	detail, err := c.client.GetSession(ctx, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("session_id", id).Msg("load session failed")
		c.notifier.Notify(Notice{Level: NoticeError, Text: "Could not load the chat session"})
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortStreamLocked()
	c.currentSessionID = detail.ID
	c.messages = messagesFromTurns(detail.Turns)
	c.state = StateSessionLoaded

	for _, t := range detail.Turns {
		if !t.Status.Terminal() {
			c.openStreamLocked(t.ID)
			break
		}
	}
	c.emitLocked()
}

// StartNewSession aborts any open stream and clears the current session.
// Nothing is deleted server-side.
func (c *Controller) StartNewSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startNewSessionLocked()
	c.emitLocked()
}

func (c *Controller) startNewSessionLocked() {
	c.abortStreamLocked()
	c.currentSessionID = ""
	c.messages = nil
	c.state = StateIdle
}

// DeleteSession deletes a session server-side, removes it from the list
// and, when it was the active session, starts a new one.
func (c *Controller) DeleteSession(ctx context.Context, id string) {
	if err := c.client.DeleteSession(ctx, id); err != nil {
		c.logger.Warn().Err(err).Str("session_id", id).Msg("delete session failed")
		c.notifier.Notify(Notice{Level: NoticeError, Text: "Could not delete the session"})
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.sessions[:0]
	for _, s := range c.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	c.sessions = kept
	if c.currentSessionID == id {
		c.startNewSessionLocked()
	}
	c.emitLocked()
}

// RenameSession renames a session and, on success, patches the local list
// entry without a full reload.
func (c *Controller) RenameSession(ctx context.Context, id string, title string) {
	if err := c.client.RenameSession(ctx, id, title); err != nil {
		c.logger.Warn().Err(err).Str("session_id", id).Msg("rename session failed")
		c.notifier.Notify(Notice{Level: NoticeError, Text: "Could not rename the session"})
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.sessions {
		if c.sessions[i].ID == id {
			c.sessions[i].Title = title
			break
		}
	}
	c.emitLocked()
}

// SubmitFeedback applies the score optimistically and reverts to the
// pre-update message list if the call fails.
func (c *Controller) SubmitFeedback(ctx context.Context, turnID string, score api.FeedbackScore) {
	if !score.Valid() {
		c.logger.Warn().Str("turn_id", turnID).Str("score", string(score)).Msg("rejecting invalid feedback score")
		return
	}
	c.applyOptimistic("Could not submit feedback", func() bool {
		m := c.messageLocked(turnID)
		if m == nil || m.Role != RoleAssistant {
			return false
		}
		s := score
		m.FeedbackScore = &s
		return true
	}, func() (any, error) {
		return nil, c.client.SubmitFeedback(ctx, turnID, score)
	})
}

// messageLocked returns a pointer into the message slice, valid only
// while the lock is held.
func (c *Controller) messageLocked(id string) *Message {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return &c.messages[i]
		}
	}
	return nil
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:            c.state,
		CurrentSessionID: c.currentSessionID,
		StreamingTurnID:  c.streamingTurnID,
		Sessions:         append([]api.SessionSummary(nil), c.sessions...),
		Messages:         append([]Message(nil), c.messages...),
	}
}

func (c *Controller) emitLocked() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.snapshotLocked())
}
