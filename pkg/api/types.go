package api

import "time"

// TurnStatus tracks one request/response exchange through its lifecycle.
type TurnStatus string

const (
	TurnPending    TurnStatus = "pending"
	TurnProcessing TurnStatus = "processing"
	TurnCompleted  TurnStatus = "completed"
	TurnFailed     TurnStatus = "failed"
)

// Terminal reports whether the turn can no longer change, feedback aside.
func (s TurnStatus) Terminal() bool {
	return s == TurnCompleted || s == TurnFailed
}

// FeedbackScore is constrained to exactly two sentiment values.
type FeedbackScore string

const (
	FeedbackUp   FeedbackScore = "up"
	FeedbackDown FeedbackScore = "down"
)

func (s FeedbackScore) Valid() bool {
	return s == FeedbackUp || s == FeedbackDown
}

// SessionSummary is one row of the workspace session list.
type SessionSummary struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	LastMessagePreview string    `json:"last_message_preview,omitempty"`
	TurnCount          int       `json:"turn_count"`
}

// Turn is one user-message/assistant-response exchange inside a session.
// FinalResponse stays nil until the turn completes.
type Turn struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id,omitempty"`
	UserMessage   string         `json:"user_message"`
	FinalResponse *string        `json:"final_response"`
	Status        TurnStatus     `json:"status"`
	FeedbackScore *FeedbackScore `json:"feedback_score"`
	CreatedAt     time.Time      `json:"created_at"`
}

// SessionDetail carries a session's turns in chronological order.
type SessionDetail struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Turns []Turn `json:"turns"`
}

type SendRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// SendResponse is the synchronous acknowledgment of a send; the actual
// assistant response arrives over the turn event stream.
type SendResponse struct {
	TurnID    string `json:"turn_id"`
	SessionID string `json:"session_id"`
}

// Workspace surfaces (read-only subset of the settings dashboard).

type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Environment string `json:"environment,omitempty"`
	Status      string `json:"status,omitempty"`
}

type Environment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

// Provider is one configured LLM provider of a workspace.
type Provider struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Model   string `json:"model,omitempty"`
	Default bool   `json:"default,omitempty"`
}

type Member struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}
