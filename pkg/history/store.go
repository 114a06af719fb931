package history

import (
	"context"
	"time"
)

// Transcript is one archived user/assistant exchange.
type Transcript struct {
	SessionID     string `json:"session_id"`
	TurnID        string `json:"turn_id"`
	UserMessage   string `json:"user_message"`
	FinalResponse string `json:"final_response"`
	CompletedAtMs int64  `json:"completed_at_ms"`
}

// CompletedAt converts the stored millisecond timestamp.
func (t Transcript) CompletedAt() time.Time {
	return time.UnixMilli(t.CompletedAtMs)
}

// Query filters archived transcripts. Zero values mean "no filter";
// results come back newest first.
type Query struct {
	SessionID string
	SinceMs   int64
	Limit     int
}

// TranscriptStore archives completed turns locally so history works
// offline. It lives strictly outside the chat controller and is wired as
// an optional completion hook.
type TranscriptStore interface {
	Save(ctx context.Context, t Transcript) error
	List(ctx context.Context, q Query) ([]Transcript, error)
	Close() error
}
