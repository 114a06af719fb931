package chat

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/spyglasshq/spyglass/pkg/api"
)

// Role distinguishes the two authors of conversation messages.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StepStatus tracks one tool invocation inside an assistant turn.
type StepStatus string

const (
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step is one tool invocation performed while producing a turn's
// response. Steps are ephemeral view state; they live only as long as the
// streaming turn's in-memory representation.
type Step struct {
	ID       string
	ToolName string
	Status   StepStatus
	Content  string
}

// Message is the view model the rendering layer consumes. Every turn
// synthesizes two messages: the user text and the assistant response. An
// assistant message carries the same id as its turn.
type Message struct {
	ID            string
	Role          Role
	Content       string
	Status        api.TurnStatus
	FeedbackScore *api.FeedbackScore
	Steps         []Step
	CreatedAt     time.Time
}

// userMessageID derives the synthetic id of the user half of a turn.
func userMessageID(turnID string) string {
	return turnID + "-user"
}

// messagesFromTurns flat-maps turns into (user, assistant) message pairs
// in turn order.
func messagesFromTurns(turns []api.Turn) []Message {
	out := make([]Message, 0, 2*len(turns))
	for _, t := range turns {
		out = append(out, Message{
			ID:        userMessageID(t.ID),
			Role:      RoleUser,
			Content:   t.UserMessage,
			CreatedAt: t.CreatedAt,
		})
		assistant := Message{
			ID:            t.ID,
			Role:          RoleAssistant,
			Status:        t.Status,
			FeedbackScore: t.FeedbackScore,
			CreatedAt:     t.CreatedAt,
		}
		if t.FinalResponse != nil {
			assistant.Content = *t.FinalResponse
		}
		out = append(out, assistant)
	}
	return out
}

// stepMap keeps insertion order for the streaming turn's steps; tool_end
// events may arrive in any order relative to each other.
type stepMap = orderedmap.OrderedMap[string, Step]

func newStepMap() *stepMap {
	return orderedmap.New[string, Step]()
}

func stepsInOrder(m *stepMap) []Step {
	if m == nil || m.Len() == 0 {
		return nil
	}
	out := make([]Step, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
