package history

import (
	"context"
	"sort"
	"sync"
)

// MemoryTranscriptStore keeps transcripts in memory; used in tests and
// when no archive file is configured.
type MemoryTranscriptStore struct {
	mu    sync.Mutex
	items map[string]Transcript // keyed session_id/turn_id
}

var _ TranscriptStore = &MemoryTranscriptStore{}

func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{items: map[string]Transcript{}}
}

func (s *MemoryTranscriptStore) Save(_ context.Context, t Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t.SessionID+"/"+t.TurnID] = t
	return nil
}

func (s *MemoryTranscriptStore) List(_ context.Context, q Query) ([]Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []Transcript{}
	for _, t := range s.items {
		if q.SessionID != "" && t.SessionID != q.SessionID {
			continue
		}
		if q.SinceMs > 0 && t.CompletedAtMs < q.SinceMs {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAtMs != out[j].CompletedAtMs {
			return out[i].CompletedAtMs > out[j].CompletedAtMs
		}
		return out[i].TurnID > out[j].TurnID
	})
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryTranscriptStore) Close() error {
	return nil
}
