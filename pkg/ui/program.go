package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/spyglasshq/spyglass/pkg/chat"
)

// Bridge forwards controller snapshots and notices into a running
// bubbletea program. The controller emits while holding its own lock, so
// forwarding happens on a dedicated goroutine: emits never block on the
// program and arrive in emit order.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
	ch      chan tea.Msg
	once    sync.Once
}

func NewBridge() *Bridge {
	b := &Bridge{ch: make(chan tea.Msg, 64)}
	go b.forward()
	return b
}

func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Close stops the forwarder.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.ch) })
}

// OnChange is wired as the controller's change callback.
func (b *Bridge) OnChange(snap chat.Snapshot) {
	b.send(SnapshotMsg{Snapshot: snap})
}

// Notify implements chat.Notifier.
func (b *Bridge) Notify(n chat.Notice) {
	b.send(NoticeMsg{Notice: n})
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		log.Debug().Str("component", "ui").Msg("bridge channel full, dropping message")
	}
}

func (b *Bridge) forward() {
	for msg := range b.ch {
		b.mu.Lock()
		p := b.program
		b.mu.Unlock()
		if p == nil {
			continue
		}
		p.Send(msg)
	}
}

var _ chat.Notifier = &Bridge{}
