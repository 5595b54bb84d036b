package tui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

type stateChangedMsg struct{}

// Bridge forwards session changes to a running program.
// Notifications are coalesced: at most one is queued until the model has read the state.
type Bridge struct {
	mu      sync.Mutex
	program *tea.Program
	pending atomic.Bool
}

func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

// Notify is the session change hook. It never blocks the caller.
func (b *Bridge) Notify() {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p == nil {
		return
	}
	if b.pending.CompareAndSwap(false, true) {
		go p.Send(stateChangedMsg{})
	}
}

func (b *Bridge) ack() {
	if b != nil {
		b.pending.Store(false)
	}
}
