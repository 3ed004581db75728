package testutil

import (
	"fmt"
	"sync"

	"vsync/internal/vsync"
)

// RecordingNotifier keeps every event it receives. Safe for concurrent use.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []vsync.Event
}

func (n *RecordingNotifier) Notify(e vsync.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

// Events returns a copy of the recorded events.
func (n *RecordingNotifier) Events() []vsync.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]vsync.Event(nil), n.events...)
}

// Lines renders events as "<phase>: <status>", the way the CLI prints them.
func (n *RecordingNotifier) Lines() []string {
	var out []string
	for _, e := range n.Events() {
		out = append(out, fmt.Sprintf("%s: %s", e.Phase, e.Status))
	}
	return out
}

var _ vsync.Notifier = (*RecordingNotifier)(nil)
