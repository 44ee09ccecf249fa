package dialogue

import (
	"sync"
	"time"
)

// Phase names a step of the progress indicator shown while a turn is processed.
type Phase string

const (
	PhaseInterpreting Phase = "interpreting"
	PhaseSearching    Phase = "searching"
	PhaseOrganizing   Phase = "organizing"
	PhaseDone         Phase = "done"
)

// PhaseObserver receives progress updates for a conversation.
type PhaseObserver interface {
	OnPhase(conversationID string, phase Phase)
}

// PhaseObserverFunc adapts a function to PhaseObserver.
type PhaseObserverFunc func(conversationID string, phase Phase)

func (f PhaseObserverFunc) OnPhase(conversationID string, phase Phase) { f(conversationID, phase) }

// PhaseDelays schedules the intermediate phases relative to the start of a turn.
type PhaseDelays struct {
	Searching  time.Duration
	Organizing time.Duration
}

// DefaultPhaseDelays mirrors the pacing of the chat UI.
var DefaultPhaseDelays = PhaseDelays{Searching: 800 * time.Millisecond, Organizing: 2500 * time.Millisecond}

// PhaseTracker emits phases through scheduled callbacks. Finish stops every pending
// callback; once finished nothing else is emitted, so a slow timer can never overwrite
// the progress of a later turn.
type PhaseTracker struct {
	mu       sync.Mutex
	id       string
	observer PhaseObserver
	timers   []*time.Timer
	finished bool
}

// StartPhases emits PhaseInterpreting immediately and schedules the rest.
func StartPhases(id string, observer PhaseObserver, delays PhaseDelays) *PhaseTracker {
	t := &PhaseTracker{id: id, observer: observer}
	if observer == nil {
		t.finished = true
		return t
	}
	observer.OnPhase(id, PhaseInterpreting)
	t.schedule(delays.Searching, PhaseSearching)
	t.schedule(delays.Organizing, PhaseOrganizing)
	return t
}

func (t *PhaseTracker) schedule(after time.Duration, phase Phase) {
	if after <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timers = append(t.timers, time.AfterFunc(after, func() { t.emit(phase) }))
}

func (t *PhaseTracker) emit(phase Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.observer.OnPhase(t.id, phase)
}

// Finish cancels pending phases and emits PhaseDone. It is safe to call more than once.
func (t *PhaseTracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.finished = true
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil
	t.observer.OnPhase(t.id, PhaseDone)
}
