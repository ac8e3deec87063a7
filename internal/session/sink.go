package session

import "sync"

const sinkBuffer = 16

type eventSink struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func newEventSink() *eventSink {
	return &eventSink{
		events: make(chan Event, sinkBuffer),
		done:   make(chan struct{}),
	}
}

func (s *eventSink) Emit(ev Event) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *eventSink) shutdown() {
	s.once.Do(func() {
		close(s.done)
	})
}
