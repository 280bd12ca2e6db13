package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &recordingSink{})
	if d != nil {
		t.Fatal("disabled dispatcher should be nil")
	}

	// Nil receiver methods must all be safe.
	d.Emit(context.Background(), Event{EventType: "login_success"})
	if d.Dropped() != 0 {
		t.Error("nil dispatcher reports drops")
	}
	d.Close()
}

func TestEventsReachTheSink(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success", Timestamp: time.Now()})
	}

	// Close drains the buffer before returning.
	d.Close()

	if got := sink.count(); got != 5 {
		t.Errorf("sink received %d events, want 5", got)
	}
	if d.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", d.Dropped())
	}
}

type blockingSink struct {
	release chan struct{}
	first   chan struct{}
	once    sync.Once
}

func (s *blockingSink) Emit(context.Context, Event) {
	s.once.Do(func() { close(s.first) })
	<-s.release
}

func TestDropIfFullCountsDrops(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{}), first: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the sink; wait until it is actually consumed
	// so the channel capacity is deterministic.
	d.Emit(context.Background(), Event{EventType: "e1"})
	<-sink.first

	// Second fills the buffer, third must drop.
	d.Emit(context.Background(), Event{EventType: "e2"})
	d.Emit(context.Background(), Event{EventType: "e3"})

	if d.Dropped() == 0 {
		t.Error("saturated buffer did not drop")
	}

	close(sink.release)
	d.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, &recordingSink{})
	d.Close()
	d.Close()

	// Emitting after close is a silent no-op.
	d.Emit(context.Background(), Event{EventType: "late"})
}
