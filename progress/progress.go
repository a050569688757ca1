// Package progress defines the event stream emitted by a harvest run. Any
// presentation layer (console, GUI, log file) can subscribe through a Sink
// instead of scraping process output.
package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported run stages.
const (
	StageRunStart        Stage = "RUN_START"
	StageDiscoveryStart  Stage = "DISCOVERY_START"
	StageCategoryDone    Stage = "CATEGORY_DONE"
	StageCategorySkipped Stage = "CATEGORY_SKIPPED"
	StageDiscoveryDone   Stage = "DISCOVERY_DONE"
	StageExtractionStart Stage = "EXTRACTION_START"
	StageReferenceFailed Stage = "REFERENCE_FAILED"
	StageExtractionDone  Stage = "EXTRACTION_DONE"
	StageRunComplete     Stage = "RUN_COMPLETE"
	StageRunFailed       Stage = "RUN_FAILED"
)

// Event captures a single milestone of harvest progress.
type Event struct {
	TS       time.Time
	Stage    Stage
	Site     string
	Category string
	URL      string
	Count    int
	Note     string
}

// Sink consumes events one at a time. Implementations are invoked from a
// single hub goroutine and need not be safe for concurrent use.
type Sink interface {
	Consume(evt Event)
}

// Emitter publishes individual events; Hub satisfies this interface so the
// pipeline stays agnostic about how events are buffered or rendered.
type Emitter interface {
	Emit(evt Event)
}

// Hub fans events out to registered sinks. Emit never blocks the pipeline; if
// the buffer is full the event is dropped and counted. The events channel is
// never closed, so Emit may race Close without a send-on-closed-channel panic;
// the stop channel drives shutdown instead.
type Hub struct {
	events  chan Event
	stop    chan struct{}
	done    chan struct{}
	sinks   []Sink
	dropped atomic.Int64
	closed  atomic.Bool

	closeOnce sync.Once
}

const defaultBufferSize = 1024

// NewHub starts a hub delivering to sinks in registration order.
func NewHub(sinks ...Sink) *Hub {
	h := &Hub{
		events: make(chan Event, defaultBufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		sinks:  append([]Sink(nil), sinks...),
	}
	go h.run()
	return h
}

// Emit enqueues an event for delivery. Safe for concurrent use, including
// concurrently with Close; a nil hub is a no-op so components can treat the
// emitter as optional.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if evt.TS.IsZero() {
		evt.TS = time.Now()
	}
	select {
	case h.events <- evt:
	default:
		h.dropped.Add(1)
	}
}

// Close stops intake, drains buffered events to the sinks, and waits for the
// delivery goroutine to exit. Safe to call multiple times.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		close(h.stop)
	})
	<-h.done
}

// Dropped reports how many events were discarded due to backpressure.
func (h *Hub) Dropped() int64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case evt := <-h.events:
			h.deliver(evt)
		case <-h.stop:
			h.drain()
			return
		}
	}
}

// drain flushes whatever is buffered at shutdown. An Emit that slipped past
// the closed check after the drain loop empties the buffer is dropped, never
// a panic.
func (h *Hub) drain() {
	for {
		select {
		case evt := <-h.events:
			h.deliver(evt)
		default:
			return
		}
	}
}

func (h *Hub) deliver(evt Event) {
	for _, sink := range h.sinks {
		if sink != nil {
			sink.Consume(evt)
		}
	}
}
