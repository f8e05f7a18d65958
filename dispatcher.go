package lotto

import (
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// SerialDispatcher runs dispatched functions one at a time, in order, on a
// single goroutine it owns. Observers of state updated through it never see
// two updates interleave.
//
// Dispatch never blocks, so functions running on the dispatcher may dispatch
// more work.
type SerialDispatcher struct {
	wake   chan struct{}
	done   chan struct{}
	logger Logger

	mu      sync.Mutex
	pending []func()
	closed  bool
}

// NewSerialDispatcher starts a dispatcher with room for queueSize pending functions
// before its queue grows
func NewSerialDispatcher(queueSize int, logger Logger) *SerialDispatcher {
	if queueSize <= 0 {
		queueSize = DefaultDispatchQueueSize
	}
	if logger == nil {
		logger = NewSilentLogger()
	}

	d := &SerialDispatcher{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  logger,
		pending: make([]func(), 0, queueSize),
	}
	go d.loop()
	return d
}

func (d *SerialDispatcher) loop() {
	defer close(d.done)

	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = nil
		closed := d.closed
		d.mu.Unlock()

		if len(batch) == 0 {
			if closed {
				return
			}
			<-d.wake
			continue
		}

		for _, fn := range batch {
			var pc panics.Catcher
			pc.Try(fn)
			if r := pc.Recovered(); r != nil {
				d.logger.Error("Dispatched function panicked: %v\n%s", r.Value, r.Stack)
			}
		}
	}
}

func (d *SerialDispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Dispatch queues fn. Functions dispatched after Close are dropped.
func (d *SerialDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("Dispatch after close dropped")
		return
	}
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	d.signal()
}

// Close stops accepting work and waits until every queued function has run.
// It must not be called from a dispatched function.
func (d *SerialDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.signal()
	<-d.done
}

// InlineDispatcher runs functions directly on the calling goroutine
type InlineDispatcher struct{}

// Dispatch runs fn immediately
func (InlineDispatcher) Dispatch(fn func()) { fn() }
