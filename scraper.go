package lotto

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Scraper publishes the latest DrawResult.
//
// Refresh never blocks the caller: the network request runs on a worker pool
// and its outcome is parsed and published on the Dispatcher, so subscribers
// only ever observe updates from that context. Overlapping refreshes are not
// ordered; whichever completes last wins. A refresh is never cancelled by a
// later one.
type Scraper struct {
	fetcher    PageFetcher
	parser     DrawParser
	dispatcher Dispatcher
	pool       *ants.Pool
	pageURL    string
	workers    int
	logger     Logger
	monitor    *PerformanceMonitor

	ownDispatcher *SerialDispatcher
	inflight      sync.WaitGroup

	mu          sync.RWMutex
	closed      bool
	latest      DrawResult
	published   bool
	subscribers map[int]func(DrawResult)
	nextSubID   int
}

// ScraperOption configures a Scraper
type ScraperOption func(*Scraper)

// WithDispatcher sets the context results are delivered on
func WithDispatcher(d Dispatcher) ScraperOption {
	return func(s *Scraper) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithPageURL points the scraper at a different page. The production page is ResultsPageURL.
func WithPageURL(pageURL string) ScraperOption {
	return func(s *Scraper) {
		if pageURL != "" {
			s.pageURL = pageURL
		}
	}
}

// WithWorkers sets the size of the network worker pool
func WithWorkers(n int) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithScraperLogger sets the logger
func WithScraperLogger(logger Logger) ScraperOption {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScraperMonitor sets the performance monitor
func WithScraperMonitor(monitor *PerformanceMonitor) ScraperOption {
	return func(s *Scraper) { s.monitor = monitor }
}

// NewScraper creates a scraper. Without WithDispatcher it owns a SerialDispatcher
// which is closed by Close.
func NewScraper(fetcher PageFetcher, parser DrawParser, opts ...ScraperOption) (*Scraper, error) {
	if fetcher == nil || parser == nil {
		return nil, ErrInvalidParameters.WithDetails("fetcher and parser are required")
	}

	s := &Scraper{
		fetcher:     fetcher,
		parser:      parser,
		pageURL:     ResultsPageURL,
		workers:     DefaultFetchWorkers,
		logger:      NewSilentLogger(),
		subscribers: make(map[int]func(DrawResult)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.dispatcher == nil {
		s.ownDispatcher = NewSerialDispatcher(DefaultDispatchQueueSize, s.logger)
		s.dispatcher = s.ownDispatcher
	}

	pool, err := ants.NewPool(s.workers, ants.WithPanicHandler(func(p any) {
		s.logger.Error("Fetch worker panicked: %v", p)
	}))
	if err != nil {
		if s.ownDispatcher != nil {
			s.ownDispatcher.Close()
		}
		return nil, fmt.Errorf("create fetch worker pool: %w", err)
	}
	s.pool = pool

	return s, nil
}

// Refresh starts fetching the results page and returns immediately.
// The request is bound to ctx; cancelling it ends the fetch with a network error.
func (s *Scraper) Refresh(ctx context.Context) error {
	return s.refresh(ctx, nil)
}

// RefreshAndWait starts a refresh and waits for its result to be published.
//
// The result is published on the Dispatcher, so RefreshAndWait must not be
// called from a subscriber or anything else running there: with a
// SerialDispatcher it would wait on itself until ctx is done.
func (s *Scraper) RefreshAndWait(ctx context.Context) (DrawResult, error) {
	ch := make(chan DrawResult, 1)
	if err := s.refresh(ctx, func(r DrawResult) { ch <- r }); err != nil {
		return DrawResult{}, err
	}

	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return DrawResult{}, ctx.Err()
	}
}

func (s *Scraper) refresh(ctx context.Context, done func(DrawResult)) error {
	// Add under the lock so Close never waits while a refresh is being registered
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScraperClosed
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	err := s.pool.Submit(func() {
		defer s.inflight.Done()
		s.run(ctx, done)
	})
	if err != nil {
		s.inflight.Done()
		s.logger.Error("Failed to schedule results fetch: %v", err)
		return fmt.Errorf("schedule results fetch: %w", err)
	}
	return nil
}

// run executes on a pool worker
func (s *Scraper) run(ctx context.Context, done func(DrawResult)) {
	ctx, span := startSpan(ctx, "lotto.Scraper.fetch")
	start := time.Now()
	raw, err := s.fetcher.Fetch(ctx, s.pageURL)
	s.monitor.RecordFetch(err == nil, time.Since(start))
	endSpan(span, err)

	s.dispatcher.Dispatch(func() {
		var result DrawResult
		if err != nil {
			s.logger.Error("Fetching %s failed: %v", s.pageURL, err)
			result = NewSentinelResult(displayMessage(err))
		} else {
			result = s.parser.Parse(raw)
		}

		s.publish(result, err == nil)
		if done != nil {
			done(result)
		}
	})
}

// publish stores result as latest and notifies subscribers; runs on the dispatcher
func (s *Scraper) publish(result DrawResult, parsed bool) {
	s.mu.Lock()
	s.latest = result
	s.published = true
	subs := make([]func(DrawResult), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.monitor.RecordPublish(result, parsed)
	for _, fn := range subs {
		fn(result)
	}
}

// Latest returns the most recently published result and whether one exists
func (s *Scraper) Latest() (DrawResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.published
}

// Subscribe registers fn to be called on the dispatcher with every published result
func (s *Scraper) Subscribe(fn func(DrawResult)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Close waits for in-flight refreshes to reach the dispatcher and releases the
// worker pool. An owned dispatcher is drained before Close returns. Refreshes
// started after Close fail with ErrScraperClosed.
func (s *Scraper) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()
	s.pool.Release()
	if s.ownDispatcher != nil {
		s.ownDispatcher.Close()
	}
}

// displayMessage returns the text shown next to a sentinel result
func displayMessage(err error) string {
	var le *LottoError
	if errors.As(err, &le) {
		return le.UserMessage()
	}
	return err.Error()
}
