package lotto

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingParser records how often Parse is called
type countingParser struct {
	calls atomic.Int32
	inner DrawParser
}

func (p *countingParser) Parse(raw string) DrawResult {
	p.calls.Add(1)
	return p.inner.Parse(raw)
}

func newCountingParser(t *testing.T) *countingParser {
	t.Helper()
	return &countingParser{inner: newTestParser(t)}
}

func TestScraper_SentinelLaw(t *testing.T) {
	failures := []error{
		ErrFetchNetwork.WithDetails("no such host"),
		ErrFetchNoResponse,
		ErrFetchNoData.WithDetails("body is not valid UTF-8"),
		ErrCircuitBreakerOpen,
		errors.New("unexpected failure"),
	}

	for _, fetchErr := range failures {
		t.Run(fetchErr.Error(), func(t *testing.T) {
			parser := newCountingParser(t)
			s, err := NewScraper(&stubFetcher{errs: []error{fetchErr}}, parser)
			require.NoError(t, err)
			defer s.Close()

			result, err := s.RefreshAndWait(context.Background())
			require.NoError(t, err)

			assert.Equal(t, int32(0), parser.calls.Load())
			assert.Equal(t, [NumbersPerEntry]string{"?", "?", "?", "?", "?", "?"}, result.WinningNumbers)
			assert.NotEmpty(t, result.ErrorMessage)

			latest, ok := s.Latest()
			require.True(t, ok)
			assert.Equal(t, result, latest)
		})
	}
}

func TestScraper_ErrorMessageIsDisplayable(t *testing.T) {
	s, err := NewScraper(&stubFetcher{errs: []error{ErrFetchNetwork.WithDetails("timeout")}}, newTestParser(t),
		WithDispatcher(InlineDispatcher{}))
	require.NoError(t, err)
	defer s.Close()

	result, err := s.RefreshAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "network error (timeout)", result.ErrorMessage)
}

func TestScraper_PublishesParsedResult(t *testing.T) {
	parser := newCountingParser(t)
	s, err := NewScraper(&stubFetcher{bodies: []string{resultsPage}, errs: []error{nil}}, parser)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Latest()
	assert.False(t, ok)

	result, err := s.RefreshAndWait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), parser.calls.Load())
	assert.True(t, result.OK())
	assert.Equal(t, "12.07.2024", result.DrawDate)
	assert.Equal(t, []string{"11", "22", "33", "44", "55", "66"}, result.Numbers())
}

func TestScraper_RefreshDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	fetcher := &blockingFetcher{release: release}

	s, err := NewScraper(fetcher, newTestParser(t))
	require.NoError(t, err)

	got := make(chan DrawResult, 1)
	cancel := s.Subscribe(func(r DrawResult) { got <- r })
	defer cancel()

	start := time.Now()
	require.NoError(t, s.Refresh(context.Background()))
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-got:
		t.Fatal("result published before fetch completed")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case r := <-got:
		assert.True(t, r.OK())
	case <-time.After(5 * time.Second):
		t.Fatal("result was never published")
	}

	s.Close()
}

type blockingFetcher struct {
	release chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, _ string) (string, error) {
	select {
	case <-f.release:
		return resultsPage, nil
	case <-ctx.Done():
		return "", ErrFetchNetwork.WithCause(ctx.Err())
	}
}

func TestScraper_SubscribersOnDispatcher(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	s, err := NewScraper(&stubFetcher{bodies: []string{resultsPage}, errs: []error{nil}}, newTestParser(t),
		WithDispatcher(dispatcher))
	require.NoError(t, err)
	defer s.Close()

	var mu sync.Mutex
	var seen []DrawResult
	cancel := s.Subscribe(func(r DrawResult) {
		assert.True(t, dispatcher.running.Load(), "subscriber called outside the dispatcher")
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
	})

	_, err = s.RefreshAndWait(context.Background())
	require.NoError(t, err)

	cancel()
	cancel()

	_, err = s.RefreshAndWait(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 1)
	assert.Equal(t, int32(2), dispatcher.calls.Load())
}

type recordingDispatcher struct {
	mu      sync.Mutex
	running atomic.Bool
	calls   atomic.Int32
}

func (d *recordingDispatcher) Dispatch(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Add(1)
	d.running.Store(true)
	defer d.running.Store(false)
	fn()
}

func TestScraper_RecoversAfterFailure(t *testing.T) {
	fetcher := &stubFetcher{
		bodies: []string{"", resultsPage},
		errs:   []error{ErrFetchNetwork, nil},
	}
	s, err := NewScraper(fetcher, newTestParser(t), WithDispatcher(InlineDispatcher{}))
	require.NoError(t, err)
	defer s.Close()

	first, err := s.RefreshAndWait(context.Background())
	require.NoError(t, err)
	assert.True(t, first.IsSentinel())

	second, err := s.RefreshAndWait(context.Background())
	require.NoError(t, err)
	assert.True(t, second.OK())

	latest, _ := s.Latest()
	assert.Equal(t, second, latest)
}

func TestScraper_OverlappingRefreshes(t *testing.T) {
	monitor := NewPerformanceMonitor()
	fetcher := &stubFetcher{bodies: []string{resultsPage}, errs: []error{nil}}
	s, err := NewScraper(fetcher, newTestParser(t), WithWorkers(8), WithScraperMonitor(monitor))
	require.NoError(t, err)

	var published atomic.Int32
	s.Subscribe(func(DrawResult) { published.Add(1) })

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Refresh(context.Background()))
	}
	s.Close()

	assert.Equal(t, int32(20), published.Load())
	assert.Equal(t, 20, fetcher.Calls())

	metrics := monitor.GetMetrics()
	assert.Equal(t, int64(20), metrics.TotalFetches)
	assert.Equal(t, int64(20), metrics.Published)
	assert.Equal(t, int64(20), metrics.Parses)
}

func TestScraper_RefreshAfterClose(t *testing.T) {
	s, err := NewScraper(&stubFetcher{bodies: []string{resultsPage}, errs: []error{nil}}, newTestParser(t))
	require.NoError(t, err)

	s.Close()
	s.Close()

	assert.ErrorIs(t, s.Refresh(context.Background()), ErrScraperClosed)
	_, err = s.RefreshAndWait(context.Background())
	assert.ErrorIs(t, err, ErrScraperClosed)
}

func TestScraper_CloseWhileRefreshing(t *testing.T) {
	fetcher := &stubFetcher{bodies: []string{resultsPage}, errs: []error{nil}}
	s, err := NewScraper(fetcher, newTestParser(t), WithWorkers(4))
	require.NoError(t, err)

	var published atomic.Int32
	s.Subscribe(func(DrawResult) { published.Add(1) })

	var (
		accepted atomic.Int32
		wg       sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				err := s.Refresh(context.Background())
				if err == nil {
					accepted.Add(1)
					continue
				}
				// the pool may also reject work once it is released
				if !errors.Is(err, ErrScraperClosed) {
					assert.ErrorContains(t, err, "schedule results fetch")
				}
			}
		}()
	}

	s.Close()
	wg.Wait()

	// every accepted refresh was published before Close returned
	assert.Equal(t, accepted.Load(), published.Load())
}

func TestScraper_RefreshAndWaitFromSubscriber(t *testing.T) {
	s, err := NewScraper(&stubFetcher{bodies: []string{resultsPage}, errs: []error{nil}}, newTestParser(t))
	require.NoError(t, err)

	var (
		nested    atomic.Bool
		nestedErr = make(chan error, 1)
		published atomic.Int32
	)
	s.Subscribe(func(DrawResult) {
		published.Add(1)
		if nested.Swap(true) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := s.RefreshAndWait(ctx)
		nestedErr <- err
	})

	_, err = s.RefreshAndWait(context.Background())
	require.NoError(t, err)

	select {
	case err := <-nestedErr:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("nested RefreshAndWait never returned")
	}

	// the nested refresh is still published once the subscriber returns
	s.Close()
	assert.Equal(t, int32(2), published.Load())
}

func TestScraper_PageURL(t *testing.T) {
	var gotURL string
	fetcher := fetcherFunc(func(_ context.Context, pageURL string) (string, error) {
		gotURL = pageURL
		return resultsPage, nil
	})

	s, err := NewScraper(fetcher, newTestParser(t), WithDispatcher(InlineDispatcher{}))
	require.NoError(t, err)
	_, err = s.RefreshAndWait(context.Background())
	require.NoError(t, err)
	s.Close()
	assert.Equal(t, ResultsPageURL, gotURL)

	s, err = NewScraper(fetcher, newTestParser(t), WithDispatcher(InlineDispatcher{}), WithPageURL("http://localhost/results"))
	require.NoError(t, err)
	_, err = s.RefreshAndWait(context.Background())
	require.NoError(t, err)
	s.Close()
	assert.Equal(t, "http://localhost/results", gotURL)
}

type fetcherFunc func(ctx context.Context, pageURL string) (string, error)

func (f fetcherFunc) Fetch(ctx context.Context, pageURL string) (string, error) { return f(ctx, pageURL) }

func TestNewScraper_RequiresCollaborators(t *testing.T) {
	_, err := NewScraper(nil, newTestParser(t))
	assert.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewScraper(&stubFetcher{}, nil)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestDisplayMessage(t *testing.T) {
	assert.Equal(t, "no data", displayMessage(ErrFetchNoData))
	assert.Equal(t, "no data (empty)", displayMessage(ErrFetchNoData.WithDetails("empty")))
	assert.Equal(t, "boom", displayMessage(errors.New("boom")))
}
