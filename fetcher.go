package lotto

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPFetcher fetches a results page with exactly one GET per call.
// There are no retries, no caching and no timeout beyond the transport's own.
type HTTPFetcher struct {
	client    Doer
	userAgent string
	logger    Logger
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client Doer) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent overrides the client identifier header
func WithUserAgent(userAgent string) FetcherOption {
	return func(f *HTTPFetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// WithFetcherLogger sets the logger
func WithFetcherLogger(logger Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher creates a fetcher whose default client traces requests with otelhttp
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		userAgent: DefaultUserAgent,
		logger:    NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves pageURL and returns the decoded page text.
//
// Transport failures map to ErrFetchNetwork, a missing response to
// ErrFetchNoResponse and an unreadable or non UTF-8 body to ErrFetchNoData.
// Non-2xx responses are returned as text; the parser decides what they contain.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", ErrFetchNetwork.WithDetails(fmt.Sprintf("invalid URL %q", pageURL)).WithCause(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", ErrFetchNetwork.WithDetails(err.Error()).WithCause(err)
	}
	if resp == nil {
		return "", ErrFetchNoResponse.WithDetails(pageURL)
	}
	if resp.Body == nil {
		return "", ErrFetchNoData.WithDetails("empty response body")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ErrFetchNoData.WithDetails(err.Error()).WithCause(err)
	}
	if !utf8.Valid(body) {
		return "", ErrFetchNoData.WithDetails("body is not valid UTF-8")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("Results page %s answered with status %d", pageURL, resp.StatusCode)
	} else {
		f.logger.Debug("Fetched %d bytes from %s", len(body), pageURL)
	}

	return string(body), nil
}
