package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/DeafMist/prevword/internal/logger"
)

// Fetcher retrieves a source page as a queryable document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// FetchError reports a non-2xx response or a transport failure. StatusCode is 0
// when no response was received.
type FetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed (%d): %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch failed: %s: %v", e.Message, e.Err)
	}
	return "fetch failed: " + e.Message
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options tune the HTTP fetcher.
type Options struct {
	Timeout     time.Duration
	UserAgent   string
	Accept      string
	MaxBodySize int64
}

// HTTPFetcher issues a single GET per call. It never retries.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
	log    *slog.Logger
}

// NewHTTPFetcher builds a fetcher; zero options fall back to defaults.
func NewHTTPFetcher(opts Options, log *slog.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Accept == "" {
		opts.Accept = "*/*"
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 4 << 20
	}
	log = logger.OrDiscard(log)
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		log:    log,
	}
}

// Fetch downloads url and parses the body into a document.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &FetchError{Message: "build request for " + url, Err: err}
	}
	req.Header.Set("Accept", f.opts.Accept)
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Message: "request " + url, Err: err}
	}
	defer resp.Body.Close()

	f.log.Debug("source page fetched",
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s retrieving %s", http.StatusText(resp.StatusCode), url),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodySize+1))
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: "read body from " + url, Err: err}
	}
	if int64(len(body)) > f.opts.MaxBodySize {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("response from %s exceeds %d bytes", url, f.opts.MaxBodySize),
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: "parse document from " + url, Err: err}
	}
	return doc, nil
}

// FileFetcher reads a saved page from disk; the url argument is a file path.
type FileFetcher struct{}

// Fetch opens path and parses it.
func (FileFetcher) Fetch(_ context.Context, path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FetchError{Message: "open " + path, Err: err}
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, &FetchError{Message: "parse document from " + path, Err: err}
	}
	return doc, nil
}
