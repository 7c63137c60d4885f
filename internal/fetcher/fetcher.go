// Package fetcher reads the length and byte ranges of a logfile served over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/webzook/wintail/pkg/wintail"
)

// DefaultTimeout bounds every request made by a Fetcher.
const DefaultTimeout = 10 * time.Second

// Options configures a Fetcher.
type Options struct {
	// Timeout bounds each request. Zero uses DefaultTimeout.
	Timeout time.Duration
	// Client overrides the HTTP client. Its Timeout is left as is.
	Client *http.Client
	// UserAgent is sent with every request when set.
	UserAgent string
}

// Fetcher implements wintail.RangeFetcher over HTTP.
type Fetcher struct {
	http      *http.Client
	userAgent string
}

var _ wintail.RangeFetcher = (*Fetcher)(nil)

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Fetcher{http: client, userAgent: opts.UserAgent}
}

// Length issues a HEAD request and returns the declared Content-Length.
func (f *Fetcher) Length(ctx context.Context, location string) (int64, error) {
	req, err := f.newRequest(ctx, http.MethodHead, location)
	if err != nil {
		return 0, err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return 0, &wintail.UnavailableError{Source: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &wintail.UnavailableError{Source: location, Status: resp.StatusCode}
	}
	length := resp.ContentLength
	if length < 0 {
		// Some servers only report the size through the raw header on HEAD.
		if n, perr := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); perr == nil && n >= 0 {
			length = n
		}
	}
	if length < 0 {
		return 0, &wintail.UnavailableError{Source: location, Err: errors.New("no content length")}
	}
	return length, nil
}

// FetchRange requests bytes [from, to) with a Range header.
//
// A 206 response is read as is. A 200 response means the server ignored
// the range; the first from bytes are discarded locally. 416 yields a
// RangeError, anything else an UnavailableError.
func (f *Fetcher) FetchRange(ctx context.Context, location string, from, to int64) (wintail.Chunk, error) {
	if from == to {
		return wintail.NoNewData(), nil
	}
	if from < 0 || to < from {
		return wintail.NoNewData(), &wintail.RangeError{Source: location, From: from, To: to}
	}

	req, err := f.newRequest(ctx, http.MethodGet, location)
	if err != nil {
		return wintail.NoNewData(), err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", from, to-1))

	resp, err := f.http.Do(req)
	if err != nil {
		return wintail.NoNewData(), &wintail.UnavailableError{Source: location, Err: err}
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if start, ok := contentRangeStart(resp.Header.Get("Content-Range")); ok && start != from {
			return wintail.NoNewData(), &wintail.UnavailableError{
				Source: location,
				Err:    fmt.Errorf("range starts at %d, requested %d", start, from),
			}
		}
	case http.StatusOK:
		if _, err := io.CopyN(io.Discard, body, from); err != nil {
			return wintail.NoNewData(), &wintail.UnavailableError{Source: location, Err: fmt.Errorf("skip to offset: %w", err)}
		}
	case http.StatusRequestedRangeNotSatisfiable:
		return wintail.NoNewData(), &wintail.RangeError{Source: location, From: from, To: to, Status: resp.StatusCode}
	default:
		return wintail.NoNewData(), &wintail.UnavailableError{Source: location, Status: resp.StatusCode}
	}

	buf := make([]byte, to-from)
	if _, err := io.ReadFull(body, buf); err != nil {
		return wintail.NoNewData(), &wintail.UnavailableError{Source: location, Err: fmt.Errorf("read range: %w", err)}
	}
	return wintail.Data(buf), nil
}

func (f *Fetcher) newRequest(ctx context.Context, method, location string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, location, nil)
	if err != nil {
		return nil, &wintail.UnavailableError{Source: location, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	// A compressed body would break byte offsets.
	req.Header.Set("Accept-Encoding", "identity")
	return req, nil
}

// contentRangeStart extracts the first byte position from "bytes a-b/n".
func contentRangeStart(h string) (int64, bool) {
	rng, ok := strings.CutPrefix(h, "bytes ")
	if !ok {
		return 0, false
	}
	first, _, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(first, 10, 64)
	return n, err == nil
}
