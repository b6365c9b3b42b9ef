package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"
)

const (
	DefaultMaxBytes = 64 << 20
	DefaultTimeout  = 60 * time.Second
)

// ErrTooLarge is returned when the upstream body exceeds the configured limit.
var ErrTooLarge = errors.New("upstream body exceeds size limit")

// Source fetches the proxied object. The whole body is buffered in memory.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
}

// NewSource picks an implementation from the scheme of rawURL.
func NewSource(rawURL string, opts Options) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid download url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid download url %q: missing host", rawURL)
		}
		return newHTTPSource(u, opts), nil
	case "s3":
		return newS3Source(u, opts)
	}

	return nil, fmt.Errorf("unsupported download url scheme %q", u.Scheme)
}

// readAll reads at most max bytes from r, failing if r holds more.
func readAll(r io.Reader, max int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, max)
	}
	return body, nil
}
