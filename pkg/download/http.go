package download

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type httpSource struct {
	url       string
	userAgent string
	maxBytes  int64
	client    *http.Client
}

func newHTTPSource(u *url.URL, opts Options) *httpSource {
	return &httpSource{
		url:       u.String(),
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		client:    &http.Client{Timeout: opts.Timeout},
	}
}

func (s *httpSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch file: %d", resp.StatusCode)
	}

	return readAll(resp.Body, s.maxBytes)
}

func (s *httpSource) String() string {
	return s.url
}
