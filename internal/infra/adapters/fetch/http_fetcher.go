// File: internal/infra/adapters/fetch/http_fetcher.go
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"blueprint-chat/internal/domain"
	"blueprint-chat/internal/domain/ports/adapter"
)

var _ adapter.DocumentFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher downloads document bytes from the storage URL recorded in the
// documents table. Anything outside 2xx is a fetch failure.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxSize <= 0 {
		maxSize = 64 << 20 // 64 MiB
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", domain.ErrFetchFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrFetchFailed, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrFetchFailed, f.maxSize)
	}
	return data, nil
}
