package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const maxFrameBytes = 8 << 20

// HTTPSource acquires frames from an IP-camera style snapshot endpoint
// that answers GET with one JPEG per request.
type HTTPSource struct {
	client *http.Client
	url    string
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
	}
}

// Open probes the endpoint once so an unreachable or denying camera
// surfaces at stream start, not first capture.
func (s *HTTPSource) Open(ctx context.Context) (Stream, error) {
	stream := &httpStream{client: s.client, url: s.url}

	if _, err := stream.Frame(ctx); err != nil {
		return nil, err
	}

	return stream, nil
}

type httpStream struct {
	client *http.Client
	url    string

	mu     sync.Mutex
	closed bool
}

func (s *httpStream) Frame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("stream is closed")
	}
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected snapshot status code %d", resp.StatusCode)
	}

	// Read one byte past the limit: a truncated frame is a corrupt JPEG,
	// so an oversized snapshot is an error, not a prefix.
	frame, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	if len(frame) > maxFrameBytes {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", maxFrameBytes)
	}

	return frame, nil
}

func (s *httpStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}
