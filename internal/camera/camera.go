package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
)

// FrameSource acquires a live stream from the environment-facing camera.
// It is an injected capability: the hardware either grants or denies it.
type FrameSource interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is one live camera stream. Close must be called on both capture
// and cancel: a leaked stream keeps the hardware indicator active.
// Closing an already-closed stream is a no-op, not an error.
type Stream interface {
	Frame(ctx context.Context) ([]byte, error)
	Close() error
}

// State is the session's position in the capture flow:
// idle → streaming → (capturing|cancelled) → idle.
type State int

const (
	StateIdle State = iota
	StateStreaming
)

var (
	ErrUnavailable  = errors.New("no camera source is configured")
	ErrNotStreaming = errors.New("no active camera stream")
	ErrStaleToken   = errors.New("token does not match the active stream")
)

// Session drives the camera-backed flows. Each Start issues a token that
// Capture and Cancel must present, so a stale client acting on a stream
// it no longer owns is rejected as a no-op.
type Session struct {
	source     FrameSource
	advisories *advisory.Board

	mu     sync.Mutex
	state  State
	stream Stream
	token  uuid.UUID
}

func NewSession(source FrameSource, board *advisory.Board) *Session {
	return &Session{source: source, advisories: board}
}

// Start opens a stream, tearing down any prior one first. An open failure
// raises the camera advisory.
func (s *Session) Start(ctx context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardown()

	if s.source == nil {
		s.advisories.Set(advisory.KindCamera, "Camera is not available on this device.")
		return uuid.Nil, ErrUnavailable
	}

	stream, err := s.source.Open(ctx)
	if err != nil {
		s.advisories.Set(advisory.KindCamera, "Camera access denied or not available. Please check your permissions.")
		return uuid.Nil, fmt.Errorf("opening camera stream: %w", err)
	}

	s.advisories.Clear(advisory.KindCamera)
	s.stream = stream
	s.state = StateStreaming
	s.token = uuid.New()

	return s.token, nil
}

// Capture grabs the current frame, releases the stream and returns to
// idle. The stream is released on the error path too.
func (s *Session) Capture(ctx context.Context, token uuid.UUID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return nil, ErrNotStreaming
	}

	if token != s.token {
		return nil, ErrStaleToken
	}

	frame, err := s.stream.Frame(ctx)

	s.teardown()

	if err != nil {
		s.advisories.Set(advisory.KindCamera, "Could not capture a photo. Please try again.")
		return nil, fmt.Errorf("capturing frame: %w", err)
	}

	return frame, nil
}

// Cancel releases the stream without producing output. It is idempotent
// and reachable from both user action and error paths; cancelling with a
// stale token is a no-op.
func (s *Session) Cancel(token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming || token != s.token {
		return
	}

	s.teardown()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// teardown stops any active stream. Caller holds the mutex.
func (s *Session) teardown() {
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			slog.Warn("failed to close camera stream", "error", err)
		}

		s.stream = nil
	}

	s.state = StateIdle
	s.token = uuid.Nil
}
