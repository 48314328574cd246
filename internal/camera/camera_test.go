package camera_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiwipeso/kiwipeso/internal/advisory"
	"github.com/kiwipeso/kiwipeso/internal/camera"
)

type fakeStream struct {
	frame      []byte
	frameErr   error
	closeCount int
}

func (s *fakeStream) Frame(context.Context) ([]byte, error) {
	return s.frame, s.frameErr
}

func (s *fakeStream) Close() error {
	s.closeCount++
	return nil
}

type fakeSource struct {
	streams []*fakeStream
	openErr error
	opened  int
}

func (s *fakeSource) Open(context.Context) (camera.Stream, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}

	stream := s.streams[s.opened]
	s.opened++

	return stream, nil
}

func TestSession_CaptureReleasesStream(t *testing.T) {
	stream := &fakeStream{frame: []byte("jpeg")}
	source := &fakeSource{streams: []*fakeStream{stream}}
	session := camera.NewSession(source, advisory.NewBoard())

	ctx := context.Background()

	token, err := session.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, camera.StateStreaming, session.State())

	frame, err := session.Capture(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), frame)
	assert.Equal(t, camera.StateIdle, session.State())
	assert.Equal(t, 1, stream.closeCount)
}

func TestSession_CancelIsIdempotent(t *testing.T) {
	stream := &fakeStream{frame: []byte("jpeg")}
	source := &fakeSource{streams: []*fakeStream{stream}}
	session := camera.NewSession(source, advisory.NewBoard())

	token, err := session.Start(context.Background())
	require.NoError(t, err)

	session.Cancel(token)
	session.Cancel(token)

	assert.Equal(t, camera.StateIdle, session.State())
	assert.Equal(t, 1, stream.closeCount, "a second cancel must not double-release")

	_, err = session.Capture(context.Background(), token)
	assert.ErrorIs(t, err, camera.ErrNotStreaming)
}

func TestSession_RestartTearsDownPriorStream(t *testing.T) {
	first := &fakeStream{frame: []byte("a")}
	second := &fakeStream{frame: []byte("b")}
	source := &fakeSource{streams: []*fakeStream{first, second}}
	session := camera.NewSession(source, advisory.NewBoard())

	ctx := context.Background()

	oldToken, err := session.Start(ctx)
	require.NoError(t, err)

	newToken, err := session.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.closeCount, "re-entering streaming tears down the prior stream")
	assert.NotEqual(t, oldToken, newToken)

	// The stale token no longer acts on the new stream.
	_, err = session.Capture(ctx, oldToken)
	assert.ErrorIs(t, err, camera.ErrStaleToken)
	session.Cancel(oldToken)
	assert.Equal(t, camera.StateStreaming, session.State())

	frame, err := session.Capture(ctx, newToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), frame)
}

func TestSession_OpenFailureRaisesAdvisory(t *testing.T) {
	source := &fakeSource{openErr: errors.New("permission denied")}
	board := advisory.NewBoard()
	session := camera.NewSession(source, board)

	_, err := session.Start(context.Background())
	assert.Error(t, err)
	assert.Equal(t, camera.StateIdle, session.State())

	_, raised := board.Get(advisory.KindCamera)
	assert.True(t, raised)
}

func TestSession_NoSourceConfigured(t *testing.T) {
	board := advisory.NewBoard()
	session := camera.NewSession(nil, board)

	_, err := session.Start(context.Background())
	assert.ErrorIs(t, err, camera.ErrUnavailable)

	_, raised := board.Get(advisory.KindCamera)
	assert.True(t, raised)
}

func TestSession_FrameErrorReleasesStream(t *testing.T) {
	stream := &fakeStream{frameErr: errors.New("device disconnected")}
	source := &fakeSource{streams: []*fakeStream{stream}}
	board := advisory.NewBoard()
	session := camera.NewSession(source, board)

	token, err := session.Start(context.Background())
	require.NoError(t, err)

	_, err = session.Capture(context.Background(), token)
	assert.Error(t, err)
	assert.Equal(t, camera.StateIdle, session.State())
	assert.Equal(t, 1, stream.closeCount, "the stream must be released on the error path too")
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xff, 0xd8, 0xff, 0xdb})
	}))
	t.Cleanup(srv.Close)

	source := camera.NewHTTPSource(srv.URL)

	stream, err := source.Open(context.Background())
	require.NoError(t, err)

	frame, err := stream.Frame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xdb}, frame)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	_, err = stream.Frame(context.Background())
	assert.Error(t, err, "a closed stream must not fetch frames")
}

func TestHTTPSource_OpenProbesEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	source := camera.NewHTTPSource(srv.URL)

	_, err := source.Open(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource_RejectsOversizedFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, 8<<20+1))
	}))
	t.Cleanup(srv.Close)

	source := camera.NewHTTPSource(srv.URL)

	_, err := source.Open(context.Background())
	assert.Error(t, err, "an over-limit frame must be rejected, not truncated")
}

func TestSession_CaptureWithZeroTokenWhileIdle(t *testing.T) {
	session := camera.NewSession(&fakeSource{}, advisory.NewBoard())

	_, err := session.Capture(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, camera.ErrNotStreaming)

	session.Cancel(uuid.Nil)
	assert.Equal(t, camera.StateIdle, session.State())
}
