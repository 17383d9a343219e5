package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	framecuev1 "github.com/osa030/framecue/internal/api/framecuev1"
	"github.com/osa030/framecue/internal/app/monitor"
	"github.com/osa030/framecue/internal/app/notification"
	"github.com/osa030/framecue/internal/app/playback"
)

// stubPlayer holds a fixed position while playing and never finishes.
type stubPlayer struct {
	mu       sync.Mutex
	startErr error
	position int64
	playing  bool
}

func (p *stubPlayer) StartPlayback(path string, startFrame, endFrame int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.playing = true
	return nil
}

func (p *stubPlayer) StopPlayback() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return 0
	}
	p.playing = false
	return p.position
}

func (p *stubPlayer) StreamPosition() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return -1
	}
	return p.position
}

func (p *stubPlayer) PlaybackInProgress() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

type testServer struct {
	player *stubPlayer
	mon    *monitor.Monitor
	notif  *notification.Manager
	client *Client
}

func newTestServer(t *testing.T, serverToken, clientToken string) *testServer {
	t.Helper()

	player := &stubPlayer{}
	mon := monitor.New(player, monitor.Config{PollInterval: time.Hour})
	notif := notification.NewManager()
	go notif.Relay(mon.Events())

	var opts []connect.HandlerOption
	if serverToken != "" {
		opts = append(opts, connect.WithInterceptors(NewAuthInterceptor(serverToken)))
	}
	path, handler := NewPlaybackServiceHandler(NewPlaybackService(mon, notif), opts...)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Cleanup(mon.Close)
	t.Cleanup(notif.Close)

	return &testServer{
		player: player,
		mon:    mon,
		notif:  notif,
		client: NewClient(ts.Client(), ts.URL, clientToken),
	}
}

func TestPlaybackService_StartAndStop(t *testing.T) {
	s := newTestServer(t, "", "")
	ctx := context.Background()

	res, err := s.client.StartPlayback(ctx, &framecuev1.StartPlaybackRequest{Path: "a.wav", StartFrame: 100, EndFrame: 5000})
	require.NoError(t, err)
	assert.Equal(t, playback.StatusOK, res.Status)
	assert.Empty(t, res.Message)

	s.player.mu.Lock()
	s.player.position = 250
	s.player.mu.Unlock()

	pos, err := s.client.StreamPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(250), pos.Frames)

	prog, err := s.client.PlaybackInProgress(ctx)
	require.NoError(t, err)
	assert.True(t, prog.InProgress)
	assert.Equal(t, "playing", prog.Status)

	stop, err := s.client.StopPlayback(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(250), stop.Frames)

	pos, err = s.client.StreamPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), pos.Frames)

	prog, err = s.client.PlaybackInProgress(ctx)
	require.NoError(t, err)
	assert.False(t, prog.InProgress)
	assert.Equal(t, "ready", prog.Status)
}

func TestPlaybackService_StartFailure(t *testing.T) {
	s := newTestServer(t, "", "")
	s.player.startErr = errors.Mark(errors.New("open a.wav: no such file"), playback.ErrStreamOpen)

	res, err := s.client.StartPlayback(context.Background(), &framecuev1.StartPlaybackRequest{Path: "a.wav", EndFrame: 10})
	require.NoError(t, err)
	assert.Equal(t, playback.StatusStreamOpen, res.Status)
	assert.Contains(t, res.Message, "Unable to find or open file.")
}

func TestPlaybackService_StartAfterClose(t *testing.T) {
	s := newTestServer(t, "", "")
	s.mon.Close()

	_, err := s.client.StartPlayback(context.Background(), &framecuev1.StartPlaybackRequest{Path: "a.wav", EndFrame: 10})
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestPlaybackService_GetLibraryInfo(t *testing.T) {
	s := newTestServer(t, "", "")

	res, err := s.client.GetLibraryInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, playback.RevisionNumber, res.RevisionNumber)
	assert.Equal(t, playback.LibraryName, res.Name)
}

func TestPlaybackService_WatchEvents(t *testing.T) {
	s := newTestServer(t, "", "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := s.client.WatchEvents(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.Eventually(t, func() bool { return s.notif.SubscriberCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = s.client.StartPlayback(ctx, &framecuev1.StartPlaybackRequest{Path: "a.wav", StartFrame: 1000, EndFrame: 9000})
	require.NoError(t, err)
	_, err = s.client.StopPlayback(ctx)
	require.NoError(t, err)

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	n := stream.Msg()
	assert.Equal(t, framecuev1.NotificationTypeStopped, n.Type)
	assert.Equal(t, int64(1000), n.Frame)
	assert.Equal(t, uint64(1), n.SequenceNo)
}

func TestPlaybackService_Auth(t *testing.T) {
	tests := []struct {
		name        string
		clientToken string
		wantCode    connect.Code
	}{
		{name: "valid token", clientToken: "secret"},
		{name: "missing token", clientToken: "", wantCode: connect.CodeUnauthenticated},
		{name: "wrong token", clientToken: "guess", wantCode: connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "secret", tt.clientToken)

			_, err := s.client.GetLibraryInfo(context.Background())
			if tt.wantCode == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, connect.CodeOf(err))
		})
	}
}

func TestPlaybackService_AuthStreaming(t *testing.T) {
	s := newTestServer(t, "secret", "guess")

	stream, err := s.client.WatchEvents(context.Background())
	if err == nil {
		defer stream.Close()
		assert.False(t, stream.Receive())
		err = stream.Err()
	}
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	assert.Equal(t, 0, s.notif.SubscriberCount())
}
