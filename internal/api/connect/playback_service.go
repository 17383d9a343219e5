package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	framecuev1 "github.com/osa030/framecue/internal/api/framecuev1"
	"github.com/osa030/framecue/internal/app/monitor"
	"github.com/osa030/framecue/internal/app/notification"
	"github.com/osa030/framecue/internal/app/playback"
)

// PlaybackService implements the PlaybackService RPC.
type PlaybackService struct {
	monitor *monitor.Monitor
	notif   *notification.Manager
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(mon *monitor.Monitor, notif *notification.Manager) *PlaybackService {
	return &PlaybackService{
		monitor: mon,
		notif:   notif,
	}
}

// StartPlayback handles start requests. Playback failures are reported in
// the response status, not as RPC errors.
func (s *PlaybackService) StartPlayback(
	ctx context.Context,
	req *connect.Request[framecuev1.StartPlaybackRequest],
) (*connect.Response[framecuev1.StartPlaybackResponse], error) {
	err := s.monitor.Play(req.Msg.Path, req.Msg.StartFrame, req.Msg.EndFrame)
	if errors.Is(err, monitor.ErrClosed) {
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	res := &framecuev1.StartPlaybackResponse{Status: playback.StatusCode(err)}
	if err != nil {
		res.Message = monitor.Message(err)
	}
	return connect.NewResponse(res), nil
}

// StopPlayback handles stop requests.
func (s *PlaybackService) StopPlayback(
	ctx context.Context,
	req *connect.Request[framecuev1.StopPlaybackRequest],
) (*connect.Response[framecuev1.StopPlaybackResponse], error) {
	return connect.NewResponse(&framecuev1.StopPlaybackResponse{
		Frames: s.monitor.Stop(),
	}), nil
}

// StreamPosition handles position queries.
func (s *PlaybackService) StreamPosition(
	ctx context.Context,
	req *connect.Request[framecuev1.StreamPositionRequest],
) (*connect.Response[framecuev1.StreamPositionResponse], error) {
	return connect.NewResponse(&framecuev1.StreamPositionResponse{
		Frames: s.monitor.Elapsed(),
	}), nil
}

// PlaybackInProgress handles progress queries.
func (s *PlaybackService) PlaybackInProgress(
	ctx context.Context,
	req *connect.Request[framecuev1.PlaybackInProgressRequest],
) (*connect.Response[framecuev1.PlaybackInProgressResponse], error) {
	return connect.NewResponse(&framecuev1.PlaybackInProgressResponse{
		InProgress: s.monitor.InProgress(),
		Status:     s.monitor.Status().String(),
	}), nil
}

// GetLibraryInfo returns the library identity.
func (s *PlaybackService) GetLibraryInfo(
	ctx context.Context,
	req *connect.Request[framecuev1.GetLibraryInfoRequest],
) (*connect.Response[framecuev1.GetLibraryInfoResponse], error) {
	return connect.NewResponse(&framecuev1.GetLibraryInfoResponse{
		RevisionNumber: playback.RevisionNumber,
		Name:           playback.LibraryName,
	}), nil
}

// WatchEvents streams playback events until the client goes away or the
// server shuts down.
func (s *PlaybackService) WatchEvents(
	ctx context.Context,
	req *connect.Request[framecuev1.WatchEventsRequest],
	stream *connect.ServerStream[framecuev1.Notification],
) error {
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := s.notif.Subscribe(adapter)
	defer s.notif.Unsubscribe(subscriptionID)

	zlog.Debug().Msgf("connect: watcher attached: id=%s", subscriptionID)

	select {
	case <-ctx.Done():
	case <-s.notif.Done():
	}
	return nil
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[framecuev1.Notification]
}

func (a *notificationStreamAdapter) Send(n *framecuev1.Notification) error {
	return a.stream.Send(n)
}

// NewPlaybackServiceHandler builds an HTTP handler serving every procedure
// of svc. It returns the path to mount the handler on.
func NewPlaybackServiceHandler(svc *PlaybackService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(framecuev1.PlaybackServiceStartPlaybackProcedure, connect.NewUnaryHandler(
		framecuev1.PlaybackServiceStartPlaybackProcedure, svc.StartPlayback, opts...))
	mux.Handle(framecuev1.PlaybackServiceStopPlaybackProcedure, connect.NewUnaryHandler(
		framecuev1.PlaybackServiceStopPlaybackProcedure, svc.StopPlayback, opts...))
	mux.Handle(framecuev1.PlaybackServiceStreamPositionProcedure, connect.NewUnaryHandler(
		framecuev1.PlaybackServiceStreamPositionProcedure, svc.StreamPosition, opts...))
	mux.Handle(framecuev1.PlaybackServicePlaybackInProgressProcedure, connect.NewUnaryHandler(
		framecuev1.PlaybackServicePlaybackInProgressProcedure, svc.PlaybackInProgress, opts...))
	mux.Handle(framecuev1.PlaybackServiceGetLibraryInfoProcedure, connect.NewUnaryHandler(
		framecuev1.PlaybackServiceGetLibraryInfoProcedure, svc.GetLibraryInfo, opts...))
	mux.Handle(framecuev1.PlaybackServiceWatchEventsProcedure, connect.NewServerStreamHandler(
		framecuev1.PlaybackServiceWatchEventsProcedure, svc.WatchEvents, opts...))

	return "/" + framecuev1.PlaybackServiceName + "/", mux
}
