package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	framecuev1 "github.com/osa030/framecue/internal/api/framecuev1"
)

// Client is a client for the PlaybackService.
type Client struct {
	startPlayback      *connect.Client[framecuev1.StartPlaybackRequest, framecuev1.StartPlaybackResponse]
	stopPlayback       *connect.Client[framecuev1.StopPlaybackRequest, framecuev1.StopPlaybackResponse]
	streamPosition     *connect.Client[framecuev1.StreamPositionRequest, framecuev1.StreamPositionResponse]
	playbackInProgress *connect.Client[framecuev1.PlaybackInProgressRequest, framecuev1.PlaybackInProgressResponse]
	getLibraryInfo     *connect.Client[framecuev1.GetLibraryInfoRequest, framecuev1.GetLibraryInfoResponse]
	watchEvents        *connect.Client[framecuev1.WatchEventsRequest, framecuev1.Notification]
}

// NewClient creates a PlaybackService client for the server at baseURL.
// A non-empty token is sent in the AuthTokenHeader of every call.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	if token != "" {
		opts = append(opts, connect.WithInterceptors(&tokenInjector{token: token}))
	}

	return &Client{
		startPlayback: connect.NewClient[framecuev1.StartPlaybackRequest, framecuev1.StartPlaybackResponse](
			httpClient, baseURL+framecuev1.PlaybackServiceStartPlaybackProcedure, opts...),
		stopPlayback: connect.NewClient[framecuev1.StopPlaybackRequest, framecuev1.StopPlaybackResponse](
			httpClient, baseURL+framecuev1.PlaybackServiceStopPlaybackProcedure, opts...),
		streamPosition: connect.NewClient[framecuev1.StreamPositionRequest, framecuev1.StreamPositionResponse](
			httpClient, baseURL+framecuev1.PlaybackServiceStreamPositionProcedure, opts...),
		playbackInProgress: connect.NewClient[framecuev1.PlaybackInProgressRequest, framecuev1.PlaybackInProgressResponse](
			httpClient, baseURL+framecuev1.PlaybackServicePlaybackInProgressProcedure, opts...),
		getLibraryInfo: connect.NewClient[framecuev1.GetLibraryInfoRequest, framecuev1.GetLibraryInfoResponse](
			httpClient, baseURL+framecuev1.PlaybackServiceGetLibraryInfoProcedure, opts...),
		watchEvents: connect.NewClient[framecuev1.WatchEventsRequest, framecuev1.Notification](
			httpClient, baseURL+framecuev1.PlaybackServiceWatchEventsProcedure, opts...),
	}
}

func (c *Client) StartPlayback(ctx context.Context, req *framecuev1.StartPlaybackRequest) (*framecuev1.StartPlaybackResponse, error) {
	res, err := c.startPlayback.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) StopPlayback(ctx context.Context) (*framecuev1.StopPlaybackResponse, error) {
	res, err := c.stopPlayback.CallUnary(ctx, connect.NewRequest(&framecuev1.StopPlaybackRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) StreamPosition(ctx context.Context) (*framecuev1.StreamPositionResponse, error) {
	res, err := c.streamPosition.CallUnary(ctx, connect.NewRequest(&framecuev1.StreamPositionRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) PlaybackInProgress(ctx context.Context) (*framecuev1.PlaybackInProgressResponse, error) {
	res, err := c.playbackInProgress.CallUnary(ctx, connect.NewRequest(&framecuev1.PlaybackInProgressRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) GetLibraryInfo(ctx context.Context) (*framecuev1.GetLibraryInfoResponse, error) {
	res, err := c.getLibraryInfo.CallUnary(ctx, connect.NewRequest(&framecuev1.GetLibraryInfoRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

// WatchEvents opens the event stream. The caller must Close it.
func (c *Client) WatchEvents(ctx context.Context) (*connect.ServerStreamForClient[framecuev1.Notification], error) {
	return c.watchEvents.CallServerStream(ctx, connect.NewRequest(&framecuev1.WatchEventsRequest{}))
}
