// Package framecuev1 defines the messages and procedure names of the
// framecue.v1 playback service.
package framecuev1

// PlaybackServiceName is the fully-qualified name of the PlaybackService.
const PlaybackServiceName = "framecue.v1.PlaybackService"

// Procedure paths of the PlaybackService.
const (
	PlaybackServiceStartPlaybackProcedure      = "/framecue.v1.PlaybackService/StartPlayback"
	PlaybackServiceStopPlaybackProcedure       = "/framecue.v1.PlaybackService/StopPlayback"
	PlaybackServiceStreamPositionProcedure     = "/framecue.v1.PlaybackService/StreamPosition"
	PlaybackServicePlaybackInProgressProcedure = "/framecue.v1.PlaybackService/PlaybackInProgress"
	PlaybackServiceGetLibraryInfoProcedure     = "/framecue.v1.PlaybackService/GetLibraryInfo"
	PlaybackServiceWatchEventsProcedure        = "/framecue.v1.PlaybackService/WatchEvents"
)

type StartPlaybackRequest struct {
	Path       string `json:"path"`
	StartFrame int64  `json:"start_frame"`
	EndFrame   int64  `json:"end_frame"`
}

// StartPlaybackResponse carries the status code of the start attempt. Zero
// is success; negative codes name the failure class.
type StartPlaybackResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

type StopPlaybackRequest struct{}

type StopPlaybackResponse struct {
	Frames int64 `json:"frames"` // Frames played, relative to the window start
}

type StreamPositionRequest struct{}

type StreamPositionResponse struct {
	Frames int64 `json:"frames"` // -1 when not playing
}

type PlaybackInProgressRequest struct{}

type PlaybackInProgressResponse struct {
	InProgress bool   `json:"in_progress"`
	Status     string `json:"status"`
}

type GetLibraryInfoRequest struct{}

type GetLibraryInfoResponse struct {
	RevisionNumber int    `json:"revision_number"`
	Name           string `json:"name"`
}

type WatchEventsRequest struct{}

// NotificationType values.
const (
	NotificationTypeProgress   = "progress"
	NotificationTypeStopped    = "stopped"
	NotificationTypeEndOfMedia = "end_of_media"
	NotificationTypeError      = "error"
)

// Notification is a playback event pushed to watchers.
type Notification struct {
	SequenceNo uint64 `json:"sequence_no"`
	Type       string `json:"type"`
	Frame      int64  `json:"frame"`
	Message    string `json:"message,omitempty"`
}
