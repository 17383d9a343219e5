// Package main provides the framecue command line client.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/framecue/internal/api/connect"
	framecuev1 "github.com/osa030/framecue/internal/api/framecuev1"
)

var (
	app    = kingpin.New("framecue", "framecue playback client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("FRAMECUE_SERVER").String()
	token  = app.Flag("token", "Auth token (or set FRAMECUE_AUTH_TOKEN env)").Envar("FRAMECUE_AUTH_TOKEN").String()

	// play command
	playCmd   = app.Command("play", "Play a frame window of a file")
	playPath  = playCmd.Arg("path", "Audio file path, as seen by the server").Required().String()
	playStart = playCmd.Arg("start", "First frame").Required().Int64()
	playEnd   = playCmd.Arg("end", "Frame after the last one").Required().Int64()

	// stop command
	stopCmd = app.Command("stop", "Stop playback")

	// position command
	positionCmd = app.Command("position", "Print frames played in the current window").Alias("pos")

	// status command
	statusCmd = app.Command("status", "Print whether playback is in progress")

	// info command
	infoCmd = app.Command("info", "Print library information")

	// watch command
	watchCmd = app.Command("watch", "Stream playback events")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == localCmd.FullCommand() {
		os.Exit(runLocal())
	}

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx := context.Background()

	switch command {
	case playCmd.FullCommand():
		play(ctx, client)
	case stopCmd.FullCommand():
		stop(ctx, client)
	case positionCmd.FullCommand():
		position(ctx, client)
	case statusCmd.FullCommand():
		status(ctx, client)
	case infoCmd.FullCommand():
		info(ctx, client)
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func play(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.StartPlayback(ctx, &framecuev1.StartPlaybackRequest{
		Path:       *playPath,
		StartFrame: *playStart,
		EndFrame:   *playEnd,
	})
	if err != nil {
		fail(err)
	}
	if resp.Status != 0 {
		fmt.Printf("Failed [%d]: %s\n", resp.Status, resp.Message)
		os.Exit(2)
	}
	fmt.Printf("Playing %s [%s, %s)\n", *playPath, humanize.Comma(*playStart), humanize.Comma(*playEnd))
}

func stop(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.StopPlayback(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Stopped after %s frames\n", humanize.Comma(resp.Frames))
}

func position(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.StreamPosition(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Println(resp.Frames)
}

func status(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.PlaybackInProgress(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Status: %s (in progress: %v)\n", resp.Status, resp.InProgress)
}

func info(ctx context.Context, client *apiconnect.Client) {
	resp, err := client.GetLibraryInfo(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("%s (revision %d)\n", resp.Name, resp.RevisionNumber)
}

func watch(ctx context.Context, client *apiconnect.Client) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.WatchEvents(ctx)
	if err != nil {
		fail(err)
	}
	defer stream.Close()

	fmt.Println("Watching playback events. Press Ctrl+C to exit.")

	for stream.Receive() {
		printNotification(stream.Msg())
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *framecuev1.Notification) {
	switch n.Type {
	case framecuev1.NotificationTypeError:
		fmt.Printf("[%d] %-12s %s\n", n.SequenceNo, n.Type, n.Message)
	default:
		fmt.Printf("[%d] %-12s frame=%s\n", n.SequenceNo, n.Type, humanize.Comma(n.Frame))
	}
}
