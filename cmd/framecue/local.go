package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/framecue/internal/app/monitor"
	"github.com/osa030/framecue/internal/app/playback"
	"github.com/osa030/framecue/internal/infra/audioengine"
	"github.com/osa030/framecue/internal/infra/config"
	"github.com/osa030/framecue/internal/infra/logger"
)

var (
	// local command
	localCmd     = app.Command("local", "Play a frame window in-process, without a server")
	localPath    = localCmd.Arg("path", "Audio file path").Required().String()
	localStart   = localCmd.Arg("start", "First frame").Required().Int64()
	localEnd     = localCmd.Arg("end", "Frame after the last one").Required().Int64()
	localConfig  = localCmd.Flag("config", "Path to config file (built-in defaults when empty)").Short('c').String()
	localVerbose = localCmd.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
)

// runLocal plays one window and prints monitor events until it ends.
func runLocal() int {
	level := "warn"
	if *localVerbose {
		level = "debug"
	}
	if _, err := logger.Init(logger.Config{Output: "stderr", Level: level}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	var (
		cfg *config.Config
		err error
	)
	if *localConfig != "" {
		cfg, err = config.Load(*localConfig)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	engine, err := audioengine.FromConfig(cfg.Engine)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	controller := playback.NewController(engine, playback.Config{MaxChannels: cfg.Playback.MaxChannels})
	mon := monitor.New(controller, monitor.Config{
		PollInterval: cfg.Monitor.PollInterval(),
		EventBuffer:  cfg.Monitor.EventBuffer,
	})
	defer mon.Close()

	if err := mon.Play(*localPath, *localStart, *localEnd); err != nil {
		fmt.Println(monitor.Message(err))
		return 2
	}
	zlog.Debug().Msgf("local: playing: file=%s start=%d end=%d", *localPath, *localStart, *localEnd)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			fmt.Printf("Stopped after %s frames\n", humanize.Comma(mon.Stop()))
			return 0
		case e, ok := <-mon.Events():
			if !ok {
				return 0
			}
			fmt.Printf("%-12s frame=%s\n", e.Type, humanize.Comma(e.Frame))
			if e.Type == monitor.EventEndOfMedia {
				return 0
			}
		}
	}
}
