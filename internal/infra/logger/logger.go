// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or a file path
	Level  string // "trace", "debug", "info", "warn", "error"
	JSON   bool   // Force JSON lines on a terminal stream
}

// Init installs the global logger described by cfg. The returned closer
// releases the log file, if one was opened.
func Init(cfg Config) (io.Closer, error) {
	level := parseLevel(cfg.Level)

	writer, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.CallerMarshalFunc = shortCaller

	zlog.Logger = build(writer, level, cfg.JSON || closer != nil)
	zerolog.DefaultContextLogger = &zlog.Logger

	return closer, nil
}

// build creates a logger writing to w. Console output is used unless json is
// set. Caller information is only attached at debug level and below.
func build(w io.Writer, level zerolog.Level, json bool) zerolog.Logger {
	if !json {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05.000",
		}
	}
	ctx := zerolog.New(w).With().Timestamp()
	if level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func openOutput(output string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(output) {
	case "stdout", "":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open log file %s", output)
	}
	return f, f, nil
}

// shortCaller trims a caller path to its last directory and file name.
func shortCaller(pc uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// parseLevel parses the log level string. Unknown levels fall back to info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "", "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
