package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/filex"
	"github.com/jrick/logrotate/rotator"
	"github.com/sirupsen/logrus"
)

// Rotated log files are rolled at 10 MiB, keeping three old files.
const (
	rotateThresholdKB = 10 * 1024
	rotateMaxRolls    = 3
)

// Output is the process-wide log sink: stdout, optionally teed into a
// size-rotated file.
type Output struct {
	w       io.Writer
	rotator *rotator.Rotator
}

// NewOutput returns a sink writing to stdout and, when logFile is not empty,
// to a rotated file at that path. The parent directory is created.
func NewOutput(logFile string) (*Output, error) {
	if logFile == "" {
		return &Output{w: os.Stdout}, nil
	}

	path, err := filex.EnsureParentDir(logFile)
	if err != nil {
		return nil, err
	}

	r, err := rotator.New(path, rotateThresholdKB, false, rotateMaxRolls)
	if err != nil {
		return nil, err
	}

	return &Output{w: io.MultiWriter(os.Stdout, r), rotator: r}, nil
}

// Write implements io.Writer.
func (o *Output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// Close flushes and closes the rotated file, if any.
func (o *Output) Close() error {
	if o.rotator == nil {
		return nil
	}
	return o.rotator.Close()
}

// ParseLevel maps a textual level to slog; unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewJSONLogger builds the application logger over w.
func NewJSONLogger(w io.Writer, level string) *SlogLogger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return NewSlogLogger(slog.New(h))
}

// NewAccessLogger builds the logrus logger used for HTTP access lines.
func NewAccessLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}
