// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

type DualLogger struct {
	Logger *slog.Logger
	file   *os.File
}

// New creates a slog logger writing to both the given writer (normally
// stderr) and an append-only log file. An empty path skips the file sink.
func New(console io.Writer, logPath string) (*DualLogger, error) {
	writers := []io.Writer{console}

	var file *os.File
	if logPath != "" {
		var err error
		file, err = os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: slog.LevelInfo})
	return &DualLogger{Logger: slog.New(handler), file: file}, nil
}

// Close flushes and closes the file sink, if one was opened.
func (d *DualLogger) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
