package adapters

import (
	"fmt"
	"io"
	"os"
	"sync"

	"comment-scout/internal/logging/types"
)

// StreamAdapter writes log entries to a process stream
type StreamAdapter struct {
	name      string
	format    string
	colorized bool
	out       io.Writer
	mu        sync.Mutex
}

// StreamConfig represents configuration for the stream adapters
type StreamConfig struct {
	Format    string `yaml:"format"`    // json or text
	Colorized bool   `yaml:"colorized"` // ANSI colours, text format only
}

// NewStdoutAdapter creates an adapter writing to stdout
func NewStdoutAdapter(name string, config StreamConfig) *StreamAdapter {
	return NewStreamAdapter(name, os.Stdout, config)
}

// NewStderrAdapter creates an adapter writing to stderr, keeping stdout free
// for command output such as the run summary.
func NewStderrAdapter(name string, config StreamConfig) *StreamAdapter {
	return NewStreamAdapter(name, os.Stderr, config)
}

// NewStreamAdapter creates an adapter writing to out
func NewStreamAdapter(name string, out io.Writer, config StreamConfig) *StreamAdapter {
	return &StreamAdapter{
		name:      name,
		format:    config.Format,
		colorized: config.Colorized,
		out:       out,
	}
}

// Write writes a log entry to the stream
func (a *StreamAdapter) Write(entry *types.LogEntry) error {
	output, err := formatEntry(a.format, entry, a.colorized)
	if err != nil {
		return fmt.Errorf("failed to format log entry: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = fmt.Fprintln(a.out, output)
	return err
}

// Close is a no-op; process streams are owned by the runtime
func (a *StreamAdapter) Close() error {
	return nil
}

// Name returns the name of the adapter
func (a *StreamAdapter) Name() string {
	return a.name
}
