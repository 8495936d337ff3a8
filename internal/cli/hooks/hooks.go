// Package hooks bridges converter run events to the terminal: the TUI, a
// progress bar or plain log lines.
package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkapulica/Time-is-Money/pkg/converter"
)

// FileDiscoveredMsg signals that the walker found a file or directory.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a file's processing status.
type FileStatusUpdateMsg struct {
	Path     string
	Status   converter.Status
	Message  string
	Prices   int
	Duration time.Duration
}

// RunCompleteMsg carries the final report.
type RunCompleteMsg struct{ Report converter.Report }

// TUIProgram is the part of tea.Program the hooks use.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar is the part of progressbar.ProgressBar the hooks use.
type ProgressBar interface {
	Add(num int) error
	Describe(description string)
	Close() error
}

// Mode selects where events go.
type Mode int

const (
	// ModeLog logs failures only, or every status update when verbose.
	ModeLog Mode = iota
	// ModeProgress advances a progress bar on every finished file.
	ModeProgress
	// ModeTUI forwards every event to the Bubble Tea program.
	ModeTUI
)

// CLIHooks implements converter.Hooks for the command line.
type CLIHooks struct {
	logger  *slog.Logger
	mode    Mode
	verbose bool
	program TUIProgram
	bar     ProgressBar
	out     io.Writer // receives the newline closing the progress bar

	mu       sync.Mutex // guards bar and the counters
	finished int
	prices   int
}

// Options configure NewCLIHooks.
type Options struct {
	Mode    Mode
	Verbose bool
	Program TUIProgram  // required for ModeTUI
	Bar     ProgressBar // required for ModeProgress
	Out     io.Writer
}

// NewCLIHooks returns hooks for the given mode. A mode whose collaborator is
// missing falls back to ModeLog.
func NewCLIHooks(logger *slog.Logger, o Options) *CLIHooks {
	mode := o.Mode
	if (mode == ModeTUI && o.Program == nil) || (mode == ModeProgress && o.Bar == nil) {
		mode = ModeLog
	}
	out := o.Out
	if out == nil {
		out = io.Discard
	}
	return &CLIHooks{
		logger:  logger.With(slog.String("component", "hooks")),
		mode:    mode,
		verbose: o.Verbose,
		program: o.Program,
		bar:     o.Bar,
		out:     out,
	}
}

// Mode reports the effective mode.
func (h *CLIHooks) Mode() Mode { return h.mode }

func (h *CLIHooks) OnFileDiscovered(path string) error {
	switch {
	case h.mode == ModeTUI:
		h.program.Send(FileDiscoveredMsg{Path: path})
	case h.verbose:
		h.logger.Debug("File discovered", slog.String("path", path))
	}
	return nil
}

// OnFileStatusUpdate is called concurrently from the workers.
func (h *CLIHooks) OnFileStatusUpdate(path string, status converter.Status, message string, prices int, duration time.Duration) error {
	if h.mode == ModeTUI {
		h.program.Send(FileStatusUpdateMsg{Path: path, Status: status, Message: message, Prices: prices, Duration: duration})
		return nil
	}

	if h.mode == ModeProgress && isFinal(status) {
		h.mu.Lock()
		h.finished++
		h.prices += prices
		_ = h.bar.Add(1)
		h.bar.Describe(fmt.Sprintf("Converting (%d prices)", h.prices))
		h.mu.Unlock()
	}

	if h.verbose {
		attrs := []any{slog.String("path", path), slog.String("status", string(status))}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		level := slog.LevelDebug
		msg := "File status updated"
		switch status {
		case converter.StatusSuccess, converter.StatusCached, converter.StatusSkipped:
			level = slog.LevelInfo
			if message != "" {
				attrs = append(attrs, slog.String("message", message))
			}
		case converter.StatusFailed:
			level = slog.LevelError
			msg = "File processing failed"
			attrs = append(attrs, slog.String("error", message))
		}
		h.logger.Log(context.Background(), level, msg, attrs...)
		return nil
	}

	if status == converter.StatusFailed {
		h.logger.Error("File processing failed", slog.String("path", path), slog.String("error", message))
	}
	return nil
}

func (h *CLIHooks) OnRunComplete(report converter.Report) error {
	switch h.mode {
	case ModeTUI:
		h.program.Send(RunCompleteMsg{Report: report})
	case ModeProgress:
		h.mu.Lock()
		_ = h.bar.Close()
		h.mu.Unlock()
		_, _ = fmt.Fprintln(h.out)
	}
	return nil
}

// Finished returns the number of files that reached a final status in
// progress mode.
func (h *CLIHooks) Finished() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finished
}

func isFinal(status converter.Status) bool {
	switch status {
	case converter.StatusSuccess, converter.StatusFailed, converter.StatusSkipped, converter.StatusCached:
		return true
	}
	return false
}

var _ converter.Hooks = (*CLIHooks)(nil)
