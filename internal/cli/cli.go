// Package cli runs a conversion for the command line: it picks the terminal
// feedback (TUI, progress bar or log lines), runs the converter and prints
// the run report.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/mkapulica/Time-is-Money/internal/cli/hooks"
	"github.com/mkapulica/Time-is-Money/internal/cli/ui"
	"github.com/mkapulica/Time-is-Money/pkg/converter"
	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
)

// stderrIsTerminal is replaced in tests.
var stderrIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Run converts opts.InputPath into opts.OutputPath and writes the report to
// out in opts.OutputFormat. Per-file errors under the continue mode are only
// reported; the returned error is non-nil for invalid options, an unresolved
// wage, a fatal run failure or a run aborted from the TUI.
func Run(ctx context.Context, opts converter.Options, logger *slog.Logger, out io.Writer) error {
	if err := checkOutputDir(opts); err != nil {
		return err
	}

	var (
		report converter.Report
		err    error
	)
	tty := stderrIsTerminal()
	switch {
	case opts.TuiEnabled && tty && !opts.Verbose:
		report, err = runWithTUI(ctx, opts, logger)
	case tty && !opts.Verbose:
		report, err = runWithProgress(ctx, opts, logger)
	default:
		opts.EventHooks = hooks.NewCLIHooks(logger, hooks.Options{Mode: hooks.ModeLog, Verbose: opts.Verbose})
		report, err = converter.Convert(ctx, opts)
	}

	if report.Summary.RunID == "" {
		if err != nil {
			logger.Error("Conversion failed", slog.String("error", err.Error()))
		}
		return err
	}
	if werr := report.Write(out, opts.OutputFormat); werr != nil {
		return errors.Join(err, fmt.Errorf("writing report: %w", werr))
	}
	return err
}

func runWithTUI(ctx context.Context, opts converter.Options, logger *slog.Logger) (converter.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(opts.AppVersion, wageLabel(ctx, opts))
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	opts.EventHooks = hooks.NewCLIHooks(logger, hooks.Options{Mode: hooks.ModeTUI, Program: program})

	type result struct {
		report converter.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := converter.Convert(ctx, opts)
		done <- result{r, err}
		program.Quit()
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-done
		return converter.Report{}, fmt.Errorf("terminal UI failed: %w", err)
	}
	if model.Aborted() {
		cancel()
	}
	res := <-done
	if model.Aborted() && res.err == nil {
		res.err = fmt.Errorf("conversion aborted: %w", context.Canceled)
	}
	return res.report, res.err
}

func runWithProgress(ctx context.Context, opts converter.Options, logger *slog.Logger) (converter.Report, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Converting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	opts.EventHooks = hooks.NewCLIHooks(logger, hooks.Options{Mode: hooks.ModeProgress, Bar: bar, Out: os.Stderr})
	return converter.Convert(ctx, opts)
}

// wageLabel formats the wage for the TUI header, or returns "" when
// substitution is off or the wage cannot be resolved yet.
func wageLabel(ctx context.Context, opts converter.Options) string {
	if !opts.Enabled {
		return ""
	}
	w, err := converter.ResolveWage(ctx, opts)
	if err != nil {
		return ""
	}
	label := opts.HoursLabel
	if label == "" {
		label = converter.DefaultHoursLabel
	}
	return fmt.Sprintf("%s/%s", w, label)
}

// checkOutputDir refuses to write into a non-empty directory that was not
// produced by an earlier run, unless overwriting is forced.
func checkOutputDir(opts converter.Options) error {
	if opts.ForceOverwrite || opts.OutputPath == "" {
		return nil
	}
	entries, err := os.ReadDir(opts.OutputPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: cannot read output directory '%s': %w", converter.ErrConfigValidation, opts.OutputPath, err)
	}
	if len(entries) == 0 {
		return nil
	}
	cacheFile := opts.CacheFilePath
	if cacheFile == "" {
		cacheFile = filepath.Join(opts.OutputPath, cache.CacheFileName)
	}
	if _, err := os.Stat(cacheFile); err == nil {
		return nil
	}
	return fmt.Errorf("%w: output directory '%s' is not empty; use --force to overwrite", converter.ErrConfigValidation, opts.OutputPath)
}
