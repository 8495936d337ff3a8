// Package converter rewrites prices in directories of saved pages as work
// hours. It walks the input tree with a worker pool, runs every document
// through a worktime session and mirrors the result into the output tree.
package converter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/mkapulica/Time-is-Money/pkg/worktime/session"
)

// Convert is the main entry point of the library. It validates opts, runs
// the engine and returns the run report. The error is non-nil for invalid
// options, an unresolvable wage or a fatal run failure; per-file errors under
// OnErrorContinue are only recorded in the report.
func Convert(ctx context.Context, opts Options) (Report, error) {
	if opts.Logger == nil {
		return Report{}, fmt.Errorf("%w: Logger implementation cannot be nil", ErrConfigValidation)
	}
	if opts.Concurrency < 0 {
		return Report{}, fmt.Errorf("%w: concurrency cannot be negative", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger)
	logger.Debug("Starting conversion", slog.String("input", opts.InputPath), slog.String("output", opts.OutputPath))

	engine, err := NewEngine(ctx, opts)
	if err != nil {
		logger.Error("Engine initialization failed", slog.String("error", err.Error()))
		return Report{}, err
	}
	return engine.Run()
}

// RewriteString rewrites the prices in a single text with the rewriting
// options of opts. Paths, caching and the worker pool are not involved. A
// disabled configuration returns text unchanged.
func RewriteString(ctx context.Context, opts Options, text string) (string, worktime.Stats, error) {
	if !opts.Enabled {
		return text, worktime.Stats{}, nil
	}
	strategy, err := worktime.ParseStrategy(opts.Traversal)
	if err != nil {
		return "", worktime.Stats{}, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	rewriter := worktime.New(worktime.Config{
		Strategy:    strategy,
		StripSpaces: opts.StripSpaces,
		HoursLabel:  opts.HoursLabel,
		Rates:       opts.conversionTable(),
		Logger:      opts.Logger,
	})
	root := worktime.NewText(text)
	st, err := session.New(root, rewriter, opts.wageSource(), session.Options{Logger: opts.Logger}).Load(ctx)
	if err != nil {
		return "", worktime.Stats{}, fmt.Errorf("%w: %w", ErrWageUnavailable, err)
	}
	return root.Content, st, nil
}

// ResolveWage returns the hourly wage the options would run with.
func ResolveWage(ctx context.Context, opts Options) (worktime.Wage, error) {
	w, err := opts.wageSource().Wage(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWageUnavailable, err)
	}
	return w, nil
}
