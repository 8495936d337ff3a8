package converter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
	"github.com/mkapulica/Time-is-Money/pkg/util"
)

// Walker traverses the input directory, applies ignore rules and dispatches
// eligible file paths to the worker pool.
type Walker struct {
	opts                 *Options
	workerChan           chan<- string
	wg                   *sync.WaitGroup
	hooks                Hooks
	logger               *slog.Logger
	ignore               *util.IgnoreRules
	outputAbs            string
	dispatchWarnDuration time.Duration
}

// NewWalker creates a Walker. It loads the nearest IgnoreFileName found at or
// above the input directory plus Options.IgnorePatterns.
func NewWalker(opts *Options, workerChan chan<- string, wg *sync.WaitGroup, loggerHandler slog.Handler) (*Walker, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "walker"))
	inputAbs, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute path for input: %w", err)
	}
	rules, err := loadIgnoreRules(inputAbs, opts.IgnorePatterns, logger)
	if err != nil {
		logger.Error("Failed to initialize ignore rules", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize ignore patterns: %w", err)
	}
	logger.Debug("Ignore patterns loaded", slog.Int("count", rules.Len()))

	outputAbs := ""
	if opts.OutputPath != "" {
		if outputAbs, err = filepath.Abs(opts.OutputPath); err != nil {
			return nil, fmt.Errorf("could not get absolute path for output: %w", err)
		}
	}
	dispatchWarnDuration := opts.DispatchWarnThreshold
	if dispatchWarnDuration <= 0 {
		dispatchWarnDuration = time.Second
	}
	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	return &Walker{
		opts:                 opts,
		workerChan:           workerChan,
		wg:                   wg,
		hooks:                hooks,
		logger:               logger,
		ignore:               rules,
		outputAbs:            outputAbs,
		dispatchWarnDuration: dispatchWarnDuration,
	}, nil
}

// StartWalk walks the input directory and closes the worker channel when done.
func (w *Walker) StartWalk(ctx context.Context) error {
	w.logger.Info("Starting directory walk", slog.String("path", w.opts.InputPath))
	walkErr := filepath.WalkDir(w.opts.InputPath, w.walkFunc(ctx))
	close(w.workerChan)
	w.logger.Debug("Worker channel closed")
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			w.logger.Info("Directory walk cancelled", slog.String("reason", walkErr.Error()))
			return walkErr
		}
		w.logger.Error("Directory walk failed", slog.String("error", walkErr.Error()))
		return fmt.Errorf("directory walk failed: %w", walkErr)
	}
	w.logger.Info("Directory walk completed")
	return nil
}

func (w *Walker) skipped(relPath, message string) {
	if err := w.hooks.OnFileStatusUpdate(relPath, StatusSkipped, message, 0, 0); err != nil {
		w.logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", relPath), slog.String("error", err.Error()))
	}
}

func (w *Walker) walkFunc(ctx context.Context) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("Error accessing path during walk", slog.String("path", path), slog.String("error", err.Error()))
			if path == w.opts.InputPath {
				return fmt.Errorf("cannot read input directory %q: %w", path, err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.Type()&fs.ModeSymlink != 0 {
			w.logger.Debug("Skipping symbolic link", slog.String("path", path))
			return nil
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			w.logger.Warn("Could not get absolute path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		relPath, err := filepath.Rel(w.opts.InputPath, path)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		if relPath == "." {
			return nil
		}
		isDir := d.IsDir()

		// An output directory inside the input tree must not be converted again.
		if isDir && w.outputAbs != "" && absPath == w.outputAbs {
			w.logger.Debug("Skipping output directory inside input", slog.String("path", relPath))
			return filepath.SkipDir
		}
		if !isDir && (d.Name() == IgnoreFileName || d.Name() == cache.CacheFileName) {
			return nil
		}

		if err := w.hooks.OnFileDiscovered(relPath); err != nil {
			w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", relPath), slog.String("error", err.Error()))
		}
		if ignored, pattern := w.ignore.Match(absPath, isDir); ignored {
			w.logger.Debug("Path ignored", slog.String("path", relPath), slog.Bool("isDir", isDir), slog.String("pattern", pattern))
			w.skipped(relPath, fmt.Sprintf("Ignored by pattern: %s", pattern))
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		if isDir {
			return nil
		}

		w.logger.Debug("Dispatching file to worker channel", slog.String("path", relPath))
		timer := time.NewTimer(w.dispatchWarnDuration)
		defer timer.Stop()
		select {
		case w.workerChan <- absPath:
		case <-timer.C:
			w.logger.Warn("Worker channel dispatch blocked, workers might be busy or pool too small",
				slog.String("path", relPath), slog.Duration("threshold", w.dispatchWarnDuration))
			select {
			case w.workerChan <- absPath:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}

// loadIgnoreRules anchors the rules at the directory holding the nearest
// ignore file, or at the input directory when there is none. Configured
// patterns are relative to the input directory.
func loadIgnoreRules(inputAbs string, configPatterns []string, logger *slog.Logger) (*util.IgnoreRules, error) {
	ignoreFile, err := findIgnoreFile(inputAbs)
	if err != nil {
		logger.Warn("Error searching for ignore file", slog.String("name", IgnoreFileName), slog.String("error", err.Error()))
	}
	root := inputAbs
	var filePatterns []string
	if ignoreFile != "" {
		if filePatterns, err = loadPatternsFromFile(ignoreFile); err != nil {
			return nil, fmt.Errorf("failed to load ignore file %s: %w", ignoreFile, err)
		}
		root = filepath.Dir(ignoreFile)
		logger.Debug("Loaded patterns from ignore file", slog.String("path", ignoreFile), slog.Int("count", len(filePatterns)))
	}
	rules := util.NewIgnoreRules(root)
	rules.Add(root, filePatterns...)
	rules.Add(inputAbs, configPatterns...)
	return rules, nil
}

// findIgnoreFile walks up from absStartPath looking for IgnoreFileName.
func findIgnoreFile(absStartPath string) (string, error) {
	current := absStartPath
	for {
		candidate := filepath.Join(current, IgnoreFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("error checking for ignore file at %s: %w", candidate, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		current = parent
	}
}

func loadPatternsFromFile(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open ignore file %s: %w", filePath, err)
	}
	defer f.Close()
	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", filePath, err)
	}
	return patterns, nil
}
