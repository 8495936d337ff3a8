package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/google/uuid"

	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
	"github.com/mkapulica/Time-is-Money/pkg/converter/encoding"
	"github.com/mkapulica/Time-is-Money/pkg/converter/language"
	"github.com/mkapulica/Time-is-Money/pkg/worktime"
)

// ProcessorFactory creates the FileProcessor shared by all workers.
type ProcessorFactory func(
	opts *Options,
	loggerHandler slog.Handler,
	cacheMgr CacheManager,
	langDet language.LanguageDetector,
	encHandler encoding.EncodingHandler,
	rewriter *worktime.Engine,
	wage worktime.Wage,
) *FileProcessor

// WalkerFactory creates the Walker feeding the worker pool.
type WalkerFactory func(
	opts *Options,
	workerChan chan<- string,
	wg *sync.WaitGroup,
	loggerHandler slog.Handler,
) (*Walker, error)

// defaultLanguageOverrides pins the extensions go-enry considers ambiguous to
// the routes saved pages need.
var defaultLanguageOverrides = map[string]string{
	".html":     language.HTML,
	".htm":      language.HTML,
	".xhtml":    language.HTML,
	".md":       language.Markdown,
	".markdown": language.Markdown,
	".txt":      language.PlainText,
}

// Engine orchestrates a conversion run.
type Engine struct {
	opts             *Options
	logger           *slog.Logger
	cacheManager     CacheManager
	processorFactory ProcessorFactory
	walkerFactory    WalkerFactory
	processor        *FileProcessor
	walker           *Walker
	rewriter         *worktime.Engine
	aggregator       *reportAggregator
	runID            string
	ctx              context.Context
	cancelFunc       context.CancelFunc
	concurrency      int
	totalScanned     atomic.Int64
	fatalOccurred    atomic.Bool
}

// NewEngine validates opts and resolves every dependency that was not
// injected. When substitution is enabled the wage is resolved here, so a run
// without a usable wage fails before any file is touched.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.InputPath == "" || opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: input and output paths are required", ErrConfigValidation)
	}
	if st, err := os.Stat(opts.InputPath); err != nil {
		return nil, fmt.Errorf("%w: cannot access input path '%s': %w", ErrConfigValidation, opts.InputPath, err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("%w: input path '%s' is not a directory", ErrConfigValidation, opts.InputPath)
	}
	if err := os.MkdirAll(opts.OutputPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create or access output directory '%s': %w", ErrConfigValidation, opts.OutputPath, err)
	}
	if err := validateModes(&opts); err != nil {
		return nil, err
	}

	strategy, err := worktime.ParseStrategy(opts.Traversal)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}
	rewriter := worktime.New(worktime.Config{
		Strategy:    strategy,
		StripSpaces: opts.StripSpaces,
		HoursLabel:  opts.HoursLabel,
		Rates:       opts.conversionTable(),
		Logger:      opts.Logger,
	})

	var wage worktime.Wage
	if opts.Enabled {
		if wage, err = opts.wageSource().Wage(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWageUnavailable, err)
		}
		logger.Debug("Wage resolved", slog.String("wage", wage.String()))
	}
	opts.Wage = float64(wage)

	if opts.LargeFileThreshold <= 0 && opts.LargeFileThresholdMB > 0 {
		opts.LargeFileThreshold = opts.LargeFileThresholdMB * 1024 * 1024
	}

	cacheMgr := resolveCacheManager(&opts, logger)

	overrides := make(map[string]string, len(defaultLanguageOverrides)+len(opts.LanguageOverrides))
	for ext, lang := range defaultLanguageOverrides {
		overrides[ext] = lang
	}
	for ext, lang := range opts.LanguageOverrides {
		overrides[ext] = lang
	}
	opts.LanguageOverrides = overrides
	if opts.LanguageDetector == nil {
		opts.LanguageDetector = language.NewGoEnryDetector(overrides)
		logger.Debug("LanguageDetector not provided, using default GoEnryDetector.")
	}
	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewGoCharsetEncodingHandler(opts.DefaultEncoding)
		logger.Debug("EncodingHandler not provided, using default GoCharsetEncodingHandler.")
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		opts.Concurrency = concurrency
		logger.Debug("Concurrency auto-detected", slog.Int("count", concurrency))
	}

	processorFactory := opts.ProcessorFactory
	if processorFactory == nil {
		processorFactory = NewFileProcessor
	}
	walkerFactory := opts.WalkerFactory
	if walkerFactory == nil {
		walkerFactory = NewWalker
	}

	engineCtx, cancelFunc := context.WithCancel(ctx)
	return &Engine{
		opts:             &opts,
		logger:           logger,
		cacheManager:     cacheMgr,
		processorFactory: processorFactory,
		walkerFactory:    walkerFactory,
		rewriter:         rewriter,
		aggregator:       newReportAggregator(),
		runID:            uuid.NewString(),
		ctx:              engineCtx,
		cancelFunc:       cancelFunc,
		concurrency:      concurrency,
	}, nil
}

func validateModes(opts *Options) error {
	if opts.OnErrorMode == "" {
		opts.OnErrorMode = DefaultOnErrorMode
	}
	if opts.BinaryMode == "" {
		opts.BinaryMode = DefaultBinaryMode
	}
	if opts.LargeFileMode == "" {
		opts.LargeFileMode = DefaultLargeFileMode
	}
	if opts.OutputMode == "" {
		opts.OutputMode = DefaultOutputMode
	}
	switch {
	case !opts.OnErrorMode.IsValid():
		return fmt.Errorf("%w: invalid onError mode %q", ErrConfigValidation, opts.OnErrorMode)
	case !opts.BinaryMode.IsValid():
		return fmt.Errorf("%w: invalid binaryMode %q", ErrConfigValidation, opts.BinaryMode)
	case !opts.LargeFileMode.IsValid():
		return fmt.Errorf("%w: invalid largeFileMode %q", ErrConfigValidation, opts.LargeFileMode)
	case !opts.OutputMode.IsValid():
		return fmt.Errorf("%w: invalid outputMode %q", ErrConfigValidation, opts.OutputMode)
	case opts.OutputFormat != "" && !opts.OutputFormat.IsValid():
		return fmt.Errorf("%w: invalid outputFormat %q", ErrConfigValidation, opts.OutputFormat)
	case opts.LargeFileThresholdMB < 0:
		return fmt.Errorf("%w: largeFileThresholdMB must not be negative", ErrConfigValidation)
	}
	if opts.Selector != "" {
		if _, err := cascadia.Compile(opts.Selector); err != nil {
			return fmt.Errorf("%w: invalid selector %q: %w", ErrConfigValidation, opts.Selector, err)
		}
	}
	return nil
}

// resolveCacheManager returns the injected manager, a loaded file cache or a
// no-op manager when caching is disabled.
func resolveCacheManager(opts *Options, logger *slog.Logger) CacheManager {
	if opts.CacheFilePath == "" {
		opts.CacheFilePath = filepath.Join(opts.OutputPath, cache.CacheFileName)
	}
	if opts.CacheManager != nil {
		logger.Debug("Using provided CacheManager implementation.")
		return opts.CacheManager
	}
	if !opts.CacheEnabled {
		logger.Debug("Cache explicitly disabled. Using NoOpCacheManager.")
		return &NoOpCacheManager{}
	}
	appVersion := opts.AppVersion
	if appVersion == "" {
		appVersion = "dev"
		logger.Warn("AppVersion not set in Options, using 'dev' for cache compatibility.")
	}
	if opts.ClearCache {
		if err := os.Remove(opts.CacheFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to clear cache file", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
		} else {
			logger.Info("Cache cleared", slog.String("path", opts.CacheFilePath))
		}
	}
	mgr := cache.NewFileCacheManager(opts.Logger, cache.CacheSchemaVersion, appVersion, opts.CacheFormat)
	if err := mgr.Load(opts.CacheFilePath); err != nil {
		logger.Warn("Failed to load cache file, starting with an empty index",
			slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
	}
	return mgr
}

// Run converts the input tree. It returns the report together with the first
// fatal error, if any; per-file errors under OnErrorContinue are only recorded
// in the report.
func (e *Engine) Run() (report Report, finalErr error) {
	startTime := time.Now()
	e.logger.Info("Starting conversion run",
		slog.String("runId", e.runID), slog.Int("concurrency", e.concurrency), slog.Bool("cacheEnabled", e.opts.CacheEnabled))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic recovered during engine run", slog.Any("panicValue", r))
			e.fatalOccurred.Store(true)
			if finalErr == nil {
				finalErr = fmt.Errorf("panic during execution: %v", r)
			}
		}
		e.cancelFunc()

		if e.opts.CacheEnabled {
			if persistErr := e.cacheManager.Persist(e.opts.CacheFilePath); persistErr != nil {
				e.logger.Error("Failed to persist cache index", slog.String("path", e.opts.CacheFilePath), slog.String("error", persistErr.Error()))
				if finalErr == nil {
					finalErr = fmt.Errorf("failed to persist cache: %w", persistErr)
				}
			}
		}

		report = e.aggregator.getReport(e.opts, e.runID, startTime, e.totalScanned.Load(), e.fatalOccurred.Load())
		e.logger.Info("Conversion run finished",
			slog.Duration("duration", time.Since(startTime)),
			slog.Int("processed", report.Summary.ProcessedCount),
			slog.Int("cached", report.Summary.CachedCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Int("errors", report.Summary.ErrorCount),
			slog.Int("prices", report.Summary.Prices.Matches),
		)
		if hookErr := e.opts.EventHooks.OnRunComplete(report); hookErr != nil {
			e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
	}()

	e.processor = e.processorFactory(e.opts, e.opts.Logger, e.cacheManager, e.opts.LanguageDetector,
		e.opts.EncodingHandler, e.rewriter, worktime.Wage(e.opts.Wage))

	workerChan := make(chan string, e.concurrency)
	resultsChan := make(chan any, e.concurrency)
	var wg sync.WaitGroup

	walker, walkInitErr := e.walkerFactory(e.opts, workerChan, &wg, e.opts.Logger)
	if walkInitErr != nil {
		e.logger.Error("Failed to initialize directory walker", slog.String("error", walkInitErr.Error()))
		e.fatalOccurred.Store(true)
		return Report{}, fmt.Errorf("walker initialization failed: %w", walkInitErr)
	}
	e.walker = walker

	e.startWorkers(&wg, workerChan, resultsChan)
	aggregatorDone := make(chan struct{})
	go e.aggregateResults(resultsChan, aggregatorDone)

	walkerDone := make(chan error, 1)
	go func() {
		defer close(walkerDone)
		walkerErr := e.walker.StartWalk(e.ctx)
		if walkerErr != nil && !errors.Is(walkerErr, context.Canceled) && !errors.Is(walkerErr, context.DeadlineExceeded) {
			walkerDone <- walkerErr
			if e.fatalOccurred.CompareAndSwap(false, true) {
				e.cancelFunc()
			}
		}
	}()

	finalWalkErr := <-walkerDone
	wg.Wait()
	close(resultsChan)
	<-aggregatorDone

	firstFatal := e.aggregator.getFirstFatalError()
	switch {
	case finalWalkErr != nil:
		finalErr = fmt.Errorf("directory walk failed: %w", finalWalkErr)
	case e.fatalOccurred.Load() && firstFatal != nil:
		finalErr = fmt.Errorf("processing stopped due to fatal error: %w", firstFatal)
	case e.ctx.Err() != nil:
		e.logger.Info("Processing run cancelled", slog.String("reason", e.ctx.Err().Error()))
		e.fatalOccurred.Store(true)
		finalErr = e.ctx.Err()
	}
	return Report{}, finalErr
}

func (e *Engine) startWorkers(wg *sync.WaitGroup, workerChan <-chan string, resultsChan chan<- any) {
	e.logger.Debug("Starting worker pool", slog.Int("count", e.concurrency))
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.processFilesWorker(wg, i, workerChan, resultsChan)
	}
}

// stop marks the run as failed and cancels the remaining work once.
func (e *Engine) stop() {
	if e.fatalOccurred.CompareAndSwap(false, true) {
		e.cancelFunc()
	}
}

func (e *Engine) processFilesWorker(wg *sync.WaitGroup, workerID int, workerChan <-chan string, resultsChan chan<- any) {
	wLogger := e.logger.With(slog.Int("workerID", workerID))
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			wLogger.Error("Panic recovered in worker", slog.Any("panicValue", r))
			resultsChan <- ErrorInfo{Path: "unknown (panic)", Error: fmt.Sprintf("panic: %v", r), IsFatal: true}
			e.stop()
		}
	}()
	wLogger.Debug("Worker started")

	for {
		var filePath string
		var ok bool
		select {
		case filePath, ok = <-workerChan:
			if !ok {
				wLogger.Debug("Worker shutting down (channel closed)")
				return
			}
		case <-e.ctx.Done():
			wLogger.Debug("Worker shutting down (context cancelled)")
			return
		}

		relPath, _ := filepath.Rel(e.opts.InputPath, filePath)
		if relPath == "" || relPath == "." {
			relPath = filepath.Base(filePath)
		}
		relPath = filepath.ToSlash(relPath)
		e.notify(relPath, StatusProcessing, "", 0, 0)

		start := time.Now()
		result, status, err := e.processor.ProcessFile(e.ctx, filePath)
		switch {
		case err != nil:
			isFatal := e.opts.OnErrorMode == OnErrorStop || errors.Is(err, context.Canceled)
			errInfo := ErrorInfo{Path: relPath, Error: err.Error(), IsFatal: isFatal}
			if ei, isInfo := result.(ErrorInfo); isInfo {
				errInfo = ei
				errInfo.IsFatal = isFatal
			}
			resultsChan <- errInfo
			e.notify(relPath, StatusFailed, err.Error(), 0, time.Since(start))
			if isFatal && e.ctx.Err() == nil {
				wLogger.Info("Worker detected fatal error condition, signalling stop", slog.String("path", relPath), slog.String("error", err.Error()))
				e.stop()
			}
		case result == nil:
			resultsChan <- ErrorInfo{Path: relPath, Error: errNilResult.Error(), IsFatal: e.opts.OnErrorMode == OnErrorStop}
			e.notify(relPath, StatusFailed, errNilResult.Error(), 0, time.Since(start))
			if e.opts.OnErrorMode == OnErrorStop {
				e.stop()
			}
		default:
			resultsChan <- result
			e.notify(relPath, status, statusMessage(result), pricesIn(result), time.Since(start))
		}
	}
}

func (e *Engine) notify(relPath string, status Status, message string, prices int, d time.Duration) {
	if err := e.opts.EventHooks.OnFileStatusUpdate(relPath, status, message, prices, d); err != nil {
		e.logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", relPath), slog.String("error", err.Error()))
	}
}

func pricesIn(result any) int {
	if r, ok := result.(FileInfo); ok {
		return r.Prices.Matches
	}
	return 0
}

func statusMessage(result any) string {
	switch r := result.(type) {
	case FileInfo:
		if r.Prices.Matches > 0 {
			return fmt.Sprintf("%d prices rewritten", r.Prices.Matches)
		}
	case SkippedInfo:
		return r.Details
	}
	return ""
}

func (e *Engine) aggregateResults(resultsChan <-chan any, done chan<- struct{}) {
	defer close(done)
	scanCount := int64(0)
	for result := range resultsChan {
		scanCount++
		switch r := result.(type) {
		case FileInfo:
			e.aggregator.addProcessed(r)
		case SkippedInfo:
			e.aggregator.addSkipped(r)
		case ErrorInfo:
			e.aggregator.addError(r)
		default:
			e.logger.Warn("Aggregator received unknown result type", slog.String("type", fmt.Sprintf("%T", result)))
		}
	}
	e.totalScanned.Store(scanCount)
	e.logger.Debug("Result aggregator finished", slog.Int64("resultsProcessed", scanCount))
}

// reportAggregator collects worker results.
type reportAggregator struct {
	mu             sync.Mutex
	processedFiles []FileInfo
	skippedFiles   []SkippedInfo
	errors         []ErrorInfo
	cachedCount    int
	prices         worktime.Stats
}

func newReportAggregator() *reportAggregator {
	return &reportAggregator{
		processedFiles: make([]FileInfo, 0, 128),
		skippedFiles:   make([]SkippedInfo, 0, 32),
		errors:         make([]ErrorInfo, 0, 8),
	}
}

func (a *reportAggregator) addProcessed(info FileInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processedFiles = append(a.processedFiles, info)
	if info.CacheStatus == CacheStatusHit {
		a.cachedCount++
	}
	a.prices = a.prices.Add(info.Prices)
}

func (a *reportAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	a.skippedFiles = append(a.skippedFiles, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addError(info ErrorInfo) {
	a.mu.Lock()
	a.errors = append(a.errors, info)
	a.mu.Unlock()
}

// getFirstFatalError returns the first error recorded as fatal.
func (a *reportAggregator) getFirstFatalError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.errors {
		if e.IsFatal {
			return fmt.Errorf("fatal error processing file '%s': %s", e.Path, e.Error)
		}
	}
	return nil
}

func (a *reportAggregator) getReport(opts *Options, runID string, startTime time.Time, totalScanned int64, fatalOccurred bool) Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	processed := append([]FileInfo(nil), a.processedFiles...)
	skipped := append([]SkippedInfo(nil), a.skippedFiles...)
	errs := append([]ErrorInfo(nil), a.errors...)

	return Report{
		Summary: ReportSummary{
			RunID:              runID,
			InputPath:          opts.InputPath,
			OutputPath:         opts.OutputPath,
			ProfileUsed:        opts.ProfileName,
			ConfigFilePath:     opts.ConfigFilePath,
			Enabled:            opts.Enabled,
			Wage:               opts.Wage,
			HoursLabel:         hoursLabel(opts.HoursLabel),
			Prices:             a.prices,
			TotalFilesScanned:  int(totalScanned),
			ProcessedCount:     len(processed),
			CachedCount:        a.cachedCount,
			SkippedCount:       len(skipped),
			ErrorCount:         len(errs),
			FatalErrorOccurred: fatalOccurred,
			DurationSeconds:    time.Since(startTime).Seconds(),
			CacheEnabled:       opts.CacheEnabled,
			Concurrency:        opts.Concurrency,
			Timestamp:          time.Now().UTC(),
			SchemaVersion:      ReportSchemaVersion,
		},
		ProcessedFiles: processed,
		SkippedFiles:   skipped,
		Errors:         errs,
	}
}

func hoursLabel(label string) string {
	if label == "" {
		return worktime.DefaultHoursLabel
	}
	return label
}
