package converter

import (
	"log/slog"
	"time"

	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
	"github.com/mkapulica/Time-is-Money/pkg/converter/encoding"
	"github.com/mkapulica/Time-is-Money/pkg/converter/language"
	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/mkapulica/Time-is-Money/pkg/worktime/session"
)

// Hooks receives status updates during a run.
// Implementations MUST be thread-safe as methods are called from workers.
// prices is the number of prices rewritten in a success or cached file.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, prices int, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks is a Hooks implementation that does nothing.
type NoOpHooks struct{}

func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, prices int, duration time.Duration) error {
	return nil
}

func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// CacheManager is the cache contract used by the engine and processor.
type CacheManager = cache.CacheManager

// NoOpCacheManager is used when caching is disabled. Every check misses.
type NoOpCacheManager struct{}

func (c *NoOpCacheManager) Load(cachePath string) error { return nil }

func (c *NoOpCacheManager) Check(filePath string, modTime time.Time, contentHash, configHash string) (cache.Entry, bool) {
	return cache.Entry{}, false
}

func (c *NoOpCacheManager) Update(filePath string, entry cache.Entry) error { return nil }

func (c *NoOpCacheManager) Persist(cachePath string) error { return nil }

// Options holds all configuration for a Convert run.
type Options struct {
	// --- Core Paths ---
	InputPath  string `mapstructure:"inputPath"`  // Required: directory of saved pages
	OutputPath string `mapstructure:"outputPath"` // Required: directory receiving rewritten copies

	// --- Application Info ---
	AppVersion string `mapstructure:"-"` // Used for cache validation; "dev" when empty.

	// --- Behavior & Control ---
	ConfigFilePath string      `mapstructure:"-"`
	ProfileName    string      `mapstructure:"-"`
	ForceOverwrite bool        `mapstructure:"forceOverwrite"`
	Verbose        bool        `mapstructure:"verbose"`
	TuiEnabled     bool        `mapstructure:"tuiEnabled"`
	OnErrorMode    OnErrorMode `mapstructure:"onError"`

	// --- Performance & Caching ---
	Concurrency     int    `mapstructure:"concurrency"` // 0 = runtime.NumCPU()
	CacheEnabled    bool   `mapstructure:"cache"`
	CacheFormat     string `mapstructure:"cacheFormat"` // "gob" or "json"
	IgnoreCacheRead bool   `mapstructure:"-"`           // --no-cache
	ClearCache      bool   `mapstructure:"-"`           // --clear-cache
	CacheFilePath   string `mapstructure:"-"`

	// --- File Handling & Filtering ---
	IgnorePatterns       []string          `mapstructure:"ignore"`
	BinaryMode           BinaryMode        `mapstructure:"binaryMode"`
	LargeFileThresholdMB int64             `mapstructure:"largeFileThresholdMB"`
	LargeFileThreshold   int64             `mapstructure:"-"` // bytes, derived from LargeFileThresholdMB
	LargeFileMode        LargeFileMode     `mapstructure:"largeFileMode"`
	DefaultEncoding      string            `mapstructure:"defaultEncoding"`
	LanguageOverrides    map[string]string `mapstructure:"languageMappings"`

	// --- Output ---
	OutputFormat OutputFormat `mapstructure:"outputFormat"` // run report format
	OutputMode   OutputMode   `mapstructure:"outputMode"`   // html or markdown for HTML pages
	Selector     string       `mapstructure:"selector"`     // CSS selector of the regions rewritten in HTML pages

	// --- Price Rewriting ---
	Enabled     bool               `mapstructure:"enabled"`
	Wage        float64            `mapstructure:"wage"` // explicit hourly wage, wins over Settings
	Settings    *worktime.Settings `mapstructure:"settings"`
	Traversal   string             `mapstructure:"traversal"`
	StripSpaces bool               `mapstructure:"stripSpaces"`
	HoursLabel  string             `mapstructure:"hoursLabel"`
	Rates       map[string]float64 `mapstructure:"rates"` // overrides of the default conversion table

	// --- Injected Dependencies & Internal State ---
	EventHooks            Hooks                     `mapstructure:"-"`
	Logger                slog.Handler              `mapstructure:"-"` // Required
	CacheManager          CacheManager              `mapstructure:"-"`
	LanguageDetector      language.LanguageDetector `mapstructure:"-"`
	EncodingHandler       encoding.EncodingHandler  `mapstructure:"-"`
	WageSource            session.WageSource        `mapstructure:"-"` // wins over Wage and Settings
	ProcessorFactory      ProcessorFactory          `mapstructure:"-"`
	WalkerFactory         WalkerFactory             `mapstructure:"-"`
	DispatchWarnThreshold time.Duration             `mapstructure:"-"`
}

// conversionTable merges the configured rates over the default table. Keys
// are canonicalized since config loaders lowercase map keys.
func (o *Options) conversionTable() worktime.ConversionTable {
	table := worktime.DefaultRates()
	for symbol, rate := range o.Rates {
		table[worktime.CanonicalSymbol(symbol)] = rate
	}
	return table
}

// wageSource picks the configured wage provider: an injected source, then an
// explicit wage, then the settings record.
func (o *Options) wageSource() session.WageSource {
	switch {
	case o.WageSource != nil:
		return o.WageSource
	case o.Wage != 0:
		return session.FixedWage(o.Wage)
	default:
		return session.FromSettings{Source: session.StaticSettings(o.Settings)}
	}
}
