// Package config merges defaults, the config file, the selected profile, a
// .env file, environment variables and command line flags into
// converter.Options.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mkapulica/Time-is-Money/pkg/converter"
	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
)

const (
	EnvPrefix         = "TIMEISMONEY"
	DefaultConfigName = "time-is-money"
	DotEnvFile        = ".env"
)

// flagKeys maps command line flag names to configuration keys. Keys follow
// the mapstructure tags of converter.Options. Only flags set on the command
// line are bound, so an unset settings flag never creates a settings block.
var flagKeys = map[string]string{
	"input":                "inputPath",
	"output":               "outputPath",
	"force":                "forceOverwrite",
	"ignore":               "ignore",
	"onError":              "onError",
	"concurrency":          "concurrency",
	"cache":                "cache",
	"cache-format":         "cacheFormat",
	"output-format":        "outputFormat",
	"output-mode":          "outputMode",
	"selector":             "selector",
	"large-file-threshold": "largeFileThresholdMB",
	"large-file-mode":      "largeFileMode",
	"binary-mode":          "binaryMode",
	"default-encoding":     "defaultEncoding",
	"enabled":              "enabled",
	"wage":                 "wage",
	"traversal":            "traversal",
	"strip-spaces":         "stripSpaces",
	"hours-label":          "hoursLabel",
	"monthly-income":       "settings.monthlyIncome",
	"weekly-workdays":      "settings.weeklyWorkdays",
	"daily-hours":          "settings.dailyWorkHours",
	"commute-minutes":      "settings.dailyCommuteMinutes",
	"commute-cost":         "settings.monthlyCommuteCost",
	"vacation-days":        "settings.vacationDays",
}

// settingsKeys are bound to the environment explicitly so that a settings
// block can come from TIMEISMONEY_SETTINGS_* alone.
var settingsKeys = []string{
	"settings.monthlyIncome",
	"settings.weeklyWorkdays",
	"settings.dailyWorkHours",
	"settings.dailyCommuteMinutes",
	"settings.monthlyCommuteCost",
	"settings.vacationDays",
}

// Load merges every configuration source into Options without validating
// paths. It is used as is by the commands that rewrite text or print the
// wage, and by LoadAndValidate for directory runs.
func Load(cfgFile, profileName, appVersion string, verbose bool, flags *pflag.FlagSet) (converter.Options, *slog.Logger, error) {
	var opts converter.Options
	v := viper.New()
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		} else {
			tempLogger.Debug("No home directory, skipping user config location", slog.String("error", err.Error()))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			used := cfgFile
			if used == "" {
				used = DefaultConfigName + ".yaml"
			}
			return opts, tempLogger, fmt.Errorf("%w: error reading config file '%s': %w", converter.ErrConfigValidation, used, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	opts.ProfileName = profileName
	if profileName != "" {
		profile := v.Sub("profiles." + profileName)
		if profile == nil {
			where := v.ConfigFileUsed()
			if where == "" {
				where = "(no config file found)"
			}
			return opts, tempLogger, fmt.Errorf("%w: profile '%s' not found in config file '%s'", converter.ErrConfigValidation, profileName, where)
		}
		if err := v.MergeConfigMap(profile.AllSettings()); err != nil {
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return opts, tempLogger, fmt.Errorf("error reading %s: %w", DotEnvFile, err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range settingsKeys {
		if err := v.BindEnv(key); err != nil {
			return opts, tempLogger, fmt.Errorf("error binding environment for '%s': %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", name, err)
			}
		}
	}

	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		return opts, tempLogger, fmt.Errorf("%w: error unmarshalling configuration: %w", converter.ErrConfigValidation, err)
	}

	if flags != nil {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
		opts.IgnoreCacheRead, _ = flags.GetBool("no-cache")
		opts.ClearCache, _ = flags.GetBool("clear-cache")
	}
	if verbose {
		opts.Verbose = true
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
		opts.TuiEnabled = false
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	opts.Logger = handler
	logger := slog.New(handler)

	if err := validateSettings(&opts); err != nil {
		logger.Error(err.Error())
		return opts, logger, err
	}

	logger.Debug("Configuration loaded",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.Bool("enabled", opts.Enabled),
		slog.Float64("wage", opts.Wage),
	)
	return opts, logger, nil
}

// LoadAndValidate loads the configuration of a directory run and validates
// its paths and modes. Paths are made absolute.
func LoadAndValidate(cfgFile, profileName, appVersion string, verbose bool, flags *pflag.FlagSet) (converter.Options, *slog.Logger, error) {
	opts, logger, err := Load(cfgFile, profileName, appVersion, verbose, flags)
	if err != nil {
		return opts, logger, err
	}
	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, logger, err
	}
	logger.Debug("Final derived settings validated",
		slog.String("input", opts.InputPath),
		slog.String("output", opts.OutputPath),
		slog.Int("concurrency", opts.Concurrency),
		slog.String("cacheFilePath", opts.CacheFilePath),
		slog.Bool("tuiEnabled", opts.TuiEnabled),
	)
	return opts, logger, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("forceOverwrite", converter.DefaultForceOverwrite)
	v.SetDefault("verbose", converter.DefaultVerbose)
	v.SetDefault("tuiEnabled", converter.DefaultTuiEnabled)
	v.SetDefault("onError", string(converter.DefaultOnErrorMode))

	v.SetDefault("concurrency", converter.DefaultConcurrency)
	v.SetDefault("cache", converter.DefaultCacheEnabled)
	v.SetDefault("cacheFormat", cache.DefaultCacheFormat)

	v.SetDefault("ignore", []string{})
	v.SetDefault("binaryMode", string(converter.DefaultBinaryMode))
	v.SetDefault("largeFileThresholdMB", converter.DefaultLargeFileThresholdMB)
	v.SetDefault("largeFileMode", string(converter.DefaultLargeFileMode))
	v.SetDefault("defaultEncoding", "")
	v.SetDefault("languageMappings", map[string]string{})

	v.SetDefault("outputFormat", string(converter.DefaultOutputFormat))
	v.SetDefault("outputMode", string(converter.DefaultOutputMode))
	v.SetDefault("selector", converter.DefaultSelector)

	v.SetDefault("enabled", converter.DefaultEnabled)
	v.SetDefault("wage", 0.0)
	v.SetDefault("traversal", converter.DefaultTraversal)
	v.SetDefault("stripSpaces", converter.DefaultStripSpaces)
	v.SetDefault("hoursLabel", converter.DefaultHoursLabel)
	v.SetDefault("rates", map[string]float64{})
}

// validateSettings rejects numeric inputs that can never produce a wage.
func validateSettings(opts *converter.Options) error {
	if opts.Wage < 0 {
		return fmt.Errorf("%w: invalid value '%v' for key 'wage'. Must be >= 0", converter.ErrConfigValidation, opts.Wage)
	}
	for symbol, rate := range opts.Rates {
		if rate <= 0 {
			return fmt.Errorf("%w: invalid rate '%v' for currency '%s'. Must be > 0", converter.ErrConfigValidation, rate, symbol)
		}
	}
	s := opts.Settings
	if s == nil {
		return nil
	}
	switch {
	case s.WeeklyWorkdays < 0 || s.WeeklyWorkdays > 7:
		return fmt.Errorf("%w: settings.weeklyWorkdays must be between 0 and 7", converter.ErrConfigValidation)
	case s.DailyWorkHours < 0 || s.DailyWorkHours > 24:
		return fmt.Errorf("%w: settings.dailyWorkHours must be between 0 and 24", converter.ErrConfigValidation)
	case s.VacationDays < 0 || s.VacationDays > 365:
		return fmt.Errorf("%w: settings.vacationDays must be between 0 and 365", converter.ErrConfigValidation)
	case s.MonthlyIncome < 0 || s.MonthlyCommuteCost < 0 || s.DailyCommuteMinutes < 0:
		return fmt.Errorf("%w: settings must not be negative", converter.ErrConfigValidation)
	}
	return nil
}

// validateAndDeriveOptions checks the run configuration and derives absolute
// paths, the cache location and the byte threshold.
func validateAndDeriveOptions(opts *converter.Options, logger *slog.Logger) error {
	fail := func(key string, err error) error {
		logger.Error(err.Error(), slog.String("key", key))
		return err
	}

	if opts.InputPath == "" {
		return fail("inputPath", fmt.Errorf("%w: input path is required (-i, --input)", converter.ErrConfigValidation))
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		return fail("inputPath", fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", converter.ErrConfigValidation, opts.InputPath, err))
	}
	opts.InputPath = absInput
	info, err := os.Stat(opts.InputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("inputPath", fmt.Errorf("%w: input path '%s' does not exist", converter.ErrConfigValidation, opts.InputPath))
	case err != nil:
		return fail("inputPath", fmt.Errorf("%w: cannot access input path '%s': %w", converter.ErrConfigValidation, opts.InputPath, err))
	case !info.IsDir():
		return fail("inputPath", fmt.Errorf("%w: input path '%s' is not a directory", converter.ErrConfigValidation, opts.InputPath))
	}

	if opts.OutputPath == "" {
		return fail("outputPath", fmt.Errorf("%w: output path is required (-o, --output)", converter.ErrConfigValidation))
	}
	absOutput, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		return fail("outputPath", fmt.Errorf("%w: cannot resolve absolute output path '%s': %w", converter.ErrConfigValidation, opts.OutputPath, err))
	}
	opts.OutputPath = absOutput
	if absOutput == absInput {
		return fail("outputPath", fmt.Errorf("%w: output path must differ from the input path", converter.ErrConfigValidation))
	}

	switch {
	case !opts.OnErrorMode.IsValid():
		return fail("onError", fmt.Errorf("%w: invalid value '%s' for key 'onError'. Allowed: continue, stop", converter.ErrConfigValidation, opts.OnErrorMode))
	case !opts.BinaryMode.IsValid():
		return fail("binaryMode", fmt.Errorf("%w: invalid value '%s' for key 'binaryMode'. Allowed: skip, copy, error", converter.ErrConfigValidation, opts.BinaryMode))
	case !opts.LargeFileMode.IsValid():
		return fail("largeFileMode", fmt.Errorf("%w: invalid value '%s' for key 'largeFileMode'. Allowed: skip, copy, error", converter.ErrConfigValidation, opts.LargeFileMode))
	case !opts.OutputFormat.IsValid():
		return fail("outputFormat", fmt.Errorf("%w: invalid value '%s' for key 'outputFormat'. Allowed: text, json, yaml", converter.ErrConfigValidation, opts.OutputFormat))
	case !opts.OutputMode.IsValid():
		return fail("outputMode", fmt.Errorf("%w: invalid value '%s' for key 'outputMode'. Allowed: html, markdown", converter.ErrConfigValidation, opts.OutputMode))
	case opts.Concurrency < 0:
		return fail("concurrency", fmt.Errorf("%w: invalid value '%d' for key 'concurrency'. Must be >= 0", converter.ErrConfigValidation, opts.Concurrency))
	case opts.LargeFileThresholdMB < 0:
		return fail("largeFileThresholdMB", fmt.Errorf("%w: invalid value '%d' for key 'largeFileThresholdMB'. Must be >= 0", converter.ErrConfigValidation, opts.LargeFileThresholdMB))
	}

	opts.LargeFileThreshold = opts.LargeFileThresholdMB * 1024 * 1024
	if opts.CacheFilePath == "" {
		opts.CacheFilePath = filepath.Join(opts.OutputPath, cache.CacheFileName)
	}
	return nil
}
