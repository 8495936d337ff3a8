package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkapulica/Time-is-Money/internal/cli"
	"github.com/mkapulica/Time-is-Money/internal/cli/config"
	"github.com/mkapulica/Time-is-Money/pkg/converter"
	"github.com/mkapulica/Time-is-Money/pkg/converter/cache"
)

var (
	// Set at build time with -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	cfgFile     string
	profileName string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "timeismoney -i <inputDir> -o <outputDir>",
		Short: "Rewrites prices in saved pages and text as hours of work.",
		Long: `timeismoney turns every price it finds ("$30", "€ 1 000", "20 €") into
the number of hours you have to work to pay for it, based on your hourly wage
or on your income and working time.

The root command converts a directory of saved web pages, markdown and text
files into a mirrored output directory. Subcommands rewrite a single text or
print the wage in use.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts, logger, err := config.LoadAndValidate(g.cfgFile, g.profileName, version, g.verbose, cmd.Flags())
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return cli.Run(ctx, opts, logger, cmd.OutOrStdout())
		},
	}
	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.cfgFile, "config", "", "Configuration file path (default: time-is-money.yaml in . or $HOME/.config/time-is-money/)")
	pf.StringVar(&g.profileName, "profile", "", "Name of configuration profile to use")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	// Rewriting flags apply to every command.
	pf.Bool("enabled", converter.DefaultEnabled, "Rewrite prices; when false, input is copied through unchanged")
	pf.Float64("wage", 0, "Hourly wage; wins over the income settings")
	pf.String("traversal", converter.DefaultTraversal, `Tree walking strategy ("iterative", "recursive")`)
	pf.Bool("strip-spaces", converter.DefaultStripSpaces, `Remove thousands spaces before parsing ("1 000" is 1000)`)
	pf.String("hours-label", converter.DefaultHoursLabel, "Suffix of rewritten amounts")
	pf.Float64("monthly-income", 0, "Net monthly income used to derive the wage")
	pf.Float64("weekly-workdays", 0, "Working days per week")
	pf.Float64("daily-hours", 0, "Working hours per day")
	pf.Float64("commute-minutes", 0, "Daily commute time in minutes, counted as work")
	pf.Float64("commute-cost", 0, "Monthly commute cost, subtracted from income")
	pf.Float64("vacation-days", 0, "Paid vacation days per year")

	f := rootCmd.Flags()
	f.StringP("input", "i", "", "Input directory of pages and text files")
	f.StringP("output", "o", "", "Output directory; mirrors the input tree")
	f.BoolP("force", "f", false, "Write into a non-empty output directory not created by a previous run")
	f.Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
	f.StringArray("ignore", []string{}, "Gitignore-style patterns for files/directories to ignore (can be repeated)")
	f.String("onError", string(converter.DefaultOnErrorMode), `Behavior on file errors ("continue", "stop")`)

	f.Int("concurrency", converter.DefaultConcurrency, "Number of parallel workers (0 for CPU count)")
	f.Bool("cache", converter.DefaultCacheEnabled, "Skip files unchanged since the previous run")
	f.String("cache-format", cache.DefaultCacheFormat, `Cache file encoding ("gob", "json")`)
	f.Bool("no-cache", false, "Ignore cache reads (still writes cache)")
	f.Bool("clear-cache", false, "Delete the cache file before starting")

	f.String("output-format", string(converter.DefaultOutputFormat), `Run report format ("text", "json", "yaml")`)
	f.String("output-mode", string(converter.DefaultOutputMode), `Output for HTML pages ("html", "markdown")`)
	f.String("selector", converter.DefaultSelector, "CSS selector of the page regions to rewrite")

	f.Int64("large-file-threshold", converter.DefaultLargeFileThresholdMB, "File size threshold in MB for large file handling")
	f.String("large-file-mode", string(converter.DefaultLargeFileMode), `Mode for large files ("skip", "copy", "error")`)
	f.String("binary-mode", string(converter.DefaultBinaryMode), `Mode for binary files ("skip", "copy", "error")`)
	f.String("default-encoding", "", "Encoding assumed for files without a declared charset (e.g. windows-1252)")

	rootCmd.AddCommand(newTextCmd(g), newWageCmd(g))
	return rootCmd
}

func newTextCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "text [text...]",
		Short: "Rewrites the prices in the arguments, or in standard input when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := config.Load(g.cfgFile, g.profileName, version, g.verbose, cmd.Flags())
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading standard input: %w", err)
				}
				text = string(b)
			}

			out, _, err := converter.RewriteString(cmd.Context(), opts, text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			if err == nil && len(args) > 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout())
			}
			return err
		},
	}
}

func newWageCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "wage",
		Short: "Prints the hourly wage prices are converted with.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _, err := config.Load(g.cfgFile, g.profileName, version, g.verbose, cmd.Flags())
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			w, err := converter.ResolveWage(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s per %s\n", w, opts.HoursLabel)
			return err
		},
	}
}

// execute runs the root command with ctx and returns its error.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}
