// Command treecmp compares two directory trees by content and exits 0 when
// they are identical, 1 when they differ and 2 on invalid input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	internal "github.com/ZanzyTHEbar/treecmp/treecmp"
	"github.com/ZanzyTHEbar/treecmp/treecmp/config"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/options"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/watcher"
	"github.com/ZanzyTHEbar/treecmp/treecmp/report"
)

const (
	exitIdentical = 0
	exitDifferent = 1
	exitInvalid   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"time-tolerance": "compare.timeTolerance",
	"workers":        "compare.workers",
	"max-depth":      "compare.maxDepth",
	"block-size":     "compare.blockSize",
	"read-timeout":   "compare.readTimeout",
	"exclude":        "filter.exclude",
	"ignore-file":    "filter.ignoreFile",
	"format":         "output.format",
	"log-level":      "log.level",
	"watch-debounce": "watch.debounce",
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(internal.DefaultAppCMDShortCut, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <left> <right>\n\nFlags:\n", internal.DefaultAppCMDShortCut)
		fs.PrintDefaults()
	}

	fs.String("config", "", "config file (default searches ./config.yaml and "+internal.DefaultGlobalConfigFile+")")
	fs.Bool("content-only", false, "ignore modification times; compare size and content only")
	fs.Duration("time-tolerance", 0, "largest modification time difference still treated as equal")
	fs.Int("workers", 0, "concurrent classify/hash tasks (0 = based on CPU count)")
	fs.Int("max-depth", -1, "deepest directory level to compare (-1 = unlimited)")
	fs.Int("block-size", internal.DefaultHashBlockSize, "hash read size in bytes")
	fs.Duration("read-timeout", 0, "per-file read deadline (0 = none)")
	fs.StringArray("exclude", nil, "doublestar pattern of relative paths to leave out (repeatable)")
	fs.String("ignore-file", "", "gitignore-style file read from the top of each root, e.g. "+internal.DefaultIgnoreFileName)
	fs.String("format", internal.DefaultOutputFormat, "output format: text, json or yaml")
	fs.String("path", "", "only print the report below this relative directory")
	fs.String("log-level", internal.DefaultLogLevel, "log level: trace, debug, info, warn, error")
	fs.Bool("watch", false, "keep running and compare again whenever either tree changes")
	fs.Duration("watch-debounce", internal.DefaultWatchDebounce, "quiet period after a change before comparing again")
	return fs
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitIdentical
		}
		return exitInvalid
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return exitInvalid
	}

	v := viper.New()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitInvalid
		}
	}
	if contentOnly, _ := fs.GetBool("content-only"); contentOnly {
		v.Set("compare.compareTimes", false)
	}

	configPath, _ := fs.GetString("config")
	cfg, err := config.LoadConfigWith(v, configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid log level %q\n", cfg.Log.Level)
		return exitInvalid
	}
	logger := internal.GetLogger().Level(level)

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}

	left, right := absPath(fs.Arg(0)), absPath(fs.Arg(1))

	differ, err := filesystem.NewTreeDiffer(options.FromConfig(cfg, logger))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}

	subtree, _ := fs.GetString("path")
	compare := func(ctx context.Context) int {
		return compareOnce(ctx, differ, left, right, format, report.Options{Subtree: subtree, Logger: logger}, stdout, stderr)
	}

	code := compare(ctx)
	if watch, _ := fs.GetBool("watch"); !watch || code == exitInvalid {
		return code
	}

	wcfg := watcher.DefaultConfig()
	wcfg.Debounce = cfg.Watch.Debounce
	err = watcher.Watch(ctx, wcfg, logger, []string{left, right}, func(ctx context.Context, batch watcher.Batch) {
		logger.Info().Strs("paths", batch.Paths()).Msg("Change detected, comparing again")
		fmt.Fprintln(stdout)
		if c := compare(ctx); ctx.Err() == nil {
			code = c
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitInvalid
	}
	// Stopping watch mode reports the verdict of the last finished comparison.
	return code
}

// compareOnce runs one comparison, writes the report and maps the outcome to
// an exit status.
func compareOnce(ctx context.Context, differ *filesystem.TreeDiffer, left, right string, format report.Format, opts report.Options, stdout, stderr io.Writer) int {
	result, err := differ.Run(ctx, left, right)
	if err != nil {
		if result == nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitInvalid
		}
		// Interrupted: show what was compared, then fail.
		opts.Logger.Error().Err(err).Msg("Comparison interrupted")
	}

	if werr := report.Write(stdout, format, result, opts); werr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", werr)
		return exitInvalid
	}

	switch {
	case err != nil:
		return exitInvalid
	case result.HasDifferences:
		return exitDifferent
	default:
		return exitIdentical
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
