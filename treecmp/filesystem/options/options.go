package options

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	internal "github.com/ZanzyTHEbar/treecmp/treecmp"
	"github.com/ZanzyTHEbar/treecmp/treecmp/config"
	"github.com/ZanzyTHEbar/treecmp/treecmp/trees"
)

// CompareOptions configures a tree comparison
type CompareOptions struct {
	Logger        zerolog.Logger // Receives progress and per-entry warnings
	Workers       int            // Concurrent classify/hash tasks (0 = CPU based)
	MaxDepth      int            // Deepest directory level descended into (-1 = unlimited)
	CompareTimes  bool           // Include modification time in the equality policy
	TimeTolerance time.Duration  // Largest mtime difference still treated as equal
	BlockSize     int            // Hash read size in bytes
	ReadTimeout   time.Duration  // Per-file metadata read deadline (0 = none)
	Exclude       []string       // Doublestar patterns of entries to leave out
	IgnoreFile    string         // Gitignore-style file at each root ("" = none)
}

// DefaultCompareOptions returns strict equality over the whole tree with a
// CPU based worker count and logging disabled.
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		Logger:       zerolog.Nop(),
		Workers:      0,
		MaxDepth:     -1, // Unlimited
		CompareTimes: true,
		BlockSize:    internal.DefaultHashBlockSize,
	}
}

// FromConfig converts loaded configuration into comparison options.
func FromConfig(cfg *config.Config, logger zerolog.Logger) CompareOptions {
	opts := DefaultCompareOptions()
	opts.Logger = logger
	if cfg == nil {
		return opts
	}
	opts.Workers = cfg.Compare.Workers
	opts.MaxDepth = cfg.Compare.MaxDepth
	opts.CompareTimes = cfg.Compare.CompareTimes
	opts.TimeTolerance = cfg.Compare.TimeTolerance
	opts.BlockSize = cfg.Compare.BlockSize
	opts.ReadTimeout = cfg.Compare.ReadTimeout
	opts.Exclude = cfg.Filter.Exclude
	opts.IgnoreFile = cfg.Filter.IgnoreFile
	return opts
}

// EffectiveWorkers resolves Workers to a concrete pool size.
func (o CompareOptions) EffectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	// CPU cores * 2 for I/O bound work, at least 4, at most 32
	return min(max(runtime.NumCPU()*2, 4), 32)
}

// Policy returns the file equality policy described by the options.
func (o CompareOptions) Policy() trees.EqualityPolicy {
	return trees.EqualityPolicy{
		CompareTimes:  o.CompareTimes,
		TimeTolerance: o.TimeTolerance,
	}
}

// Unlimited reports whether MaxDepth places no bound on descent.
func (o CompareOptions) Unlimited() bool {
	return o.MaxDepth < 0
}
