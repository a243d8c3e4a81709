package options

import (
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ZanzyTHEbar/treecmp/treecmp/config"
)

func TestDefaultCompareOptions(t *testing.T) {
	opts := DefaultCompareOptions()

	assert.True(t, opts.CompareTimes)
	assert.True(t, opts.Unlimited())
	assert.Equal(t, 64*1024, opts.BlockSize)
	assert.Zero(t, opts.ReadTimeout)
	assert.Empty(t, opts.Exclude)

	want := min(max(runtime.NumCPU()*2, 4), 32)
	assert.Equal(t, want, opts.EffectiveWorkers())

	opts.Workers = 3
	assert.Equal(t, 3, opts.EffectiveWorkers())
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		Compare: config.CompareConfig{
			CompareTimes:  false,
			TimeTolerance: 2 * time.Second,
			Workers:       6,
			MaxDepth:      3,
			BlockSize:     4096,
			ReadTimeout:   time.Minute,
		},
		Filter: config.FilterConfig{
			Exclude:    []string{"**/*.tmp"},
			IgnoreFile: ".restore-ignore",
		},
	}

	opts := FromConfig(cfg, zerolog.Nop())
	assert.False(t, opts.CompareTimes)
	assert.Equal(t, 6, opts.Workers)
	assert.Equal(t, 3, opts.MaxDepth)
	assert.False(t, opts.Unlimited())
	assert.Equal(t, 4096, opts.BlockSize)
	assert.Equal(t, time.Minute, opts.ReadTimeout)
	assert.Equal(t, []string{"**/*.tmp"}, opts.Exclude)
	assert.Equal(t, ".restore-ignore", opts.IgnoreFile)

	policy := opts.Policy()
	assert.False(t, policy.CompareTimes)
	assert.Equal(t, 2*time.Second, policy.TimeTolerance)

	assert.Equal(t, DefaultCompareOptions().MaxDepth, FromConfig(nil, zerolog.Nop()).MaxDepth)
}
