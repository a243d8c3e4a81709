package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/treecmp/treecmp"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Compare CompareConfig `mapstructure:"compare"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// CompareConfig stores the equality policy and traversal limits.
type CompareConfig struct {
	CompareTimes  bool          `mapstructure:"compareTimes"`
	TimeTolerance time.Duration `mapstructure:"timeTolerance"`
	Workers       int           `mapstructure:"workers"`
	MaxDepth      int           `mapstructure:"maxDepth"`
	BlockSize     int           `mapstructure:"blockSize"`
	ReadTimeout   time.Duration `mapstructure:"readTimeout"`
}

// FilterConfig stores entry exclusion settings.
type FilterConfig struct {
	Exclude    []string `mapstructure:"exclude"`
	IgnoreFile string   `mapstructure:"ignoreFile"`
}

// OutputConfig stores report rendering settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// WatchConfig stores watch mode settings.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before comparing again.
	Debounce time.Duration `mapstructure:"debounce"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults are used instead.
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWith(viper.New(), configPath)
}

// LoadConfigWith behaves like LoadConfig but uses the given viper instance,
// so callers can bind command line flags before loading.
func LoadConfigWith(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	SetDefaults(v)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // compare.maxDepth -> TREECMP_COMPARE_MAXDEPTH

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetDefaults registers the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("compare.compareTimes", true)
	v.SetDefault("compare.timeTolerance", time.Duration(0))
	v.SetDefault("compare.workers", 0) // 0 selects a CPU based pool size
	v.SetDefault("compare.maxDepth", -1)
	v.SetDefault("compare.blockSize", internal.DefaultHashBlockSize)
	v.SetDefault("compare.readTimeout", time.Duration(0))
	v.SetDefault("filter.exclude", []string{})
	v.SetDefault("filter.ignoreFile", "")
	v.SetDefault("output.format", internal.DefaultOutputFormat)
	v.SetDefault("log.level", internal.DefaultLogLevel)
	v.SetDefault("watch.debounce", internal.DefaultWatchDebounce)
}

// Validate rejects values no comparison can run with.
func (c *Config) Validate() error {
	if c.Compare.Workers < 0 {
		return fmt.Errorf("compare.workers must not be negative, got %d", c.Compare.Workers)
	}
	if c.Compare.BlockSize <= 0 {
		return fmt.Errorf("compare.blockSize must be positive, got %d", c.Compare.BlockSize)
	}
	if c.Compare.MaxDepth < -1 {
		return fmt.Errorf("compare.maxDepth must be -1 (unlimited) or >= 0, got %d", c.Compare.MaxDepth)
	}
	if c.Compare.TimeTolerance < 0 {
		return fmt.Errorf("compare.timeTolerance must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output.format %q (want text, json or yaml)", c.Output.Format)
	}
	return nil
}
