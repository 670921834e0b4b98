// Package config loads vizloop settings from an optional YAML file and
// VIZLOOP_ environment variables. Nothing else in the module reads the
// environment; the loaded Config is passed to each entry point.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Diff holds the change-region settings shared by diff and loop.
type Diff struct {
	Threshold int  `mapstructure:"threshold"`
	MinArea   int  `mapstructure:"min_area"`
	Pad       int  `mapstructure:"pad"`
	MaxBoxes  int  `mapstructure:"max_boxes"`
	Resize    bool `mapstructure:"resize"`
}

// Log selects the stderr logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Capture holds display capture settings.
type Capture struct {
	Display int `mapstructure:"display"`
}

// Config is the full settings tree.
type Config struct {
	OutRoot string  `mapstructure:"out_root"`
	LoopDir string  `mapstructure:"loop_dir"`
	Diff    Diff    `mapstructure:"diff"`
	Log     Log     `mapstructure:"log"`
	Capture Capture `mapstructure:"capture"`
}

// FileName is looked up in the working directory when no path is given.
const FileName = "vizloop"

func setDefaults(v *viper.Viper) {
	v.SetDefault("out_root", ".vizloop")
	v.SetDefault("loop_dir", "")
	v.SetDefault("diff.threshold", 24)
	v.SetDefault("diff.min_area", 64)
	v.SetDefault("diff.pad", 2)
	v.SetDefault("diff.max_boxes", 16)
	v.SetDefault("diff.resize", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("capture.display", 0)
}

// Default returns the built-in settings.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults always decode.
	_ = v.Unmarshal(&c)
	return &c
}

// Load reads path, or vizloop.yaml in the working directory when path is
// empty, and overlays VIZLOOP_ variables such as VIZLOOP_DIFF_THRESHOLD.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VIZLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings no command can use.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutRoot) == "" {
		return errors.New("config: out_root must not be empty")
	}
	if c.Diff.Threshold < 0 || c.Diff.Threshold > 255 {
		return fmt.Errorf("config: diff.threshold must be 0-255, got %d", c.Diff.Threshold)
	}
	if c.Diff.MinArea < 0 || c.Diff.Pad < 0 || c.Diff.MaxBoxes < 0 {
		return errors.New("config: diff.min_area, diff.pad and diff.max_boxes must not be negative")
	}
	return nil
}
