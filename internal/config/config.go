// Package config loads oderive settings from an optional .oderive.yaml,
// ODERIVE_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/sghaida/oderive/internal/bounds"
	"github.com/sghaida/oderive/internal/builder"
	"github.com/sghaida/oderive/internal/generate"
)

const (
	// EnvPrefix prefixes every environment override, e.g. ODERIVE_DEBUG_BOUND.
	EnvPrefix = "ODERIVE"

	// FileName is looked up in the working directory when no file is given.
	FileName = ".oderive"

	DefaultOutSuffix = "_derive.gen.go"
)

// Config is the full set of settings.
type Config struct {
	RuntimeImport string        `mapstructure:"runtime_import"`
	OutSuffix     string        `mapstructure:"out_suffix"`
	Builder       BuilderConfig `mapstructure:"builder"`
	Debug         DebugConfig   `mapstructure:"debug"`
	Log           LogConfig     `mapstructure:"log"`
	Jobs          int           `mapstructure:"jobs"`
}

type BuilderConfig struct {
	Suffix            string `mapstructure:"suffix"`
	ConstructorPrefix string `mapstructure:"constructor_prefix"`
	MustBuild         bool   `mapstructure:"must_build"`
}

type DebugConfig struct {
	Bound        string   `mapstructure:"bound"`
	StrictBounds bool     `mapstructure:"strict_bounds"`
	Wrappers     []string `mapstructure:"wrappers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with every key defaulted and environment
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("runtime_import", generate.DefaultRuntime)
	v.SetDefault("out_suffix", DefaultOutSuffix)
	v.SetDefault("builder.suffix", "Builder")
	v.SetDefault("builder.constructor_prefix", "New")
	v.SetDefault("builder.must_build", true)
	v.SetDefault("debug.bound", bounds.DefaultBound)
	v.SetDefault("debug.strict_bounds", false)
	v.SetDefault("debug.wrappers", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("jobs", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or .oderive.yaml from the working directory when path is
// empty, and decodes the merged settings. A missing default file is not an
// error; a missing explicit file is.
func Load(v *viper.Viper, path string) (Config, error) {
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
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// applyDefaults fills settings a config file blanked out explicitly.
func applyDefaults(c *Config) {
	if c.RuntimeImport == "" {
		c.RuntimeImport = generate.DefaultRuntime
	}
	if c.OutSuffix == "" {
		c.OutSuffix = DefaultOutSuffix
	}
	if c.Builder.Suffix == "" {
		c.Builder.Suffix = "Builder"
	}
	if c.Debug.Bound == "" {
		c.Debug.Bound = bounds.DefaultBound
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate rejects settings that would produce unusable output.
func (c Config) Validate() error {
	switch {
	case c.Jobs < 0:
		return fmt.Errorf("config: jobs must be >= 0, got %d", c.Jobs)
	case !strings.HasSuffix(c.OutSuffix, ".go"):
		return fmt.Errorf("config: out_suffix %q must end in .go", c.OutSuffix)
	case c.Log.Format != "console" && c.Log.Format != "json":
		return fmt.Errorf("config: log.format %q, want console or json", c.Log.Format)
	}
	return nil
}

// GenerateOptions maps the settings onto the generator.
func (c Config) GenerateOptions() generate.Options {
	return generate.Options{
		Builder: builder.Options{
			Suffix:            c.Builder.Suffix,
			ConstructorPrefix: c.Builder.ConstructorPrefix,
			MustBuild:         c.Builder.MustBuild,
		},
		Bound:        c.Debug.Bound,
		StrictBounds: c.Debug.StrictBounds,
		Wrappers:     c.Debug.Wrappers,
	}
}

// Watch re-decodes the settings whenever the loaded config file changes and
// hands the result to fn. Decode failures are passed to onErr. Only
// meaningful after Load found a file.
func Watch(v *viper.Viper, fn func(Config), onErr func(error)) {
	v.OnConfigChange(func(fsnotify.Event) {
		c, err := decode(v)
		if err != nil {
			onErr(err)
			return
		}
		fn(c)
	})
	v.WatchConfig()
}
