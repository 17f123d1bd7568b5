// Package config loads genhl settings from a YAML file and GENHL_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/odvcencio/genhl/highlight"
	"github.com/odvcencio/genhl/syntax"
	"github.com/odvcencio/genhl/theme"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GENHL"

// Config is the merged configuration of the CLI and the web server:
// defaults, then genhl.yaml, then GENHL_* environment variables.
type Config struct {
	Environment string   `mapstructure:"environment"`
	LogLevel    string   `mapstructure:"log_level"`
	Style       string   `mapstructure:"style"`
	Definitions []string `mapstructure:"definitions"`
	EvictUnused bool     `mapstructure:"evict_unused"`

	TabSize          int    `mapstructure:"tab_size"`
	IndentSize       int    `mapstructure:"indent_size"`
	Folding          string `mapstructure:"folding"`
	VisualWhitespace bool   `mapstructure:"visual_whitespace"`
	StateCapacity    int    `mapstructure:"state_capacity"`

	// Overrides maps format names to loosely typed style attributes; see
	// theme.ParseOverrides.
	Overrides map[string]any `mapstructure:"overrides"`

	Web WebConfig `mapstructure:"web"`
}

// WebConfig configures the websocket server.
type WebConfig struct {
	Address      string        `mapstructure:"address"`
	RateLimit    float64       `mapstructure:"rate_limit"` // requests per second per connection
	Burst        int           `mapstructure:"burst"`
	MaxDocuments int           `mapstructure:"max_documents"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

var defaults = map[string]any{
	"environment":       "production",
	"log_level":         "info",
	"style":             "monokai",
	"definitions":       []string{},
	"evict_unused":      false,
	"tab_size":          highlight.DefaultTabSettings.TabSize,
	"indent_size":       highlight.DefaultTabSettings.IndentSize,
	"folding":           "auto",
	"visual_whitespace": false,
	"state_capacity":    0,
	"overrides":         map[string]any{},
	"web.address":       ":8080",
	"web.rate_limit":    20.0,
	"web.burst":         40,
	"web.max_documents": 16,
	"web.read_limit":    1 << 20,
	"web.write_timeout": 10 * time.Second,
}

// Load reads genhl.yaml from dir, if present, then the environment.
func Load(dir string) (Config, error) {
	v := newViper()
	v.AddConfigPath(dir)
	v.SetConfigName("genhl")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFile reads the config file at path, then the environment. The file
// must exist.
func LoadFile(path string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// FoldingMode parses the folding setting.
func (c Config) FoldingMode() (highlight.FoldingMode, error) {
	switch strings.ToLower(c.Folding) {
	case "", "auto":
		return highlight.FoldAuto, nil
	case "regions", "region":
		return highlight.FoldRegions, nil
	case "indentation", "indent":
		return highlight.FoldIndentation, nil
	}
	return highlight.FoldAuto, fmt.Errorf("unknown folding mode %q", c.Folding)
}

// HighlightOptions turns the highlighting settings into highlighter
// options.
func (c Config) HighlightOptions(log zerolog.Logger) ([]highlight.Option, error) {
	folding, err := c.FoldingMode()
	if err != nil {
		return nil, err
	}
	tabs := highlight.TabSettings{TabSize: c.TabSize, IndentSize: c.IndentSize}
	if tabs.TabSize <= 0 || tabs.IndentSize <= 0 {
		return nil, fmt.Errorf("tab_size and indent_size must be positive, got %d and %d", c.TabSize, c.IndentSize)
	}
	opts := []highlight.Option{
		highlight.WithLogger(log),
		highlight.WithTabSettings(tabs),
		highlight.WithFolding(folding),
		highlight.WithVisualWhitespace(c.VisualWhitespace),
	}
	if c.StateCapacity > 0 {
		opts = append(opts, highlight.WithStateCapacity(c.StateCapacity))
	}
	return opts, nil
}

// Theme builds the configured style with its overrides.
func (c Config) Theme() (*theme.Theme, error) {
	overrides, err := theme.ParseOverrides(c.Overrides)
	if err != nil {
		return nil, err
	}
	return theme.New(c.Style, theme.WithOverrides(overrides))
}

// Registry returns the built-in definitions plus every definition found in
// the configured directories.
func (c Config) Registry(log zerolog.Logger) (*syntax.Registry, error) {
	opts := []syntax.RegistryOption{syntax.WithRegistryLogger(log)}
	if c.EvictUnused {
		opts = append(opts, syntax.WithEvictUnused())
	}
	reg, err := syntax.NewDefaultRegistry(opts...)
	if err != nil {
		return nil, err
	}
	for _, dir := range c.Definitions {
		n, err := reg.AddDir(dir)
		if err != nil {
			return nil, fmt.Errorf("definitions %s: %w", dir, err)
		}
		log.Debug().Str("dir", dir).Int("count", n).Msg("definitions added")
	}
	return reg, nil
}

// Logger builds the logger described by the config. Development
// environments get human readable console output.
func (c Config) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}
	if c.Environment == "development" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
