// Filename: internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration, populated from config.yaml,
// GHOSTTYPE_* environment variables and command-line flags (in increasing
// precedence) through viper.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console color per log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig carries the typing-replay defaults. Command-line flags
// override these per run.
type EngineConfig struct {
	WPM                int   `mapstructure:"wpm" yaml:"wpm"`
	PreserveFormatting bool  `mapstructure:"preserve_formatting" yaml:"preserve_formatting"`
	NaturalVariation   bool  `mapstructure:"natural_variation" yaml:"natural_variation"`
	SingleMethod       bool  `mapstructure:"single_method" yaml:"single_method"`
	Seed               int64 `mapstructure:"seed" yaml:"seed"`
	FocusSettleMs      int   `mapstructure:"focus_settle_ms" yaml:"focus_settle_ms"`
	FormatSettleMs     int   `mapstructure:"format_settle_ms" yaml:"format_settle_ms"`
}

// BrowserConfig describes how to reach the target tab.
type BrowserConfig struct {
	// RemoteURL is a DevTools websocket endpoint of an already-running
	// Chrome instance. Empty means launch a fresh instance.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
	// TargetURL is navigated to before typing when non-empty.
	TargetURL string `mapstructure:"target_url" yaml:"target_url"`
	// Selector pins the editable element; empty walks the locator chain.
	Selector string `mapstructure:"selector" yaml:"selector"`
	Headless bool   `mapstructure:"headless" yaml:"headless"`
}

// wpm bounds, mirrored from the engine so config validation can reject bad
// values before a run is attempted.
const (
	minWPM = 10
	maxWPM = 200
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "ghosttype",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      14,
			Colors: ColorConfig{
				Debug: "cyan",
				Info:  "green",
				Warn:  "yellow",
				Error: "red",
				Fatal: "magenta",
			},
		},
		Engine: EngineConfig{
			WPM:                60,
			PreserveFormatting: true,
			NaturalVariation:   true,
			SingleMethod:       true,
			FocusSettleMs:      300,
			FormatSettleMs:     120,
		},
		Browser: BrowserConfig{
			Headless: false,
		},
	}
}

// SetDefaults registers the built-in values with a viper instance so that
// partial config files inherit them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.service_name", d.Logger.ServiceName)
	v.SetDefault("logger.max_size", d.Logger.MaxSize)
	v.SetDefault("logger.max_backups", d.Logger.MaxBackups)
	v.SetDefault("logger.max_age", d.Logger.MaxAge)
	v.SetDefault("logger.colors.debug", d.Logger.Colors.Debug)
	v.SetDefault("logger.colors.info", d.Logger.Colors.Info)
	v.SetDefault("logger.colors.warn", d.Logger.Colors.Warn)
	v.SetDefault("logger.colors.error", d.Logger.Colors.Error)
	v.SetDefault("logger.colors.fatal", d.Logger.Colors.Fatal)
	v.SetDefault("engine.wpm", d.Engine.WPM)
	v.SetDefault("engine.preserve_formatting", d.Engine.PreserveFormatting)
	v.SetDefault("engine.natural_variation", d.Engine.NaturalVariation)
	v.SetDefault("engine.single_method", d.Engine.SingleMethod)
	v.SetDefault("engine.focus_settle_ms", d.Engine.FocusSettleMs)
	v.SetDefault("engine.format_settle_ms", d.Engine.FormatSettleMs)
	v.SetDefault("browser.headless", d.Browser.Headless)
}

// Validate rejects configurations the engine would refuse anyway, so errors
// surface at startup rather than mid-command.
func (c *Config) Validate() error {
	if c.Engine.WPM < minWPM || c.Engine.WPM > maxWPM {
		return fmt.Errorf("engine.wpm must be in [%d, %d], got %d", minWPM, maxWPM, c.Engine.WPM)
	}
	switch strings.ToLower(c.Logger.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	if c.Engine.FocusSettleMs < 0 || c.Engine.FormatSettleMs < 0 {
		return fmt.Errorf("settle delays must not be negative")
	}
	return nil
}
