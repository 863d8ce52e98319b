package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults used when a field is left unspecified.
const (
	DefaultAssetBase          = "assets"
	DefaultModel              = "self-portrait2.glb"
	DefaultTitle              = "oxy-view"
	DefaultWidth              = 1280
	DefaultHeight             = 720
	DefaultTickRate           = 60.0
	DefaultPreviewSize        = 160
	DefaultMargin             = 1.5
	DefaultLogLevel           = "info"
	DefaultProbeTimeout       = 3 * time.Second
	DefaultDeclarativeTimeout = 12 * time.Second
)

// Config holds runtime parameters for the viewer.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	AssetBase    string   `json:"asset_base" yaml:"asset_base" toml:"asset_base"`
	Models       []string `json:"models" yaml:"models" toml:"models"`
	DefaultModel string   `json:"default_model" yaml:"default_model" toml:"default_model"`

	// Declarative lists the assets shown through the self-contained viewer
	// element instead of the manual scene.
	Declarative []string `json:"declarative" yaml:"declarative" toml:"declarative"`

	SkipProbe            bool    `json:"skip_probe" yaml:"skip_probe" toml:"skip_probe"`
	ProbeTimeoutMS       int     `json:"probe_timeout_ms" yaml:"probe_timeout_ms" toml:"probe_timeout_ms"`
	DeclarativeTimeoutMS int     `json:"declarative_timeout_ms" yaml:"declarative_timeout_ms" toml:"declarative_timeout_ms"`
	NoCacheBust          bool    `json:"no_cache_bust" yaml:"no_cache_bust" toml:"no_cache_bust"`
	Margin               float64 `json:"margin" yaml:"margin" toml:"margin"`

	Title       string  `json:"title" yaml:"title" toml:"title"`
	Width       int     `json:"width" yaml:"width" toml:"width"`
	Height      int     `json:"height" yaml:"height" toml:"height"`
	TickRate    float64 `json:"tick_rate" yaml:"tick_rate" toml:"tick_rate"`
	FrameLimit  float64 `json:"frame_limit" yaml:"frame_limit" toml:"frame_limit"`
	PreviewSize int     `json:"preview_size" yaml:"preview_size" toml:"preview_size"`
	Profile     bool    `json:"profile" yaml:"profile" toml:"profile"`

	// StatusAddr is the listen address of the status API. Empty disables it.
	StatusAddr string `json:"status_addr" yaml:"status_addr" toml:"status_addr"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogPretty bool   `json:"log_pretty" yaml:"log_pretty" toml:"log_pretty"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WithDefaults returns a copy of c with every unspecified field filled in.
// When no model list is given the default model is the only asset.
func (c Config) WithDefaults() Config {
	c.AssetBase = common.Coalesce(c.AssetBase, DefaultAssetBase)
	c.DefaultModel = common.Coalesce(c.DefaultModel, firstOf(c.Models), DefaultModel)
	if len(c.Models) == 0 {
		c.Models = []string{c.DefaultModel}
	}
	c.ProbeTimeoutMS = common.Coalesce(c.ProbeTimeoutMS, int(DefaultProbeTimeout/time.Millisecond))
	c.DeclarativeTimeoutMS = common.Coalesce(c.DeclarativeTimeoutMS, int(DefaultDeclarativeTimeout/time.Millisecond))
	c.Margin = common.Coalesce(c.Margin, DefaultMargin)
	c.Title = common.Coalesce(c.Title, DefaultTitle)
	c.Width = common.Coalesce(c.Width, DefaultWidth)
	c.Height = common.Coalesce(c.Height, DefaultHeight)
	c.TickRate = common.Coalesce(c.TickRate, DefaultTickRate)
	c.PreviewSize = common.Coalesce(c.PreviewSize, DefaultPreviewSize)
	c.LogLevel = common.Coalesce(strings.ToLower(c.LogLevel), DefaultLogLevel)
	return c
}

// Validate reports settings that cannot be honored.
func (c Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("window size must not be negative: %dx%d", c.Width, c.Height)
	}
	if c.ProbeTimeoutMS < 0 || c.DeclarativeTimeoutMS < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative: %v", c.Margin)
	}
	for _, name := range c.Declarative {
		if !contains(c.Models, name) {
			return fmt.Errorf("declarative asset %q is not in models", name)
		}
	}
	return nil
}

// ProbeTimeout is the per-probe ceiling.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

// DeclarativeTimeout is how long the declarative element may take to answer.
func (c Config) DeclarativeTimeout() time.Duration {
	return time.Duration(c.DeclarativeTimeoutMS) * time.Millisecond
}

func firstOf(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
