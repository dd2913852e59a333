// Package config collects every product-tuning constant of the exploration
// engine in one place: force strengths, decay rates, score weights, gesture
// timings, page sizes and zoom bounds.
//
// None of these values are structural invariants — the algorithms hold for
// any sane setting — so they load like ordinary configuration: defaults
// first, then an optional YAML file, then BIFROST_* environment variables,
// highest priority last.
//
// Example Usage:
//
//	cfg, err := config.Load("bifrost.yaml") // path may be ""
//	if err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	session := explorer.New(src, explorer.Options{
//		MaxReveal:        cfg.Session.MaxReveal,
//		OverflowPageSize: cfg.Session.OverflowPageSize,
//		Layout:           cfg.Layout,
//		RankWeights:      cfg.Rank,
//		Gestures:         cfg.Gestures,
//	})
//
// Environment Variables:
//   - BIFROST_MAX_REVEAL=5            nodes revealed per expansion
//   - BIFROST_OVERFLOW_PAGE_SIZE=20   "load more" page size
//   - BIFROST_LINK_DISTANCE=120       spring rest length
//   - BIFROST_CHARGE_STRENGTH=-360    pairwise repulsion
//   - BIFROST_ALPHA_DECAY=0.98        per-tick temperature decay
//   - BIFROST_REHEAT_ALPHA=0.3        temperature restored on merge
//   - BIFROST_DOUBLE_CLICK_MS=280     double-click window
//   - BIFROST_MIN_ZOOM / BIFROST_MAX_ZOOM
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/bifrost/pkg/interact"
	"github.com/orneryd/bifrost/pkg/layout"
	"github.com/orneryd/bifrost/pkg/rank"
)

// SessionConfig holds the settings owned by the session itself rather than
// one of its engines.
type SessionConfig struct {
	// MaxReveal is how many ranked candidates an expansion reveals.
	MaxReveal int `yaml:"max_reveal"`
	// OverflowPageSize is how many buffered candidates one "load more"
	// drains.
	OverflowPageSize int `yaml:"overflow_page_size"`
}

// DefaultSessionConfig returns the stock session settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{MaxReveal: 5, OverflowPageSize: 20}
}

// Config aggregates all tunables.
type Config struct {
	Session  SessionConfig   `yaml:"session"`
	Layout   layout.Config   `yaml:"layout"`
	Rank     rank.Weights    `yaml:"rank"`
	Gestures interact.Config `yaml:"gestures"`
}

// Default returns the full stock configuration.
func Default() *Config {
	return &Config{
		Session:  DefaultSessionConfig(),
		Layout:   layout.DefaultConfig(),
		Rank:     rank.DefaultWeights(),
		Gestures: interact.DefaultConfig(),
	}
}

// Load builds a Config from defaults, an optional YAML file (path may be
// empty), and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays BIFROST_* environment variables.
func (c *Config) applyEnv() {
	c.Session.MaxReveal = getEnvInt("BIFROST_MAX_REVEAL", c.Session.MaxReveal)
	c.Session.OverflowPageSize = getEnvInt("BIFROST_OVERFLOW_PAGE_SIZE", c.Session.OverflowPageSize)

	c.Layout.LinkDistance = getEnvFloat("BIFROST_LINK_DISTANCE", c.Layout.LinkDistance)
	c.Layout.ChargeStrength = getEnvFloat("BIFROST_CHARGE_STRENGTH", c.Layout.ChargeStrength)
	c.Layout.AlphaDecay = getEnvFloat("BIFROST_ALPHA_DECAY", c.Layout.AlphaDecay)
	c.Layout.ReheatAlpha = getEnvFloat("BIFROST_REHEAT_ALPHA", c.Layout.ReheatAlpha)

	if ms := getEnvInt("BIFROST_DOUBLE_CLICK_MS", 0); ms > 0 {
		c.Gestures.DoubleClickWindow = time.Duration(ms) * time.Millisecond
	}
	c.Gestures.MinZoom = getEnvFloat("BIFROST_MIN_ZOOM", c.Gestures.MinZoom)
	c.Gestures.MaxZoom = getEnvFloat("BIFROST_MAX_ZOOM", c.Gestures.MaxZoom)
}

// Validate rejects configurations the engines cannot run with.
func (c *Config) Validate() error {
	if c.Session.MaxReveal <= 0 {
		return fmt.Errorf("session.max_reveal must be positive, got %d", c.Session.MaxReveal)
	}
	if c.Session.OverflowPageSize <= 0 {
		return fmt.Errorf("session.overflow_page_size must be positive, got %d", c.Session.OverflowPageSize)
	}
	if c.Layout.AlphaDecay <= 0 || c.Layout.AlphaDecay >= 1 {
		return fmt.Errorf("layout.alpha_decay must be in (0,1), got %g", c.Layout.AlphaDecay)
	}
	if c.Layout.ReheatAlpha <= 0 || c.Layout.ReheatAlpha > 1 {
		return fmt.Errorf("layout.reheat_alpha must be in (0,1], got %g", c.Layout.ReheatAlpha)
	}
	if c.Layout.LinkDistance <= 0 {
		return fmt.Errorf("layout.link_distance must be positive, got %g", c.Layout.LinkDistance)
	}
	if c.Gestures.MinZoom <= 0 || c.Gestures.MaxZoom < c.Gestures.MinZoom {
		return fmt.Errorf("gestures zoom range [%g, %g] is invalid", c.Gestures.MinZoom, c.Gestures.MaxZoom)
	}
	if c.Gestures.DoubleClickWindow <= 0 {
		return fmt.Errorf("gestures.double_click_window must be positive, got %v", c.Gestures.DoubleClickWindow)
	}
	w := c.Rank
	if w.Confidence < 0 || w.Evidence < 0 || w.Provenance < 0 || w.Metrics < 0 || w.Cooccurrence < 0 {
		return fmt.Errorf("rank weights must be non-negative")
	}
	return nil
}

// String summarizes the key tunables for startup logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{reveal=%d page=%d link=%g charge=%g decay=%g dblclick=%v zoom=[%g,%g]}",
		c.Session.MaxReveal, c.Session.OverflowPageSize,
		c.Layout.LinkDistance, c.Layout.ChargeStrength, c.Layout.AlphaDecay,
		c.Gestures.DoubleClickWindow, c.Gestures.MinZoom, c.Gestures.MaxZoom)
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
