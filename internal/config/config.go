package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gamification-engine/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Gamification Gamification `yaml:"gamification"`
}

// Gamification tunes the level curve, experience budget and badge catalog.
type Gamification struct {
	XPPerLevel    int             `yaml:"xpPerLevel"`
	DefaultBaseXP int             `yaml:"defaultBaseXp"`
	Badges        []BadgeCategory `yaml:"badges"`
}

type BadgeCategory struct {
	ID    string      `yaml:"id"`
	Name  string      `yaml:"name"`
	Tiers []BadgeTier `yaml:"tiers"`
}

type BadgeTier struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Threshold int    `yaml:"threshold"`
	// Window is a duration ("5s") and only applies to speed-responder tiers.
	Window string `yaml:"window"`
}

// Load reads the YAML config at path, then applies environment overrides.
// A missing config file yields defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v, err := strconv.Atoi(os.Getenv("XP_PER_LEVEL")); err == nil && v > 0 {
		cfg.Gamification.XPPerLevel = v
	}
}

// BadgeCatalog converts the configured badges. An empty list returns nil so
// the built-in catalog applies.
func (g Gamification) BadgeCatalog() ([]domain.BadgeCategory, error) {
	if len(g.Badges) == 0 {
		return nil, nil
	}
	out := make([]domain.BadgeCategory, 0, len(g.Badges))
	for _, c := range g.Badges {
		category := domain.BadgeCategory{ID: domain.CategoryID(c.ID), Name: c.Name}
		for _, t := range c.Tiers {
			tier := domain.BadgeTier{ID: t.ID, Name: t.Name, Threshold: t.Threshold}
			if t.Window != "" {
				d, err := time.ParseDuration(t.Window)
				if err != nil {
					return nil, fmt.Errorf("%w: tier %s window %q", domain.ErrInvalidBadgeCatalog, t.ID, t.Window)
				}
				tier.WindowSeconds = d.Seconds()
			}
			category.Tiers = append(category.Tiers, tier)
		}
		out = append(out, category)
	}
	return out, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
