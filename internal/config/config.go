package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is loaded from YAML with env-var overrides, so container deploys
// can run without a config file at all.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret    string `yaml:"jwtSecret"`
		HostUsername string `yaml:"hostUsername"`
		HostPassword string `yaml:"hostPassword"`
	} `yaml:"auth"`
	Compute Compute `yaml:"compute"`
	Game    Game    `yaml:"game"`
}

// Game holds gameplay tunables.
type Game struct {
	SubmissionCap   int    `yaml:"submissionCap"`
	LockGrace       string `yaml:"lockGrace"`
	PointerTTL      string `yaml:"pointerTtl"`
	StaleSessionTTL string `yaml:"staleSessionTtl"`
	LeaderboardSize int    `yaml:"leaderboardSize"`
}

// Load reads YAML config from path (missing file is fine) and applies
// env overrides and defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}

	overrideString(&cfg.Server.Port, "PORT", "8080")
	overrideString(&cfg.Mongo.URI, "MONGO_URI", "mongodb://localhost:27017")
	overrideString(&cfg.Mongo.Database, "MONGO_DATABASE", "quizdeck")
	overrideString(&cfg.Redis.Addr, "REDIS_ADDR", "localhost:6379")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD", "")
	overrideString(&cfg.Auth.JWTSecret, "JWT_SECRET", "dev-secret-change-me")
	overrideString(&cfg.Auth.HostUsername, "HOST_USERNAME", "admin")
	overrideString(&cfg.Auth.HostPassword, "HOST_PASSWORD", "")
	overrideString(&cfg.Compute.BaseURL, "COMPUTE_BASE_URL", "")
	overrideString(&cfg.Compute.APIKey, "COMPUTE_API_KEY", "")

	if cfg.Game.SubmissionCap <= 0 {
		cfg.Game.SubmissionCap = 3
	}
	if cfg.Game.LeaderboardSize <= 0 {
		cfg.Game.LeaderboardSize = 10
	}
	if cfg.Compute.Timeout <= 0 {
		cfg.Compute.Timeout = 10 * time.Second
	}
	return cfg, nil
}

// LockGraceDuration is the wait between locking crowdsource submissions
// and invoking evaluation, tolerating submissions in flight.
func (g Game) LockGraceDuration() time.Duration {
	return TTLDuration(g.LockGrace, 2*time.Second)
}

// PointerTTLDuration bounds how old a host session pointer may be.
func (g Game) PointerTTLDuration() time.Duration {
	return TTLDuration(g.PointerTTL, 12*time.Hour)
}

// StaleSessionDuration is the cleanup threshold for abandoned sessions.
func (g Game) StaleSessionDuration() time.Duration {
	return TTLDuration(g.StaleSessionTTL, 24*time.Hour)
}

// TTLDuration parses a duration string or returns the fallback if empty
// or malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func overrideString(dst *string, env, fallback string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
		return
	}
	if *dst == "" {
		*dst = fallback
	}
}
