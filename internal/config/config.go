// Package config loads layered configuration: built-in defaults, an
// optional YAML file, then ADAPTLEARN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override. Nested keys are
	// separated by a double underscore: ADAPTLEARN_STORE__DRIVER.
	EnvPrefix = "ADAPTLEARN_"

	// PathEnvVar names a config file when --config is not given.
	PathEnvVar = "ADAPTLEARN_CONFIG"
)

// Config is the full application configuration.
type Config struct {
	Store     StoreConfig     `koanf:"store"`
	Log       LogConfig       `koanf:"log"`
	Privacy   PrivacyConfig   `koanf:"privacy"`
	Quiz      QuizConfig      `koanf:"quiz"`
	Federated FederatedConfig `koanf:"federated"`
	Notify    NotifyConfig    `koanf:"notify"`
	Auth      AuthConfig      `koanf:"auth"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite or postgres
	DSN    string `koanf:"dsn"`    // empty sqlite DSN resolves to the XDG data path
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

type PrivacyConfig struct {
	Sensitivity    float64 `koanf:"sensitivity"`
	NoiseThreshold float64 `koanf:"noise_threshold"`
	TotalBudget    float64 `koanf:"total_budget"`
	EnforceBudget  bool    `koanf:"enforce_budget"`
}

type QuizConfig struct {
	MaxQuestions int `koanf:"max_questions"`
}

type FederatedConfig struct {
	TrainingDelay     time.Duration `koanf:"training_delay"`
	AggregationDelay  time.Duration `koanf:"aggregation_delay"`
	RoundTimeout      time.Duration `koanf:"round_timeout"`
	ParticipationRate float64       `koanf:"participation_rate"`
}

// NotifyConfig enables Redis event publishing when RedisAddr is set.
type NotifyConfig struct {
	RedisAddr string `koanf:"redis_addr"`
	Channel   string `koanf:"channel"`
}

type AuthConfig struct {
	Secret string `koanf:"secret"`
	Issuer string `koanf:"issuer"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite"},
		Log:   LogConfig{Level: "info", Format: "console"},
		Privacy: PrivacyConfig{
			Sensitivity:    0.1,
			NoiseThreshold: 5.0,
			TotalBudget:    10.0,
		},
		Quiz: QuizConfig{MaxQuestions: 10},
		Federated: FederatedConfig{
			TrainingDelay:     3 * time.Second,
			AggregationDelay:  2 * time.Second,
			RoundTimeout:      30 * time.Second,
			ParticipationRate: 0.8,
		},
		Notify:  NotifyConfig{Channel: "adaptlearn:events"},
		Auth:    AuthConfig{Issuer: "adaptlearn"},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

// Load builds the configuration. path may be empty, in which case
// $ADAPTLEARN_CONFIG is consulted; a missing file is not an error only when
// no path was requested.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps ADAPTLEARN_FEDERATED__ROUND_TIMEOUT to federated.round_timeout.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be memory, sqlite or postgres", c.Store.Driver))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}

	if c.Privacy.Sensitivity <= 0 {
		errs = append(errs, errors.New("privacy.sensitivity must be positive"))
	}
	if c.Privacy.NoiseThreshold <= 0 {
		errs = append(errs, errors.New("privacy.noise_threshold must be positive"))
	}
	if c.Privacy.TotalBudget <= 0 {
		errs = append(errs, errors.New("privacy.total_budget must be positive"))
	}

	if c.Quiz.MaxQuestions < 1 {
		errs = append(errs, errors.New("quiz.max_questions must be at least 1"))
	}

	f := c.Federated
	if f.TrainingDelay < 0 || f.AggregationDelay < 0 {
		errs = append(errs, errors.New("federated delays must not be negative"))
	}
	if f.RoundTimeout <= 0 {
		errs = append(errs, errors.New("federated.round_timeout must be positive"))
	} else if f.RoundTimeout <= f.TrainingDelay+f.AggregationDelay {
		errs = append(errs, fmt.Errorf("federated.round_timeout %s must exceed training plus aggregation delay", f.RoundTimeout))
	}
	if f.ParticipationRate < 0 || f.ParticipationRate > 1 {
		errs = append(errs, fmt.Errorf("federated.participation_rate %v must be within [0, 1]", f.ParticipationRate))
	}

	return errors.Join(errs...)
}
