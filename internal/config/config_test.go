package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Quiz.MaxQuestions)
	assert.Equal(t, 3*time.Second, cfg.Federated.TrainingDelay)
	assert.InDelta(t, 0.8, cfg.Federated.ParticipationRate, 1e-9)
	assert.InDelta(t, 5.0, cfg.Privacy.NoiseThreshold, 1e-9)
	assert.False(t, cfg.Privacy.EnforceBudget)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adaptlearn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
quiz:
  max_questions: 5
federated:
  training_delay: 10ms
  aggregation_delay: 10ms
  round_timeout: 1s
privacy:
  enforce_budget: true
`), 0o644))

	t.Setenv("ADAPTLEARN_QUIZ__MAX_QUESTIONS", "7")
	t.Setenv("ADAPTLEARN_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 7, cfg.Quiz.MaxQuestions, "env overrides file")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10*time.Millisecond, cfg.Federated.TrainingDelay)
	assert.Equal(t, time.Second, cfg.Federated.RoundTimeout)
	assert.True(t, cfg.Privacy.EnforceBudget)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: memory\n"), 0o644))
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "oracle" }, "store.driver"},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }, "store.dsn"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero sensitivity", func(c *Config) { c.Privacy.Sensitivity = 0 }, "privacy.sensitivity"},
		{"zero max questions", func(c *Config) { c.Quiz.MaxQuestions = 0 }, "quiz.max_questions"},
		{"rate above one", func(c *Config) { c.Federated.ParticipationRate = 1.2 }, "participation_rate"},
		{"timeout too short", func(c *Config) { c.Federated.RoundTimeout = time.Second }, "round_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "oracle"
	cfg.Quiz.MaxQuestions = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
	assert.Contains(t, err.Error(), "quiz.max_questions")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "federated.round_timeout", envKey("ADAPTLEARN_FEDERATED__ROUND_TIMEOUT"))
	assert.Equal(t, "store.dsn", envKey("ADAPTLEARN_STORE__DSN"))
}
