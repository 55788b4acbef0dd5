package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Processing: ProcessingConfig{
			MaxChunkSize:        2000,
			ChunkOverlap:        200,
			MaxConcurrentChunks: 3,
			ProcessingTimeout:   30 * time.Minute,
			QualityThreshold:    0.1,
			FailureRatio:        0.5,
			FastPathThreshold:   1,
		},
		Tasks: TaskConfig{
			RetentionHours: 24,
			MaxUserTasks:   10,
			MaxRunning:     4,
		},
		Inference: InferenceConfig{MaxRetries: 3},
	}
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_OverlapMustBeSmallerThanChunkSize(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.ChunkOverlap = 2000
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg.Processing.ChunkOverlap = 2500
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
}

func TestValidate_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Processing.MaxChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.Processing.ChunkOverlap = -1 }},
		{"zero concurrency", func(c *Config) { c.Processing.MaxConcurrentChunks = 0 }},
		{"quality threshold above 1", func(c *Config) { c.Processing.QualityThreshold = 1.5 }},
		{"zero failure ratio", func(c *Config) { c.Processing.FailureRatio = 0 }},
		{"zero user task cap", func(c *Config) { c.Tasks.MaxUserTasks = 0 }},
		{"zero retention", func(c *Config) { c.Tasks.RetentionHours = 0 }},
		{"zero retries", func(c *Config) { c.Inference.MaxRetries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAX_CHUNK_SIZE", "1000")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("PROCESSING_TIMEOUT", "1800")
	t.Setenv("QUALITY_THRESHOLD", "0.2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Processing.MaxChunkSize)
	assert.Equal(t, 100, cfg.Processing.ChunkOverlap)
	assert.Equal(t, 30*time.Minute, cfg.Processing.ProcessingTimeout, "bare seconds are accepted")
	assert.Equal(t, 0.2, cfg.Processing.QualityThreshold)
}

func TestLoad_RejectsInvalidCombination(t *testing.T) {
	t.Setenv("MAX_CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "200")

	_, err := Load()
	assert.ErrorIs(t, err, ErrConfiguration)
}
