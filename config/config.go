// Package config loads application configuration from environment
// variables, with optional .env file support. Invalid settings are
// rejected at startup and never surface as runtime errors.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lpernett/godotenv"
)

// ErrConfiguration wraps any invalid configuration detected at startup.
var ErrConfiguration = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Processing ProcessingConfig
	Tasks      TaskConfig
	Inference  InferenceConfig
	Store      StoreConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr          string
	MaxUploadSize int64
}

// ProcessingConfig holds chunking and pipeline settings.
type ProcessingConfig struct {
	MaxChunkSize        int           // words per chunk
	ChunkOverlap        int           // word overlap between chunks
	MaxConcurrentChunks int           // concurrent inference calls
	ProcessingTimeout   time.Duration // task-level deadline
	QualityThreshold    float64       // chunks scoring below are skipped
	FailureRatio        float64       // failed/total at or above this fails the task
	FastPathThreshold   int           // estimated chunk count at or below goes synchronous
}

// TaskConfig holds background task management settings.
type TaskConfig struct {
	RetentionHours int // TTL after a task reaches a terminal state
	MaxUserTasks   int // non-terminal tasks allowed per owner
	MaxRunning     int // size of the task execution pool
}

// InferenceConfig holds external inference service settings.
type InferenceConfig struct {
	Host        string
	Model       string
	APIKey      string
	Temperature float64
	MaxRetries  int
	RetryDelay  time.Duration
	CallTimeout time.Duration
}

// StoreConfig holds durable task store settings.
type StoreConfig struct {
	Path     string // badger directory; empty means in-memory only
	InMemory bool
}

// Load reads configuration from the environment, first merging a .env
// file if one is present in the working directory.
func Load() (*Config, error) {
	// Missing .env is not an error; the environment may be complete.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:          getEnv("LISTEN_ADDR", ":8080"),
			MaxUploadSize: getEnvAsInt64("MAX_FILE_SIZE", 100_000_000),
		},
		Processing: ProcessingConfig{
			MaxChunkSize:        getEnvAsInt("MAX_CHUNK_SIZE", 2000),
			ChunkOverlap:        getEnvAsInt("CHUNK_OVERLAP", 200),
			MaxConcurrentChunks: getEnvAsInt("MAX_CONCURRENT_CHUNKS", 3),
			ProcessingTimeout:   getEnvAsDuration("PROCESSING_TIMEOUT", 30*time.Minute),
			QualityThreshold:    getEnvAsFloat("QUALITY_THRESHOLD", 0.1),
			FailureRatio:        getEnvAsFloat("FAILURE_RATIO", 0.5),
			FastPathThreshold:   getEnvAsInt("FAST_PATH_THRESHOLD", 1),
		},
		Tasks: TaskConfig{
			RetentionHours: getEnvAsInt("TASK_RETENTION_HOURS", 24),
			MaxUserTasks:   getEnvAsInt("MAX_USER_TASKS", 10),
			MaxRunning:     getEnvAsInt("MAX_RUNNING_TASKS", 4),
		},
		Inference: InferenceConfig{
			Host:        getEnv("INFERENCE_HOST", "https://api.groq.com/openai/v1"),
			Model:       getEnv("INFERENCE_MODEL", "llama-3.3-70b-versatile"),
			APIKey:      getEnv("INFERENCE_API_KEY", ""),
			Temperature: getEnvAsFloat("INFERENCE_TEMPERATURE", 0.2),
			MaxRetries:  getEnvAsInt("MAX_RETRIES", 3),
			RetryDelay:  getEnvAsDuration("RETRY_DELAY", 2*time.Second),
			CallTimeout: getEnvAsDuration("INFERENCE_TIMEOUT", 90*time.Second),
		},
		Store: StoreConfig{
			Path:     getEnv("TASK_STORE_PATH", "./data/tasks"),
			InMemory: getEnvAsBool("TASK_STORE_IN_MEMORY", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	p := c.Processing
	if p.MaxChunkSize < 1 {
		return fmt.Errorf("%w: MAX_CHUNK_SIZE must be positive, got %d", ErrConfiguration, p.MaxChunkSize)
	}
	if p.ChunkOverlap < 0 {
		return fmt.Errorf("%w: CHUNK_OVERLAP must not be negative, got %d", ErrConfiguration, p.ChunkOverlap)
	}
	if p.ChunkOverlap >= p.MaxChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)",
			ErrConfiguration, p.ChunkOverlap, p.MaxChunkSize)
	}
	if p.MaxConcurrentChunks < 1 {
		return fmt.Errorf("%w: MAX_CONCURRENT_CHUNKS must be positive, got %d", ErrConfiguration, p.MaxConcurrentChunks)
	}
	if p.QualityThreshold < 0 || p.QualityThreshold > 1 {
		return fmt.Errorf("%w: QUALITY_THRESHOLD must be in [0,1], got %g", ErrConfiguration, p.QualityThreshold)
	}
	if p.FailureRatio <= 0 || p.FailureRatio > 1 {
		return fmt.Errorf("%w: FAILURE_RATIO must be in (0,1], got %g", ErrConfiguration, p.FailureRatio)
	}
	if c.Tasks.MaxUserTasks < 1 {
		return fmt.Errorf("%w: MAX_USER_TASKS must be positive, got %d", ErrConfiguration, c.Tasks.MaxUserTasks)
	}
	if c.Tasks.RetentionHours < 1 {
		return fmt.Errorf("%w: TASK_RETENTION_HOURS must be positive, got %d", ErrConfiguration, c.Tasks.RetentionHours)
	}
	if c.Inference.MaxRetries < 1 {
		return fmt.Errorf("%w: MAX_RETRIES must be positive, got %d", ErrConfiguration, c.Inference.MaxRetries)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// Bare numbers are treated as seconds, matching common
		// deployment configs (PROCESSING_TIMEOUT=1800).
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}
