// Package config provides service configuration loaded from a YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultPort          = 8080
	DefaultHost          = "0.0.0.0"
	DefaultTempDir       = "/tmp/clipforge"
	DefaultMaxUploadSize = 500 * 1024 * 1024 // 500MB
	DefaultLLMBaseURL    = "https://ollama.com/api"
	DefaultLLMModel      = "qwen3-vl:235b-cloud"
	DefaultWhisperModel  = "ggml-base.bin"
	DefaultJobTTLSeconds = 3600
)

// Config holds the full service configuration
type Config struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// AllowedOrigins is the CORS origin allow-list
	AllowedOrigins []string `yaml:"allowed_origins"`

	// TempDir is the working directory for uploads and export artifacts
	TempDir string `yaml:"temp_dir"`

	// MaxUploadSize caps uploaded video size in bytes
	MaxUploadSize int64 `yaml:"max_upload_size"`

	// JobTTLSeconds controls when finished jobs and their artifacts are purged
	JobTTLSeconds int `yaml:"job_ttl_seconds"`

	// Media tool paths; empty means look up in PATH
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// Whisper transcription settings
	WhisperPath   string `yaml:"whisper_path"`
	WhisperModels string `yaml:"whisper_models_dir"`
	WhisperModel  string `yaml:"whisper_model"`

	// LLM assistant settings
	LLMBaseURL string `yaml:"llm_base_url"`
	LLMModel   string `yaml:"llm_model"`
	LLMAPIKey  string `yaml:"-"`

	// AuthSecret signs session tokens; empty disables auth
	AuthSecret string `yaml:"-"`

	Verbose bool `yaml:"verbose"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	// .env is optional; missing files are fine
	_ = godotenv.Load()

	cfg := &Config{
		Port:          DefaultPort,
		Host:          DefaultHost,
		TempDir:       DefaultTempDir,
		MaxUploadSize: DefaultMaxUploadSize,
		JobTTLSeconds: DefaultJobTTLSeconds,
		LLMBaseURL:    DefaultLLMBaseURL,
		LLMModel:      DefaultLLMModel,
		WhisperModel:  DefaultWhisperModel,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CLIPFORGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("CLIPFORGE_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("CLIPFORGE_TEMP_DIR"); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv("CLIPFORGE_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" && !contains(c.AllowedOrigins, v) {
		c.AllowedOrigins = append(c.AllowedOrigins, v)
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.LLMBaseURL = v
	}
	if v := os.Getenv("OLLAMA_API_KEY"); v != "" {
		c.LLMAPIKey = v
	}
	if v := os.Getenv("CLIPFORGE_AUTH_SECRET"); v != "" {
		c.AuthSecret = v
	}
	if v := os.Getenv("CLIPFORGE_VERBOSE"); v == "true" || v == "1" {
		c.Verbose = true
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
