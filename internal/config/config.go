package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CROPWATCH_"

// Config holds the server's runtime configuration.
type Config struct {
	BackendHost string `yaml:"host"`
	BackendPort int    `yaml:"port"`
	MetricsPort int    `yaml:"metricsPort"` // 0 disables the metrics listener
	DataPath    string `yaml:"-"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// Comma separated origin patterns accepted by the websocket endpoint,
	// e.g. "https://*.example.com". Empty means same-origin only.
	AllowedOrigins string `yaml:"allowedOrigins"`

	// Farm data
	SampleFile       string        `yaml:"sampleFile"`
	HistoryRetention time.Duration `yaml:"historyRetention"`

	// Chat sessions
	RedisURL   string        `yaml:"redisURL"`
	SessionTTL time.Duration `yaml:"sessionTTL"`

	// Optional NATS responder
	NATSURL     string `yaml:"natsURL"`
	NATSSubject string `yaml:"natsSubject"`

	// Default speech language ("en" or "te")
	Language string `yaml:"language"`

	// EnvOverrides records which settings came from the environment.
	EnvOverrides map[string]bool `yaml:"-"`
}

// Default returns the built-in configuration for dataDir.
func Default(dataDir string) *Config {
	return &Config{
		BackendHost:      "0.0.0.0",
		BackendPort:      8080,
		MetricsPort:      9091,
		DataPath:         dataDir,
		LogLevel:         "info",
		LogFormat:        "auto",
		HistoryRetention: 7 * 24 * time.Hour,
		SessionTTL:       30 * time.Minute,
		NATSSubject:      "cropwatch.assistant.respond",
		Language:         "en",
		EnvOverrides:     make(map[string]bool),
	}
}

// DataDir returns the configured data directory.
func DataDir() string {
	if dir := strings.TrimSpace(os.Getenv(envPrefix + "DATA_DIR")); dir != "" {
		return dir
	}
	return "./data"
}

// Load builds the configuration from defaults, the optional cropwatch.yaml in
// the data directory, .env files and CROPWATCH_* environment variables, in
// increasing order of precedence.
func Load() (*Config, error) {
	dataDir := DataDir()

	envFile := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("Failed to load .env file")
		} else {
			log.Info().Str("file", envFile).Msg("Loaded .env file for deployment overrides")
		}
	}

	// Also try loading from current directory for development
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("Loaded configuration from .env in current directory")
	}

	// .env may have moved the data directory
	dataDir = DataDir()
	cfg := Default(dataDir)

	if err := cfg.loadFile(filepath.Join(dataDir, "cropwatch.yaml")); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Loaded configuration file")
	return nil
}

func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if val, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = strings.TrimSpace(val)
			c.EnvOverrides[key] = true
		}
	}
	integer := func(key string, dst *int) {
		val, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			log.Warn().Str("key", envPrefix+key).Str("value", val).Msg("Ignoring invalid integer")
			return
		}
		*dst = n
		c.EnvOverrides[key] = true
	}
	duration := func(key string, dst *time.Duration) {
		val, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			log.Warn().Str("key", envPrefix+key).Str("value", val).Msg("Ignoring invalid duration")
			return
		}
		*dst = d
		c.EnvOverrides[key] = true
	}

	str("HOST", &c.BackendHost)
	integer("PORT", &c.BackendPort)
	integer("METRICS_PORT", &c.MetricsPort)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("ALLOWED_ORIGINS", &c.AllowedOrigins)
	str("SAMPLE_FILE", &c.SampleFile)
	duration("HISTORY_RETENTION", &c.HistoryRetention)
	str("REDIS_URL", &c.RedisURL)
	duration("SESSION_TTL", &c.SessionTTL)
	str("NATS_URL", &c.NATSURL)
	str("NATS_SUBJECT", &c.NATSSubject)
	str("LANGUAGE", &c.Language)
}

// Origins splits AllowedOrigins into trimmed patterns.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// MockEnvPath is the mock.env file controlling mock mode.
func (c *Config) MockEnvPath() string {
	return filepath.Join(c.DataPath, "mock.env")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BackendPort <= 0 || c.BackendPort > 65535 {
		return fmt.Errorf("invalid backend port: %d", c.BackendPort)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.BackendPort {
		return fmt.Errorf("metrics port %d conflicts with backend port", c.MetricsPort)
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("session TTL must be at least 1 minute")
	}
	if c.HistoryRetention < time.Hour {
		return fmt.Errorf("history retention must be at least 1 hour")
	}
	switch c.Language {
	case "en", "te":
	default:
		return fmt.Errorf("unsupported language %q", c.Language)
	}
	if c.NATSURL != "" && strings.TrimSpace(c.NATSSubject) == "" {
		return fmt.Errorf("NATS subject is required when NATS is enabled")
	}
	return nil
}
