package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreCSV      = "csv"
)

type Config struct {
	Port              string        `yaml:"port"`
	OAIApiKey         string        `yaml:"oai_api_key"`
	OAIModel          string        `yaml:"oai_model"`
	OAIUrl            string        `yaml:"oai_url"`
	DBApiKey          string        `yaml:"db_api_key"`
	DBUrl             string        `yaml:"db_url"`
	RecordStore       string        `yaml:"record_store"`
	PostgresDSN       string        `yaml:"postgres_dsn"`
	CSVDir            string        `yaml:"csv_dir"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
	RateLimit         float64       `yaml:"rate_limit"`
	RateBurst         int           `yaml:"rate_burst"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	LogFormat         string        `yaml:"log_format"`
}

func DefaultConfig() Config {
	return Config{
		Port:              "8000",
		RecordStore:       StoreSupabase,
		CSVDir:            "records",
		CompletionTimeout: DefaultCompletionTimeout,
		RateLimit:         0.5,
		RateBurst:         5,
		LogFormat:         "text",
	}
}

// LoadConfig reads the optional yaml file at path and applies environment
// overrides on top. A missing OAI key is only reported; completion calls fail
// on it later.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return config, err
		}
		if err := yaml.Unmarshal(content, &config); err != nil {
			return config, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&config); err != nil {
		return config, err
	}

	if config.OAIApiKey == "" {
		slog.Error("OAI_API_KEY environment variable not set")
	}
	if config.RecordStore == StoreSupabase && config.DBApiKey == "" {
		slog.Error("DB_API_KEY environment variable not set")
	}

	return config, config.Validate()
}

func (c Config) Validate() error {
	switch c.RecordStore {
	case StoreSupabase:
		if c.DBUrl == "" {
			return errors.New("record store supabase needs db_url")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("record store postgres needs postgres_dsn")
		}
	case StoreCSV:
		if c.CSVDir == "" {
			return errors.New("record store csv needs csv_dir")
		}
	default:
		return fmt.Errorf("unknown record store %q", c.RecordStore)
	}

	if c.RateLimit < 0 || c.RateBurst < 0 {
		return errors.New("rate limit and burst must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		return errors.New("rate_burst must be positive when rate_limit is set")
	}

	return nil
}

func applyEnv(c *Config) error {
	str := map[string]*string{
		"GOPORT":       &c.Port,
		"OAI_API_KEY":  &c.OAIApiKey,
		"OAI_MODEL":    &c.OAIModel,
		"OAI_URL":      &c.OAIUrl,
		"DB_API_KEY":   &c.DBApiKey,
		"DB_URL":       &c.DBUrl,
		"RECORD_STORE": &c.RecordStore,
		"POSTGRES_DSN": &c.PostgresDSN,
		"CSV_DIR":      &c.CSVDir,
		"LOG_FORMAT":   &c.LogFormat,
	}
	for key, field := range str {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("COMPLETION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COMPLETION_TIMEOUT: %w", err)
		}
		c.CompletionTimeout = d
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.RateBurst = n
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = strings.Split(v, ",")
	}

	return nil
}

// Credential returns the completion key from the environment, falling back to
// the configured value. It is meant to be called per request.
func (c Config) Credential() string {
	if v := os.Getenv("OAI_API_KEY"); v != "" {
		return v
	}
	return c.OAIApiKey
}
