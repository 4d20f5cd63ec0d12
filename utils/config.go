package utils

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

var (
	EnvPath string = "."
)

// REVISION is reported in every response envelope of the mock API
const REVISION = "payouts-1.4.0"

type Config struct {
	Env               string        `mapstructure:"ENV"`
	APIBaseURL        string        `mapstructure:"API_BASE_URL"`
	AccessToken       string        `mapstructure:"ACCESS_TOKEN"`
	VerifyTimeout     time.Duration `mapstructure:"VERIFY_TIMEOUT"`
	SubmitTimeout     time.Duration `mapstructure:"SUBMIT_TIMEOUT"`
	ReadTimeout       time.Duration `mapstructure:"READ_TIMEOUT"`
	ReadRetries       int           `mapstructure:"READ_RETRIES"`
	PollInterval      time.Duration `mapstructure:"POLL_INTERVAL"`
	CacheTTL          time.Duration `mapstructure:"CACHE_TTL"`
	RedisHost         string        `mapstructure:"REDIS_HOST"`
	RedisPort         string        `mapstructure:"REDIS_PORT"`
	RedisPassword     string        `mapstructure:"REDIS_PASSWORD"`
	Papertrail        string        `mapstructure:"PAPERTRAIL"`
	PapertrailAppName string        `mapstructure:"PAPERTRAIL_APP_NAME"`
	SigningKey        string        `mapstructure:"SIGNING_KEY"`
	MockPort          int           `mapstructure:"MOCK_PORT"`
	MockSettleDelay   time.Duration `mapstructure:"MOCK_SETTLE_DELAY"`
	MockSalt          string        `mapstructure:"MOCK_SALT"`
}

var defaults = map[string]interface{}{
	"ENV":                 "development",
	"API_BASE_URL":        "http://localhost:8090/api/v1/withdrawals/",
	"ACCESS_TOKEN":        "",
	"VERIFY_TIMEOUT":      "30s",
	"SUBMIT_TIMEOUT":      "30s",
	"READ_TIMEOUT":        "10s",
	"READ_RETRIES":        3,
	"POLL_INTERVAL":       "5s",
	"CACHE_TTL":           "2m",
	"REDIS_HOST":          "",
	"REDIS_PORT":          "6379",
	"REDIS_PASSWORD":      "",
	"PAPERTRAIL":          "",
	"PAPERTRAIL_APP_NAME": "swiftfiat-payouts",
	"SIGNING_KEY":         "",
	"MOCK_PORT":           8090,
	"MOCK_SETTLE_DELAY":   "10s",
	"MOCK_SALT":           "swiftfiat-payouts",
}

func LoadConfig(path string) (*Config, error) {
	var config Config
	if err := LoadCustomConfig(path, &config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	u, err := url.Parse(config.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", config.APIBaseURL)
	}

	if config.VerifyTimeout <= 0 || config.SubmitTimeout <= 0 || config.ReadTimeout <= 0 {
		return fmt.Errorf("gateway timeouts must be positive")
	}

	if config.ReadRetries < 0 {
		return fmt.Errorf("READ_RETRIES cannot be negative")
	}

	if config.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least one second")
	}

	return nil
}

// Redact masks sensitive values so the config can be logged
func (c *Config) Redact() Config {
	redacted := *c
	if redacted.AccessToken != "" {
		redacted.AccessToken = "****"
	}
	if redacted.RedisPassword != "" {
		redacted.RedisPassword = "****"
	}
	if redacted.SigningKey != "" {
		redacted.SigningKey = "****"
	}
	return redacted
}

// RedisEnabled reports whether a shared redis tier was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func LoadCustomConfig(path string, val interface{}) error {
	// Validate that the path is not empty
	if path == "" {
		path = "."
	}

	// Create a new Viper instance to avoid global state
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("")
	v.AutomaticEnv()

	// Configure config file
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Log the error, but don't fail entirely
		log.Printf("Warning: Unable to read config file: %v", err)
	}

	if err := v.Unmarshal(val); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}
