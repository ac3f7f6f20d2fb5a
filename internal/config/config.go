package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phishguard/")
	v.AddConfigPath("$HOME/.phishguard")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("PHISHGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISHGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	// HTTP API defaults
	v.SetDefault("server.http.enabled", true)
	v.SetDefault("server.http.listen_address", "127.0.0.1:5000")
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "60s")
	v.SetDefault("server.http.shutdown_timeout", "10s")
	v.SetDefault("server.http.mode", "release")
	v.SetDefault("server.http.allowed_origins", []string{"*"})

	// Model artifact defaults
	v.SetDefault("models.source", "file")
	v.SetDefault("models.dir", "./models")
	v.SetDefault("models.s3.bucket", "")
	v.SetDefault("models.s3.prefix", "")
	v.SetDefault("models.s3.region", "us-east-1")
	v.SetDefault("models.vectorizer", "tfidf_combined.json")
	v.SetDefault("models.forest", "rf_model_combined.json")
	v.SetDefault("models.tokenizer", "tokenizer_combined.json")
	v.SetDefault("models.sequence", "lstm_model_combined.json")
	v.SetDefault("models.max_words", 5000)
	v.SetDefault("models.max_len", 200)
	v.SetDefault("models.load_timeout", "2m")

	// Scan defaults
	v.SetDefault("scan.max_content_size", 0)
	v.SetDefault("scan.whitelisted_domains", []string{})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.sqlite_path", "/data/phishguard_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/phishguard")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	// SMTP content filter defaults
	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.listen_address", "0.0.0.0:10025")
	v.SetDefault("smtp.block_phishing", false)
	v.SetDefault("smtp.max_message_bytes", 30*1024*1024)
	v.SetDefault("smtp.headers.status", "X-Phishing-Status")
	v.SetDefault("smtp.headers.confidence", "X-Phishing-Confidence")
	v.SetDefault("smtp.headers.scan_id", "X-Phishing-Scan-Id")
	v.SetDefault("smtp.subject_prefix", "[PHISHING] ")
	v.SetDefault("smtp.modify_subject", false)
	v.SetDefault("smtp.postfix.enabled", true)
	v.SetDefault("smtp.postfix.address", "localhost")
	v.SetDefault("smtp.postfix.port", 10026)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
