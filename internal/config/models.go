package config

import (
	"fmt"
	"time"
)

// HTTPConfig represents the configuration for the HTTP API
type HTTPConfig struct {
	Enabled         bool
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Mode            string
	AllowedOrigins  []string
}

// ModelsConfig represents where the model artifacts live
type ModelsConfig struct {
	Source      string
	Dir         string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	Vectorizer  string
	Forest      string
	Tokenizer   string
	Sequence    string
	MaxWords    int
	MaxLen      int
	LoadTimeout time.Duration
}

// ScanConfig represents the detection pipeline settings
type ScanConfig struct {
	MaxContentSize     int
	WhitelistedDomains []string
}

// CacheConfig represents the result cache settings
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	MaxEntries       int
	SQLitePath       string
	MySQLDSN         string
	RedisAddress     string
	RedisPassword    string
	RedisDB          int
}

// SMTPConfig represents the configuration for the Postfix content filter
type SMTPConfig struct {
	Enabled          bool
	ListenAddress    string
	BlockPhishing    bool
	MaxMessageBytes  int64
	StatusHeader     string
	ConfidenceHeader string
	ScanIDHeader     string
	SubjectPrefix    string
	ModifySubject    bool
	PostfixEnabled   bool
	PostfixAddress   string
	PostfixPort      int
}

// GetServer returns the HTTP API configuration
func (c *Config) GetServer() (HTTPConfig, error) {
	read, err := c.GetDuration("server.http.read_timeout")
	if err != nil {
		return HTTPConfig{}, fmt.Errorf("invalid read timeout: %w", err)
	}
	write, err := c.GetDuration("server.http.write_timeout")
	if err != nil {
		return HTTPConfig{}, fmt.Errorf("invalid write timeout: %w", err)
	}
	shutdown, err := c.GetDuration("server.http.shutdown_timeout")
	if err != nil {
		return HTTPConfig{}, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	mode := c.GetString("server.http.mode")
	switch mode {
	case "", "debug", "release", "test":
	default:
		return HTTPConfig{}, fmt.Errorf("invalid server mode %q, want debug, release or test", mode)
	}
	return HTTPConfig{
		Enabled:         c.GetBool("server.http.enabled"),
		ListenAddress:   c.GetString("server.http.listen_address"),
		ReadTimeout:     read,
		WriteTimeout:    write,
		ShutdownTimeout: shutdown,
		Mode:            mode,
		AllowedOrigins:  c.GetStringSlice("server.http.allowed_origins"),
	}, nil
}

// GetModels returns the model artifact configuration
func (c *Config) GetModels() (ModelsConfig, error) {
	timeout, err := c.GetDuration("models.load_timeout")
	if err != nil {
		return ModelsConfig{}, fmt.Errorf("invalid model load timeout: %w", err)
	}
	return ModelsConfig{
		Source:      c.GetString("models.source"),
		Dir:         c.GetString("models.dir"),
		S3Bucket:    c.GetString("models.s3.bucket"),
		S3Prefix:    c.GetString("models.s3.prefix"),
		S3Region:    c.GetString("models.s3.region"),
		Vectorizer:  c.GetString("models.vectorizer"),
		Forest:      c.GetString("models.forest"),
		Tokenizer:   c.GetString("models.tokenizer"),
		Sequence:    c.GetString("models.sequence"),
		MaxWords:    c.GetInt("models.max_words"),
		MaxLen:      c.GetInt("models.max_len"),
		LoadTimeout: timeout,
	}, nil
}

// GetScan returns the detection pipeline configuration
func (c *Config) GetScan() ScanConfig {
	return ScanConfig{
		MaxContentSize:     c.GetInt("scan.max_content_size"),
		WhitelistedDomains: c.GetStringSlice("scan.whitelisted_domains"),
	}
}

// GetCache returns the result cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache ttl: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		MaxEntries:       c.GetInt("cache.max_entries"),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddress:     c.GetString("cache.redis.address"),
		RedisPassword:    c.GetString("cache.redis.password"),
		RedisDB:          c.GetInt("cache.redis.db"),
	}, nil
}

// GetSMTP returns the SMTP content filter configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:          c.GetBool("smtp.enabled"),
		ListenAddress:    c.GetString("smtp.listen_address"),
		BlockPhishing:    c.GetBool("smtp.block_phishing"),
		MaxMessageBytes:  c.GetViper().GetInt64("smtp.max_message_bytes"),
		StatusHeader:     c.GetString("smtp.headers.status"),
		ConfidenceHeader: c.GetString("smtp.headers.confidence"),
		ScanIDHeader:     c.GetString("smtp.headers.scan_id"),
		SubjectPrefix:    c.GetString("smtp.subject_prefix"),
		ModifySubject:    c.GetBool("smtp.modify_subject"),
		PostfixEnabled:   c.GetBool("smtp.postfix.enabled"),
		PostfixAddress:   c.GetString("smtp.postfix.address"),
		PostfixPort:      c.GetInt("smtp.postfix.port"),
	}
}
