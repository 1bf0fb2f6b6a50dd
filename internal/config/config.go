package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anime-shed/morph-inspector-go/internal/analyzer"
	"github.com/anime-shed/morph-inspector-go/internal/storage"
	"github.com/anime-shed/morph-inspector-go/pkg/validation"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64
	MaxImageBytes      int64
	MaxImagePixels     int
	LogLevel           string

	// Detection
	ParallelAnalyzers bool
	MaxWorkers        int
	TextureDescriptor analyzer.TextureDescriptor

	// Sources
	// AllowedImageHosts restricts http(s) sources and their redirect
	// targets to these host[:port] values; empty allows every host
	AllowedImageHosts   []string
	LocalImageRoot      string
	AzureStorageAccount string
	AzureStorageKey     string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// DetectionOptions returns the analyzer options described by c
func (c *Config) DetectionOptions() analyzer.DetectionOptions {
	return analyzer.DefaultOptions().
		WithParallel(c.ParallelAnalyzers).
		WithMaxWorkers(c.MaxWorkers).
		WithTextureDescriptor(c.TextureDescriptor)
}

// URLValidator returns the validator applied to http(s) sources
func (c *Config) URLValidator() *validation.URLValidator {
	return validation.NewURLValidatorWithOptions([]string{"http", "https"}, c.AllowedImageHosts)
}

// ImageLimits returns the byte and pixel limits applied to every source
func (c *Config) ImageLimits() storage.Limits {
	return storage.Limits{MaxBytes: c.MaxImageBytes, MaxPixels: c.MaxImagePixels}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("image_fetch_timeout", 15*time.Second)
	v.SetDefault("analysis_timeout", 20*time.Second)
	v.SetDefault("max_request_body_size", 10*1024*1024) // 10MB
	v.SetDefault("max_image_bytes", storage.DefaultMaxImageBytes)
	v.SetDefault("max_image_pixels", storage.DefaultMaxImagePixels)
	v.SetDefault("allowed_image_hosts", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("parallel_analyzers", true)
	v.SetDefault("max_workers", 0)
	v.SetDefault("texture_descriptor", string(analyzer.TextureLBP))
	v.SetDefault("local_image_root", "")
	v.SetDefault("azure_storage_account", "")
	v.SetDefault("azure_storage_key", "")
}

// LoadFromEnv reads the configuration from environment variables, falling
// back to defaults for unset keys
func LoadFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	descriptor, err := analyzer.ParseTextureDescriptor(strings.TrimSpace(v.GetString("texture_descriptor")))
	if err != nil {
		return nil, fmt.Errorf("invalid TEXTURE_DESCRIPTOR: %w", err)
	}

	cfg := &Config{
		Host:                v.GetString("host"),
		Port:                v.GetString("port"),
		RequestTimeout:      v.GetDuration("request_timeout"),
		ImageFetchTimeout:   v.GetDuration("image_fetch_timeout"),
		AnalysisTimeout:     v.GetDuration("analysis_timeout"),
		MaxRequestBodySize:  v.GetInt64("max_request_body_size"),
		MaxImageBytes:       v.GetInt64("max_image_bytes"),
		MaxImagePixels:      v.GetInt("max_image_pixels"),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		ParallelAnalyzers:   v.GetBool("parallel_analyzers"),
		MaxWorkers:          v.GetInt("max_workers"),
		TextureDescriptor:   descriptor,
		AllowedImageHosts:   splitList(v.GetString("allowed_image_hosts")),
		LocalImageRoot:      strings.TrimSpace(v.GetString("local_image_root")),
		AzureStorageAccount: strings.TrimSpace(v.GetString("azure_storage_account")),
		AzureStorageKey:     v.GetString("azure_storage_key"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be > 0 (got %d)", c.MaxImageBytes)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", c.MaxImagePixels)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("MAX_WORKERS must be >= 0 (got %d)", c.MaxWorkers)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.LogLevel)
	}
	return nil
}

// splitList parses a comma separated setting, dropping blank entries
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
