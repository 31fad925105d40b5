package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API       APIConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Office    OfficeConfig
	Tracing   TracingConfig
	Usage     UsageConfig
	Log       LogConfig
}

type APIConfig struct {
	Addr        string
	MaxUploadMB int
}

// MaxUploadBytes is the per-request body limit.
func (a APIConfig) MaxUploadBytes() int64 {
	return int64(a.MaxUploadMB) << 20
}

type PipelineConfig struct {
	DisablePrimary   bool
	DisableSecondary bool
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Enabled reports whether requests are limited at all.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && r.Window > 0
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OfficeConfig struct {
	Binary  string
	Timeout time.Duration
}

type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
}

type UsageConfig struct {
	DSN string
}

type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"IMAGETOOLS_API_ADDR":          ":8080",
	"IMAGETOOLS_MAX_UPLOAD_MB":     50,
	"IMAGETOOLS_DISABLE_PRIMARY":   false,
	"IMAGETOOLS_DISABLE_SECONDARY": false,
	"RATE_LIMIT_REQUESTS":          100,
	"RATE_LIMIT_WINDOW":            15 * time.Minute,
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"OFFICE_BINARY":                "soffice",
	"OFFICE_TIMEOUT":               60 * time.Second,
	"TRACE_EXPORTER":               "none",
	"OTLP_ENDPOINT":                "",
	"OTLP_INSECURE":                true,
	"TRACE_SAMPLE_RATIO":           1.0,
	"USAGE_DSN":                    "",
	"LOG_LEVEL":                    "info",
	"LOG_FORMAT":                   "json",
}

// Load reads configuration from the environment, on top of an optional YAML
// file named by IMAGETOOLS_CONFIG. Keys in the file use the same names as the
// environment variables.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(os.Getenv("IMAGETOOLS_CONFIG")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		API: APIConfig{
			Addr:        v.GetString("IMAGETOOLS_API_ADDR"),
			MaxUploadMB: v.GetInt("IMAGETOOLS_MAX_UPLOAD_MB"),
		},
		Pipeline: PipelineConfig{
			DisablePrimary:   v.GetBool("IMAGETOOLS_DISABLE_PRIMARY"),
			DisableSecondary: v.GetBool("IMAGETOOLS_DISABLE_SECONDARY"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Office: OfficeConfig{
			Binary:  v.GetString("OFFICE_BINARY"),
			Timeout: v.GetDuration("OFFICE_TIMEOUT"),
		},
		Tracing: TracingConfig{
			Exporter:     v.GetString("TRACE_EXPORTER"),
			OTLPEndpoint: v.GetString("OTLP_ENDPOINT"),
			OTLPInsecure: v.GetBool("OTLP_INSECURE"),
			SampleRatio:  v.GetFloat64("TRACE_SAMPLE_RATIO"),
		},
		Usage: UsageConfig{
			DSN: v.GetString("USAGE_DSN"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.API.MaxUploadMB <= 0 {
		return fmt.Errorf("IMAGETOOLS_MAX_UPLOAD_MB must be positive, got %d", c.API.MaxUploadMB)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative, got %d", c.RateLimit.Requests)
	}
	if c.Office.Timeout <= 0 {
		return fmt.Errorf("OFFICE_TIMEOUT must be positive, got %s", c.Office.Timeout)
	}
	return nil
}
