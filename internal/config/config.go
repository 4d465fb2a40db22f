// Package config parses and validates all application configuration from
// environment variables using caarlos0/env/v11.
//
// Call [Load] once at startup; pass the resulting [Config] to subcommands.
// The process exits if any field tagged "required" is missing.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration sourced from environment variables.
type Config struct {
	// ── Database ─────────────────────────────────────────────────────────────────
	DatabaseURL          string        `env:"DATABASE_URL,required"`
	DBMaxConns           int32         `env:"DB_MAX_CONNS"            envDefault:"10"`
	DBMaxConnIdleTime    time.Duration `env:"DB_MAX_CONN_IDLE_TIME"   envDefault:"5m"`
	DBStatementTimeoutMS int           `env:"DB_STATEMENT_TIMEOUT_MS" envDefault:"30000"`
	// DBQueryExecMode: "simple_protocol" (PgBouncer-compatible) or "extended_protocol".
	DBQueryExecMode string `env:"DB_QUERY_EXEC_MODE" envDefault:"simple_protocol"`

	// ── OCR endpoint ─────────────────────────────────────────────────────────────
	OCRAPIURL         string        `env:"OCR_API_URL,required"`
	OCRRequestTimeout time.Duration `env:"OCR_REQUEST_TIMEOUT" envDefault:"300s"`

	// ── OCR response mapping ─────────────────────────────────────────────────────
	// Deployed OCR engines disagree on response field names; the mapping is
	// configuration so a deployment can be switched without a rebuild.
	OCRSuccessField  string   `env:"OCR_SUCCESS_FIELD"  envDefault:"status"`
	OCRSuccessValue  string   `env:"OCR_SUCCESS_VALUE"  envDefault:"success"`
	OCRContentFields []string `env:"OCR_CONTENT_FIELDS" envDefault:"markdown_content,content"`
	OCRPathFields    []string `env:"OCR_PATH_FIELDS"    envDefault:"merged_markdown"`
	OCRURLFields     []string `env:"OCR_URL_FIELDS"     envDefault:"dl_url,download_url"`
	// When true, an HTTP 200 with an unparsable JSON body marks the job
	// error instead of completed-with-empty-result.
	OCRStrictResponse bool `env:"OCR_STRICT_RESPONSE" envDefault:"false"`

	// ── Pipeline ─────────────────────────────────────────────────────────────────
	QueueCapacity      int `env:"QUEUE_CAPACITY"      envDefault:"1"`
	ConcurrentRequests int `env:"CONCURRENT_REQUESTS" envDefault:"1"`
	// WorkerCount 0 means one worker per queue slot, minimum one.
	WorkerCount  int           `env:"WORKER_COUNT"   envDefault:"0"`
	PollInterval time.Duration `env:"POLL_INTERVAL"  envDefault:"5s"`
	FileBasePath string        `env:"FILE_BASE_PATH" envDefault:"/var/lib/ocrflow/uploads"`

	// ── Server ───────────────────────────────────────────────────────────────────
	ListenAddr             string `env:"LISTEN_ADDR"              envDefault:":8080"`
	AppEnv                 string `env:"APP_ENV"                  envDefault:"development"`
	ShutdownTimeoutSeconds int    `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"60"`

	// ── Logging ──────────────────────────────────────────────────────────────────
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses and returns Config from environment variables.
// Returns an error if any required field is missing or a value fails validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be >= 1, got %d", c.QueueCapacity)
	}
	if c.ConcurrentRequests < 1 {
		return fmt.Errorf("CONCURRENT_REQUESTS must be >= 1, got %d", c.ConcurrentRequests)
	}
	if c.WorkerCount < 0 {
		return fmt.Errorf("WORKER_COUNT must be >= 0, got %d", c.WorkerCount)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if len(c.OCRContentFields) == 0 && len(c.OCRPathFields) == 0 {
		return fmt.Errorf("at least one of OCR_CONTENT_FIELDS or OCR_PATH_FIELDS must be set")
	}
	return nil
}

// Workers returns the effective dispatcher worker count: WorkerCount when
// set, otherwise one worker per queue slot (minimum one).
func (c *Config) Workers() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	if c.QueueCapacity > 1 {
		return c.QueueCapacity
	}
	return 1
}

// IsDevelopment reports whether the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
