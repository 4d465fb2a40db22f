package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/katsurao/ocrflow/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/ocrflow")
	t.Setenv("OCR_API_URL", "http://ocr-api:5000/ocr")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.QueueCapacity != 1 {
		t.Errorf("QueueCapacity = %d, want 1", cfg.QueueCapacity)
	}
	if cfg.ConcurrentRequests != 1 {
		t.Errorf("ConcurrentRequests = %d, want 1", cfg.ConcurrentRequests)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %s, want 5s", cfg.PollInterval)
	}
	if cfg.OCRRequestTimeout != 300*time.Second {
		t.Errorf("OCRRequestTimeout = %s, want 300s", cfg.OCRRequestTimeout)
	}
	if cfg.OCRStrictResponse {
		t.Error("OCRStrictResponse should default to false")
	}
	if got := strings.Join(cfg.OCRContentFields, ","); got != "markdown_content,content" {
		t.Errorf("OCRContentFields = %q, want markdown_content,content", got)
	}
	if got := strings.Join(cfg.OCRURLFields, ","); got != "dl_url,download_url" {
		t.Errorf("OCRURLFields = %q, want dl_url,download_url", got)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OCR_API_URL", "http://ocr-api:5000/ocr")

	if _, err := config.Load(); err == nil {
		t.Fatal("Load without DATABASE_URL should fail")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for _, tc := range []struct {
		name  string
		key   string
		value string
	}{
		{"zero capacity", "QUEUE_CAPACITY", "0"},
		{"zero concurrency", "CONCURRENT_REQUESTS", "0"},
		{"negative workers", "WORKER_COUNT", "-1"},
		{"zero interval", "POLL_INTERVAL", "0s"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)
			if _, err := config.Load(); err == nil {
				t.Errorf("Load with %s=%s should fail", tc.key, tc.value)
			}
		})
	}
}

func TestWorkers(t *testing.T) {
	for _, tc := range []struct {
		capacity, workerCount, want int
	}{
		{1, 0, 1},  // default: one worker per slot, minimum one
		{4, 0, 4},  // default scales with capacity
		{4, 2, 2},  // explicit override wins
		{1, 8, 8},  // workers may exceed capacity
	} {
		cfg := &config.Config{QueueCapacity: tc.capacity, WorkerCount: tc.workerCount}
		if got := cfg.Workers(); got != tc.want {
			t.Errorf("Workers(cap=%d, count=%d) = %d, want %d",
				tc.capacity, tc.workerCount, got, tc.want)
		}
	}
}

func TestResponseMappingOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("OCR_SUCCESS_FIELD", "completed")
	t.Setenv("OCR_SUCCESS_VALUE", "true")
	t.Setenv("OCR_CONTENT_FIELDS", "text,body")
	t.Setenv("OCR_URL_FIELDS", "download_url")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OCRSuccessField != "completed" || cfg.OCRSuccessValue != "true" {
		t.Errorf("success mapping = %s=%s, want completed=true",
			cfg.OCRSuccessField, cfg.OCRSuccessValue)
	}
	if len(cfg.OCRContentFields) != 2 || cfg.OCRContentFields[0] != "text" {
		t.Errorf("OCRContentFields = %v, want [text body]", cfg.OCRContentFields)
	}
}
