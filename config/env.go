package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FromEnv builds a Config starting from Default() and overlaying environment
// variables in the style of hyperifyio-goresearch's ApplyEnvToConfig: every
// variable that is set (and, for numeric keys, parses) overrides the
// default; unset variables leave the default in place. It returns an error if either
// required variable (QUEUE_URL, S3_BUCKET) is absent, per spec.md §7's fatal
// startup conditions.
func FromEnv() (*Config, error) {
	cfg := Default()
	applyEnvToConfig(cfg)

	if cfg.Queue.URL == "" {
		return nil, fmt.Errorf("config: QUEUE_URL is required")
	}
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("config: S3_BUCKET is required")
	}
	return cfg, nil
}

func applyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Queue.Region = v
	}
	if v := os.Getenv("QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		cfg.Proxy.BaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("S3_PREFIX_RECORDS"); v != "" {
		cfg.Storage.PrefixRecords = v
	}
	if v := os.Getenv("COMPRESS_CODEC"); v != "" {
		cfg.Storage.CompressCodec = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		cfg.PostgresDSN = v
	}

	setInt := func(dst *int, envKey string) {
		if s := os.Getenv(envKey); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				*dst = n
			}
		}
	}
	setInt32 := func(dst *int32, envKey string) {
		if s := os.Getenv(envKey); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				*dst = int32(n)
			}
		}
	}
	setFloatSeconds := func(dst *time.Duration, envKey string) {
		if s := os.Getenv(envKey); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				*dst = time.Duration(f * float64(time.Second))
			}
		}
	}

	setInt(&cfg.Concurrency.MaxConcurrency, "MAX_CONCURRENCY")
	setFloatSeconds(&cfg.Fetch.TimeoutS, "REQUEST_TIMEOUT_S")
	setInt(&cfg.Fetch.RetryLimit, "RETRY_LIMIT")
	setInt32(&cfg.Queue.WaitTimeSeconds, "SQS_WAIT_TIME_SECONDS")
	setFloatSeconds(&cfg.Queue.IdleSleep, "SQS_IDLE_SLEEP_S")

	if s := os.Getenv("BACKOFF_BASE_MS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			cfg.Fetch.BackoffBase = time.Duration(n) * time.Millisecond
		}
	}
}
