package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/autofill/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Zero values
// leave the corresponding Config field untouched.
type JsonConfig struct {
	StorageBackend string `json:"storage_backend"`
	StoragePath    string `json:"storage_path"`
	PostgresDSN    string `json:"postgres_dsn"`

	S3Bucket       string `json:"s3_bucket"`
	S3Prefix       string `json:"s3_prefix"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`

	RelayAddr         string   `json:"relay_addr"`
	RelayExtensionIDs []string `json:"relay_extension_ids"`

	DispatchAttempts int            `json:"dispatch_attempts"`
	DispatchDelay    timex.Duration `json:"dispatch_delay"`
	FillAttempts     int            `json:"fill_attempts"`
	FillDelay        timex.Duration `json:"fill_delay"`

	StatusTTL timex.Duration `json:"status_ttl"`
	ErrorTTL  timex.Duration `json:"error_ttl"`

	FetchTimeout timex.Duration `json:"fetch_timeout"`
	FetchRetries int            `json:"fetch_retries"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.StorageBackend, jc.StorageBackend)
	setString(&cfg.StoragePath, jc.StoragePath)
	setString(&cfg.PostgresDSN, jc.PostgresDSN)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Prefix, jc.S3Prefix)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.RelayAddr, jc.RelayAddr)
	if len(jc.RelayExtensionIDs) > 0 {
		cfg.RelayExtensionIDs = jc.RelayExtensionIDs
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.DispatchAttempts > 0 {
		cfg.DispatchAttempts = jc.DispatchAttempts
	}
	if jc.FillAttempts > 0 {
		cfg.FillAttempts = jc.FillAttempts
	}
	if jc.FetchRetries > 0 {
		cfg.FetchRetries = jc.FetchRetries
	}
	if jc.DispatchDelay.Duration > 0 {
		cfg.DispatchDelay = jc.DispatchDelay.Duration
	}
	if jc.FillDelay.Duration > 0 {
		cfg.FillDelay = jc.FillDelay.Duration
	}
	if jc.StatusTTL.Duration > 0 {
		cfg.StatusTTL = jc.StatusTTL.Duration
	}
	if jc.ErrorTTL.Duration > 0 {
		cfg.ErrorTTL = jc.ErrorTTL.Duration
	}
	if jc.FetchTimeout.Duration > 0 {
		cfg.FetchTimeout = jc.FetchTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
