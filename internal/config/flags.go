package config

import (
	"github.com/spf13/pflag"
)

const (
	flagConfig           = "config"
	flagStorage          = "storage"
	flagStoragePath      = "storage-path"
	flagPostgresDSN      = "postgres-dsn"
	flagS3Bucket         = "s3-bucket"
	flagS3Endpoint       = "s3-endpoint"
	flagRelayAddr        = "relay-addr"
	flagRelayExtensionID = "relay-extension-id"
	flagDispatchAttempts = "dispatch-attempts"
	flagDispatchDelay    = "dispatch-delay"
	flagFillAttempts     = "fill-attempts"
	flagFillDelay        = "fill-delay"
	flagLogLevel         = "log-level"
	flagLogFormat        = "log-format"
)

// RegisterFlags declares the configuration flags on fs. Defaults shown in
// help text come from LoadDefaults; only flags the user actually sets
// override the file and environment.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(flagConfig, "c", "", "path to JSON config file")
	fs.String(flagStorage, d.StorageBackend, "storage backend: memory, sqlite, postgres or s3")
	fs.String(flagStoragePath, d.StoragePath, "sqlite database file")
	fs.String(flagPostgresDSN, d.PostgresDSN, "postgres DSN")
	fs.String(flagS3Bucket, d.S3Bucket, "bucket for the s3 backend")
	fs.String(flagS3Endpoint, d.S3BaseEndpoint, "base endpoint for the s3 backend")
	fs.String(flagRelayAddr, d.RelayAddr, "listen address of the websocket relay")
	fs.StringSlice(flagRelayExtensionID, nil, "extension id allowed to connect to the relay (repeatable; empty allows any extension)")
	fs.Int(flagDispatchAttempts, d.DispatchAttempts, "delivery attempts against the main frame")
	fs.Duration(flagDispatchDelay, d.DispatchDelay, "delay between main frame delivery attempts")
	fs.Int(flagFillAttempts, d.FillAttempts, "fill attempts inside a frame when no field matched")
	fs.Duration(flagFillDelay, d.FillDelay, "delay between fill attempts")
	fs.String(flagLogLevel, d.LogLevel, "log level: debug, info, warn, error")
	fs.String(flagLogFormat, d.LogFormat, "log format: text, json or zap")
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		flagStorage:     &cfg.StorageBackend,
		flagStoragePath: &cfg.StoragePath,
		flagPostgresDSN: &cfg.PostgresDSN,
		flagS3Bucket:    &cfg.S3Bucket,
		flagS3Endpoint:  &cfg.S3BaseEndpoint,
		flagRelayAddr:   &cfg.RelayAddr,
		flagLogLevel:    &cfg.LogLevel,
		flagLogFormat:   &cfg.LogFormat,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		flagDispatchAttempts: &cfg.DispatchAttempts,
		flagFillAttempts:     &cfg.FillAttempts,
	}
	for name, dst := range ints {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if fs.Changed(flagRelayExtensionID) {
		v, err := fs.GetStringSlice(flagRelayExtensionID)
		if err != nil {
			return err
		}
		cfg.RelayExtensionIDs = v
	}

	if fs.Changed(flagDispatchDelay) {
		v, err := fs.GetDuration(flagDispatchDelay)
		if err != nil {
			return err
		}
		cfg.DispatchDelay = v
	}
	if fs.Changed(flagFillDelay) {
		v, err := fs.GetDuration(flagFillDelay)
		if err != nil {
			return err
		}
		cfg.FillDelay = v
	}
	return nil
}
