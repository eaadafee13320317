package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
	Bucket       string
	// Inferred is set when the mode was derived from STORAGE_EMULATOR_HOST
	// rather than OBJECT_STORAGE_MODE.
	Inferred bool
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool {
	return cfg.Mode == ObjectStorageModeGCSEmulator
}

type ObjectStorageConfigError struct {
	Field  string
	Value  string
	Reason string
	Cause  error
}

func (e *ObjectStorageConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	if e.Value == "" {
		return fmt.Sprintf("invalid object storage config: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid object storage config: %s=%q %s", e.Field, e.Value, e.Reason)
}

func (e *ObjectStorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func ResolveObjectStorageConfigFromEnv() (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		EmulatorHost: strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/"),
		Bucket:       strings.TrimSpace(os.Getenv("REPORT_GCS_BUCKET_NAME")),
	}
	raw := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_MODE"))
	switch ObjectStorageMode(strings.ToLower(raw)) {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
			cfg.Inferred = true
		}
	case ObjectStorageModeGCS:
		cfg.Mode = ObjectStorageModeGCS
	case ObjectStorageModeGCSEmulator:
		cfg.Mode = ObjectStorageModeGCSEmulator
	default:
		return cfg, &ObjectStorageConfigError{
			Field:  "OBJECT_STORAGE_MODE",
			Value:  raw,
			Reason: fmt.Sprintf("must be %q or %q", ObjectStorageModeGCS, ObjectStorageModeGCSEmulator),
		}
	}
	return cfg, ValidateObjectStorageConfig(cfg)
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator:
	default:
		return &ObjectStorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode), Reason: "is not supported"}
	}
	if cfg.Bucket == "" {
		return &ObjectStorageConfigError{Field: "REPORT_GCS_BUCKET_NAME", Reason: "is required"}
	}
	if !cfg.IsEmulatorMode() {
		return nil
	}
	if cfg.EmulatorHost == "" {
		return &ObjectStorageConfigError{Field: "STORAGE_EMULATOR_HOST", Reason: "is required in gcs_emulator mode"}
	}
	u, err := url.Parse(cfg.EmulatorHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ObjectStorageConfigError{
			Field:  "STORAGE_EMULATOR_HOST",
			Value:  cfg.EmulatorHost,
			Reason: "must be an absolute URL like http://fake-gcs:4443",
			Cause:  err,
		}
	}
	return nil
}
