package app

import (
	"errors"
	"testing"

	"github.com/yungbote/labreport-backend/internal/platform/gcp"
	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

func TestClassifyStorageBootstrapError(t *testing.T) {
	cases := []struct {
		field string
		want  StorageBootstrapErrorCode
	}{
		{"OBJECT_STORAGE_MODE", StorageBootstrapInvalidMode},
		{"REPORT_GCS_BUCKET_NAME", StorageBootstrapMissingBucket},
		{"STORAGE_EMULATOR_HOST", StorageBootstrapInvalidEmulatorHost},
	}
	for _, tc := range cases {
		err := classifyStorageBootstrapError(gcp.ObjectStorageConfig{Mode: gcp.ObjectStorageModeGCSEmulator},
			&gcp.ObjectStorageConfigError{Field: tc.field, Reason: "bad"})
		var got *StorageBootstrapError
		if !errors.As(err, &got) {
			t.Fatalf("%s: expected StorageBootstrapError, got %T", tc.field, err)
		}
		if got.Code != tc.want {
			t.Fatalf("%s: code want=%q got=%q", tc.field, tc.want, got.Code)
		}
	}

	err := classifyStorageBootstrapError(gcp.ObjectStorageConfig{}, errors.New("dial tcp: refused"))
	var got *StorageBootstrapError
	if !errors.As(err, &got) || got.Code != StorageBootstrapConnectFailed {
		t.Fatalf("generic failure: %v", err)
	}
}

func TestResolveBucketServiceStopsOnConfigError(t *testing.T) {
	origResolve, origNew := resolveObjectStorageConfig, newBucketServiceWithConfig
	t.Cleanup(func() {
		resolveObjectStorageConfig, newBucketServiceWithConfig = origResolve, origNew
	})
	called := false
	resolveObjectStorageConfig = func() (gcp.ObjectStorageConfig, error) {
		return gcp.ObjectStorageConfig{Mode: gcp.ObjectStorageModeGCS},
			&gcp.ObjectStorageConfigError{Field: "REPORT_GCS_BUCKET_NAME", Reason: "is required"}
	}
	newBucketServiceWithConfig = func(*logger.Logger, gcp.ObjectStorageConfig) (gcp.BucketService, error) {
		called = true
		return nil, nil
	}

	_, err := resolveBucketService(logger.Nop())
	var got *StorageBootstrapError
	if !errors.As(err, &got) || got.Code != StorageBootstrapMissingBucket {
		t.Fatalf("want missing_bucket, got %v", err)
	}
	if called {
		t.Fatalf("bucket client built despite config error")
	}
}

func TestResolveBucketServiceWrapsConnectFailure(t *testing.T) {
	origResolve, origNew := resolveObjectStorageConfig, newBucketServiceWithConfig
	t.Cleanup(func() {
		resolveObjectStorageConfig, newBucketServiceWithConfig = origResolve, origNew
	})
	resolveObjectStorageConfig = func() (gcp.ObjectStorageConfig, error) {
		return gcp.ObjectStorageConfig{Mode: gcp.ObjectStorageModeGCS, Bucket: "reports"}, nil
	}
	cause := errors.New("no credentials")
	newBucketServiceWithConfig = func(*logger.Logger, gcp.ObjectStorageConfig) (gcp.BucketService, error) {
		return nil, cause
	}

	_, err := resolveBucketService(logger.Nop())
	var got *StorageBootstrapError
	if !errors.As(err, &got) || got.Code != StorageBootstrapConnectFailed || !errors.Is(err, cause) {
		t.Fatalf("want connect_failed wrapping cause, got %v", err)
	}
}
