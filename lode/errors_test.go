package lode

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		errMsg   string
		wantKind error
	}{
		{"context deadline exceeded", ErrTimeout},
		{"connection timeout after 30s", ErrTimeout},
		{"AccessDenied: you do not have access", ErrAccessDenied},
		{"received status 403", ErrAccessDenied},
		{"permission denied for /data/journal", ErrPermissionDenied},
		{"open /tmp/file: EACCES", ErrPermissionDenied},
		{"write /data/journal: no space left on device", ErrDiskFull},
		{"quota exceeded for user", ErrDiskFull},
		{"no such file or directory", ErrNotFound},
		{"NoSuchKey: The specified key does not exist", ErrNotFound},
		{"received status 429", ErrThrottled},
		{"SlowDown: please reduce request rate", ErrThrottled},
		{"NoCredentialProviders: no valid providers in chain", ErrAuth},
		{"received status 401", ErrAuth},
		{"dial tcp 127.0.0.1:9000: connection refused", ErrNetwork},
		{"DNS lookup failed for bucket.s3.amazonaws.com", ErrNetwork},
		{"something completely unexpected happened", ErrUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.errMsg, func(t *testing.T) {
			got := classifyError(errors.New(tt.errMsg))
			if !errors.Is(got, tt.wantKind) {
				t.Errorf("classifyError(%q) = %v, want %v", tt.errMsg, got, tt.wantKind)
			}
		})
	}
}

func TestClassifyError_TimeoutInterface(t *testing.T) {
	err := fmt.Errorf("put object: %w", context.DeadlineExceeded)
	if got := classifyError(err); got != ErrTimeout {
		t.Errorf("classifyError() = %v, want %v", got, ErrTimeout)
	}
	if got := classifyError(nil); got != nil {
		t.Errorf("classifyError(nil) = %v, want nil", got)
	}
}

func TestStorageError(t *testing.T) {
	underlying := errors.New("open /journal: permission denied")
	err := WrapWriteError(underlying, "scanport/origin=optical")

	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("errors.Is(err, ErrPermissionDenied) = false, want true")
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is(err, underlying) = false, want true")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = true, want false")
	}

	se, ok := AsStorageError(fmt.Errorf("append: %w", err))
	if !ok {
		t.Fatal("AsStorageError() ok = false, want true")
	}
	if se.Op != "write" {
		t.Errorf("Op = %q, want %q", se.Op, "write")
	}
	if se.Path != "scanport/origin=optical" {
		t.Errorf("Path = %q, want %q", se.Path, "scanport/origin=optical")
	}

	if WrapReadError(nil, "x") != nil {
		t.Error("WrapReadError(nil) should be nil")
	}
}
