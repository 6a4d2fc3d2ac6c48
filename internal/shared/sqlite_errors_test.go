package shared

import (
	"context"
	"errors"
	"testing"
)

func TestIsSQLiteConflictError(t *testing.T) {
	cases := map[string]bool{
		"SQLITE_BUSY: database busy": true,
		"database is locked":         true,
		"no such table: tts_clips":   false,
	}
	for msg, want := range cases {
		if got := IsSQLiteConflictError(errors.New(msg)); got != want {
			t.Errorf("IsSQLiteConflictError(%q) = %v, want %v", msg, got, want)
		}
	}
	if IsSQLiteConflictError(nil) {
		t.Error("expected nil error not to be a conflict")
	}
}

func TestRetryOnConflictRetriesBusy(t *testing.T) {
	attempts := 0
	err := RetryOnConflict(context.Background(), "test", func() error {
		attempts++
		if attempts < 2 {
			return errors.New("SQLITE_BUSY")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryOnConflictGivesUp(t *testing.T) {
	attempts := 0
	err := RetryOnConflict(context.Background(), "test", func() error {
		attempts++
		return errors.New("database is locked")
	})
	if err == nil || attempts != conflictMaxRetries {
		t.Fatalf("expected failure after %d attempts, got err=%v attempts=%d", conflictMaxRetries, err, attempts)
	}
}

func TestRetryOnConflictReturnsOtherErrors(t *testing.T) {
	attempts := 0
	boom := errors.New("boom")
	err := RetryOnConflict(context.Background(), "test", func() error {
		attempts++
		return boom
	})
	if !errors.Is(err, boom) || attempts != 1 {
		t.Fatalf("expected immediate boom, got err=%v attempts=%d", err, attempts)
	}
}
