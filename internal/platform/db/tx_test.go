package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func serializationErr() error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: serializationFailure, Message: "could not serialize access"})
}

func TestWithRetryRetriesSerializationFailures(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		if calls < 3 {
			return serializationErr()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestWithRetryGivesUpAfterThreeAttempts(t *testing.T) {
	calls := 0
	err := withRetry(func() error {
		calls++
		return serializationErr()
	})
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != serializationFailure {
		t.Fatalf("expected serialization failure to surface, got %v", err)
	}
}

func TestWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	sentinel := errors.New("constraint violation")
	calls := 0
	err := withRetry(func() error {
		calls++
		return sentinel
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
}
