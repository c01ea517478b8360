package domain

import (
	"fmt"
	"testing"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewNotFoundError("item", "abc")
	want := "NOT_FOUND: item not found (ID: abc)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := NewInternalError("boom")
	if bare.Error() != "INTERNAL_ERROR: boom" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestGetDomainErrorUnwraps(t *testing.T) {
	inner := NewConflictError("pricing rule", "supplier discount")
	wrapped := fmt.Errorf("failed to upsert: %w", inner)

	de := GetDomainError(wrapped)
	if de == nil {
		t.Fatal("expected a domain error through the wrap chain")
	}
	if de.Code != ErrCodeConflict {
		t.Errorf("Code = %s, want %s", de.Code, ErrCodeConflict)
	}

	if GetDomainError(fmt.Errorf("plain")) != nil {
		t.Error("plain error should not yield a domain error")
	}
}

func TestIsConflict(t *testing.T) {
	if !IsConflict(NewConflictError("row", "")) {
		t.Error("conflict error not recognized")
	}
	if IsConflict(NewNotFoundError("row", "x")) {
		t.Error("not-found error must not count as conflict")
	}
	if IsConflict(nil) {
		t.Error("nil must not count as conflict")
	}
}
