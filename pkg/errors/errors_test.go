package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrIssueNotFound.WithInternal(stdErrors.New("404")))

	if !stdErrors.Is(wrapped, ErrIssueNotFound) {
		t.Fatal("expected copy to match sentinel by code")
	}
	if stdErrors.Is(wrapped, ErrUpstreamForbidden) {
		t.Fatal("expected different code not to match")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

type convertible struct{}

func (convertible) Error() string { return "convertible" }

func (convertible) AsAppError() *AppError { return ErrUpstreamRateLimited }

func TestFromErrorUsesConverter(t *testing.T) {
	out := FromError(fmt.Errorf("fetch: %w", convertible{}))
	if out.Code != ErrUpstreamRateLimited.Code {
		t.Fatalf("expected rate limited code, got %s", out.Code)
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid issue number")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid issue number" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}
