package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataTable(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		exposed   bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, exposed: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, exposed: true},
		{code: CodeNotFound, status: http.StatusNotFound, exposed: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, retryable: true, exposed: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status || meta.Retryable != tt.retryable || meta.ExposeMessage != tt.exposed {
			t.Fatalf("code %s: unexpected metadata %+v", tt.code, meta)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
	}
	if MetadataFor("STALE_CODE").HTTPStatus != http.StatusInternalServerError {
		t.Fatal("unknown codes should render as internal errors")
	}
}

func TestEveryCodeRoundTripsThroughItsStatus(t *testing.T) {
	for code, meta := range metadataByCode {
		if code == CodeInternal {
			continue
		}
		if got := FromHTTPStatus(meta.HTTPStatus); got != code {
			t.Fatalf("status %d of %s folds back to %s", meta.HTTPStatus, code, got)
		}
	}
}

func TestFromHTTPStatusClasses(t *testing.T) {
	cases := map[int]Code{
		http.StatusUnprocessableEntity: CodeValidation,
		http.StatusBadGateway:          CodeDependency,
		http.StatusInternalServerError: CodeDependency,
		http.StatusTeapot:              CodeInternal,
		http.StatusOK:                  CodeInternal,
	}
	for status, want := range cases {
		if got := FromHTTPStatus(status); got != want {
			t.Fatalf("status %d expected %s got %s", status, want, got)
		}
	}
}

func TestWrapKeepsCauseAndDetails(t *testing.T) {
	cause := stdErrors.New("dial tcp: refused")
	err := Wrap(CodeDependency, cause, "GET /api/notifications").WithDetails(map[string]any{"page": 2})

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrap lost its cause")
	}
	if err.Error() != "DEPENDENCY_ERROR: GET /api/notifications" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if err.Details() == nil {
		t.Fatal("details dropped")
	}
	if Wrap(CodeValidation, nil, "bad id").Unwrap() != nil {
		t.Fatal("nil cause should not be wrapped")
	}
}

func TestNilErrorIsSafe(t *testing.T) {
	var err *Error
	if err.Code() != CodeInternal || err.Message() != "" || err.Details() != nil || err.Error() != "" || err.Unwrap() != nil {
		t.Fatal("nil *Error accessors should return zero values")
	}
	if err.WithDetails("x") != nil {
		t.Fatal("WithDetails on nil should stay nil")
	}
}

func TestAsAndIsCodeFollowWrappedChain(t *testing.T) {
	typed := New(CodeUnauthorized, "stomp connect rejected")
	wrapped := fmt.Errorf("realtime connect: %w", typed)

	if got := As(wrapped); got != typed {
		t.Fatalf("As returned %v", got)
	}
	if !IsCode(wrapped, CodeUnauthorized) || IsCode(wrapped, CodeDependency) {
		t.Fatal("IsCode should match only the carried code")
	}
	if As(nil) != nil || As(stdErrors.New("plain")) != nil || IsCode(nil, CodeInternal) {
		t.Fatal("untyped errors carry no code")
	}

	dump := Dump(wrapped)
	if dump.Code != CodeUnauthorized || dump.Retryable || len(dump.Chain) != 2 {
		t.Fatalf("unexpected dump %+v", dump)
	}
}
