package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New("STATE_NOT_FOUND", "state not found", http.StatusNotFound),
			want: "STATE_NOT_FOUND: state not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("db error"), "DB_ERROR", "database failure", http.StatusInternalServerError),
			want: "DB_ERROR: database failure: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, "CODE", "msg", 500)

	if !errors.Is(appErr, inner) {
		t.Error("errors.Is should match inner error")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("NOT_FOUND", "resource not found")
	wrapped := fmt.Errorf("wrapped: %w", appErr)

	got, ok := IsAppError(wrapped)
	if !ok {
		t.Fatal("IsAppError should return true for wrapped AppError")
	}
	if got.Code != "NOT_FOUND" {
		t.Errorf("Code = %q, want NOT_FOUND", got.Code)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
	}{
		{"NotFound", NotFound("NF", "not found"), http.StatusNotFound},
		{"BadRequest", BadRequest("BR", "bad request"), http.StatusBadRequest},
		{"Unauthorized", Unauthorized("UA", "unauthorized"), http.StatusUnauthorized},
		{"Forbidden", Forbidden("FB", "forbidden"), http.StatusForbidden},
		{"Conflict", Conflict("CF", "conflict"), http.StatusConflict},
		{"Internal", Internal("IE", "internal"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestMissingIDs(t *testing.T) {
	err := fmt.Errorf("sync: %w", ErrMissingTermsf([]string{"t-2", "nonexistent"}))

	got := MissingIDs(err)
	if len(got) != 2 || got[0] != "t-2" || got[1] != "nonexistent" {
		t.Fatalf("MissingIDs() = %v, want [t-2 nonexistent]", got)
	}
	if !IsClientError(err) {
		t.Fatal("missing terms must be a client error")
	}
	if MissingIDs(ErrDuplicateLabelf("x")) != nil {
		t.Fatal("MissingIDs should be nil for other codes")
	}
}

func TestErrStorage(t *testing.T) {
	inner := errors.New("connection reset")
	err := ErrStorage(inner)

	if !errors.Is(err, inner) {
		t.Fatal("storage error must wrap the driver error")
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Fatalf("HTTPStatus = %d, want 503", err.HTTPStatus)
	}
	if IsClientError(err) {
		t.Fatal("storage error must not be a client error")
	}
	if !HasCode(fmt.Errorf("wrapped: %w", err), CodeStorageFailure) {
		t.Fatal("HasCode should see through wrapping")
	}
}

func TestErrDuplicateLabel(t *testing.T) {
	err := ErrDuplicateLabelf("Approved Spec")
	if err.HTTPStatus != http.StatusConflict {
		t.Fatalf("HTTPStatus = %d, want 409", err.HTTPStatus)
	}
	if err.Params["label"] != "Approved Spec" {
		t.Fatalf("Params[label] = %v", err.Params["label"])
	}
}
