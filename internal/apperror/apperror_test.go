package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"
)

func TestFromDB(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load doctor: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{"duplicate key", gorm.ErrDuplicatedKey, http.StatusConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
		{"already typed", Forbidden("nope"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDB(tt.err, "Doctor not found")
			if StatusOf(got) != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, StatusOf(got))
			}
		})
	}
}

func TestFromDB_Nil(t *testing.T) {
	if FromDB(nil, "x") != nil {
		t.Fatal("expected nil")
	}
}

func TestNotFoundMessage(t *testing.T) {
	err := FromDB(gorm.ErrRecordNotFound, "Patient not found")
	appErr, ok := As(err)
	if !ok {
		t.Fatal("expected *Error")
	}
	if appErr.Message != "Patient not found" {
		t.Errorf("unexpected message %q", appErr.Message)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("expected cause to be preserved")
	}
}

func TestRetryable(t *testing.T) {
	if !Upstream("gateway down", errors.New("timeout")).Retryable() {
		t.Error("upstream errors should be retryable")
	}
	if Conflict("slot taken").Retryable() {
		t.Error("conflicts should not be retryable")
	}
}
