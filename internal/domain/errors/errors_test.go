package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestSyncError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SyncError
		want string
	}{
		{
			name: "without cause",
			err:  NewError(CodeConfiguration, "remote store not configured", nil),
			want: "[CONFIG] remote store not configured",
		},
		{
			name: "with cause",
			err:  NewError(CodeTransport, "executor session dropped", errors.New("connection reset")),
			want: "[TRANSPORT] executor session dropped: connection reset",
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

func TestSyncError_Unwrap(t *testing.T) {
	cause := ErrSourceConfigMissing
	err := NewError(CodeValidation, "push aborted", cause)

	if !errors.Is(err, ErrSourceConfigMissing) {
		t.Error("expected errors.Is to match the wrapped sentinel")
	}

	var syncErr *SyncError
	if !errors.As(error(err), &syncErr) {
		t.Error("expected errors.As to find SyncError")
	}
}

func TestWithContext(t *testing.T) {
	err := NewError(CodeExecution, "stage failed", nil)
	err = WithContext(err, "stage", "build-archive")
	err = WithContext(err, "exit_code", 1)

	if err.Context["stage"] != "build-archive" {
		t.Errorf("expected context stage, got %v", err.Context["stage"])
	}
	if err.Context["exit_code"] != 1 {
		t.Errorf("expected context exit_code, got %v", err.Context["exit_code"])
	}
}

func TestWithContext_NilMap(t *testing.T) {
	err := &SyncError{Code: CodeTransport, Message: "timeout"}
	err = WithContext(err, "timeout_ms", 30000)

	if err.Context["timeout_ms"] != 30000 {
		t.Error("expected WithContext to initialize nil context map")
	}
}

func TestSentinelMessages(t *testing.T) {
	// The diagnostics surface reports these strings verbatim; keep them stable.
	if !strings.Contains(ErrSourceConfigMissing.Error(), "clawdbot.json") {
		t.Error("config-missing sentinel must name the config file")
	}
	if ErrStoreUnconfigured.Error() != "R2 storage is not configured" {
		t.Errorf("unexpected store-unconfigured message: %q", ErrStoreUnconfigured)
	}
}
