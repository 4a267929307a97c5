package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "WithoutCause",
			err:  New(ErrCodeResolutionFailed, "dependency %s not in closure", "requests"),
			want: "RESOLUTION_FAILED: dependency requests not in closure",
		},
		{
			name: "WithCause",
			err:  Wrap(ErrCodeNetwork, stderrors.New("connection refused"), "failed to fetch %s", "fastapi"),
			want: "NETWORK_ERROR: failed to fetch fastapi: connection refused",
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

func TestCodeMatching(t *testing.T) {
	err := New(ErrCodeRoutingCycle, "re-entered routing for %q", "utils")

	if !Is(err, ErrCodeRoutingCycle) {
		t.Error("Is() should match the error's own code")
	}
	if Is(err, ErrCodeApplyFailed) {
		t.Error("Is() should not match a different code")
	}

	// Wrapped errors still match through the chain.
	wrapped := fmt.Errorf("import failed: %w", err)
	if !Is(wrapped, ErrCodeRoutingCycle) {
		t.Error("Is() should unwrap to find the coded error")
	}
	if GetCode(wrapped) != ErrCodeRoutingCycle {
		t.Errorf("GetCode() = %q, want %q", GetCode(wrapped), ErrCodeRoutingCycle)
	}
}

func TestGetCodeForPlainError(t *testing.T) {
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode(plain error) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeCycleBudgetExceeded, "closure exceeded 5000 nodes")
	if got := UserMessage(err); got != "closure exceeded 5000 nodes" {
		t.Errorf("UserMessage() = %q", got)
	}
	plain := stderrors.New("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}

func TestFatal(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{ErrCodeResolutionFailed, true},
		{ErrCodeCycleBudgetExceeded, true},
		{ErrCodeInvalidClosure, true},
		{ErrCodeInfeasibleStrategy, false},
		{ErrCodeApplyFailed, false},
		{ErrCodeRoutingCycle, false},
	}
	for _, tt := range tests {
		if got := Fatal(New(tt.code, "x")); got != tt.want {
			t.Errorf("Fatal(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		{"Valid", "requests", false},
		{"ValidWithDash", "typing-extensions", false},
		{"Empty", "", true},
		{"Traversal", "../etc/passwd", true},
		{"NullByte", "pkg\x00", true},
		{"Backslash", `pkg\name`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.pkg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.pkg, err, tt.wantErr)
			}
		})
	}
}

func TestValidateModuleName(t *testing.T) {
	tests := []struct {
		name    string
		mod     string
		wantErr bool
	}{
		{"Valid", "utils", false},
		{"Underscore", "_internal", false},
		{"DigitSuffix", "mod2", false},
		{"Empty", "", true},
		{"DigitPrefix", "2mod", true},
		{"Dash", "my-mod", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModuleName(tt.mod)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModuleName(%q) error = %v, wantErr %v", tt.mod, err, tt.wantErr)
			}
		})
	}
}
