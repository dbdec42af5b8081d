package models

import (
	"errors"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"trims whitespace", "  Acme Builders  ", "Acme Builders"},
		{"collapses inner runs", "Acme   Builders \t Ltd", "Acme Builders Ltd"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeString(tt.input); got != tt.expected {
				t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	if err := ValidateRequired("value", "field"); err != nil {
		t.Errorf("ValidateRequired() = %v for non-empty value", err)
	}

	err := ValidateRequired("   ", "field")
	if err == nil {
		t.Fatal("ValidateRequired() should fail for blank value")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if validationErr.Field != "field" {
		t.Errorf("Field = %s, want field", validationErr.Field)
	}
}

func TestValidateStringLength(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		minLength int
		maxLength int
		wantErr   bool
	}{
		{"within bounds", "hello", 1, 10, false},
		{"too short", "a", 2, 10, true},
		{"too long", "abcdef", 1, 5, true},
		{"zero min disables lower bound", "", 0, 5, false},
		{"zero max disables upper bound", "abcdefghij", 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStringLength(tt.value, "field", tt.minLength, tt.maxLength)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStringLength() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	if err := ValidateNonNegative(0, "field"); err != nil {
		t.Errorf("ValidateNonNegative(0) = %v", err)
	}
	if err := ValidateNonNegative(10.5, "field"); err != nil {
		t.Errorf("ValidateNonNegative(10.5) = %v", err)
	}
	if err := ValidateNonNegative(-0.01, "field"); err == nil {
		t.Error("ValidateNonNegative(-0.01) should fail")
	}
}

func TestValidateUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid uuid", "550e8400-e29b-41d4-a716-446655440000", false},
		{"empty", "", true},
		{"too short", "550e8400-e29b-41d4", true},
		{"wrong hyphens", "550e8400xe29bx41d4xa716x446655440000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUUID(tt.value, "field")
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUUID(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestInvoiceValidate(t *testing.T) {
	invoice := NewInvoice("INV-00001", "Acme Builders Ltd", VATModeStandard20)
	if err := invoice.Validate(); err != nil {
		t.Errorf("Validate() = %v for well-formed invoice", err)
	}

	invoice.DiscountPercent = 120
	if err := invoice.Validate(); err == nil {
		t.Error("Validate() should reject discount percent over 100")
	}
}

func TestSecurityEventValidate(t *testing.T) {
	event := NewSecurityEvent("203.0.113.7", ActionLogin, nil)
	if err := event.Validate(); err != nil {
		t.Errorf("Validate() = %v for well-formed event", err)
	}

	event.Identifier = " "
	if err := event.Validate(); err == nil {
		t.Error("Validate() should reject blank identifier")
	}
}
