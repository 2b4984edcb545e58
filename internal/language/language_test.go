package language

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Code
		expectError bool
	}{
		{name: "english", input: "eng", expected: English},
		{name: "uppercase is canonicalized", input: "SPA", expected: Spanish},
		{name: "surrounding whitespace", input: " fra ", expected: French},
		{name: "two letter code", input: "en", expectError: true},
		{name: "unknown code", input: "zzz", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Parse(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for %q, got code %q", tt.input, code)
				}
				if !errors.Is(err, ErrUnsupported) {
					t.Errorf("expected ErrUnsupported, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if code != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, code)
			}
		})
	}
}

func TestSupportedSet(t *testing.T) {
	codes := Supported()
	if len(codes) != 12 {
		t.Fatalf("expected 12 supported languages, got %d", len(codes))
	}

	for _, code := range codes {
		if !IsSupported(code) {
			t.Errorf("code %q from Supported() not reported as supported", code)
		}
	}

	if IsSupported(Code("xx")) {
		t.Error("two letter code should not be supported")
	}
}

func TestValidatePair(t *testing.T) {
	if err := ValidatePair(English, Spanish); err != nil {
		t.Errorf("eng->spa should be valid: %v", err)
	}

	// Same language on both ends is a valid request.
	if err := ValidatePair(German, German); err != nil {
		t.Errorf("deu->deu should be valid: %v", err)
	}

	if err := ValidatePair(English, Code("zzz")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for invalid target, got %v", err)
	}

	if err := ValidatePair(Code(""), Spanish); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for empty source, got %v", err)
	}
}
