package valueobject

import (
	"testing"

	"wabridge/internal/domain/errors"
)

func TestNewJID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    JID
		wantErr bool
	}{
		{name: "bare phone number", input: "201021347532", want: "201021347532@s.whatsapp.net"},
		{name: "already a jid", input: "201021347532@s.whatsapp.net", want: "201021347532@s.whatsapp.net"},
		{name: "jid with device suffix", input: "201021347532:98@s.whatsapp.net", want: "201021347532@s.whatsapp.net"},
		{name: "formatted phone number", input: "+1 (201) 021-3475", want: "12010213475@s.whatsapp.net"},
		{name: "too few digits", input: "1234567", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewJID(tt.input)
			if tt.wantErr {
				if err == nil || !errors.GetDomainError(err).Is(errors.ErrInvalidJID) {
					t.Fatalf("NewJID(%q) error = %v, want ErrInvalidJID", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJID(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("NewJID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "JID with device ID",
			input:    "201021347532:98@s.whatsapp.net",
			expected: "201021347532",
		},
		{
			name:     "JID without device ID",
			input:    "201021347532@s.whatsapp.net",
			expected: "201021347532",
		},
		{
			name:     "Empty JID",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractPhone(tt.input)
			if result != tt.expected {
				t.Errorf("ExtractPhone(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
