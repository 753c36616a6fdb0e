package encryption

import (
	"errors"
	"strings"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewEphemeral()
	if err != nil {
		t.Fatalf("NewEphemeral: %v", err)
	}
	sealed, err := s.Seal("client-id:client-secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, sealPrefix) {
		t.Errorf("sealed value %q missing prefix", sealed)
	}
	if strings.Contains(sealed, "client-secret") {
		t.Error("sealed value leaks plaintext")
	}
	plain, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if plain != "client-id:client-secret" {
		t.Errorf("Open = %q", plain)
	}
}

func TestOpenRejectsUnsealed(t *testing.T) {
	s, err := New(strings.Repeat("k", KeySize))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Open("plaintext"); !errors.Is(err, ErrNotSealed) {
		t.Errorf("Open(plaintext) error = %v, want ErrNotSealed", err)
	}
}

func TestOpenWithWrongKey(t *testing.T) {
	a, _ := New(strings.Repeat("a", KeySize))
	b, _ := New(strings.Repeat("b", KeySize))
	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Error("expected error opening with a different key")
	}
}

func TestParseKey(t *testing.T) {
	gen, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"generated base64", gen, false},
		{"raw 32 bytes", strings.Repeat("x", KeySize), false},
		{"too short", "short", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(k) != KeySize {
				t.Errorf("key length = %d", len(k))
			}
		})
	}
}
