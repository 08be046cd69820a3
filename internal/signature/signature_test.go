package signature

import (
	"testing"
)

func TestVerify(t *testing.T) {
	secret := "test-secret-key"
	body := []byte(`{"ref":"refs/heads/main","repository":{"name":"jsp"}}`)

	valid := Format(Compute(secret, body))

	tests := []struct {
		name   string
		secret string
		header string
		body   []byte
		want   bool
	}{
		{
			name:   "valid signature",
			secret: secret,
			header: valid,
			body:   body,
			want:   true,
		},
		{
			name:   "wrong signature",
			secret: secret,
			header: "sha256=0000000000000000000000000000000000000000000000000000000000000000",
			body:   body,
			want:   false,
		},
		{
			name:   "tampered body",
			secret: secret,
			header: valid,
			body:   []byte(`{"ref":"refs/heads/main","repository":{"name":"hacked"}}`),
			want:   false,
		},
		{
			name:   "wrong secret",
			secret: "wrong-secret",
			header: valid,
			body:   body,
			want:   false,
		},
		{
			name:   "missing prefix",
			secret: secret,
			header: Compute(secret, body),
			body:   body,
			want:   false,
		},
		{
			name:   "malformed hex",
			secret: secret,
			header: "sha256=not-valid-hex",
			body:   body,
			want:   false,
		},
		{
			name:   "empty header",
			secret: secret,
			header: "",
			body:   body,
			want:   false,
		},
		{
			name:   "empty secret",
			secret: "",
			header: valid,
			body:   body,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verify(tt.secret, tt.header, tt.body); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	body := []byte("test payload")
	secret := "test-secret"

	sig := Compute(secret, body)

	if len(sig) != 64 { // SHA256 = 32 bytes = 64 hex chars
		t.Errorf("signature length = %d, want 64", len(sig))
	}

	if sig != Compute(secret, body) {
		t.Error("signature should be deterministic")
	}

	if sig == Compute(secret, []byte("different")) {
		t.Error("different body should produce different signature")
	}
}

func TestFormat(t *testing.T) {
	if got := Format("abc123"); got != "sha256=abc123" {
		t.Errorf("Format() = %q, want %q", got, "sha256=abc123")
	}
}
