package keystore

import (
	"testing"

	"github.com/zbee/trigger-gw/internal/fault"
	"github.com/zbee/trigger-gw/internal/signature"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ZBEE", "Zbee"},
		{"zbee", "Zbee"},
		{"Zbee", "Zbee"},
		{"ALICE__DEPLOY", "Alice__deploy"},
		{"ALLOWED_REPOS", "Allowed_repos"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSetClassifiesBlobs(t *testing.T) {
	set := NewSet([]Variable{
		{Name: "ZBEE", Value: "secret-z"},
		{Name: "ALLOWED_REPOS", Value: "jsp, zbee"},
		{Name: "ALICE__DEPLOY", Value: "secret-a"},
		{Name: "allowed_repos_for_users", Value: "alice: *"},
	})

	creds := set.Credentials()
	if len(creds) != 2 {
		t.Fatalf("Credentials() = %d entries, want 2 (blobs must be excluded)", len(creds))
	}
	if creds[0].Name != "Zbee" || creds[1].Name != "Alice__deploy" {
		t.Errorf("store order not preserved: %v", creds)
	}
	if set.GlobalBlob() != "jsp, zbee" {
		t.Errorf("GlobalBlob() = %q", set.GlobalBlob())
	}
	if set.UserBlob() != "alice: *" {
		t.Errorf("UserBlob() = %q", set.UserBlob())
	}
}

func TestSetEmpty(t *testing.T) {
	if !NewSet(nil).Empty() {
		t.Error("set with no entries should be empty")
	}
	if NewSet([]Variable{{Name: "ALLOWED_REPOS", Value: "jsp"}}).Empty() {
		t.Error("a blob counts as an entry")
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	shared := "shared-secret"
	header := signature.Format(signature.Compute(shared, body))

	// B and C share the secret; resolution must return B, the first match
	// in store order.
	set := NewSet([]Variable{
		{Name: "ALPHA", Value: "other-secret"},
		{Name: "BRAVO", Value: shared},
		{Name: "CHARLIE", Value: shared},
	})

	identity, err := set.Resolve(header, body)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity != "bravo" {
		t.Errorf("identity = %q, want %q", identity, "bravo")
	}
}

func TestResolveSkipsBlobs(t *testing.T) {
	body := []byte(`{}`)
	blobText := "jsp, zbee"
	// Even a signature computed with the blob text as key must not match:
	// blobs are configuration, not signing secrets.
	header := signature.Format(signature.Compute(blobText, body))

	set := NewSet([]Variable{
		{Name: "ALLOWED_REPOS", Value: blobText},
		{Name: "ZBEE", Value: "secret-z"},
	})

	if _, err := set.Resolve(header, body); fault.CodeOf(err) != fault.NonPermissibleKey {
		t.Errorf("Resolve() error = %v, want non_permissible_key", err)
	}
}

func TestResolveIdentityIsLowercase(t *testing.T) {
	body := []byte(`{}`)
	set := NewSet([]Variable{{Name: "ALICE__DEPLOY", Value: "s"}})
	header := signature.Format(signature.Compute("s", body))

	identity, err := set.Resolve(header, body)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if identity != "alice__deploy" {
		t.Errorf("identity = %q, want lowercase form", identity)
	}
}

func TestResolveNoMatch(t *testing.T) {
	set := NewSet([]Variable{{Name: "ZBEE", Value: "secret"}})
	_, err := set.Resolve("sha256=00", []byte(`{}`))
	if fault.CodeOf(err) != fault.NonPermissibleKey {
		t.Errorf("Resolve() error = %v, want non_permissible_key", err)
	}
}

func TestOwner(t *testing.T) {
	tests := []struct {
		identity string
		want     string
	}{
		{"alice__deploy", "alice"},
		{"alice", "alice"},
		{"a__b__c", "a"},
	}
	for _, tt := range tests {
		if got := Owner(tt.identity); got != tt.want {
			t.Errorf("Owner(%q) = %q, want %q", tt.identity, got, tt.want)
		}
	}
}
