// Package keystore loads the gateway's credential pool and access-control
// blobs from a GitHub repository's Actions variables and resolves inbound
// webhook signatures against that pool.
//
// The variable collection mixes two kinds of entries: signing credentials
// (name -> shared secret) and two well-known configuration blobs that hold
// allow-list text. The blobs are never treated as signing secrets.
package keystore

import (
	"strings"

	"github.com/zbee/trigger-gw/internal/fault"
	"github.com/zbee/trigger-gw/internal/signature"
)

// Names of the two configuration blobs, in normalized form.
const (
	globalBlobName = "Allowed_repos"
	userBlobName   = "Allowed_repos_for_users"
)

// OwnerSeparator splits a credential name into owner and sub-key,
// as in "zbee__deploy".
const OwnerSeparator = "__"

// Credential is a named signing secret. Name is held in its normalized
// Capitalized form; comparisons downstream use the lowercase form.
type Credential struct {
	Name   string
	Secret string
}

// Variable is one raw entry as returned by the store.
type Variable struct {
	Name  string
	Value string
}

// Set is the credential pool and ACL text for one request. It is built
// fresh per request and never shared or cached: stale allow-lists are worse
// than an extra fetch.
type Set struct {
	creds      []Credential // store order, blobs excluded
	globalBlob string
	userBlob   string
}

// NewSet classifies raw store entries into credentials and ACL blobs.
// Entry order is preserved for the credentials; the resolver depends on it.
func NewSet(vars []Variable) *Set {
	s := &Set{}
	for _, v := range vars {
		name := NormalizeName(v.Name)
		switch name {
		case globalBlobName:
			s.globalBlob = v.Value
		case userBlobName:
			s.userBlob = v.Value
		default:
			s.creds = append(s.creds, Credential{Name: name, Secret: v.Value})
		}
	}
	return s
}

// NormalizeName maps a store entry name to Capitalized-first-letter,
// lowercase-remainder form. All case-insensitive identity matching depends
// on this happening exactly once, here.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// Credentials returns the signing credentials in store order.
func (s *Set) Credentials() []Credential { return s.creds }

// GlobalBlob returns the raw ALLOWED_REPOS text.
func (s *Set) GlobalBlob() string { return s.globalBlob }

// UserBlob returns the raw ALLOWED_REPOS_FOR_USERS text.
func (s *Set) UserBlob() string { return s.userBlob }

// Empty reports whether the set holds no entries at all, credentials and
// blobs included.
func (s *Set) Empty() bool {
	return len(s.creds) == 0 && s.globalBlob == "" && s.userBlob == ""
}

// Resolve tries every credential against the inbound signature, in store
// order, and returns the matching identity in lowercase form. Resolution
// stops at the first verifying credential. Note the asymmetry with the
// per-user allow-list, where the last matching line wins.
func (s *Set) Resolve(header string, body []byte) (string, error) {
	for _, c := range s.creds {
		if signature.Verify(c.Secret, header, body) {
			return strings.ToLower(c.Name), nil
		}
	}
	return "", fault.New(fault.NonPermissibleKey, "no credential verifies the presented signature")
}

// Owner returns the authorization identity for a resolved credential name:
// the substring before the owner separator, or the whole name if the
// separator is absent.
func Owner(identity string) string {
	if i := strings.Index(identity, OwnerSeparator); i >= 0 {
		return identity[:i]
	}
	return identity
}
