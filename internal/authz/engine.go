package authz

import (
	"strings"

	"github.com/zbee/trigger-gw/internal/fault"
	"github.com/zbee/trigger-gw/internal/keystore"
)

// Per-user allow-list value forms.
const (
	specAll  = "*" // everything on the global allow-list
	specNone = "-" // nothing
)

// Engine evaluates the two-tier allow-list: the global repository list and
// the per-owner rules. Built fresh per request from the store blobs.
type Engine struct {
	global []string
	// userSpecs maps a lowercase owner to the value of the LAST line naming
	// that owner. Later duplicate lines overwrite earlier ones as the blob
	// is scanned; this intentionally differs from key resolution, which is
	// first-match-wins.
	userSpecs map[string]string
}

// NewEngine parses the two ACL blobs. Neither parse can fail: malformed
// lines and empty entries are dropped.
func NewEngine(globalBlob, userBlob string) *Engine {
	return &Engine{
		global:    splitList(globalBlob),
		userSpecs: parseUserLines(userBlob),
	}
}

// GlobalList returns the parsed global allow-list.
func (e *Engine) GlobalList() []string { return e.global }

// Authorize checks every requested target against the global allow-list and
// then against the identity's resolved per-owner set. Both checks are
// all-of: one disallowed label anywhere rejects the whole request.
func (e *Engine) Authorize(targets []string, identity string) error {
	if len(e.global) == 0 {
		return fault.New(fault.NoPermissibleRepositories, "global allow-list is empty; no repository can be triggered")
	}

	for _, t := range targets {
		if !contains(e.global, t) {
			return fault.New(fault.NonPermissibleRepository,
				"repository %q is not on the global allow-list (requested: %s)", t, strings.Join(targets, ","))
		}
	}

	owner := keystore.Owner(identity)
	allowed := e.resolveOwnerSet(owner)
	for _, t := range targets {
		if !contains(allowed, t) {
			return fault.New(fault.NonPermissibleRepositoryForKey,
				"key %q may not trigger repository %q (requested: %s)", identity, t, strings.Join(targets, ","))
		}
	}

	return nil
}

// resolveOwnerSet interprets the owner's allow-list value. An owner with no
// line at all resolves to the empty set.
func (e *Engine) resolveOwnerSet(owner string) []string {
	spec, ok := e.userSpecs[owner]
	if !ok {
		return nil
	}
	switch spec {
	case specNone:
		return nil
	case specAll:
		return e.global
	default:
		return splitList(spec)
	}
}

// parseUserLines scans "owner: spec" lines. The last line for an owner wins.
func parseUserLines(blob string) map[string]string {
	specs := make(map[string]string)
	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		owner, spec, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		owner = strings.ToLower(strings.TrimSpace(owner))
		if owner == "" {
			continue
		}
		specs[owner] = strings.TrimSpace(spec)
	}
	return specs
}

// splitList parses a comma-separated label list, trimming whitespace and
// line breaks and lower-casing each entry.
func splitList(blob string) []string {
	var out []string
	for _, entry := range strings.Split(blob, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
