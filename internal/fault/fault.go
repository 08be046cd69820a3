// Package fault defines the closed set of request-terminal failures the
// gateway can report. Every stage of the pipeline either produces its output
// or returns one of these codes; nothing else crosses the handler boundary.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies a failure class. Codes are part of the response contract
// and must stay stable.
type Code string

const (
	NonPermissibleOrigin           Code = "non_permissible_origin"
	BrokenCredentialStore          Code = "broken_credential_store"
	EmptyCredentialSet             Code = "empty_credential_set"
	NonPermissibleKey              Code = "non_permissible_key"
	NoPermissibleRepositories      Code = "no_permissible_repositories"
	NonPermissibleRepository       Code = "non_permissible_repository"
	NonPermissibleRepositoryForKey Code = "non_permissible_repository_for_key"
	NonPermissibleTrigger          Code = "non_permissible_trigger"
	UnexpectedRequestBody          Code = "unexpected_request_body"
	NoBranchProvided               Code = "no_branch_provided"
	BrokenNotifier                 Code = "broken_notifier"
	UpstreamTimeout                Code = "upstream_timeout"
)

// Fault is a terminal, machine-readable request failure. Detail is safe to
// return to the caller: it names identities and requested targets, never
// secret material.
type Fault struct {
	Code   Code   `json:"code"`
	Detail string `json:"detail,omitempty"`

	cause error
}

// New creates a Fault with a formatted detail message.
func New(code Code, format string, args ...any) *Fault {
	return &Fault{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap creates a Fault that carries an underlying cause. The cause is
// reachable through errors.Unwrap but is not serialized to the caller.
func Wrap(code Code, cause error, format string, args ...any) *Fault {
	return &Fault{Code: code, Detail: fmt.Sprintf(format, args...), cause: cause}
}

func (f *Fault) Error() string {
	if f.Detail == "" {
		return string(f.Code)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Detail)
}

func (f *Fault) Unwrap() error { return f.cause }

// From extracts a Fault from err, if one is in its chain.
func From(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// CodeOf returns the fault code in err's chain, or "" if err is not a Fault.
func CodeOf(err error) Code {
	if f, ok := From(err); ok {
		return f.Code
	}
	return ""
}
