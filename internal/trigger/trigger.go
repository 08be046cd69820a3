// Package trigger builds the normalized trigger record that describes a
// downstream build: which repositories to target, under what name, and from
// which branch.
package trigger

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/zbee/trigger-gw/internal/fault"
	"github.com/zbee/trigger-gw/internal/keystore"
)

// Record is the sole output artifact of the pipeline. It is constructed
// once per request and never persisted; CommentURL is the only field added
// after construction, once the notifier has succeeded.
type Record struct {
	WorkerVersion string `json:"worker_version"`
	KeyOwner      string `json:"key_owner"`
	TargetRepo    string `json:"target_repo"`
	TargetName    string `json:"target_name"`
	BranchMain    string `json:"branch_main,omitempty"`
	BranchTest    string `json:"branch_test,omitempty"`
	CodeRepo      string `json:"code_repo"`
	CodePrivate   bool   `json:"code_private"`
	CodeOwner     string `json:"code_owner"`
	CodeURL       string `json:"code_url"`
	CodeBranch    string `json:"code_branch"`

	// Opaque pass-through directives, carried untouched when supplied.
	BuildMain string `json:"main_build,omitempty"`
	BuildTest string `json:"test_build,omitempty"`
	Icon      string `json:"icon,omitempty"`

	// CommentURL is set after the notifier posts its comment.
	CommentURL string `json:"github_comment_made,omitempty"`
}

// Payload is the subset of a push/branch webhook body the builder reads.
// Every field is optional at the JSON layer; required-field checks happen
// explicitly in Build.
type Payload struct {
	Ref        string      `json:"ref"`
	Repository *Repository `json:"repository"`
}

// Repository mirrors the webhook's repository object.
type Repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	HTMLURL  string `json:"html_url"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// ParsePayload decodes a raw webhook body. A body that is not a JSON object
// is an unexpected_request_body fault.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fault.Wrap(fault.UnexpectedRequestBody, err, "request body is not a JSON webhook payload")
	}
	return &p, nil
}

// Build combines the target labels, query directives, and webhook payload
// into a Record.
//
// Branch resolution: the payload ref wins when present (its final
// /-delimited segment); otherwise exactly one of the main/test directives
// supplies the branch, and having neither is a fault. When both directives
// are present without a ref, main wins.
func Build(workerVersion, identity string, targets []string, query url.Values, payload *Payload) (*Record, error) {
	if len(targets) == 0 {
		return nil, fault.New(fault.NonPermissibleTrigger, "no target repository named after the trigger segment")
	}
	if payload == nil || payload.Repository == nil {
		return nil, fault.New(fault.UnexpectedRequestBody, "webhook payload has no repository object")
	}

	hasMain := query.Has("main")
	hasTest := query.Has("test")

	var branch string
	switch {
	case payload.Ref != "":
		parts := strings.Split(payload.Ref, "/")
		branch = parts[len(parts)-1]
	case !hasMain && !hasTest:
		return nil, fault.New(fault.NoBranchProvided, "payload carries no ref and neither main nor test was supplied")
	case hasMain:
		branch = query.Get("main")
	default:
		branch = query.Get("test")
	}

	name := payload.Repository.Name
	if query.Has("target_name") {
		name = query.Get("target_name")
	}

	branchMain := query.Get("main")
	branchTest := query.Get("test")
	if !hasMain && !hasTest {
		// No explicit directive: the main branch falls back to the
		// resolved branch so it is always populated.
		branchMain = branch
	}

	// The resolved branch is only ever compared against branch_main here,
	// never branch_test.
	if branch != branchMain || (!hasMain && !hasTest) {
		name += " (" + branch + ")"
	}

	return &Record{
		WorkerVersion: workerVersion,
		KeyOwner:      keystore.Owner(identity),
		TargetRepo:    strings.Join(targets, ","),
		TargetName:    name,
		BranchMain:    branchMain,
		BranchTest:    branchTest,
		CodeRepo:      payload.Repository.FullName,
		CodePrivate:   payload.Repository.Private,
		CodeOwner:     payload.Repository.Owner.Login,
		CodeURL:       payload.Repository.HTMLURL,
		CodeBranch:    branch,
		BuildMain:     query.Get("main_build"),
		BuildTest:     query.Get("test_build"),
		Icon:          query.Get("icon"),
	}, nil
}
