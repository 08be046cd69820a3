// Package notify posts the finished trigger record where the downstream
// build tooling watches for it: a comment on a fixed commit.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/zbee/trigger-gw/internal/fault"
	"github.com/zbee/trigger-gw/internal/trigger"
)

// Notifier receives a finished trigger record and performs the
// side-effecting notification, returning the created resource's URL.
type Notifier interface {
	Notify(ctx context.Context, rec *trigger.Record) (string, error)
}

// CommentNotifier posts commit comments through the GitHub API.
type CommentNotifier struct {
	gh     *github.Client
	owner  string
	repo   string
	commit string
}

// NewCommentNotifier builds a notifier that comments on commit sha of
// owner/repo using token.
func NewCommentNotifier(owner, repo, commit, token string) *CommentNotifier {
	return &CommentNotifier{
		gh:     github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
		commit: commit,
	}
}

// NewCommentNotifierWithGitHub builds a notifier around an existing GitHub
// client. Used by tests to point at an httptest server.
func NewCommentNotifierWithGitHub(gh *github.Client, owner, repo, commit string) *CommentNotifier {
	return &CommentNotifier{gh: gh, owner: owner, repo: repo, commit: commit}
}

// Notify renders the record and posts it as a commit comment. Anything but
// a created comment is a broken_notifier fault carrying the upstream detail.
func (n *CommentNotifier) Notify(ctx context.Context, rec *trigger.Record) (string, error) {
	comment := &github.RepositoryComment{
		Body: github.String(RenderComment(rec)),
	}

	created, resp, err := n.gh.Repositories.CreateComment(ctx, n.owner, n.repo, n.commit, comment)
	if err != nil {
		return "", notifierFault(err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fault.New(fault.BrokenNotifier, "comment endpoint answered status %d", resp.StatusCode)
	}

	return created.GetHTMLURL(), nil
}

// RenderComment produces the human-readable comment body: a summary of the
// trigger plus the raw record as fenced JSON.
func RenderComment(rec *trigger.Record) string {
	raw, _ := json.MarshalIndent(rec, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "Build trigger for **%s** (%s)\n\n", rec.TargetName, rec.TargetRepo)
	fmt.Fprintf(&b, "- key owner: %s\n", rec.KeyOwner)
	fmt.Fprintf(&b, "- code: %s @ %s\n", rec.CodeRepo, rec.CodeBranch)
	if rec.BranchMain != "" {
		fmt.Fprintf(&b, "- main branch: %s\n", rec.BranchMain)
	}
	if rec.BranchTest != "" {
		fmt.Fprintf(&b, "- test branch: %s\n", rec.BranchTest)
	}
	fmt.Fprintf(&b, "\n```json\n%s\n```\n", raw)
	return b.String()
}

// notifierFault maps an upstream error to the fault taxonomy.
func notifierFault(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.UpstreamTimeout, err, "notifier post timed out")
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		detail := ghErr.Message
		if ghErr.Response != nil {
			detail = fmt.Sprintf("status %d: %s", ghErr.Response.StatusCode, ghErr.Message)
		}
		return fault.Wrap(fault.BrokenNotifier, err, "comment creation failed: %s", detail)
	}

	return fault.Wrap(fault.BrokenNotifier, err, "notifier unreachable: %v", err)
}
