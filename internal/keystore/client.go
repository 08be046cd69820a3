package keystore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v66/github"
	"github.com/zbee/trigger-gw/internal/fault"
)

// Client fetches the credential set from a GitHub repository's Actions
// variables. One fetch per inbound request; nothing is cached.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

// NewClient builds a store client for owner/repo authenticated with token.
func NewClient(owner, repo, token string) *Client {
	return &Client{
		gh:    github.NewClient(nil).WithAuthToken(token),
		owner: owner,
		repo:  repo,
	}
}

// NewClientWithGitHub builds a store client around an existing GitHub
// client. Used by tests to point at an httptest server.
func NewClientWithGitHub(gh *github.Client, owner, repo string) *Client {
	return &Client{gh: gh, owner: owner, repo: repo}
}

// Fetch reads the full variable collection and classifies it into a Set.
// A transport or non-success response is a broken_credential_store fault
// with the upstream detail preserved; a successfully-fetched but empty
// collection is the distinct empty_credential_set fault.
func (c *Client) Fetch(ctx context.Context) (*Set, error) {
	var vars []Variable

	opts := &github.ListOptions{PerPage: 100}
	for {
		page, resp, err := c.gh.Actions.ListRepoVariables(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, storeFault(err)
		}
		for _, v := range page.Variables {
			vars = append(vars, Variable{Name: v.Name, Value: v.Value})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	set := NewSet(vars)
	if set.Empty() {
		return nil, fault.New(fault.EmptyCredentialSet, "credential store %s/%s holds no entries", c.owner, c.repo)
	}
	return set, nil
}

// storeFault maps an upstream error to the fault taxonomy, keeping the
// upstream response body as diagnostic detail.
func storeFault(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fault.Wrap(fault.UpstreamTimeout, err, "credential store fetch timed out")
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		detail := ghErr.Message
		if ghErr.Response != nil {
			detail = fmt.Sprintf("status %d: %s", ghErr.Response.StatusCode, ghErr.Message)
		}
		return fault.Wrap(fault.BrokenCredentialStore, err, "credential store fetch failed: %s", detail)
	}

	return fault.Wrap(fault.BrokenCredentialStore, err, "credential store unreachable: %v", err)
}
