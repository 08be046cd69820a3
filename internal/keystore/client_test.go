package keystore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/zbee/trigger-gw/internal/fault"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gh := github.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	gh.BaseURL = base

	return NewClientWithGitHub(gh, "zbee", "workers"), srv
}

func TestFetchClassifiesVariables(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zbee/workers/actions/variables", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"total_count": 3,
			"variables": [
				{"name": "ZBEE", "value": "secret-z"},
				{"name": "ALLOWED_REPOS", "value": "jsp, zbee"},
				{"name": "ALICE__DEPLOY", "value": "secret-a"}
			]
		}`)
	})

	client, _ := newTestClient(t, mux)
	set, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got := len(set.Credentials()); got != 2 {
		t.Errorf("Credentials() = %d entries, want 2", got)
	}
	if set.GlobalBlob() != "jsp, zbee" {
		t.Errorf("GlobalBlob() = %q", set.GlobalBlob())
	}
}

func TestFetchEmptyCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zbee/workers/actions/variables", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_count": 0, "variables": []}`)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.Fetch(context.Background())
	if fault.CodeOf(err) != fault.EmptyCredentialSet {
		t.Errorf("Fetch() error = %v, want empty_credential_set", err)
	}
}

func TestFetchUpstreamFailureKeepsDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zbee/workers/actions/variables", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message": "store exploded"}`)
	})

	client, _ := newTestClient(t, mux)
	_, err := client.Fetch(context.Background())

	f, ok := fault.From(err)
	if !ok || f.Code != fault.BrokenCredentialStore {
		t.Fatalf("Fetch() error = %v, want broken_credential_store", err)
	}
	if !containsAll(f.Detail, "store exploded", "500") {
		t.Errorf("detail %q should carry the upstream status and body", f.Detail)
	}
}

func TestFetchTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/zbee/workers/actions/variables", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"total_count": 0, "variables": []}`)
	})

	client, _ := newTestClient(t, mux)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx)
	if fault.CodeOf(err) != fault.UpstreamTimeout {
		t.Errorf("Fetch() error = %v, want upstream_timeout", err)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
