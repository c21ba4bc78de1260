package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/mediatrack/internal/model"
	"github.com/nao1215/mediatrack/internal/votedb"
	"github.com/nao1215/mediatrack/internal/votes"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := votedb.Open(t.TempDir(), votedb.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	srv := httptest.NewServer(New(db))
	t.Cleanup(srv.Close)
	return srv
}

func TestServerWithClient(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	c := votes.NewClient(srv.URL)
	ctx := context.Background()
	imageURL := "https://cdn.example.com/img/a.png?size=large&v=2"

	got, err := c.Tally(ctx, imageURL)
	if err != nil {
		t.Fatal(err)
	}
	if got.Total() != 0 || got.ImageURL != imageURL {
		t.Errorf("unexpected initial tally %+v", got)
	}

	if _, err := c.Vote(ctx, imageURL, true); err != nil {
		t.Fatal(err)
	}
	got, err = c.Vote(ctx, imageURL, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.FakeVotes != 2 || got.RealVotes != 0 {
		t.Errorf("unexpected tally after votes %+v", got)
	}

	got, err = c.Tally(ctx, imageURL)
	if err != nil {
		t.Fatal(err)
	}
	if got.FakeVotes != 2 || got.ImageURL != imageURL {
		t.Errorf("tally should round-trip the identity, got %+v", got)
	}

	all, err := c.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 tally, got %d", len(all))
	}

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if health.Status != "OK" || health.Message != "Server is running" {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestServerRequests(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	t.Run("CORS headers", func(t *testing.T) {
		t.Parallel()

		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Error("expected CORS header")
		}
	})

	t.Run("preflight", func(t *testing.T) {
		t.Parallel()

		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/votes", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("expected 204, got %d", resp.StatusCode)
		}
	})

	t.Run("bad vote body", func(t *testing.T) {
		t.Parallel()

		for _, body := range []string{`not json`, `{"isFake": true}`} {
			resp, err := http.Post(srv.URL+"/api/votes", "application/json", strings.NewReader(body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("body %q: expected 400, got %d", body, resp.StatusCode)
			}
		}
	})

	t.Run("vote response shape", func(t *testing.T) {
		t.Parallel()

		body, _ := json.Marshal(votes.VoteRequest{ImageURL: "shape", IsFake: false})
		resp, err := http.Post(srv.URL+"/api/votes", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var raw map[string]json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			t.Fatal(err)
		}
		if string(raw["success"]) != "true" {
			t.Errorf("expected success true, got %s", raw["success"])
		}
		var tally model.Tally
		if err := json.Unmarshal(raw["votes"], &tally); err != nil {
			t.Fatal(err)
		}
		if tally.RealVotes != 1 || tally.ImageURL != "shape" {
			t.Errorf("unexpected votes %+v", tally)
		}
	})

	t.Run("wrong method on identity route", func(t *testing.T) {
		t.Parallel()

		resp, err := http.Post(srv.URL+"/api/votes/"+url.PathEscape("x"), "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})
}

type failingStore struct{}

func (failingStore) Tally(context.Context, string) (model.Tally, error) {
	return model.Tally{}, errors.New("db down")
}

func (failingStore) Vote(context.Context, string, bool) (model.Tally, error) {
	return model.Tally{}, errors.New("db down")
}

func (failingStore) All(context.Context) ([]model.Tally, error) {
	return nil, errors.New("db down")
}

func TestServerStoreFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(New(failingStore{}))
	t.Cleanup(srv.Close)

	c := votes.NewClient(srv.URL)
	ctx := context.Background()
	if _, err := c.Vote(ctx, "a", true); !errors.Is(err, votes.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if _, err := c.Tally(ctx, "a"); !errors.Is(err, votes.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if _, err := c.All(ctx); !errors.Is(err, votes.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestServe(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	store, err := votes.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(store).Serve(ctx, listener) }()

	c := votes.NewClient("http://" + listener.Addr().String())
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatal(err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type panickingStore struct{ failingStore }

func (panickingStore) All(context.Context) ([]model.Tally, error) {
	panic("corrupt index")
}

func TestServerRecoversFromPanics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(New(panickingStore{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/votes")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}

	// The server keeps serving after a handler panic.
	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServerIdentityRoute(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	tests := []struct {
		name     string
		identity string
	}{
		{name: "url with slashes", identity: "https://example.com/a/b.png"},
		{name: "escaped slash inside", identity: "https://example.com/a%2Fb.png"},
		{name: "query string", identity: "https://example.com/a.png?x=1&y=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := http.Get(srv.URL + "/api/votes/" + url.PathEscape(tt.identity))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("expected CORS header, got %q", got)
			}
			var tally model.Tally
			if err := json.NewDecoder(resp.Body).Decode(&tally); err != nil {
				t.Fatal(err)
			}
			if tally.ImageURL != tt.identity {
				t.Errorf("expected identity %q, got %q", tt.identity, tally.ImageURL)
			}
		})
	}
}
