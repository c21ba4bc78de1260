package votes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/mediatrack/internal/model"
)

func TestClient(t *testing.T) {
	t.Parallel()

	t.Run("tally escapes the image URL", func(t *testing.T) {
		t.Parallel()

		paths := make(chan string, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths <- r.URL.EscapedPath()
			_ = json.NewEncoder(w).Encode(model.Tally{ImageURL: "http://x/a.png", FakeVotes: 2, RealVotes: 1})
		}))
		t.Cleanup(srv.Close)

		got, err := NewClient(srv.URL+"/").Tally(context.Background(), "http://x/a.png")
		if err != nil {
			t.Fatal(err)
		}
		if got.FakeVotes != 2 || got.RealVotes != 1 {
			t.Errorf("unexpected tally %+v", got)
		}
		if p := <-paths; p != "/api/votes/http:%2F%2Fx%2Fa.png" {
			t.Errorf("unexpected path %q", p)
		}
	})

	t.Run("vote posts the request body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/votes" {
				http.NotFound(w, r)
				return
			}
			var req VoteRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			tally := model.Tally{ImageURL: req.ImageURL}
			if req.IsFake {
				tally.FakeVotes = 1
			} else {
				tally.RealVotes = 1
			}
			_ = json.NewEncoder(w).Encode(VoteResponse{Success: true, Votes: &tally})
		}))
		t.Cleanup(srv.Close)

		got, err := NewClient(srv.URL).Vote(context.Background(), "img", true)
		if err != nil {
			t.Fatal(err)
		}
		if got.FakeVotes != 1 || got.RealVotes != 0 || got.ImageURL != "img" {
			t.Errorf("unexpected tally %+v", got)
		}
	})

	t.Run("vote without returned tally refetches", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				_ = json.NewEncoder(w).Encode(VoteResponse{Success: true})
				return
			}
			_ = json.NewEncoder(w).Encode(model.Tally{RealVotes: 9})
		}))
		t.Cleanup(srv.Close)

		got, err := NewClient(srv.URL).Vote(context.Background(), "img", false)
		if err != nil {
			t.Fatal(err)
		}
		if got.RealVotes != 9 || got.ImageURL != "img" {
			t.Errorf("unexpected tally %+v", got)
		}
	})

	t.Run("server errors are unavailable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Failed to update votes"}`))
		}))
		t.Cleanup(srv.Close)

		c := NewClient(srv.URL)
		if _, err := c.Vote(context.Background(), "img", true); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if _, err := c.Tally(context.Background(), "img"); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("rejected vote", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(VoteResponse{Success: false, Error: "nope"})
		}))
		t.Cleanup(srv.Close)

		_, err := NewClient(srv.URL).Vote(context.Background(), "img", true)
		if !errors.Is(err, ErrUnavailable) || !strings.Contains(err.Error(), "nope") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		if _, err := NewClient(url).All(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("empty image URL", func(t *testing.T) {
		t.Parallel()

		c := NewClient("http://127.0.0.1:1")
		if _, err := c.Tally(context.Background(), ""); !errors.Is(err, ErrEmptyImageURL) {
			t.Errorf("expected ErrEmptyImageURL, got %v", err)
		}
		if _, err := c.Vote(context.Background(), "", true); !errors.Is(err, ErrEmptyImageURL) {
			t.Errorf("expected ErrEmptyImageURL, got %v", err)
		}
	})

	t.Run("health", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(HealthResponse{Status: "OK", Message: "Server is running"})
		}))
		t.Cleanup(srv.Close)

		h, err := NewClient(srv.URL).Health(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if h.Status != "OK" {
			t.Errorf("unexpected status %q", h.Status)
		}
	})
}
