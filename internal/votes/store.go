// Package votes talks to the crowd vote store.
//
// Store is implemented by Client, which speaks the vote-store HTTP API,
// and by LocalStore, a file-backed fallback for running without a server.
package votes

import (
	"context"
	"errors"

	"github.com/nao1215/mediatrack/internal/model"
)

var (
	// ErrUnavailable is returned when the vote store cannot be reached or
	// answers with an error.
	ErrUnavailable = errors.New("vote store unavailable")

	// ErrEmptyImageURL is returned for votes and lookups without an identity.
	ErrEmptyImageURL = errors.New("image URL is empty")
)

// Store reads and updates vote tallies.
type Store interface {
	// Tally returns the counters for imageURL; unknown identities yield zeros.
	Tally(ctx context.Context, imageURL string) (model.Tally, error)

	// Vote adds one vote and returns the updated counters.
	Vote(ctx context.Context, imageURL string, isFake bool) (model.Tally, error)

	// All returns every stored tally.
	All(ctx context.Context) ([]model.Tally, error)
}

// VoteRequest is the body of POST /api/votes.
type VoteRequest struct {
	ImageURL string `json:"imageUrl"`
	IsFake   bool   `json:"isFake"`
}

// VoteResponse is the reply to POST /api/votes.
type VoteResponse struct {
	Success bool         `json:"success"`
	Votes   *model.Tally `json:"votes,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// HealthResponse is the reply to GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var (
	_ Store = (*Client)(nil)
	_ Store = (*LocalStore)(nil)
)
