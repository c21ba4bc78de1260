package votes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/peterbourgon/diskv/v3"

	"github.com/nao1215/mediatrack/internal/model"
)

// LocalKey is the diskv key holding every tally as one JSON object.
const LocalKey = "imageVotes"

// lockRetryDelay is how often a blocked vote retries the file lock.
const lockRetryDelay = 20 * time.Millisecond

// LocalStore keeps tallies in a single JSON blob on disk. A file lock
// makes read-modify-write safe across processes sharing the directory.
type LocalStore struct {
	d    *diskv.Diskv
	lock *flock.Flock

	// mu serializes callers within the process; flock is per file handle.
	mu sync.Mutex

	now func() time.Time
}

// NewLocalStore opens or creates a store in dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("local vote store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create vote store directory: %w", err)
	}

	d := diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 0,
		FilePerm:     0o600,
		PathPerm:     0o700,
	})

	return &LocalStore{
		d:    d,
		lock: flock.New(filepath.Join(dir, LocalKey+".lock")),
		now:  time.Now,
	}, nil
}

// Tally returns the stored counters or zeros.
func (s *LocalStore) Tally(ctx context.Context, imageURL string) (model.Tally, error) {
	if imageURL == "" {
		return model.Tally{}, ErrEmptyImageURL
	}

	var t model.Tally
	err := s.withLock(ctx, func() error {
		all, err := s.read()
		if err != nil {
			return err
		}
		var ok bool
		if t, ok = all[imageURL]; !ok {
			t = model.NewTally(imageURL)
		}
		return nil
	})
	return t, err
}

// Vote increments one counter and persists the result.
func (s *LocalStore) Vote(ctx context.Context, imageURL string, isFake bool) (model.Tally, error) {
	if imageURL == "" {
		return model.Tally{}, ErrEmptyImageURL
	}

	var t model.Tally
	err := s.withLock(ctx, func() error {
		all, err := s.read()
		if err != nil {
			return err
		}
		existing, ok := all[imageURL]
		if !ok {
			existing = model.Tally{ImageURL: imageURL}
		}
		t = existing.Add(isFake, s.now())
		all[imageURL] = t
		return s.write(all)
	})
	return t, err
}

// All returns every tally ordered by image URL.
func (s *LocalStore) All(ctx context.Context) ([]model.Tally, error) {
	var out []model.Tally
	err := s.withLock(ctx, func() error {
		all, err := s.read()
		if err != nil {
			return err
		}
		out = make([]model.Tally, 0, len(all))
		for _, t := range all {
			out = append(out, t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].ImageURL < out[j].ImageURL
	})
	return out, err
}

func (s *LocalStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock vote store: %w", err)
	}
	if !locked {
		return errors.New("failed to lock vote store")
	}
	defer func() { _ = s.lock.Unlock() }()

	return fn()
}

func (s *LocalStore) read() (map[string]model.Tally, error) {
	all := make(map[string]model.Tally)
	data, err := s.d.Read(LocalKey)
	if errors.Is(err, fs.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vote store: %w", err)
	}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("corrupt vote store: %w", err)
	}
	return all, nil
}

func (s *LocalStore) write(all map[string]model.Tally) error {
	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	if err := s.d.Write(LocalKey, data); err != nil {
		return fmt.Errorf("failed to write vote store: %w", err)
	}
	return nil
}
