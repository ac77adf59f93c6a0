// Package notes is a small GraphQL schema used to demonstrate (and test) the view with a real backend.
// Notes are kept in a Store - in memory or in a SQL database - and new notes are published to subscribers.
package notes

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a note does not exist
var ErrNotFound = errors.New("note not found")

type (
	Note struct {
		ID        string
		Text      string
		Author    string
		CreatedAt time.Time
	}

	// Store saves notes.  If a mutation is running atomically the SQL stores use its transaction
	// (from the context) so that the changes are rolled back if the mutation fails.
	Store interface {
		List(ctx context.Context) ([]Note, error)
		Get(ctx context.Context, id string) (Note, error)
		Add(ctx context.Context, text, author string) (Note, error)
		Delete(ctx context.Context, id string) error
	}

	// MemStore keeps notes in memory
	MemStore struct {
		mu    sync.Mutex
		last  int
		notes map[string]Note
	}

	userKey struct{}
)

func NewMemStore() *MemStore {
	return &MemStore{notes: make(map[string]Note)}
}

// List returns all notes in the order they were added
func (s *MemStore) List(ctx context.Context) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		r = append(r, n)
	}
	sort.Slice(r, func(i, j int) bool {
		a, _ := strconv.Atoi(r[i].ID)
		b, _ := strconv.Atoi(r[j].ID)
		return a < b
	})
	return r, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return Note{}, ErrNotFound
	}
	return n, nil
}

func (s *MemStore) Add(ctx context.Context, text, author string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	n := Note{ID: strconv.Itoa(s.last), Text: text, Author: author, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	s.notes[n.ID] = n
	return n, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

// WithUser returns a copy of ctx with the name of the logged-in user, who becomes the author of new notes
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// User returns the logged-in user or an empty string if there is none
func User(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}
