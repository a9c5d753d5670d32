// Package session keeps the UI state of live page views in memory. A view
// lives as long as the page that created it keeps talking to the server.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Zachkp/portfolio/internal/pagestate"
)

// ErrViewNotFound is returned for unknown or expired view ids.
var ErrViewNotFound = errors.New("view not found")

const (
	DefaultTTL = 30 * time.Minute

	// DefaultMaxViews bounds the number of live views held in memory.
	DefaultMaxViews = 10000
)

// View is a snapshot of one page view's state.
type View struct {
	ID       string
	State    pagestate.State
	Created  time.Time
	LastSeen time.Time
}

type Store struct {
	mu       sync.Mutex
	views    map[string]*View
	ttl      time.Duration
	maxViews int
	refLine  float64
	now      func() time.Time
	log      *zap.Logger
}

// NewStore creates a store expiring views idle for longer than ttl.
func NewStore(ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		views:    map[string]*View{},
		ttl:      ttl,
		maxViews: DefaultMaxViews,
		now:      time.Now,
		log:      logger,
	}
}

// Create registers a fresh view with the initial page state. When the store
// is full, expired views are dropped first and then the least recently seen
// one.
func (s *Store) Create() View {
	now := s.now()
	v := &View{
		ID:       uuid.NewString(),
		State:    s.initial(),
		Created:  now,
		LastSeen: now,
	}
	s.mu.Lock()
	s.makeRoom(now)
	s.views[v.ID] = v
	s.mu.Unlock()
	return *v
}

// SetMaxViews caps the number of views held at once. n <= 0 restores
// DefaultMaxViews.
func (s *Store) SetMaxViews(n int) {
	if n <= 0 {
		n = DefaultMaxViews
	}
	s.mu.Lock()
	s.maxViews = n
	s.mu.Unlock()
}

// makeRoom must be called with s.mu held.
func (s *Store) makeRoom(now time.Time) {
	if len(s.views) < s.maxViews {
		return
	}
	for id, v := range s.views {
		if s.expired(v, now) {
			delete(s.views, id)
		}
	}
	for len(s.views) >= s.maxViews {
		var oldest *View
		for _, v := range s.views {
			if oldest == nil || v.LastSeen.Before(oldest.LastSeen) {
				oldest = v
			}
		}
		delete(s.views, oldest.ID)
		s.log.Debug("evicted idle page view", zap.String("view", oldest.ID))
	}
}

// SetReferenceLine changes the active section line for views created
// afterwards.
func (s *Store) SetReferenceLine(y float64) {
	s.mu.Lock()
	s.refLine = y
	s.mu.Unlock()
}

func (s *Store) initial() pagestate.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := pagestate.New()
	if s.refLine > 0 {
		st = st.WithReferenceLine(s.refLine)
	}
	return st
}

// Get returns a copy of the view.
func (s *Store) Get(id string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	return *v, nil
}

// Update applies fn to the view's state and returns the result.
func (s *Store) Update(id string, fn func(*pagestate.State)) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	fn(&v.State)
	v.LastSeen = s.now()
	return *v, nil
}

func (s *Store) lookup(id string) (*View, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrViewNotFound
	}
	v, ok := s.views[id]
	if !ok || s.expired(v, s.now()) {
		return nil, ErrViewNotFound
	}
	return v, nil
}

func (s *Store) expired(v *View, now time.Time) bool {
	return now.Sub(v.LastSeen) > s.ttl
}

// Len reports the number of tracked views, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep drops expired views and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, v := range s.views {
		if s.expired(v, now) {
			delete(s.views, id)
			n++
		}
	}
	return n
}

// Run sweeps on every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("expired page views swept", zap.Int("count", n))
			}
		}
	}
}
