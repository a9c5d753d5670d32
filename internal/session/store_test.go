package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/portfolio/internal/pagestate"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, nil)
	s.now = clock.Now
	return s, clock
}

func TestCreateStartsWithInitialState(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	v := s.Create()

	require.NotEmpty(t, v.ID)
	assert.Equal(t, pagestate.Home, v.State.Active)
	assert.False(t, v.State.Dark)
	assert.False(t, v.State.MenuOpen)
	assert.Zero(t, v.State.Progress)

	got, err := s.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
}

func TestReferenceLineAppliesToNewViews(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.SetReferenceLine(300)
	v := s.Create()
	assert.Equal(t, 300.0, v.State.ReferenceLine())

	got, err := s.Update(v.ID, func(st *pagestate.State) {
		st.Scroll(pagestate.Snapshot{Sections: pagestate.Rects{
			pagestate.Home:  {Top: -500, Bottom: 150},
			pagestate.About: {Top: 150, Bottom: 900},
		}})
	})
	require.NoError(t, err)
	assert.Equal(t, pagestate.About, got.State.Active)
}

func TestUpdateMutatesOnlyThatView(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	a := s.Create()
	b := s.Create()

	_, err := s.Update(a.ID, func(st *pagestate.State) { st.ToggleTheme() })
	require.NoError(t, err)

	gotA, _ := s.Get(a.ID)
	gotB, _ := s.Get(b.ID)
	assert.True(t, gotA.State.Dark)
	assert.False(t, gotB.State.Dark)
}

func TestUnknownAndMalformedIDs(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	_, err := s.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrViewNotFound)

	_, err = s.Update("7b0d7f0e-2c55-4b8f-9d43-2f0f1f6f5a11", func(*pagestate.State) {})
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestExpiryAndSweep(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	stale := s.Create()
	clock.Advance(45 * time.Second)
	fresh := s.Create()

	_, err := s.Update(stale.ID, func(*pagestate.State) {})
	require.NoError(t, err, "touching a view refreshes it")

	clock.Advance(61 * time.Second)
	_, err = s.Get(stale.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
	_, err = s.Get(fresh.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.Sweep())
	assert.Zero(t, s.Len())
}

func TestCreateEvictsLeastRecentlySeenWhenFull(t *testing.T) {
	s, clock := newTestStore(time.Hour)
	s.SetMaxViews(3)

	first := s.Create()
	clock.Advance(time.Second)
	second := s.Create()
	clock.Advance(time.Second)
	third := s.Create()
	clock.Advance(time.Second)

	_, err := s.Update(first.ID, func(st *pagestate.State) { st.ToggleMenu() })
	require.NoError(t, err)
	clock.Advance(time.Second)

	fourth := s.Create()
	assert.Equal(t, 3, s.Len())

	_, err = s.Get(second.ID)
	assert.ErrorIs(t, err, ErrViewNotFound, "idlest view is evicted")
	for _, id := range []string{first.ID, third.ID, fourth.ID} {
		_, err := s.Get(id)
		assert.NoError(t, err)
	}
}

func TestCreatePrefersDroppingExpiredViews(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	s.SetMaxViews(2)

	a := s.Create()
	b := s.Create()
	clock.Advance(2 * time.Minute)
	_, err := s.Update(b.ID, func(*pagestate.State) {})
	require.ErrorIs(t, err, ErrViewNotFound)

	for i := 0; i < 5; i++ {
		s.Create()
	}
	assert.Equal(t, 2, s.Len(), "store never grows past its cap")
	_, err = s.Get(a.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
}

func TestConcurrentUpdates(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	v := s.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(v.ID, func(st *pagestate.State) { st.ToggleTheme() })
		}()
	}
	wg.Wait()

	got, err := s.Get(v.ID)
	require.NoError(t, err)
	assert.False(t, got.State.Dark, "an even number of toggles restores the theme")
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
