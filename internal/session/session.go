// Package session keeps per-browser dashboard selections in memory.
package session

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/chrissnell/sensordash/internal/aggregate"
	"github.com/chrissnell/sensordash/internal/dataset"
	"github.com/chrissnell/sensordash/internal/log"
	"github.com/chrissnell/sensordash/internal/types"
	"github.com/chrissnell/sensordash/internal/views"
	"github.com/google/uuid"
)

// CookieName carries the session ID
const CookieName = "sensordash_session"

// DefaultTTL is how long an idle session is kept
const DefaultTTL = 12 * time.Hour

const sweepInterval = time.Minute

// ErrNotFound is returned for unknown or evicted session IDs
var ErrNotFound = errors.New("session not found")

// State is one session's selection. The snapshot Reading only changes through
// Store.RefreshSnapshot.
type State struct {
	ID          string                  `json:"id"`
	Dataset     dataset.Choice          `json:"dataset"`
	ShowSummary bool                    `json:"show_summary"`
	TrendView   views.TrendView         `json:"trend_view"`
	EnvView     views.EnvironmentalView `json:"env_view"`
	Variable    string                  `json:"variable"`
	Granularity aggregate.Granularity   `json:"granularity"`
	Date        time.Time               `json:"date"`
	Month       time.Month              `json:"month"`
	Year        int                     `json:"year"`
	Snapshot    *types.Reading          `json:"snapshot"`
	SnapshotAt  time.Time               `json:"snapshot_at"`
	LastAccess  time.Time               `json:"last_access"`
}

// Query builds the aggregation query for the current selection
func (s State) Query() aggregate.Query {
	return aggregate.Query{
		Variable:    s.Variable,
		Granularity: s.Granularity,
		Date:        s.Date,
		Month:       s.Month,
		Year:        s.Year,
	}
}

func (s *State) clone() State {
	c := *s
	if s.Snapshot != nil {
		r := *s.Snapshot
		c.Snapshot = &r
	}
	return c
}

// Store holds every live session
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*State
	ttl         time.Duration
	defaultDate time.Time
	lastSweep   time.Time

	now  func() time.Time
	pick func(n int) int
}

// NewStore creates a Store. A non-positive ttl selects DefaultTTL.
func NewStore(ttl time.Duration, defaultDate time.Time) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions:    make(map[string]*State),
		ttl:         ttl,
		defaultDate: defaultDate,
		now:         time.Now,
		pick:        rand.Intn,
	}
}

// Create starts a session with default selections and a snapshot drawn from
// ds, which may be nil when no data is loaded.
func (s *Store) Create(ds *types.Dataset) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictLocked(now)

	st := s.defaults(ds, now)
	st.ID = uuid.New().String()
	s.sessions[st.ID] = st
	return st.clone()
}

// Transient returns the default selections with a snapshot drawn from ds
// without storing a session. Its ID is empty.
func (s *Store) Transient(ds *types.Dataset) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults(ds, s.now()).clone()
}

func (s *Store) defaults(ds *types.Dataset, now time.Time) *State {
	year := s.defaultDate.Year()
	if years := ds.Years(); len(years) > 0 {
		year = years[0]
	}

	st := &State{
		Dataset:     dataset.Normal,
		TrendView:   views.TrendNone,
		EnvView:     views.EnvNone,
		Variable:    types.ColumnTemperature,
		Granularity: aggregate.Daily,
		Date:        s.defaultDate,
		Month:       time.January,
		Year:        year,
		LastAccess:  now,
	}
	if r := s.sample(ds); r != nil {
		st.Snapshot = r
		st.SnapshotAt = now
	}
	return st
}

// Get returns the session and marks it as used. Idle sessions are not
// returned, and at most once per sweepInterval every idle session is evicted.
func (s *Store) Get(id string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.evictLocked(now)
	}

	st, ok := s.sessions[id]
	if !ok {
		return State{}, false
	}
	if now.Sub(st.LastAccess) > s.ttl {
		delete(s.sessions, id)
		return State{}, false
	}
	st.LastAccess = now
	return st.clone(), true
}

// Update applies fn to a copy of the session and stores the copy when fn
// succeeds. The snapshot and identity fields cannot be changed this way.
func (s *Store) Update(id string, fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		return State{}, ErrNotFound
	}

	next := st.clone()
	if err := fn(&next); err != nil {
		return st.clone(), err
	}
	next.ID = st.ID
	next.Snapshot = st.Snapshot
	next.SnapshotAt = st.SnapshotAt
	next.LastAccess = s.now()

	*st = next
	return st.clone(), nil
}

// RefreshSnapshot draws a new snapshot Reading from ds
func (s *Store) RefreshSnapshot(id string, ds *types.Dataset) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		return State{}, ErrNotFound
	}
	now := s.now()
	st.Snapshot = s.sample(ds)
	st.SnapshotAt = now
	st.LastAccess = now
	return st.clone(), nil
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) sample(ds *types.Dataset) *types.Reading {
	n := ds.Len()
	if n == 0 {
		return nil
	}
	r := ds.Readings[s.pick(n)]
	return &r
}

func (s *Store) evictLocked(now time.Time) {
	s.lastSweep = now
	for id, st := range s.sessions {
		if now.Sub(st.LastAccess) > s.ttl {
			delete(s.sessions, id)
			log.Debugf("evicted idle session %s", id)
		}
	}
}
