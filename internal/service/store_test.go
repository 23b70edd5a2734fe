package service_test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/repo"
)

// memStore is an in-memory repo.Store. Trips carry a version and Save is a
// compare-and-swap on it, like the Postgres implementation. WithinTx works
// on a copy that replaces the live data only on success.
type memStore struct {
	mu    *sync.Mutex // nil inside a transaction; the outer lock is held
	data  *memData
	hooks *memHooks
}

type memData struct {
	trips    map[uuid.UUID]domain.Trip
	users    map[uuid.UUID]domain.User
	reviews  []domain.Review
	messages []domain.Message
	seq      int
}

// memHooks inject failures. Each returns a non-nil error to fail the call.
type memHooks struct {
	beforeSave     func(trip domain.Trip) error
	beforeAddKarma func(id uuid.UUID) error
	saves          int
	lockedReads    int
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		data: &memData{
			trips: map[uuid.UUID]domain.Trip{},
			users: map[uuid.UUID]domain.User{},
		},
		hooks: &memHooks{},
	}
}

var _ repo.Store = (*memStore)(nil)

func (s *memStore) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) Trips() repo.TripRepo       { return memTrips{s} }
func (s *memStore) Users() repo.UserRepo       { return memUsers{s} }
func (s *memStore) Reviews() repo.ReviewRepo   { return memReviews{s} }
func (s *memStore) Messages() repo.MessageRepo { return memMessages{s} }

func (s *memStore) WithinTx(_ context.Context, fn func(repo.Store) error) error {
	defer s.lock()()

	snapshot := s.data.clone()
	if err := fn(&memStore{data: snapshot, hooks: s.hooks}); err != nil {
		return err
	}
	*s.data = *snapshot
	return nil
}

func (d *memData) clone() *memData {
	return &memData{
		trips:    maps.Clone(d.trips),
		users:    maps.Clone(d.users),
		reviews:  slices.Clone(d.reviews),
		messages: slices.Clone(d.messages),
		seq:      d.seq,
	}
}

// tick returns a strictly increasing timestamp so ordering by time is stable.
func (d *memData) tick() time.Time {
	d.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(d.seq) * time.Second)
}

// ---- seeding helpers -------------------------------------------------------

func (s *memStore) addUser(name string) domain.User {
	defer s.lock()()
	u := domain.User{ID: uuid.New(), Username: name, Email: name + "@example.com", CreatedAt: s.data.tick()}
	s.data.users[u.ID] = u
	return u
}

func (s *memStore) addTrip(t domain.Trip) domain.Trip {
	defer s.lock()()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	t.CreatedAt = s.data.tick()
	s.data.trips[t.ID] = t
	return t
}

func (s *memStore) trip(id uuid.UUID) domain.Trip {
	defer s.lock()()
	return s.data.trips[id]
}

func (s *memStore) karma(id uuid.UUID) int {
	defer s.lock()()
	return s.data.users[id].Karma
}

func (s *memStore) reviewCount() int {
	defer s.lock()()
	return len(s.data.reviews)
}

// ---- trips -----------------------------------------------------------------

type memTrips struct{ s *memStore }

func (r memTrips) Create(_ context.Context, t domain.Trip) (domain.Trip, error) {
	defer r.s.lock()()
	t.ID = uuid.New()
	t.Version = 1
	t.CreatedAt = r.s.data.tick()
	t.UpdatedAt = t.CreatedAt
	r.s.data.trips[t.ID] = t
	return t, nil
}

func (r memTrips) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	defer r.s.lock()()
	t, ok := r.s.data.trips[id]
	if !ok {
		return domain.Trip{}, fmt.Errorf("memTrips.GetByID: %w", domain.ErrNotFound)
	}
	t.Participants = slices.Clone(t.Participants)
	return t, nil
}

// GetForUpdate counts the locked read. WithinTx already holds the store
// lock for the whole transaction.
func (r memTrips) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	r.s.hooks.lockedReads++
	return r.GetByID(ctx, id)
}

func (r memTrips) sorted(keep func(domain.Trip) bool) []domain.Trip {
	out := []domain.Trip{}
	for _, t := range r.s.data.trips {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// byDate orders like the SQL "ORDER BY date, created_at".
func byDate(trips []domain.Trip) []domain.Trip {
	sort.SliceStable(trips, func(i, j int) bool { return trips[i].Date.Before(trips[j].Date) })
	return trips
}

func (r memTrips) ListPaged(_ context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	defer r.s.lock()()
	all := byDate(r.sorted(func(domain.Trip) bool { return true }))
	lo := min(p.Offset(), len(all))
	hi := min(lo+p.Limit, len(all))
	return all[lo:hi], int64(len(all)), nil
}

func (r memTrips) ListByHost(_ context.Context, hostID uuid.UUID) ([]domain.Trip, error) {
	defer r.s.lock()()
	return byDate(r.sorted(func(t domain.Trip) bool { return t.HostID == hostID })), nil
}

func (r memTrips) ListWithCoordinates(_ context.Context) ([]domain.Trip, error) {
	defer r.s.lock()()
	return r.sorted(domain.Trip.HasCoordinates), nil
}

func (r memTrips) Save(_ context.Context, t domain.Trip) (domain.Trip, error) {
	defer r.s.lock()()
	r.s.hooks.saves++
	if h := r.s.hooks.beforeSave; h != nil {
		if err := h(t); err != nil {
			return domain.Trip{}, err
		}
	}
	stored, ok := r.s.data.trips[t.ID]
	if !ok {
		return domain.Trip{}, fmt.Errorf("memTrips.Save: %w", domain.ErrNotFound)
	}
	if stored.Version != t.Version {
		return domain.Trip{}, fmt.Errorf("memTrips.Save: %w", domain.ErrConflict)
	}
	t.HostID = stored.HostID
	t.HostName = stored.HostName
	t.CreatedAt = stored.CreatedAt
	t.Version++
	t.UpdatedAt = r.s.data.tick()
	t.Participants = slices.Clone(t.Participants)
	r.s.data.trips[t.ID] = t
	return t, nil
}

func (r memTrips) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.trips[id]; !ok {
		return fmt.Errorf("memTrips.Delete: %w", domain.ErrNotFound)
	}
	delete(r.s.data.trips, id)
	return nil
}

// ---- users -----------------------------------------------------------------

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u domain.User) (domain.User, error) {
	defer r.s.lock()()
	for _, existing := range r.s.data.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return domain.User{}, fmt.Errorf("memUsers.Create: %w: email or username already registered", domain.ErrValidation)
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.s.data.tick()
	u.UpdatedAt = u.CreatedAt
	r.s.data.users[u.ID] = u
	return u, nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("memUsers.GetByID: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("memUsers.GetByEmail: %w", domain.ErrNotFound)
}

func (r memUsers) AddKarma(_ context.Context, id uuid.UUID, delta int) (int, error) {
	defer r.s.lock()()
	if h := r.s.hooks.beforeAddKarma; h != nil {
		if err := h(id); err != nil {
			return 0, err
		}
	}
	u, ok := r.s.data.users[id]
	if !ok {
		return 0, fmt.Errorf("memUsers.AddKarma: %w", domain.ErrNotFound)
	}
	u.Karma += delta
	r.s.data.users[id] = u
	return u.Karma, nil
}

func (r memUsers) ListByKarma(_ context.Context, limit int) ([]domain.User, error) {
	defer r.s.lock()()
	out := slices.Collect(maps.Values(r.s.data.users))
	sort.Slice(out, func(i, j int) bool {
		if out[i].Karma != out[j].Karma {
			return out[i].Karma > out[j].Karma
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- reviews ---------------------------------------------------------------

type memReviews struct{ s *memStore }

func (r memReviews) Append(_ context.Context, rv domain.Review) (domain.Review, error) {
	defer r.s.lock()()
	for _, existing := range r.s.data.reviews {
		if existing.TripID == rv.TripID && existing.UserID == rv.UserID {
			return domain.Review{}, fmt.Errorf("memReviews.Append: %w", domain.ErrDuplicateReview)
		}
	}
	rv.ID = uuid.New()
	rv.CreatedAt = r.s.data.tick()
	r.s.data.reviews = append(r.s.data.reviews, rv)
	return rv, nil
}

func (r memReviews) Exists(_ context.Context, tripID, userID uuid.UUID) (bool, error) {
	defer r.s.lock()()
	return slices.ContainsFunc(r.s.data.reviews, func(rv domain.Review) bool {
		return rv.TripID == tripID && rv.UserID == userID
	}), nil
}

func (r memReviews) newestFirst(keep func(domain.Review) bool) []domain.Review {
	out := []domain.Review{}
	for i := len(r.s.data.reviews) - 1; i >= 0; i-- {
		if rv := r.s.data.reviews[i]; keep(rv) {
			out = append(out, rv)
		}
	}
	return out
}

func (r memReviews) ListByTrip(_ context.Context, tripID uuid.UUID) ([]domain.Review, error) {
	defer r.s.lock()()
	return r.newestFirst(func(rv domain.Review) bool { return rv.TripID == tripID }), nil
}

func (r memReviews) ListByHost(_ context.Context, hostID uuid.UUID) ([]domain.Review, error) {
	defer r.s.lock()()
	return r.newestFirst(func(rv domain.Review) bool {
		return r.s.data.trips[rv.TripID].HostID == hostID
	}), nil
}

func (r memReviews) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Review, error) {
	defer r.s.lock()()
	return r.newestFirst(func(rv domain.Review) bool { return rv.UserID == userID }), nil
}

// ---- messages --------------------------------------------------------------

type memMessages struct{ s *memStore }

func (r memMessages) Create(_ context.Context, m domain.Message) (domain.Message, error) {
	defer r.s.lock()()
	m.ID = uuid.New()
	m.CreatedAt = r.s.data.tick()
	r.s.data.messages = append(r.s.data.messages, m)
	return m, nil
}

func (r memMessages) ListByTrip(_ context.Context, tripID uuid.UUID, limit int) ([]domain.Message, error) {
	defer r.s.lock()()
	out := []domain.Message{}
	for _, m := range r.s.data.messages {
		if m.TripID == tripID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ---- recorder --------------------------------------------------------------

// countingRecorder is a service.Recorder that counts events.
type countingRecorder struct {
	mu        sync.Mutex
	joined    int
	left      int
	ended     int
	conflicts map[string]int
	reviews   []int
	deltas    []int
	messages  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{conflicts: map[string]int{}}
}

func (c *countingRecorder) TripJoined() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined++
}

func (c *countingRecorder) TripLeft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left++
}

func (c *countingRecorder) TripEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended++
}

func (c *countingRecorder) MessagePosted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages++
}

func (c *countingRecorder) ConflictRetried(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts[op]++
}

func (c *countingRecorder) ReviewSubmitted(rating int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reviews = append(c.reviews, rating)
}

func (c *countingRecorder) KarmaSettled(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltas = append(c.deltas, delta)
}

// ---- fixtures --------------------------------------------------------------

// fixedNow is the clock used by every service under test.
var fixedNow = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

// pastTrip returns a trip dated before fixedNow, hosted by hostID.
func pastTrip(hostID uuid.UUID, participants ...uuid.UUID) domain.Trip {
	return domain.Trip{
		HostID:       hostID,
		HostName:     "host",
		Title:        "Sunrise hike",
		Location:     "Mt. Tam",
		Date:         time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		TripType:     domain.TripTypeGroup,
		Participants: participants,
	}
}

// futureTrip returns a trip dated after fixedNow, hosted by hostID.
func futureTrip(hostID uuid.UUID, participants ...uuid.UUID) domain.Trip {
	t := pastTrip(hostID, participants...)
	t.Date = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return t
}
