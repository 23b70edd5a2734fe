package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/service"
)

type reviewFixture struct {
	store *memStore
	rec   *countingRecorder
	cache *mockLeaderboardCache
	svc   *service.ReviewService
	host  domain.User
	guest domain.User
	trip  domain.Trip
}

// newReviewFixture seeds a host, one participant and a past trip between them.
func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	store := newMemStore()
	host, guest := store.addUser("host"), store.addUser("guest")
	trip := store.addTrip(pastTrip(host.ID, guest.ID))

	rec := newCountingRecorder()
	cache := &mockLeaderboardCache{}
	opts := []service.Option{service.WithClock(clock), service.WithRecorder(rec)}
	karma := service.NewKarmaService(store, cache, opts...)
	return &reviewFixture{
		store: store,
		rec:   rec,
		cache: cache,
		svc:   service.NewReviewService(store, karma, opts...),
		host:  host,
		guest: guest,
		trip:  trip,
	}
}

func TestReviewService_Submit_CreditsHost(t *testing.T) {
	f := newReviewFixture(t)

	got, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, 5, ptr("  great trip "))

	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, "guest", got.Username)
	require.NotNil(t, got.Comment)
	assert.Equal(t, "great trip", *got.Comment)
	assert.Equal(t, 10, f.store.karma(f.host.ID))
	assert.Equal(t, []int{5}, f.rec.reviews)
	assert.Equal(t, []int{10}, f.rec.deltas)
	assert.Equal(t, []cacheIncr{{f.host.ID, 10}}, f.cache.incrs)
}

func TestReviewService_Submit_LocksTripRow(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, 4, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, f.store.hooks.lockedReads, "roster must be read under the row lock")
}

func TestReviewService_Submit_AfterLeaveIsRejected(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	trips := newTripService(f.store, newCountingRecorder())

	_, err := trips.Leave(ctx, f.trip.ID, f.guest.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.trip.ID, f.guest.ID, 5, nil)

	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	assert.Zero(t, f.store.reviewCount())
	assert.Zero(t, f.store.karma(f.host.ID))
}

func TestReviewService_Submit_DuplicateLeavesKarmaUnchanged(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.trip.ID, f.guest.ID, 5, nil)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.trip.ID, f.guest.ID, 1, nil)

	assert.ErrorIs(t, err, domain.ErrDuplicateReview)
	assert.Equal(t, 10, f.store.karma(f.host.ID))
	assert.Equal(t, 1, f.store.reviewCount())
}

func TestReviewService_Submit_KarmaTable(t *testing.T) {
	want := map[int]int{5: 10, 4: 10, 3: 5, 2: 0, 1: -1}
	for rating, delta := range want {
		t.Run(string(rune('0'+rating)), func(t *testing.T) {
			f := newReviewFixture(t)

			_, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, rating, nil)

			require.NoError(t, err)
			assert.Equal(t, delta, f.store.karma(f.host.ID))
		})
	}
}

func TestReviewService_Submit_ZeroDeltaSkipsCache(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, 2, nil)

	require.NoError(t, err)
	assert.Empty(t, f.cache.incrs)
}

func TestReviewService_Submit_SelfReviewAnyRating(t *testing.T) {
	for rating := 0; rating <= 6; rating++ {
		f := newReviewFixture(t)

		_, err := f.svc.Submit(context.Background(), f.trip.ID, f.host.ID, rating, nil)

		assert.ErrorIs(t, err, domain.ErrSelfReview, "rating %d", rating)
		assert.Zero(t, f.store.karma(f.host.ID))
		assert.Zero(t, f.store.reviewCount())
	}
}

func TestReviewService_Submit_NotParticipant(t *testing.T) {
	f := newReviewFixture(t)
	stranger := f.store.addUser("stranger")

	_, err := f.svc.Submit(context.Background(), f.trip.ID, stranger.ID, 5, nil)

	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	assert.Zero(t, f.store.karma(f.host.ID))
}

func TestReviewService_Submit_InvalidRating(t *testing.T) {
	for _, rating := range []int{0, 6, -3} {
		f := newReviewFixture(t)

		_, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, rating, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidRating, "rating %d", rating)
		assert.Zero(t, f.store.reviewCount())
	}
}

func TestReviewService_Submit_CheckOrder(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, f.trip.ID, f.guest.ID, 4, nil)
	require.NoError(t, err)

	// A duplicate with a bad rating reports the duplicate.
	_, err = f.svc.Submit(ctx, f.trip.ID, f.guest.ID, 9, nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateReview)

	// A non-participant with a bad rating on a future trip reports membership.
	future := f.store.addTrip(futureTrip(f.host.ID))
	_, err = f.svc.Submit(ctx, future.ID, f.guest.ID, 9, nil)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestReviewService_Submit_NotReviewableYet(t *testing.T) {
	f := newReviewFixture(t)
	future := f.store.addTrip(futureTrip(f.host.ID, f.guest.ID))

	_, err := f.svc.Submit(context.Background(), future.ID, f.guest.ID, 5, nil)

	assert.ErrorIs(t, err, domain.ErrTripNotReviewable)
	assert.Zero(t, f.store.karma(f.host.ID))
}

func TestReviewService_Submit_EndedFutureTripIsReviewable(t *testing.T) {
	f := newReviewFixture(t)
	trip := futureTrip(f.host.ID, f.guest.ID)
	trip.Ended = true
	trip = f.store.addTrip(trip)

	_, err := f.svc.Submit(context.Background(), trip.ID, f.guest.ID, 3, nil)

	require.NoError(t, err)
	assert.Equal(t, 5, f.store.karma(f.host.ID))
}

func TestReviewService_Submit_StartedTodayIsReviewable(t *testing.T) {
	f := newReviewFixture(t)
	trip := pastTrip(f.host.ID, f.guest.ID)
	trip.Date = time.Date(fixedNow.Year(), fixedNow.Month(), fixedNow.Day(), 0, 0, 0, 0, time.UTC)
	trip.Time = ptr("09:00")
	trip = f.store.addTrip(trip)

	_, err := f.svc.Submit(context.Background(), trip.ID, f.guest.ID, 5, nil)

	require.NoError(t, err)
}

func TestReviewService_Submit_CommentTooLong(t *testing.T) {
	f := newReviewFixture(t)

	long := strings.Repeat("a", domain.MaxCommentLength+1)
	_, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, 5, &long)

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.store.reviewCount())
}

func TestReviewService_Submit_RollsBackWhenSettlementFails(t *testing.T) {
	f := newReviewFixture(t)
	boom := errors.New("connection reset")
	f.store.hooks.beforeAddKarma = func(uuid.UUID) error { return boom }

	_, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, 5, nil)

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, f.store.reviewCount(), "review must not outlive a failed settlement")
	assert.Zero(t, f.store.karma(f.host.ID))
	assert.Empty(t, f.rec.reviews)
	assert.Empty(t, f.cache.incrs)

	// The participant may try again once storage recovers.
	f.store.hooks.beforeAddKarma = nil
	_, err = f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, f.store.karma(f.host.ID))
}

func TestReviewService_Submit_CacheFailureDoesNotFail(t *testing.T) {
	f := newReviewFixture(t)
	f.cache.incrErr = errors.New("redis down")

	_, err := f.svc.Submit(context.Background(), f.trip.ID, f.guest.ID, 5, nil)

	require.NoError(t, err)
	assert.Equal(t, 10, f.store.karma(f.host.ID))
}

func TestReviewService_Submit_TripNotFound(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.svc.Submit(context.Background(), uuid.New(), f.guest.ID, 5, nil)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Every participant of a trip reviewing once settles the sum of the deltas.
func TestReviewService_Submit_ManyParticipants(t *testing.T) {
	store := newMemStore()
	host := store.addUser("host")
	ratings := []int{5, 4, 3, 2, 1, 5}
	ids := make([]uuid.UUID, len(ratings))
	for i := range ratings {
		ids[i] = store.addUser(uuid.NewString()[:8]).ID
	}
	trip := store.addTrip(pastTrip(host.ID, ids...))
	karma := service.NewKarmaService(store, nil)
	svc := service.NewReviewService(store, karma, service.WithClock(clock))

	for i, r := range ratings {
		_, err := svc.Submit(context.Background(), trip.ID, ids[i], r, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 10+10+5+0-1+10, store.karma(host.ID))

	got, err := svc.ListByTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Len(t, got.Reviews, len(ratings))
	assert.Equal(t, 6, got.Summary.Count)
	assert.InDelta(t, 3.3, got.Summary.Average, 0.001)
	assert.Equal(t, 2, got.Summary.Distribution[5])

	received, err := svc.ListReceived(context.Background(), host.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, received.Summary.Count)

	given, err := svc.ListGiven(context.Background(), ids[0])
	require.NoError(t, err)
	require.Len(t, given, 1)
	assert.Equal(t, 5, given[0].Rating)
}

func TestReviewService_ListByTrip_NotFound(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.svc.ListByTrip(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
