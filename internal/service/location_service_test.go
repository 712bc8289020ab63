package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"outdoortracker/internal/entity"
	"outdoortracker/internal/presence"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLocationRepo struct {
	locations []entity.Location
}

func (r *memLocationRepo) Create(_ context.Context, location *entity.Location) error {
	if location.ID == uuid.Nil {
		location.ID = uuid.New()
	}
	r.locations = append(r.locations, *location)
	return nil
}

func (r *memLocationRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]entity.Location, error) {
	var mine []entity.Location
	for _, l := range r.locations {
		if l.UserID == userID {
			mine = append(mine, l)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].Timestamp.After(mine[j].Timestamp) })
	if offset >= len(mine) {
		return nil, nil
	}
	mine = mine[offset:]
	if limit < len(mine) {
		mine = mine[:limit]
	}
	return mine, nil
}

func (r *memLocationRepo) CountByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, l := range r.locations {
		if l.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *memLocationRepo) LatestByUser(_ context.Context, userID uuid.UUID) (*entity.Location, error) {
	list, _ := r.ListByUser(context.Background(), userID, 1, 0)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

type captureBroadcaster struct {
	updates []presence.LocationUpdate
}

func (c *captureBroadcaster) BroadcastLocation(update presence.LocationUpdate, _ *presence.Session) {
	c.updates = append(c.updates, update)
}

type fixedClock struct {
	at time.Time
}

func (f fixedClock) Now() time.Time { return f.at }

func TestSubmitPersistsActivatesAndBroadcasts(t *testing.T) {
	user := &entity.User{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"}
	users := newMemUserRepo(user)
	locations := &memLocationRepo{}
	broadcaster := &captureBroadcaster{}
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc := NewLocationService(locations, users, broadcaster, fixedClock{at: now})

	accuracy := 12.5
	location, err := svc.Submit(context.Background(), user.ID, SubmitLocationInput{
		Lat:      48.2082,
		Lng:      16.3738,
		Accuracy: &accuracy,
	})
	require.NoError(t, err)
	assert.Equal(t, now, location.Timestamp)

	assert.Len(t, locations.locations, 1)
	assert.True(t, user.IsActive, "first sample must flip the presence flag")

	require.Len(t, broadcaster.updates, 1)
	update := broadcaster.updates[0]
	assert.Equal(t, user.ID.String(), update.UserID)
	assert.Equal(t, 48.2082, update.Lat)
	assert.Equal(t, 16.3738, update.Lng)
	assert.Equal(t, now.Format(time.RFC3339), update.Timestamp)
}

func TestSubmitRejectsUnknownUser(t *testing.T) {
	svc := NewLocationService(&memLocationRepo{}, newMemUserRepo(), &captureBroadcaster{}, RealClock{})

	_, err := svc.Submit(context.Background(), uuid.New(), SubmitLocationInput{Lat: 1, Lng: 2})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSubmitDoesNotRewriteActiveFlag(t *testing.T) {
	user := &entity.User{ID: uuid.New(), Email: "alice@example.com", IsActive: true}
	users := newMemUserRepo(user)
	svc := NewLocationService(&memLocationRepo{}, users, nil, RealClock{})

	_, err := svc.Submit(context.Background(), user.ID, SubmitLocationInput{Lat: 1, Lng: 2})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	user := &entity.User{ID: uuid.New(), Email: "alice@example.com"}
	users := newMemUserRepo(user)
	locations := &memLocationRepo{}
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, locations.Create(context.Background(), &entity.Location{
			UserID:    user.ID,
			Latitude:  float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	svc := NewLocationService(locations, users, nil, RealClock{})

	history, err := svc.History(context.Background(), user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), history.Total)
	assert.Equal(t, 3, history.Pages)
	assert.Equal(t, 1, history.CurrentPage)
	require.Len(t, history.Locations, 2)
	assert.Equal(t, 4.0, history.Locations[0].Latitude, "newest sample comes first")
	assert.Equal(t, 3.0, history.Locations[1].Latitude)

	history, err = svc.History(context.Background(), user.ID, 3, 2)
	require.NoError(t, err)
	require.Len(t, history.Locations, 1)
	assert.Equal(t, 0.0, history.Locations[0].Latitude)
}

func TestHistoryDefaultsPageArguments(t *testing.T) {
	user := &entity.User{ID: uuid.New(), Email: "alice@example.com"}
	svc := NewLocationService(&memLocationRepo{}, newMemUserRepo(user), nil, RealClock{})

	history, err := svc.History(context.Background(), user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, history.CurrentPage)
	assert.Equal(t, 0, history.Pages)
	assert.Empty(t, history.Locations)
}

func TestLatestReturnsNotFoundForEmptyTrail(t *testing.T) {
	svc := NewLocationService(&memLocationRepo{}, newMemUserRepo(), nil, RealClock{})

	_, err := svc.Latest(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestLatestReturnsNewestSample(t *testing.T) {
	user := &entity.User{ID: uuid.New(), Email: "alice@example.com"}
	locations := &memLocationRepo{}
	base := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, locations.Create(context.Background(), &entity.Location{
			UserID:    user.ID,
			Latitude:  float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	svc := NewLocationService(locations, newMemUserRepo(user), nil, RealClock{})

	latest, err := svc.Latest(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, latest.Latitude)
}
