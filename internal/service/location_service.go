package service

import (
	"context"
	"time"

	"outdoortracker/internal/entity"
	"outdoortracker/internal/metrics"
	"outdoortracker/internal/presence"
	"outdoortracker/internal/repository"

	"github.com/google/uuid"
)

const defaultHistoryPageSize = 100

// LocationBroadcaster is the fan-out primitive exposed by the presence
// hub. The REST path publishes through it with no exclusion, so submitted
// samples reach every presence client.
type LocationBroadcaster interface {
	BroadcastLocation(update presence.LocationUpdate, exclude *presence.Session)
}

type SubmitLocationInput struct {
	Lat      float64
	Lng      float64
	Accuracy *float64
	Altitude *float64
	Speed    *float64
	Heading  *float64
}

type LocationHistory struct {
	Locations   []entity.Location
	Total       int64
	Pages       int
	CurrentPage int
}

type LocationService struct {
	locations   repository.LocationRepository
	users       repository.UserRepository
	broadcaster LocationBroadcaster
	clock       Clock
}

func NewLocationService(
	locations repository.LocationRepository,
	users repository.UserRepository,
	broadcaster LocationBroadcaster,
	clock Clock,
) *LocationService {
	return &LocationService{
		locations:   locations,
		users:       users,
		broadcaster: broadcaster,
		clock:       clock,
	}
}

// Submit persists a sample, flips the submitter's active flag if needed,
// and publishes the same broadcast envelope the socket path uses. This is
// the only ingress whose samples are queryable later; socket updates are
// never stored.
func (s *LocationService) Submit(ctx context.Context, userID uuid.UUID, input SubmitLocationInput) (*entity.Location, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	location := &entity.Location{
		UserID:    userID,
		Latitude:  input.Lat,
		Longitude: input.Lng,
		Accuracy:  input.Accuracy,
		Altitude:  input.Altitude,
		Speed:     input.Speed,
		Heading:   input.Heading,
		Timestamp: s.now().UTC(),
	}
	if err := s.locations.Create(ctx, location); err != nil {
		return nil, err
	}

	if !user.IsActive {
		if err := s.users.SetActive(ctx, userID, true); err != nil {
			return nil, err
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastLocation(presence.LocationUpdate{
			UserID:    userID.String(),
			Lat:       location.Latitude,
			Lng:       location.Longitude,
			Accuracy:  location.Accuracy,
			Timestamp: location.Timestamp.Format(time.RFC3339),
		}, nil)
		metrics.BroadcastSent("rest")
	}

	return location, nil
}

// History pages through a user's trail, newest first.
func (s *LocationService) History(ctx context.Context, userID uuid.UUID, page, perPage int) (*LocationHistory, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultHistoryPageSize
	}

	total, err := s.locations.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &LocationHistory{
		Locations:   locations,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
	}, nil
}

func (s *LocationService) Latest(ctx context.Context, userID uuid.UUID) (*entity.Location, error) {
	location, err := s.locations.LatestByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrLocationNotFound
	}
	return location, nil
}

func (s *LocationService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}
