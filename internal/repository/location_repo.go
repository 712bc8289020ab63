package repository

import (
	"context"
	"errors"

	"outdoortracker/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Location, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	LatestByUser(ctx context.Context, userID uuid.UUID) (*entity.Location, error)
}

type locationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) Create(ctx context.Context, location *entity.Location) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *locationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Location, error) {
	var locations []entity.Location
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *locationRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&entity.Location{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

func (r *locationRepository) LatestByUser(ctx context.Context, userID uuid.UUID) (*entity.Location, error) {
	var location entity.Location
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		First(&location).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &location, err
}
