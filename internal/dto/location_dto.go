package dto

import (
	"time"

	"outdoortracker/internal/entity"
)

// Lat/Lng are pointers so that a literal 0 coordinate survives the
// required check.
type SubmitLocationRequest struct {
	Lat      *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng      *float64 `json:"lng" validate:"required,min=-180,max=180"`
	Accuracy *float64 `json:"accuracy" validate:"omitempty,min=0"`
	Altitude *float64 `json:"altitude"`
	Speed    *float64 `json:"speed" validate:"omitempty,min=0"`
	Heading  *float64 `json:"heading" validate:"omitempty,min=0,max=360"`
}

type LocationResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type LocationHistoryResponse struct {
	Locations   []LocationResponse `json:"locations"`
	Total       int64              `json:"total"`
	Pages       int                `json:"pages"`
	CurrentPage int                `json:"current_page"`
}

func LocationResponseFromEntity(location *entity.Location) LocationResponse {
	return LocationResponse{
		ID:        location.ID.String(),
		UserID:    location.UserID.String(),
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
		Altitude:  location.Altitude,
		Accuracy:  location.Accuracy,
		Speed:     location.Speed,
		Heading:   location.Heading,
		Timestamp: location.Timestamp,
	}
}

func LocationResponsesFromEntities(locations []entity.Location) []LocationResponse {
	responses := make([]LocationResponse, 0, len(locations))
	for i := range locations {
		responses = append(responses, LocationResponseFromEntity(&locations[i]))
	}
	return responses
}
