package handler

import (
	"errors"
	"net/http"
	"strconv"

	"outdoortracker/api/middleware"
	"outdoortracker/internal/dto"
	"outdoortracker/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type LocationHandler struct {
	Service  *service.LocationService
	Validate *validator.Validate
}

func NewLocationHandler(svc *service.LocationService, validate *validator.Validate) *LocationHandler {
	return &LocationHandler{Service: svc, Validate: validate}
}

// Submit persists a sample for the caller and triggers the presence
// broadcast.
func (h *LocationHandler) Submit(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, errors.New("unauthorized"))
	}

	var req dto.SubmitLocationRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}
	// The required checks on Lat/Lng guard the dereferences below; the
	// validator is a mandatory collaborator, not an optional one.
	if err := h.Validate.Struct(req); err != nil {
		return writeError(c, http.StatusBadRequest, err)
	}

	input := service.SubmitLocationInput{
		Lat:      *req.Lat,
		Lng:      *req.Lng,
		Accuracy: req.Accuracy,
		Altitude: req.Altitude,
		Speed:    req.Speed,
		Heading:  req.Heading,
	}
	location, err := h.Service.Submit(c.Request().Context(), userID, input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message":  "Location updated successfully",
		"location": dto.LocationResponseFromEntity(location),
	})
}

func (h *LocationHandler) History(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	history, err := h.Service.History(c.Request().Context(), userID, page, perPage)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.LocationHistoryResponse{
		Locations:   dto.LocationResponsesFromEntities(history.Locations),
		Total:       history.Total,
		Pages:       history.Pages,
		CurrentPage: history.CurrentPage,
	})
}

func (h *LocationHandler) Latest(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}

	location, err := h.Service.Latest(c.Request().Context(), userID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.LocationResponseFromEntity(location))
}
