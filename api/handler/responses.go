package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"outdoortracker/internal/service"

	"github.com/labstack/echo/v4"
)

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"message": err.Error()})
}

func writeMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"message": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// authentication failures to 401, authorization (valid credentials, not
// allowed yet) to 403, lookups to 404, bad payloads to 400, anything else
// to 500.
func writeServiceError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidMFACode):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrNotApproved):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		status = http.StatusConflict
	case errors.Is(err, service.ErrMFARequired):
		status = http.StatusPreconditionRequired
	case errors.Is(err, service.ErrMFANotConfigured):
		status = http.StatusFailedDependency
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrLocationNotFound):
		status = http.StatusNotFound
	}
	return writeError(c, status, err)
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
