package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"outdoortracker/internal/dto"
	"outdoortracker/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	Service *service.UserService
}

func NewAdminHandler(svc *service.UserService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	users, err := h.Service.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserResponsesFromEntities(users))
}

func (h *AdminHandler) ApproveUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	user, err := h.Service.Approve(c.Request().Context(), userID, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": fmt.Sprintf("User %s approved successfully", user.Email),
		"user":    dto.UserResponseFromEntity(user),
	})
}

func (h *AdminHandler) ToggleActive(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	user, err := h.Service.ToggleActive(c.Request().Context(), userID, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, err)
	}
	status := "deactivated"
	if user.IsActive {
		status = "activated"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": fmt.Sprintf("User %s %s successfully", user.Email, status),
		"user":    dto.UserResponseFromEntity(user),
	})
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, errors.New("invalid user id"))
	}
	user, err := h.Service.Delete(c.Request().Context(), userID, stringPtr(c.RealIP()))
	if err != nil {
		return writeServiceError(c, err)
	}
	return writeMessage(c, http.StatusOK,
		fmt.Sprintf("User %s deleted successfully", user.Email))
}
