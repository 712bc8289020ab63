package service

import (
	"context"

	"outdoortracker/internal/entity"
	"outdoortracker/internal/repository"

	"github.com/google/uuid"
)

// UserService covers the user-directory surface: self lookup, the active
// list for the map view, and the admin lifecycle operations.
type UserService struct {
	users     repository.UserRepository
	auditLogs repository.AuditLogRepository
}

func NewUserService(users repository.UserRepository, auditLogs repository.AuditLogRepository) *UserService {
	return &UserService{users: users, auditLogs: auditLogs}
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListActive returns users currently presenting location, minus the
// caller.
func (s *UserService) ListActive(ctx context.Context, currentUserID uuid.UUID) ([]entity.User, error) {
	return s.users.ListActive(ctx, currentUserID)
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]entity.User, error) {
	return s.users.List(ctx, limit, offset)
}

// Approve flips the approval flag once; it does not touch the presence
// flag, which belongs to the broadcast layer.
func (s *UserService) Approve(ctx context.Context, userID uuid.UUID, actorIP *string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := s.users.SetApproved(ctx, userID, true); err != nil {
		return nil, err
	}
	user.IsApproved = true

	s.audit(ctx, &userID, actorIP, entity.AuditUserApproved)
	return user, nil
}

func (s *UserService) ToggleActive(ctx context.Context, userID uuid.UUID, actorIP *string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	next := !user.IsActive
	if err := s.users.SetActive(ctx, userID, next); err != nil {
		return nil, err
	}
	user.IsActive = next

	action := entity.AuditUserDeactivated
	if next {
		action = entity.AuditUserActivated
	}
	s.audit(ctx, &userID, actorIP, action)
	return user, nil
}

// Delete removes the user; location history goes with it via the foreign
// key cascade.
func (s *UserService) Delete(ctx context.Context, userID uuid.UUID, actorIP *string) (*entity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return nil, err
	}

	s.audit(ctx, nil, actorIP, entity.AuditUserDeleted)
	return user, nil
}

func (s *UserService) audit(ctx context.Context, userID *uuid.UUID, ipAddress *string, action entity.AuditAction) {
	if s.auditLogs == nil {
		return
	}
	_ = s.auditLogs.Log(ctx, &entity.AuditLog{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
	})
}
