package service

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrNotApproved            = errors.New("account pending admin approval")
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrUserNotFound           = errors.New("user not found")
	ErrLocationNotFound       = errors.New("no locations found for this user")
	ErrMFARequired            = errors.New("mfa required")
	ErrInvalidMFACode         = errors.New("invalid mfa code")
	ErrMFANotConfigured       = errors.New("mfa not configured")
)
