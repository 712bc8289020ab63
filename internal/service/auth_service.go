package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"outdoortracker/internal/entity"
	"outdoortracker/internal/repository"
	"outdoortracker/internal/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Compared against on unknown email so login latency does not reveal
// whether an address is registered.
const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

type AuthService struct {
	users         repository.UserRepository
	sessions      repository.SessionRepository
	verifications repository.VerificationTokenRepository
	mfaSecrets    repository.MFASecretRepository
	auditLogs     repository.AuditLogRepository

	emailSender  EmailSender
	passwordHash PasswordHasher
	accessTokens AccessTokenIssuer
	mfaTokens    MFATokenIssuer
	mfaProvider  MFAProvider
	clock        Clock
	config       AuthConfig
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	verifications repository.VerificationTokenRepository,
	mfaSecrets repository.MFASecretRepository,
	auditLogs repository.AuditLogRepository,
	emailSender EmailSender,
	passwordHash PasswordHasher,
	accessTokens AccessTokenIssuer,
	mfaTokens MFATokenIssuer,
	mfaProvider MFAProvider,
	clock Clock,
	config AuthConfig,
) *AuthService {
	return &AuthService{
		users:         users,
		sessions:      sessions,
		verifications: verifications,
		mfaSecrets:    mfaSecrets,
		auditLogs:     auditLogs,
		emailSender:   emailSender,
		passwordHash:  passwordHash,
		accessTokens:  accessTokens,
		mfaTokens:     mfaTokens,
		mfaProvider:   mfaProvider,
		clock:         clock,
		config:        config,
	}
}

// Register creates an unverified, unapproved, inactive user and mails a
// verification token. Registering an existing unverified address re-sends
// the verification instead of failing.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) error {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user != nil {
		if user.Verified() {
			return ErrEmailAlreadyRegistered
		}
		return s.sendEmailVerification(ctx, user)
	}

	hash, err := s.passwordHash.Hash(input.Password)
	if err != nil {
		return err
	}

	newUser := &entity.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: &hash,
		Role:         entity.UserRoleUser,
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		return err
	}

	return s.sendEmailVerification(ctx, newUser)
}

// VerifyEmail flips the verified flag once for a valid, unexpired,
// unused token. The account still needs admin approval before login.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidInput
	}

	verification, err := s.verifications.FindValid(ctx, utils.HashToken(token), entity.EmailVerify)
	if err != nil {
		return err
	}
	if verification == nil {
		return ErrInvalidToken
	}

	if err := s.users.VerifyEmail(ctx, verification.UserID); err != nil {
		return err
	}
	return s.verifications.MarkUsed(ctx, verification.ID)
}

// Login authenticates credentials and enforces verified ∧ approved before
// issuing a token. The approved/verified checks happen only here; issued
// tokens are trusted for their full lifetime.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil {
		_ = s.passwordHash.Verify(dummyPasswordHash, input.Password)
		s.audit(ctx, nil, input.IPAddress, entity.AuditLoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	if !s.passwordHash.Verify(*user.PasswordHash, input.Password) {
		s.audit(ctx, &user.ID, input.IPAddress, entity.AuditLoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	if !user.Verified() {
		return nil, ErrEmailNotVerified
	}
	if !user.IsApproved {
		return nil, ErrNotApproved
	}

	if s.mfaProvider != nil && s.mfaSecrets != nil && s.mfaTokens != nil {
		secret, err := s.mfaSecrets.FindByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if secret != nil && secret.EnabledAt != nil {
			mfaToken, expiresIn, err := s.mfaTokens.IssueMFAToken(user.ID)
			if err != nil {
				return nil, err
			}
			return &LoginResult{
				MFARequired:       true,
				MFAToken:          mfaToken,
				MFATokenExpiresIn: int64(expiresIn.Seconds()),
			}, nil
		}
	}

	result, err := s.createSessionAndTokens(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, input.IPAddress, entity.AuditLoginSuccess, nil)
	return result, nil
}

func (s *AuthService) LoginWithMFA(ctx context.Context, input LoginMFAInput) (*LoginResult, error) {
	if s.mfaProvider == nil || s.mfaTokens == nil || s.mfaSecrets == nil {
		return nil, ErrMFANotConfigured
	}
	if strings.TrimSpace(input.MFAToken) == "" || strings.TrimSpace(input.Code) == "" {
		return nil, ErrInvalidInput
	}

	userID, err := s.mfaTokens.ParseMFAToken(input.MFAToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	secret, err := s.mfaSecrets.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if secret == nil || secret.EnabledAt == nil {
		return nil, ErrMFARequired
	}
	if !s.mfaProvider.ValidateCode(secret.Secret, input.Code) {
		s.audit(ctx, &user.ID, input.IPAddress, entity.AuditLoginFailed, map[string]any{"mfa": true})
		return nil, ErrInvalidMFACode
	}

	result, err := s.createSessionAndTokens(ctx, user, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, &user.ID, input.IPAddress, entity.AuditLoginSuccess, map[string]any{"mfa": true})
	return result, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.sessions.FindByTokenHash(ctx, utils.HashToken(refreshToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	newRefreshToken, newRefreshHash, newRefreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.RotateToken(ctx, session.ID, newRefreshHash, newRefreshExpiry); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		Role:             string(user.Role),
		RefreshToken:     newRefreshToken,
		RefreshExpiresIn: int64(newRefreshExpiry.Sub(s.now()).Seconds()),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, ipAddress *string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return err
	}
	s.audit(ctx, userID, ipAddress, entity.AuditLogout, nil)
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID, ipAddress *string) error {
	if err := s.sessions.RevokeAllByUser(ctx, userID); err != nil {
		return err
	}
	s.audit(ctx, &userID, ipAddress, entity.AuditLogout, map[string]any{"scope": "all"})
	return nil
}

// RequestPasswordReset mails a reset token to a verified account. Unknown
// or unverified addresses return success without sending anything, so the
// endpoint does not reveal which addresses are registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrInvalidInput
	}

	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || !user.Verified() {
		return nil
	}
	if s.emailSender == nil {
		return nil
	}

	rawToken, err := utils.GenerateRandomToken(32)
	if err != nil {
		return err
	}
	verification := &entity.VerificationToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(rawToken),
		Type:      entity.PasswordReset,
		ExpiresAt: s.now().Add(s.resetTokenTTL()),
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return err
	}
	return s.emailSender.SendPasswordResetEmail(ctx, user.Email, rawToken)
}

// ResetPassword consumes a reset token, stores the new hash and revokes
// every session the account holds.
func (s *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(newPassword) == "" {
		return ErrInvalidInput
	}

	verification, err := s.verifications.FindValid(ctx, utils.HashToken(token), entity.PasswordReset)
	if err != nil {
		return err
	}
	if verification == nil {
		return ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, verification.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	hash, err := s.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = &hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.verifications.MarkUsed(ctx, verification.ID); err != nil {
		return err
	}

	if err := s.sessions.RevokeAllByUser(ctx, user.ID); err != nil {
		return err
	}
	s.audit(ctx, &user.ID, nil, entity.AuditPasswordReset, nil)
	return nil
}

func (s *AuthService) EnableMFA(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.mfaProvider == nil || s.mfaSecrets == nil {
		return "", ErrMFANotConfigured
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	secret, err := s.mfaProvider.GenerateSecret()
	if err != nil {
		return "", err
	}
	if err := s.mfaSecrets.Upsert(ctx, &entity.MFASecret{UserID: user.ID, Secret: secret}); err != nil {
		return "", err
	}
	return s.mfaProvider.QRCodeURL(user.Email, secret)
}

func (s *AuthService) VerifyMFA(ctx context.Context, userID uuid.UUID, code string) error {
	if s.mfaProvider == nil || s.mfaSecrets == nil {
		return ErrMFANotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidInput
	}
	secret, err := s.mfaSecrets.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if secret == nil {
		return ErrMFARequired
	}
	if !s.mfaProvider.ValidateCode(secret.Secret, code) {
		return ErrInvalidMFACode
	}

	now := s.now()
	secret.EnabledAt = &now
	return s.mfaSecrets.Upsert(ctx, secret)
}

func (s *AuthService) DisableMFA(ctx context.Context, userID uuid.UUID) error {
	if s.mfaSecrets == nil {
		return nil
	}
	return s.mfaSecrets.Disable(ctx, userID)
}

func (s *AuthService) createSessionAndTokens(
	ctx context.Context,
	user *entity.User,
	ipAddress *string,
	userAgent *string,
) (*LoginResult, error) {
	refreshToken, refreshHash, refreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		UserID:    user.ID,
		TokenHash: refreshHash,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: refreshExpiry,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(*user, session.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		Role:             string(user.Role),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(refreshExpiry.Sub(s.now()).Seconds()),
	}, nil
}

func (s *AuthService) sendEmailVerification(ctx context.Context, user *entity.User) error {
	if s.emailSender == nil {
		return nil
	}

	rawToken, err := utils.GenerateRandomToken(32)
	if err != nil {
		return err
	}
	verification := &entity.VerificationToken{
		UserID:    user.ID,
		TokenHash: utils.HashToken(rawToken),
		Type:      entity.EmailVerify,
		ExpiresAt: s.now().Add(s.verificationTokenTTL()),
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return err
	}
	return s.emailSender.SendVerificationEmail(ctx, user.Email, rawToken)
}

func (s *AuthService) buildRefreshToken() (string, string, time.Time, error) {
	rawToken, err := utils.GenerateRandomToken(48)
	if err != nil {
		return "", "", time.Time{}, err
	}
	expiresAt := s.now().Add(s.refreshTokenTTL())
	return rawToken, utils.HashToken(rawToken), expiresAt, nil
}

// audit writes are best-effort; a failed log line never fails the request.
func (s *AuthService) audit(
	ctx context.Context,
	userID *uuid.UUID,
	ipAddress *string,
	action entity.AuditAction,
	metadata map[string]any,
) {
	if s.auditLogs == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			return
		}
		payload = datatypes.JSON(bytes)
	}
	_ = s.auditLogs.Log(ctx, &entity.AuditLog{
		UserID:    userID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
	})
}

func (s *AuthService) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *AuthService) verificationTokenTTL() time.Duration {
	if s.config.VerificationTokenTTL > 0 {
		return s.config.VerificationTokenTTL
	}
	return 24 * time.Hour
}

func (s *AuthService) refreshTokenTTL() time.Duration {
	if s.config.RefreshTokenTTL > 0 {
		return s.config.RefreshTokenTTL
	}
	return 30 * 24 * time.Hour
}

func (s *AuthService) resetTokenTTL() time.Duration {
	if s.config.ResetTokenTTL > 0 {
		return s.config.ResetTokenTTL
	}
	return 30 * time.Minute
}
