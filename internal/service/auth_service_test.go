package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"outdoortracker/internal/entity"
	"outdoortracker/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memUserRepo struct {
	byID    map[uuid.UUID]*entity.User
	byEmail map[string]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{
		byID:    make(map[uuid.UUID]*entity.User),
		byEmail: make(map[string]*entity.User),
	}
	for _, u := range users {
		r.add(u)
	}
	return r
}

func (r *memUserRepo) add(u *entity.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.add(u)
	return nil
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	return r.byID[id], nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.byEmail[email], nil
}

func (r *memUserRepo) Update(_ context.Context, u *entity.User) error {
	r.byID[u.ID] = u
	return nil
}

func (r *memUserRepo) VerifyEmail(_ context.Context, userID uuid.UUID) error {
	if u, ok := r.byID[userID]; ok {
		now := time.Now()
		u.EmailVerifiedAt = &now
	}
	return nil
}

func (r *memUserRepo) SetApproved(_ context.Context, userID uuid.UUID, approved bool) error {
	if u, ok := r.byID[userID]; ok {
		u.IsApproved = approved
	}
	return nil
}

func (r *memUserRepo) SetActive(_ context.Context, userID uuid.UUID, active bool) error {
	if u, ok := r.byID[userID]; ok {
		u.IsActive = active
	}
	return nil
}

func (r *memUserRepo) List(_ context.Context, _, _ int) ([]entity.User, error) {
	var out []entity.User
	for _, u := range r.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (r *memUserRepo) ListActive(_ context.Context, exclude uuid.UUID) ([]entity.User, error) {
	var out []entity.User
	for _, u := range r.byID {
		if u.IsActive && u.ID != exclude {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUserRepo) Delete(_ context.Context, userID uuid.UUID) error {
	if u, ok := r.byID[userID]; ok {
		delete(r.byEmail, u.Email)
		delete(r.byID, userID)
	}
	return nil
}

type memVerificationRepo struct {
	tokens []*entity.VerificationToken
}

func (r *memVerificationRepo) Create(_ context.Context, t *entity.VerificationToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.tokens = append(r.tokens, t)
	return nil
}

func (r *memVerificationRepo) FindValid(_ context.Context, hash string, typ entity.VerificationType) (*entity.VerificationToken, error) {
	for _, t := range r.tokens {
		if t.TokenHash == hash && t.Type == typ && t.UsedAt == nil && t.ExpiresAt.After(time.Now()) {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memVerificationRepo) MarkUsed(_ context.Context, id uuid.UUID) error {
	for _, t := range r.tokens {
		if t.ID == id {
			now := time.Now()
			t.UsedAt = &now
		}
	}
	return nil
}

type memSessionRepo struct {
	sessions map[uuid.UUID]*entity.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*entity.Session)}
}

func (r *memSessionRepo) Create(_ context.Context, s *entity.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *memSessionRepo) FindByTokenHash(_ context.Context, hash string) (*entity.Session, error) {
	for _, s := range r.sessions {
		if s.TokenHash == hash && s.RevokedAt == nil && s.ExpiresAt.After(time.Now()) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) RotateToken(_ context.Context, sessionID uuid.UUID, newHash string, expiresAt time.Time) error {
	s, ok := r.sessions[sessionID]
	if !ok {
		return errors.New("session not found")
	}
	s.TokenHash = newHash
	s.ExpiresAt = expiresAt
	return nil
}

func (r *memSessionRepo) Revoke(_ context.Context, sessionID uuid.UUID) error {
	if s, ok := r.sessions[sessionID]; ok {
		now := time.Now()
		s.RevokedAt = &now
	}
	return nil
}

func (r *memSessionRepo) RevokeAllByUser(_ context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, s := range r.sessions {
		if s.UserID == userID {
			s.RevokedAt = &now
		}
	}
	return nil
}

type memMFARepo struct {
	secrets map[uuid.UUID]*entity.MFASecret
}

func newMemMFARepo() *memMFARepo {
	return &memMFARepo{secrets: make(map[uuid.UUID]*entity.MFASecret)}
}

func (r *memMFARepo) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.MFASecret, error) {
	return r.secrets[userID], nil
}

func (r *memMFARepo) Upsert(_ context.Context, secret *entity.MFASecret) error {
	r.secrets[secret.UserID] = secret
	return nil
}

func (r *memMFARepo) Disable(_ context.Context, userID uuid.UUID) error {
	delete(r.secrets, userID)
	return nil
}

type memAuditRepo struct {
	entries []*entity.AuditLog
}

func (r *memAuditRepo) Log(_ context.Context, log *entity.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

type captureEmailSender struct {
	emails []string
	tokens []string

	resetEmails []string
	resetTokens []string
}

func (c *captureEmailSender) SendVerificationEmail(_ context.Context, email string, token string) error {
	c.emails = append(c.emails, email)
	c.tokens = append(c.tokens, token)
	return nil
}

func (c *captureEmailSender) SendPasswordResetEmail(_ context.Context, email string, token string) error {
	c.resetEmails = append(c.resetEmails, email)
	c.resetTokens = append(c.resetTokens, token)
	return nil
}

// plainHasher keeps tests fast; bcrypt cost is covered by the real
// implementation being a thin wrapper.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }
func (plainHasher) Verify(hash string, password string) bool {
	return hash == "hash:"+password
}

type staticAccessIssuer struct{}

func (staticAccessIssuer) IssueAccessToken(user entity.User, _ uuid.UUID) (string, time.Duration, error) {
	return "access-" + user.ID.String(), time.Hour, nil
}

type fixture struct {
	service       *AuthService
	users         *memUserRepo
	sessions      *memSessionRepo
	verifications *memVerificationRepo
	mfa           *memMFARepo
	audit         *memAuditRepo
	email         *captureEmailSender
}

func newFixture(users ...*entity.User) *fixture {
	f := &fixture{
		users:         newMemUserRepo(users...),
		sessions:      newMemSessionRepo(),
		verifications: &memVerificationRepo{},
		mfa:           newMemMFARepo(),
		audit:         &memAuditRepo{},
		email:         &captureEmailSender{},
	}
	f.service = NewAuthService(
		f.users,
		f.sessions,
		f.verifications,
		f.mfa,
		f.audit,
		f.email,
		plainHasher{},
		staticAccessIssuer{},
		nil,
		nil,
		RealClock{},
		AuthConfig{
			RefreshTokenTTL:      30 * 24 * time.Hour,
			VerificationTokenTTL: 24 * time.Hour,
		},
	)
	return f
}

func verifiedApprovedUser(email string) *entity.User {
	now := time.Now()
	hash := "hash:correct"
	return &entity.User{
		ID:              uuid.New(),
		Name:            "Alice",
		Email:           email,
		PasswordHash:    &hash,
		Role:            entity.UserRoleUser,
		EmailVerifiedAt: &now,
		IsApproved:      true,
	}
}

// --- register + verify ---

func TestRegisterCreatesUnverifiedUserAndSendsEmail(t *testing.T) {
	f := newFixture()

	err := f.service.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "Alice@Example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	user, err := f.users.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, user, "email must be normalized on the way in")
	assert.False(t, user.Verified())
	assert.False(t, user.IsApproved)
	assert.False(t, user.IsActive)
	assert.Equal(t, entity.UserRoleUser, user.Role)

	require.Len(t, f.email.emails, 1)
	assert.Equal(t, "alice@example.com", f.email.emails[0])
	require.Len(t, f.verifications.tokens, 1)
	assert.Equal(t, utils.HashToken(f.email.tokens[0]), f.verifications.tokens[0].TokenHash)
}

func TestRegisterRejectsVerifiedDuplicate(t *testing.T) {
	f := newFixture(verifiedApprovedUser("alice@example.com"))

	err := f.service.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	assert.Empty(t, f.email.emails)
}

func TestRegisterResendsForUnverifiedDuplicate(t *testing.T) {
	hash := "hash:whatever"
	f := newFixture(&entity.User{ID: uuid.New(), Name: "Alice", Email: "alice@example.com", PasswordHash: &hash})

	err := f.service.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Len(t, f.email.emails, 1)
	assert.Len(t, f.users.byID, 1, "no second account may be created")
}

func TestRegisterRejectsBlankInput(t *testing.T) {
	f := newFixture()
	err := f.service.Register(context.Background(), RegisterInput{Name: " ", Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyEmailFlipsFlagOnce(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "secret123",
	}))
	rawToken := f.email.tokens[0]

	require.NoError(t, f.service.VerifyEmail(context.Background(), rawToken))

	user, _ := f.users.FindByEmail(context.Background(), "alice@example.com")
	assert.True(t, user.Verified())
	assert.False(t, user.IsApproved, "verification must not grant approval")

	err := f.service.VerifyEmail(context.Background(), rawToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens are single use")
}

func TestVerifyEmailRejectsUnknownToken(t *testing.T) {
	f := newFixture()
	err := f.service.VerifyEmail(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

// --- login gating ---

func TestLoginRejectsUnknownEmail(t *testing.T) {
	f := newFixture()
	_, err := f.service.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newFixture(verifiedApprovedUser("alice@example.com"))
	_, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnverified(t *testing.T) {
	user := verifiedApprovedUser("alice@example.com")
	user.EmailVerifiedAt = nil
	f := newFixture(user)

	_, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct"})
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLoginRejectsUnapproved(t *testing.T) {
	user := verifiedApprovedUser("alice@example.com")
	user.IsApproved = false
	f := newFixture(user)

	_, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct"})
	assert.ErrorIs(t, err, ErrNotApproved)
}

func TestLoginIssuesTokensWhenVerifiedAndApproved(t *testing.T) {
	user := verifiedApprovedUser("alice@example.com")
	f := newFixture(user)

	result, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct"})
	require.NoError(t, err)
	assert.False(t, result.MFARequired)
	assert.Equal(t, "access-"+user.ID.String(), result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, string(entity.UserRoleUser), result.Role)
	assert.Len(t, f.sessions.sessions, 1)
}

func TestLoginAuditsFailures(t *testing.T) {
	f := newFixture(verifiedApprovedUser("alice@example.com"))

	_, _ = f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "wrong"})

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, entity.AuditLoginFailed, f.audit.entries[0].Action)
}

// --- password reset ---

func TestRequestPasswordResetSendsMailToVerifiedAccount(t *testing.T) {
	f := newFixture(verifiedApprovedUser("alice@example.com"))

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "Alice@Example.com"))

	require.Len(t, f.email.resetEmails, 1)
	assert.Equal(t, "alice@example.com", f.email.resetEmails[0])
	require.Len(t, f.verifications.tokens, 1)
	assert.Equal(t, entity.PasswordReset, f.verifications.tokens[0].Type)
}

func TestRequestPasswordResetStaysSilentForUnknownEmail(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, f.email.resetEmails, "the endpoint must not reveal which addresses exist")
}

func TestRequestPasswordResetStaysSilentForUnverifiedAccount(t *testing.T) {
	user := verifiedApprovedUser("alice@example.com")
	user.EmailVerifiedAt = nil
	f := newFixture(user)

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "alice@example.com"))
	assert.Empty(t, f.email.resetEmails)
}

func TestResetPasswordReplacesHashAndRevokesSessions(t *testing.T) {
	user := verifiedApprovedUser("alice@example.com")
	f := newFixture(user)

	login, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct"})
	require.NoError(t, err)

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "alice@example.com"))
	rawToken := f.email.resetTokens[0]

	require.NoError(t, f.service.ResetPassword(context.Background(), rawToken, "brand-new-pass"))

	_, err = f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "old password must be dead")

	result, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "brand-new-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)

	_, err = f.service.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "a reset revokes every existing session")
}

func TestResetPasswordTokenIsSingleUse(t *testing.T) {
	f := newFixture(verifiedApprovedUser("alice@example.com"))

	require.NoError(t, f.service.RequestPasswordReset(context.Background(), "alice@example.com"))
	rawToken := f.email.resetTokens[0]

	require.NoError(t, f.service.ResetPassword(context.Background(), rawToken, "brand-new-pass"))
	err := f.service.ResetPassword(context.Background(), rawToken, "another-pass")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetPasswordRejectsVerificationToken(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.service.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "alice@example.com", Password: "secret123",
	}))
	verifyToken := f.email.tokens[0]

	err := f.service.ResetPassword(context.Background(), verifyToken, "brand-new-pass")
	assert.ErrorIs(t, err, ErrInvalidToken, "token types must not be interchangeable")
}

// --- refresh + logout ---

func TestRefreshRotatesToken(t *testing.T) {
	user := verifiedApprovedUser("alice@example.com")
	f := newFixture(user)

	login, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct"})
	require.NoError(t, err)

	refreshed, err := f.service.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.RefreshToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = f.service.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "old refresh token must be dead after rotation")
}

func TestLogoutRevokesSession(t *testing.T) {
	user := verifiedApprovedUser("alice@example.com")
	f := newFixture(user)

	login, err := f.service.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "correct"})
	require.NoError(t, err)

	var sessionID uuid.UUID
	for id := range f.sessions.sessions {
		sessionID = id
	}
	require.NoError(t, f.service.Logout(context.Background(), sessionID, &user.ID, nil))

	_, err = f.service.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
