package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

const (
	defaultIssuer     = "volunteerverse"
	minPasswordLength = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)

	// Definitive session failures: the presented credentials will never
	// authenticate again.
	ErrInvalidToken    = errors.New("invalid session token")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrSessionExpired  = errors.New("session expired")
)

// IsDefinitive reports whether err means the credentials are unusable, as
// opposed to a transient backend failure.
func IsDefinitive(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrSessionExpired)
}

// Session is an authenticated session as seen by callers. RefreshToken is only
// populated right after Login or Refresh.
type Session struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token,omitempty"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	ExpiresAt       time.Time `json:"expires_at"`

	// Refreshed is set when AccessToken differs from the token presented.
	Refreshed bool `json:"-"`
}

// Store persists accounts and sessions.
type Store interface {
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
	CreateSession(ctx context.Context, session *models.Session) error
	SessionByID(ctx context.Context, id uuid.UUID) (models.Session, error)
	SessionByRefreshHash(ctx context.Context, hash string) (models.Session, error)
	RotateSession(ctx context.Context, id uuid.UUID, refreshHash string, expiresAt, at time.Time) error
	RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeAccountSessions(ctx context.Context, accountID uuid.UUID, at time.Time) error
}

// Limiter throttles login attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// Config controls token lifetimes and hashing.
type Config struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	SessionTTL time.Duration
	BcryptCost int
	Now        func() time.Time
}

// Service is the credential store: it owns passwords, sessions and access tokens.
type Service struct {
	store   Store
	limiter Limiter
	cfg     Config
	parser  *jwt.Parser
	dummy   []byte
	logger  zerolog.Logger
}

// NewService validates cfg and returns a Service.
func NewService(st Store, limiter Limiter, cfg Config, logger zerolog.Logger) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("signing key is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("volunteerverse-timing"), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hasher: %w", err)
	}

	return &Service{
		store:   st,
		limiter: limiter,
		cfg:     cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Now),
		),
		dummy:  dummy,
		logger: logger,
	}, nil
}

// NewAccount validates credentials and returns an unsaved account with a
// hashed password.
func (s *Service) NewAccount(email, password string) (*models.Account, error) {
	return HashAccount(email, password, s.cfg.BcryptCost)
}

// HashAccount validates credentials and hashes password with bcrypt at cost.
// Costs below bcrypt.MinCost fall back to bcrypt.DefaultCost.
func HashAccount(email, password string, cost int) (*models.Account, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
	}, nil
}

// Login verifies credentials and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, email)
		if err != nil {
			s.logger.Warn().Err(err).Msg("login limiter unavailable")
		}
		if !ok {
			loginsTotal.WithLabelValues("limited").Inc()
			return nil, ErrRateLimited
		}
	}

	account, err := s.store.AccountByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		loginsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	case err != nil:
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		loginsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn().Err(err).Msg("reset login limiter")
		}
	}

	refresh, err := newRefreshToken()
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := s.cfg.Now().UTC()
	row := models.Session{
		ID:               uuid.New(),
		AccountID:        account.ID,
		RefreshTokenHash: hashToken(refresh),
		ExpiresAt:        now.Add(s.cfg.SessionTTL),
	}
	if err := s.store.CreateSession(ctx, &row); err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess, err := s.issue(row)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	sess.RefreshToken = refresh
	loginsTotal.WithLabelValues("success").Inc()
	return sess, nil
}

// Resolve validates an access token against its session row. An access token
// whose only defect is expiry is re-issued while the session is active.
func (s *Service) Resolve(ctx context.Context, accessToken string) (*Session, error) {
	c, expired, err := s.parse(accessToken)
	if err != nil {
		return nil, err
	}

	row, err := s.activeSession(ctx, c)
	if err != nil {
		return nil, err
	}

	if expired {
		sess, err := s.issue(row)
		if err != nil {
			return nil, err
		}
		sess.Refreshed = true
		return sess, nil
	}

	return &Session{
		ID:              row.ID,
		UserID:          row.AccountID,
		AccessToken:     accessToken,
		AccessExpiresAt: c.ExpiresAt.Time,
		ExpiresAt:       row.ExpiresAt,
	}, nil
}

// Refresh rotates a refresh token and extends its session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	row, err := s.store.SessionByRefreshHash(ctx, hashToken(refreshToken))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := s.checkActive(row); err != nil {
		return nil, err
	}

	next, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.cfg.Now().UTC()
	row.ExpiresAt = now.Add(s.cfg.SessionTTL)
	switch err := s.store.RotateSession(ctx, row.ID, hashToken(next), row.ExpiresAt, now); {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrSessionRevoked
	case err != nil:
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	sess, err := s.issue(row)
	if err != nil {
		return nil, err
	}
	sess.RefreshToken = next
	sess.Refreshed = true
	return sess, nil
}

// Logout revokes the session behind accessToken. Unknown or malformed tokens
// are ignored so logging out twice succeeds.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	c, _, err := s.parse(accessToken)
	if err != nil {
		return nil
	}
	sid, err := uuid.Parse(c.SessionID)
	if err != nil {
		return nil
	}
	if err := s.store.RevokeSession(ctx, sid, s.cfg.Now().UTC()); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAll ends every session of an account.
func (s *Service) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	return s.store.RevokeAccountSessions(ctx, accountID, s.cfg.Now().UTC())
}

func (s *Service) activeSession(ctx context.Context, c *claims) (models.Session, error) {
	sid, err := uuid.Parse(c.SessionID)
	if err != nil {
		return models.Session{}, ErrInvalidToken
	}
	uid, err := uuid.Parse(c.Subject)
	if err != nil {
		return models.Session{}, ErrInvalidToken
	}

	row, err := s.store.SessionByID(ctx, sid)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return models.Session{}, ErrSessionNotFound
	case err != nil:
		return models.Session{}, fmt.Errorf("load session: %w", err)
	}
	if row.AccountID != uid {
		return models.Session{}, ErrInvalidToken
	}
	if err := s.checkActive(row); err != nil {
		return models.Session{}, err
	}
	return row, nil
}

func (s *Service) checkActive(row models.Session) error {
	if row.RevokedAt != nil {
		return ErrSessionRevoked
	}
	if !s.cfg.Now().Before(row.ExpiresAt) {
		return ErrSessionExpired
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
