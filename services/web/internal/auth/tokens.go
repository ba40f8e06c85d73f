package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"volunteerverse/services/web/internal/models"
)

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// issue signs a fresh access token for row. The token never outlives its session.
func (s *Service) issue(row models.Session) (*Session, error) {
	now := s.cfg.Now().UTC()
	exp := now.Add(s.cfg.AccessTTL)
	if row.ExpiresAt.Before(exp) {
		exp = row.ExpiresAt
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: row.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   row.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(s.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &Session{
		ID:              row.ID,
		UserID:          row.AccountID,
		AccessToken:     signed,
		AccessExpiresAt: exp,
		ExpiresAt:       row.ExpiresAt,
	}, nil
}

// parse verifies the signature and claims of token. expired is true when the
// token is authentic and expiry is its only defect.
func (s *Service) parse(token string) (c *claims, expired bool, err error) {
	if token == "" {
		return nil, false, ErrInvalidToken
	}

	c = &claims{}
	_, err = s.parser.ParseWithClaims(token, c, func(*jwt.Token) (any, error) {
		return s.cfg.SigningKey, nil
	})
	switch {
	case err == nil:
		return c, false, nil
	case errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) && c.Issuer == s.cfg.Issuer:
		return c, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
