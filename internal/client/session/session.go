// Package session turns the backend's access token into the user id the
// client scopes its data by.
package session

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated identity of the running client.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// FromToken reads the subject and expiry of token without checking its
// signature; the backend verifies tokens, the client only needs the id.
func FromToken(token string, now time.Time) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}

	s := &Session{UserID: claims.Subject, Token: token}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time.UTC()
		if !now.Before(s.ExpiresAt) {
			return nil, fmt.Errorf("%w: expired at %s", common.ErrInvalidToken, s.ExpiresAt.Format(time.RFC3339))
		}
	}
	return s, nil
}

// UserIDFromToken is FromToken reduced to the user id.
func UserIDFromToken(token string, now time.Time) (string, error) {
	s, err := FromToken(token, now)
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

// GenerateToken signs an HS256 token for userID. The client uses it to mint
// a local identity when running against the in-memory backend.
func GenerateToken(userID string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	})

	s, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return s, nil
}
