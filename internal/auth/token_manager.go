package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmptyUserID indicates a token was requested without a subject.
	ErrEmptyUserID = errors.New("user id must be provided")
	// ErrEmptySecret indicates the manager was built without a signing secret.
	ErrEmptySecret = errors.New("token secret must be provided")
)

// Claims is the payload signed into every access token.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager constructs a TokenManager that signs tokens valid for ttl.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithNowFunc allows tests to override the time source.
func (m *TokenManager) WithNowFunc(now func() time.Time) {
	m.now = now
}

// Issue signs a token whose subject is userID.
func (m *TokenManager) Issue(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := m.now().UTC()
	claims := Claims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify returns the subject of a valid token. Malformed, forged, expired and
// wrongly-signed tokens are all reported the same way: ok is false.
func (m *TokenManager) Verify(token string) (userID string, ok bool) {
	if token == "" {
		return "", false
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.UID == "" {
		return "", false
	}

	return claims.UID, true
}
