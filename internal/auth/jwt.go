package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("auth: authentication credentials were not provided")
	ErrInvalidToken = errors.New("auth: invalid or expired token")
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	Subject     string
	IsSuperuser bool
	IsStaff     bool
}

// IsAdminOrStaff reports whether the identity may use admin surfaces and
// mutating actions. A nil identity is never allowed.
func IsAdminOrStaff(id *Identity) bool {
	return id != nil && (id.IsSuperuser || id.IsStaff)
}

// Claims is the JWT payload issued to catalog operators.
type Claims struct {
	IsSuperuser bool `json:"is_superuser"`
	IsStaff     bool `json:"is_staff"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager signing with secret.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for subject carrying the given roles.
func (m *TokenManager) Issue(subject string, superuser, staff bool) (string, error) {
	now := m.now()
	claims := Claims{
		IsSuperuser: superuser,
		IsStaff:     staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns the identity it carries.
func (m *TokenManager) Parse(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &Identity{
		Subject:     claims.Subject,
		IsSuperuser: claims.IsSuperuser,
		IsStaff:     claims.IsStaff,
	}, nil
}
