package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const DefaultTTL = time.Hour

var ErrEmptyToken = errors.New("token string is empty")

// Issuer signs and validates HS256 access tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, now func() time.Time) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    now,
	}
}

func (i *Issuer) CreateToken(user User) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("signing secret not configured")
	}

	now := i.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(i.ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) ParseToken(tokenString string) (*Claims, error) {
	if len(tokenString) == 0 {
		return nil, ErrEmptyToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("unauthorized: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid - unauthorized")
	}

	if claims.Expired(i.now()) {
		return nil, fmt.Errorf("token expired")
	}

	return claims, nil
}

// ParseIdentity decodes the claims without verifying the signature. Clients
// use it to learn who they are logged in as; it must never gate access.
func ParseIdentity(tokenString string) (*Claims, error) {
	if len(tokenString) == 0 {
		return nil, ErrEmptyToken
	}

	claims := &Claims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claims, nil
}

// Valid replaces the wall clock checks of StandardClaims; expiry is checked
// against the issuer clock in ParseToken.
func (c Claims) Valid() error {
	if c.UserID == 0 {
		return errors.New("token missing user id")
	}
	return nil
}

// Expired reports whether the claims carry an expiry that lies before now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != 0 && now.Unix() > c.ExpiresAt
}
