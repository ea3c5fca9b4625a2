package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned when the token signature is fine but the
	// expiry claim has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for bad signatures and malformed tokens.
	ErrTokenInvalid = errors.New("token invalid")
)

// Identity is the user snapshot embedded in every token. It is what the
// auth gate hands to downstream handlers, so it carries everything they
// need without a store lookup.
type Identity struct {
	UserID   uint
	FullName string
	Email    string
}

type claims struct {
	jwt.RegisteredClaims
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Service issues and verifies signed bearer tokens. The signing secret is
// injected once at construction; verification is pure and stateless.
type Service struct {
	secret []byte
}

// NewService builds a Service around the process-wide signing secret.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Issue serializes the identity plus an expiry claim and signs it with
// HS256. The user id travels in the Subject claim.
func (s *Service) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		FullName: id.FullName,
		Email:    id.Email,
	})
	return t.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the embedded identity.
func (s *Service) Verify(tokenString string) (Identity, error) {
	parsed := &claims{}
	t, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}
	if !t.Valid {
		return Identity{}, ErrTokenInvalid
	}

	uid, err := strconv.ParseUint(parsed.Subject, 10, 64)
	if err != nil {
		return Identity{}, ErrTokenInvalid
	}

	return Identity{
		UserID:   uint(uid),
		FullName: parsed.FullName,
		Email:    parsed.Email,
	}, nil
}
