// Package auth resolves caller identities from access tokens and holds the
// single ownership check used by every owner-or-admin operation.
package auth

import (
	"fmt"
	"time"

	"pulse/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, "":
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

type Identity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Owned is anything with a single owning user.
type Owned interface {
	OwnerID() int
}

// Authorize allows the owner of res or an administrator.
func Authorize(id Identity, res Owned) error {
	if id.IsAdmin() || res.OwnerID() == id.ID {
		return nil
	}
	return apperr.Forbidden("not authorized")
}

// Verifier checks HS256 access tokens issued by the identity service.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, apperr.Unauthenticated("token not provided")
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}
	if c.UserID <= 0 {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}

	role, err := ParseRole(c.Role)
	if err != nil {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}

	return Identity{ID: c.UserID, Name: c.Name, Role: role}, nil
}

// Sign issues a token for id. Token issuance belongs to the identity service;
// this exists for tooling and tests that need a valid credential.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		UserID: id.ID,
		Name:   id.Name,
		Role:   string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
