package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"classtrack/internal/users"
)

// Identity is the authenticated caller as the core trusts it.
type Identity struct {
	UserID    string
	Role      users.Role
	TeacherID *string
}

// Claims represents JWT payload.
type Claims struct {
	Role      users.Role `json:"role"`
	TeacherID *string    `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an access token for the identity.
func Issue(id Identity, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := Claims{
		Role:      id.Role,
		TeacherID: id.TeacherID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Parse validates a token and returns the identity it carries.
func Parse(tokenStr, key, issuer string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Identity{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Identity{}, errors.New("issuer mismatch")
	}
	return Identity{UserID: claims.Subject, Role: claims.Role, TeacherID: claims.TeacherID}, nil
}

// Authorize reports whether the identity may perform an operation gated to
// the given roles. Administrators pass every gate.
func Authorize(id Identity, roles ...users.Role) bool {
	if id.Role == users.RoleAdministrator {
		return true
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}
