// Package auth verifies bearer tokens and guards routes by role.
package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/landbook/landbook/internal/shared"
)

// Claims carried by an access token. Subject holds the numeric user id.
type Claims struct {
	jwt.RegisteredClaims
	Role shared.Role `json:"role"`
	Name string      `json:"name,omitempty"`
}
