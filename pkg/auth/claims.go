package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeCatalogWrite grants every catalog mutation.
const ScopeCatalogWrite = "catalog:write"

var (
	ErrMissingScope   = errors.New("token does not grant catalog:write")
	ErrMissingSubject = errors.New("token has no subject")
)

// AdminClaims is the payload of an admin bearer token. Scope is a space
// separated list.
type AdminClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope reports whether scope is granted.
func (c AdminClaims) HasScope(scope string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == scope {
			return true
		}
	}
	return false
}

// Validate runs after the registered-claim checks in jwt.Parser.
func (c AdminClaims) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return ErrMissingSubject
	}
	if !c.HasScope(ScopeCatalogWrite) {
		return ErrMissingScope
	}
	return nil
}
