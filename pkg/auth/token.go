package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/catalog-backend/pkg/config"
)

// clockSkew tolerates small drift between the minting host and the api.
const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

func checkConfig(cfg config.AdminConfig) error {
	switch {
	case !cfg.Enabled():
		return errors.New("admin jwt secret is not configured")
	case cfg.JWTIssuer == "":
		return errors.New("admin jwt issuer is not configured")
	}
	return nil
}

// MintAdminToken signs a catalog:write token for subject that expires ttl
// after now.
func MintAdminToken(cfg config.AdminConfig, now time.Time, subject string, ttl time.Duration) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	claims := AdminClaims{
		Scope: ScopeCatalogWrite,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.JWTIssuer,
			Subject:   strings.TrimSpace(subject),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// ParseAdminToken verifies signature, issuer, expiry and scope.
func ParseAdminToken(cfg config.AdminConfig, raw string) (*AdminClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.JWTIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &AdminClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}
