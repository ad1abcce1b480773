// Package editorgrant verifies the Ed25519-signed tokens campaign staff
// present for glossary write access.
package editorgrant

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forward-louisville/glossary/internal/platform/apperrors"
	"github.com/forward-louisville/glossary/internal/platform/config"
)

// RoleEditor is the role required for glossary writes.
const RoleEditor = "editor"

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer    string `env:"GLOSSARY_GRANT_ISSUER"`
	Audience  string `env:"GLOSSARY_GRANT_AUDIENCE"`
	PublicKey string `env:"GLOSSARY_GRANT_PUBLIC_KEY"`
}

// Config defines how editor grants are verified.
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Claims captures a validated editor grant.
type Claims struct {
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	JWTID     string
	StaffID   string
	Role      string
}

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	StaffID string `json:"staff_id"`
	Role    string `json:"role"`
}

// LoadConfigFromEnv reads grant verification configuration.
func LoadConfigFromEnv(now func() time.Time) (Config, error) {
	var raw grantEnv
	if err := config.ParseEnv(&raw); err != nil {
		return Config{}, fmt.Errorf("parse editor grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return Config{}, fmt.Errorf("GLOSSARY_GRANT_ISSUER is required")
	}
	if audience == "" {
		return Config{}, fmt.Errorf("GLOSSARY_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return Config{}, fmt.Errorf("GLOSSARY_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return Config{}, fmt.Errorf("decode editor grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return Config{}, fmt.Errorf("editor grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return Config{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Validate verifies an editor grant token and checks its claims.
func Validate(grant string, cfg Config) (Claims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return Claims{}, errors.New("editor grant verifier is not configured")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant issuer mismatch")
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant audience mismatch")
	}

	if parsed.ID == "" {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant not active yet")
		}
	}

	if strings.TrimSpace(parsed.StaffID) == "" {
		return Claims{}, apperrors.E(apperrors.KindUnauthorized, "editor grant staff_id is required")
	}
	if parsed.Role != RoleEditor {
		return Claims{}, apperrors.E(apperrors.KindForbidden, "editor grant role is not editor")
	}

	claims := Claims{
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
		StaffID:   parsed.StaffID,
		Role:      parsed.Role,
	}
	if parsed.NotBefore != nil {
		claims.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// MintInput describes a grant to sign.
type MintInput struct {
	Issuer   string
	Audience string
	StaffID  string
	JWTID    string
	IssuedAt time.Time
	TTL      time.Duration
}

// Mint signs an editor grant with the given private key.
func Mint(key ed25519.PrivateKey, input MintInput) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing key must be %d bytes", ed25519.PrivateKeySize)
	}
	if strings.TrimSpace(input.StaffID) == "" {
		return "", errors.New("staff id is required")
	}
	if input.TTL <= 0 {
		return "", errors.New("ttl must be positive")
	}
	issuedAt := input.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	issuedAt = issuedAt.UTC()

	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    input.Issuer,
			Audience:  jwt.ClaimStrings{input.Audience},
			ID:        input.JWTID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(input.TTL)),
		},
		StaffID: input.StaffID,
		Role:    RoleEditor,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign editor grant: %w", err)
	}
	return signed, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.E(apperrors.KindUnauthorized, "editor grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.E(apperrors.KindUnauthorized, "editor grant alg is invalid")
	}
	return apperrors.E(apperrors.KindUnauthorized, "editor grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
