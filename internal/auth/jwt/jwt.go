// Package jwt validates the bearer credentials from which the caller's
// identity, role, and home tenant are derived. Token issuance lives with the
// identity provider; this service only verifies and extracts claims.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
)

// Claims are the registered plus custom claims carried by brokergate access
// tokens. TenantID is the caller's home tenant; it is empty for platform
// operators that are not attached to any tenant.
type Claims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the validated, parsed form of Claims consumed by the
// authorization pipeline.
type Identity struct {
	UserID     id.UserID
	Role       id.Role
	HomeTenant id.TenantID
	JTI        string
}

// Service handles JWT validation for HS256-signed tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

// New constructs a validation service.
func New(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateToken mints a signed access token. Production token issuance is the
// identity provider's job; this exists for development tooling and tests.
func (s *Service) GenerateToken(identity Identity, expiresIn time.Duration) (string, error) {
	claims := Claims{
		UserID: identity.UserID.String(),
		Role:   identity.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if !identity.HomeTenant.IsNil() {
		claims.TenantID = identity.HomeTenant.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// ValidateToken verifies the signature and standard claims, then parses the
// custom claims into an Identity. Every failure maps to CodeUnauthorized; the
// caller never learns which check failed.
func (s *Service) ValidateToken(tokenString string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		UserID: userID,
		Role:   role,
		JTI:    claims.ID,
	}
	if claims.TenantID != "" {
		tenant, err := id.ParseTenantID(claims.TenantID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token tenant")
		}
		identity.HomeTenant = tenant
	}
	return identity, nil
}
