// Package domain holds shared domain primitives: typed identifiers that make
// cross-type assignment a compile error. A TenantID can never be passed where
// a UserID is expected, which matters for a codebase whose main job is keeping
// tenant boundaries straight.
package domain

import (
	"github.com/google/uuid"

	dErrors "brokergate/pkg/domain-errors"
)

// TenantID identifies an isolated customer organization.
type TenantID uuid.UUID

// UserID identifies a caller (broker, agent, admin or platform operator).
type UserID uuid.UUID

// EntityID identifies a persisted business resource (listing, QR code,
// application). Resources of different types share the id space; the scoped
// store keys rows by (entity type, id).
type EntityID uuid.UUID

func (id TenantID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id EntityID) String() string { return uuid.UUID(id).String() }

// IsNil reports whether the id is the zero UUID.
func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EntityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewTenantID returns a fresh random tenant id.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewUserID returns a fresh random user id.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewEntityID returns a fresh random entity id.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseTenantID validates and returns a TenantID. Rejects empty, malformed,
// and nil UUIDs at trust boundaries.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TenantID{}, err
	}
	return TenantID(u), nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseEntityID validates and returns an EntityID.
func ParseEntityID(s string) (EntityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(u), nil
}
