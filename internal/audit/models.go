// Package audit records privileged and cross-tenant actions. Entries are
// append-only: nothing in this layer mutates or deletes them, and retention
// is an external policy.
package audit

import (
	"time"

	"github.com/google/uuid"

	id "brokergate/pkg/domain"
)

// Action labels an audited operation.
type Action string

const (
	// ActionCrossTenantAccess marks a privileged request whose effective
	// tenant differs from the actor's home tenant. Emitted by the
	// authorization pipeline, exactly once per such request.
	ActionCrossTenantAccess Action = "cross_tenant_access"

	ActionListingCreated Action = "listing_created"
	ActionListingUpdated Action = "listing_updated"
	ActionListingDeleted Action = "listing_deleted"

	ActionApplicationApproved Action = "application_approved"
	ActionApplicationRejected Action = "application_rejected"

	ActionUserCreated     Action = "user_created"
	ActionUserDeactivated Action = "user_deactivated"
)

// Entry is one immutable audit record. Cross-tenant actions are recorded
// under the target tenant, not the actor's home tenant, so each tenant's own
// trail shows what the platform operator did to it.
type Entry struct {
	ID         uuid.UUID      `json:"id"`
	TenantID   id.TenantID    `json:"tenant_id"`
	ActorID    id.UserID      `json:"actor_id"`
	ActorRole  id.Role        `json:"actor_role"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Action     Action         `json:"action"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
