package audit

import (
	"context"

	id "brokergate/pkg/domain"
)

// Store persists audit entries. Implementations are append-only; ListByTenant
// exists for the operator audit endpoint and for tests.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Entry, error)
}

// Sink receives a copy of every recorded entry for out-of-band delivery
// (SIEM, compliance archival). Sink delivery is fire-and-forget.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}
