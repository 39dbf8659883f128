package scope

import (
	"context"
	"errors"

	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/requestcontext"
)

// ScopedStore is the tenant-aware decorator around a raw Client. It is the
// only persistence handle exposed to handler code, which makes the tenant
// rewrite impossible to skip: there is no second code path to the store.
//
// Behavior per operation, for tenant-scoped entity types:
//
//   - Create: stamps the active tenant when the record carries none; rejects
//     a record naming a different tenant unless the caller is privileged.
//   - FindUnique: executes the lookup, then compares the stored tenant to the
//     active tenant and suppresses mismatches as not-found. A unique lookup
//     cannot carry a filter, so the check must run after the read; the
//     suppression lives here and nowhere else so it cannot be short-circuited.
//   - FindMany/Update/Delete: merges the tenant predicate into the filter
//     before execution. Caller-supplied values for the tenant column are
//     overwritten.
//
// Privileged callers execute unmodified operations. Entity types outside the
// registry pass through untouched.
type ScopedStore struct {
	client   Client
	registry *Registry
}

// NewScopedStore wraps the raw client. Callers should drop their own
// reference to client after wiring.
func NewScopedStore(client Client, registry *Registry) *ScopedStore {
	return &ScopedStore{client: client, registry: registry}
}

// TenantColumn reports the declared tenant column for the entity type and
// whether the type is tenant-scoped at all.
func (s *ScopedStore) TenantColumn(entity string) (string, bool) {
	return s.registry.TenantColumn(entity)
}

// errNoContext rejects operations on scoped entities that arrive without a
// security context. Fail closed: ambiguity is never a pass.
var errNoContext = dErrors.New(dErrors.CodeForbidden, "no security context for tenant-scoped operation")

// tenantFor returns the security context and tenant column for a scoped
// operation, or ok=false for unscoped entity types.
func (s *ScopedStore) tenantFor(ctx context.Context, entity string) (requestcontext.SecurityContext, string, bool, error) {
	column, scoped := s.registry.TenantColumn(entity)
	if !scoped {
		return requestcontext.SecurityContext{}, "", false, nil
	}
	sec, ok := requestcontext.Security(ctx)
	if !ok {
		return requestcontext.SecurityContext{}, "", false, errNoContext
	}
	if !sec.Privileged() && sec.ActiveTenant.IsNil() {
		return requestcontext.SecurityContext{}, "", false, errNoContext
	}
	return sec, column, true, nil
}

// Create inserts a record, stamping the active tenant on tenant-scoped
// entity types.
func (s *ScopedStore) Create(ctx context.Context, entity string, rec Record) (Record, error) {
	sec, column, scoped, err := s.tenantFor(ctx, entity)
	if err != nil {
		return nil, err
	}
	if !scoped {
		return s.client.Create(ctx, entity, rec)
	}

	rec = clone(rec)
	given, hasTenant := rec[column]
	switch {
	case !hasTenant || given == nil || given == "":
		if !sec.ActiveTenant.IsNil() {
			rec[column] = sec.ActiveTenant.String()
		} else if !sec.Privileged() {
			return nil, errNoContext
		}
	case sec.Privileged():
		// A platform operator may create rows under any tenant as given.
	case given != sec.ActiveTenant.String():
		return nil, dErrors.New(dErrors.CodeTenantMismatch, "record tenant differs from caller tenant")
	}
	return s.client.Create(ctx, entity, rec)
}

// FindUnique loads one row by id. For tenant-scoped entities the result is
// suppressed as not-found when its tenant differs from the active tenant,
// so callers can never distinguish "absent" from "owned by someone else".
func (s *ScopedStore) FindUnique(ctx context.Context, entity string, entityID id.EntityID) (Record, error) {
	sec, column, scoped, err := s.tenantFor(ctx, entity)
	if err != nil {
		return nil, err
	}
	rec, err := s.client.FindUnique(ctx, entity, entityID)
	if err != nil {
		return nil, err
	}
	if !scoped || sec.Privileged() {
		return rec, nil
	}
	if tenant, _ := rec[column].(string); tenant != sec.ActiveTenant.String() {
		return nil, ErrNotFound
	}
	return rec, nil
}

// FindMany returns rows matching the filter, confined to the active tenant
// for tenant-scoped entities.
func (s *ScopedStore) FindMany(ctx context.Context, entity string, filter Filter) ([]Record, error) {
	merged, err := s.mergeFilter(ctx, entity, filter)
	if err != nil {
		return nil, err
	}
	return s.client.FindMany(ctx, entity, merged)
}

// Update applies changes to a single row addressed by id. Returns the updated
// record, or ErrNotFound when the row is absent or outside the active tenant.
// The tenant column itself is never updatable through this path.
func (s *ScopedStore) Update(ctx context.Context, entity string, entityID id.EntityID, changes Record) (Record, error) {
	_, column, scoped, err := s.tenantFor(ctx, entity)
	if err != nil {
		return nil, err
	}
	if scoped {
		changes = clone(changes)
		delete(changes, column)
	}
	merged, err := s.mergeFilter(ctx, entity, Filter{"id": entityID.String()})
	if err != nil {
		return nil, err
	}
	affected, err := s.client.UpdateMany(ctx, entity, merged, changes)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.FindUnique(ctx, entity, entityID)
}

// UpdateWhere applies changes to all rows matching the filter within the
// active tenant. Returns the number of rows affected.
func (s *ScopedStore) UpdateWhere(ctx context.Context, entity string, filter Filter, changes Record) (int64, error) {
	_, column, scoped, err := s.tenantFor(ctx, entity)
	if err != nil {
		return 0, err
	}
	if scoped {
		changes = clone(changes)
		delete(changes, column)
	}
	merged, err := s.mergeFilter(ctx, entity, filter)
	if err != nil {
		return 0, err
	}
	return s.client.UpdateMany(ctx, entity, merged, changes)
}

// Delete removes a single row addressed by id, confined to the active tenant.
func (s *ScopedStore) Delete(ctx context.Context, entity string, entityID id.EntityID) error {
	merged, err := s.mergeFilter(ctx, entity, Filter{"id": entityID.String()})
	if err != nil {
		return err
	}
	affected, err := s.client.DeleteMany(ctx, entity, merged)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWhere removes all rows matching the filter within the active tenant.
func (s *ScopedStore) DeleteWhere(ctx context.Context, entity string, filter Filter) (int64, error) {
	merged, err := s.mergeFilter(ctx, entity, filter)
	if err != nil {
		return 0, err
	}
	return s.client.DeleteMany(ctx, entity, merged)
}

// mergeFilter injects the tenant predicate for scoped entities. The caller's
// filter may not override it: the predicate is written last, over whatever
// the caller put under the tenant column.
func (s *ScopedStore) mergeFilter(ctx context.Context, entity string, filter Filter) (Filter, error) {
	sec, column, scoped, err := s.tenantFor(ctx, entity)
	if err != nil {
		return nil, err
	}
	merged := cloneFilter(filter)
	if !scoped || sec.Privileged() {
		return merged, nil
	}
	merged[column] = sec.ActiveTenant.String()
	return merged, nil
}

// IsNotFound reports whether err is the store's not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound)
}
