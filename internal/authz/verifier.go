package authz

import (
	"context"

	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/requestcontext"

	"brokergate/internal/scope"
)

// ResourceLoader loads a single resource by id. Satisfied by
// scope.ScopedStore; tests substitute stubs to prove the verifier holds even
// when store-level filtering is broken.
type ResourceLoader interface {
	FindUnique(ctx context.Context, entity string, entityID id.EntityID) (scope.Record, error)
}

// Verifier is the second, independent ownership check for single-resource
// routes. The scoped store already suppresses cross-tenant unique lookups;
// the verifier re-compares the loaded resource's tenant on its own, so a bug
// in any one handler's query construction cannot alone cause a cross-tenant
// leak.
type Verifier struct {
	loader   ResourceLoader
	registry *scope.Registry
}

// NewVerifier constructs the ownership verifier.
func NewVerifier(loader ResourceLoader, registry *scope.Registry) *Verifier {
	return &Verifier{loader: loader, registry: registry}
}

// Verify confirms the resource addressed by entityID belongs to the caller's
// active tenant.
//
//   - Privileged callers always pass.
//   - A store-level miss stays NotFound (the suppression semantics of the
//     scoped store are preserved, not converted to Forbidden).
//   - A loaded resource whose tenant differs from the active tenant is
//     Forbidden: reaching this state means store-level filtering failed, and
//     the verifier is the gate that still holds.
//
// Routes declared for ownership protection on an entity type this build does
// not know fail closed.
func (v *Verifier) Verify(ctx context.Context, entity string, entityID id.EntityID) error {
	sec, ok := requestcontext.Security(ctx)
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "no security context for ownership check")
	}
	if sec.Privileged() {
		return nil
	}

	column, scoped := v.registry.TenantColumn(entity)
	if !scoped {
		return dErrors.Newf(dErrors.CodeForbidden, "ownership protection declared for unscoped entity %q", entity)
	}
	if sec.ActiveTenant.IsNil() {
		return dErrors.New(dErrors.CodeForbidden, "no active tenant for ownership check")
	}

	rec, err := v.loader.FindUnique(ctx, entity, entityID)
	if err != nil {
		return err
	}
	if tenant, _ := rec[column].(string); tenant != sec.ActiveTenant.String() {
		return dErrors.New(dErrors.CodeForbidden, "resource belongs to a different tenant")
	}
	return nil
}
