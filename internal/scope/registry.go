package scope

// Registry declares which entity types carry a tenant column. It is built
// once at process start and must not be mutated afterwards; the scoped store
// consults it on every operation to decide whether to rewrite.
//
// Entity types absent from the registry are global reference data and pass
// through unscoped.
type Registry struct {
	columns map[string]string
}

// DefaultTenantColumn is used when a declaration does not name a column.
const DefaultTenantColumn = "tenant_id"

// NewRegistry builds a registry from entity-type declarations. A declaration
// with an empty column uses DefaultTenantColumn.
func NewRegistry(declarations map[string]string) *Registry {
	columns := make(map[string]string, len(declarations))
	for entity, column := range declarations {
		if column == "" {
			column = DefaultTenantColumn
		}
		columns[entity] = column
	}
	return &Registry{columns: columns}
}

// DefaultRegistry declares the platform's tenant-scoped entity types.
// users doubles as the broker directory; audit entries are tenant-scoped so
// each tenant sees its own trail, including operator actions performed on it.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]string{
		"users":         "",
		"brokers":       "",
		"listings":      "",
		"qr_codes":      "",
		"applications":  "",
		"audit_entries": "",
	})
}

// TenantColumn returns the tenant column for the entity type and whether the
// type is tenant-scoped at all.
func (r *Registry) TenantColumn(entity string) (string, bool) {
	column, ok := r.columns[entity]
	return column, ok
}

// Scoped reports whether the entity type carries a tenant column.
func (r *Registry) Scoped(entity string) bool {
	_, ok := r.columns[entity]
	return ok
}

// Entities returns the declared entity type names. Used by the postgres
// client as its table allowlist.
func (r *Registry) Entities() []string {
	out := make([]string, 0, len(r.columns))
	for entity := range r.columns {
		out = append(out, entity)
	}
	return out
}
