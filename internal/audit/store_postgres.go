package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "brokergate/pkg/domain"
	txcontext "brokergate/pkg/platform/tx"
)

// PostgresStore persists audit entries in the audit_entries table. Snapshots
// are stored as JSONB so the schema survives entity shape changes.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a postgres-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one audit entry.
func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before snapshot: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}

	query := `
		INSERT INTO audit_entries (id, tenant_id, actor_id, actor_role, entity_type, entity_id, action, before_snapshot, after_snapshot, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.TenantID),
		uuid.UUID(entry.ActorID),
		string(entry.ActorRole),
		entry.EntityType,
		nullString(entry.EntityID),
		string(entry.Action),
		before,
		after,
		nullString(entry.RequestID),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByTenant returns entries recorded under the given tenant, oldest first.
func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]Entry, error) {
	query := `
		SELECT id, tenant_id, actor_id, actor_role, entity_type, entity_id, action, before_snapshot, after_snapshot, request_id, created_at
		FROM audit_entries
		WHERE tenant_id = $1
		ORDER BY created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry             Entry
			tenant, actor     uuid.UUID
			role, action      string
			entityID, reqID   sql.NullString
			beforeRaw, aftRaw []byte
		)
		if err := rows.Scan(&entry.ID, &tenant, &actor, &role, &entry.EntityType, &entityID, &action, &beforeRaw, &aftRaw, &reqID, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.TenantID = id.TenantID(tenant)
		entry.ActorID = id.UserID(actor)
		entry.ActorRole = id.Role(role)
		entry.Action = Action(action)
		entry.EntityID = entityID.String
		entry.RequestID = reqID.String
		if entry.Before, err = unmarshalSnapshot(beforeRaw); err != nil {
			return nil, fmt.Errorf("unmarshal before snapshot: %w", err)
		}
		if entry.After, err = unmarshalSnapshot(aftRaw); err != nil {
			return nil, fmt.Errorf("unmarshal after snapshot: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func marshalSnapshot(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalSnapshot(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
