package scope

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"

	id "brokergate/pkg/domain"
	txcontext "brokergate/pkg/platform/tx"
)

// PostgresClient persists records in PostgreSQL. Filters become WHERE
// equality predicates via squirrel, which is what lets the scoped store merge
// the tenant predicate into arbitrary caller filters at one point.
type PostgresClient struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	tables  map[string]struct{}
}

// NewPostgresClient constructs a postgres-backed client. allowedTables is the
// closed set of table names operations may address; entity names arrive from
// code, not users, but the allowlist keeps identifier interpolation safe by
// construction.
func NewPostgresClient(db *sql.DB, allowedTables []string) *PostgresClient {
	tables := make(map[string]struct{}, len(allowedTables))
	for _, t := range allowedTables {
		tables[t] = struct{}{}
	}
	return &PostgresClient{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		tables:  tables,
	}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *PostgresClient) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return c.db
}

func (c *PostgresClient) tableName(entity string) (string, error) {
	if _, ok := c.tables[entity]; !ok {
		return "", fmt.Errorf("unknown entity table %q", entity)
	}
	return entity, nil
}

// Create inserts the record and returns it as stored.
func (c *PostgresClient) Create(ctx context.Context, entity string, rec Record) (Record, error) {
	table, err := c.tableName(entity)
	if err != nil {
		return nil, err
	}
	if _, ok := rec["id"].(string); !ok {
		rec = clone(rec)
		rec["id"] = id.NewEntityID().String()
	}

	columns := sortedColumns(rec)
	values := make([]any, len(columns))
	for i, col := range columns {
		values[i] = rec[col]
	}

	query, args, err := c.builder.
		Insert(table).
		Columns(columns...).
		Values(values...).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert for %s: %w", table, err)
	}
	if _, err := c.execer(ctx).ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return clone(rec), nil
}

// FindUnique loads one row by primary key.
func (c *PostgresClient) FindUnique(ctx context.Context, entity string, entityID id.EntityID) (Record, error) {
	table, err := c.tableName(entity)
	if err != nil {
		return nil, err
	}
	query, args, err := c.builder.
		Select("*").
		From(table).
		Where(sq.Eq{"id": entityID.String()}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select for %s: %w", table, err)
	}
	records, err := c.queryRecords(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// FindMany returns all rows matching the filter.
func (c *PostgresClient) FindMany(ctx context.Context, entity string, filter Filter) ([]Record, error) {
	table, err := c.tableName(entity)
	if err != nil {
		return nil, err
	}
	query, args, err := c.builder.
		Select("*").
		From(table).
		Where(sq.Eq(filter)).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select for %s: %w", table, err)
	}
	records, err := c.queryRecords(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return records, nil
}

// UpdateMany applies changes to all rows matching the filter.
func (c *PostgresClient) UpdateMany(ctx context.Context, entity string, filter Filter, changes Record) (int64, error) {
	table, err := c.tableName(entity)
	if err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		return 0, fmt.Errorf("update on %s with no changes", table)
	}
	update := c.builder.Update(table)
	for _, col := range sortedColumns(changes) {
		update = update.Set(col, changes[col])
	}
	query, args, err := update.Where(sq.Eq(filter)).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update for %s: %w", table, err)
	}
	result, err := c.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	return result.RowsAffected()
}

// DeleteMany removes all rows matching the filter.
func (c *PostgresClient) DeleteMany(ctx context.Context, entity string, filter Filter) (int64, error) {
	table, err := c.tableName(entity)
	if err != nil {
		return 0, err
	}
	query, args, err := c.builder.
		Delete(table).
		Where(sq.Eq(filter)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete for %s: %w", table, err)
	}
	result, err := c.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return result.RowsAffected()
}

func (c *PostgresClient) queryRecords(ctx context.Context, query string, args []any) ([]Record, error) {
	rows, err := c.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		rec := make(Record, len(columns))
		for i, col := range columns {
			rec[col] = normalize(values[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// normalize converts driver byte slices to strings so records compare the
// same whether they came from postgres or the memory client.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sortedColumns(rec Record) []string {
	columns := make([]string, 0, len(rec))
	for col := range rec {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
