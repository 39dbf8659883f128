package scope

import (
	"context"
	"sync"

	id "brokergate/pkg/domain"
)

// MemoryClient keeps rows in process memory. It favors clarity over
// performance and backs development mode plus most of the test suite.
type MemoryClient struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
}

// NewMemoryClient constructs an empty in-memory client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{tables: make(map[string]map[string]Record)}
}

func (c *MemoryClient) table(entity string) map[string]Record {
	t, ok := c.tables[entity]
	if !ok {
		t = make(map[string]Record)
		c.tables[entity] = t
	}
	return t
}

// Create inserts the record, keyed by its "id" column.
func (c *MemoryClient) Create(_ context.Context, entity string, rec Record) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, _ := rec["id"].(string)
	if key == "" {
		key = id.NewEntityID().String()
		rec = clone(rec)
		rec["id"] = key
	}
	c.table(entity)[key] = clone(rec)
	return clone(rec), nil
}

// FindUnique loads one row by primary key.
func (c *MemoryClient) FindUnique(_ context.Context, entity string, entityID id.EntityID) (Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if rec, ok := c.tables[entity][entityID.String()]; ok {
		return clone(rec), nil
	}
	return nil, ErrNotFound
}

// FindMany returns all rows matching the filter by column equality.
func (c *MemoryClient) FindMany(_ context.Context, entity string, filter Filter) ([]Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Record
	for _, rec := range c.tables[entity] {
		if matches(rec, filter) {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

// UpdateMany applies changes to all rows matching the filter.
func (c *MemoryClient) UpdateMany(_ context.Context, entity string, filter Filter, changes Record) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var affected int64
	for key, rec := range c.tables[entity] {
		if !matches(rec, filter) {
			continue
		}
		updated := clone(rec)
		for col, v := range changes {
			updated[col] = v
		}
		c.tables[entity][key] = updated
		affected++
	}
	return affected, nil
}

// DeleteMany removes all rows matching the filter.
func (c *MemoryClient) DeleteMany(_ context.Context, entity string, filter Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var affected int64
	for key, rec := range c.tables[entity] {
		if matches(rec, filter) {
			delete(c.tables[entity], key)
			affected++
		}
	}
	return affected, nil
}

func matches(rec Record, filter Filter) bool {
	for col, want := range filter {
		if rec[col] != want {
			return false
		}
	}
	return true
}
