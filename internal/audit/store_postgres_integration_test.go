//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"brokergate/internal/audit"
	id "brokergate/pkg/domain"
	"brokergate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_entries"))
}

func (s *PostgresStoreSuite) TestAppendAndListByTenant() {
	ctx := context.Background()
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()
	now := time.Now().UTC().Truncate(time.Microsecond)

	entry := audit.Entry{
		ID:         uuid.New(),
		TenantID:   tenantA,
		ActorID:    id.NewUserID(),
		ActorRole:  id.RoleSuperAdmin,
		EntityType: "listings",
		EntityID:   "listing-1",
		Action:     audit.ActionListingUpdated,
		Before:     map[string]any{"status": "draft"},
		After:      map[string]any{"status": "active"},
		RequestID:  "req-1",
		Timestamp:  now,
	}
	s.Require().NoError(s.store.Append(ctx, entry))
	s.Require().NoError(s.store.Append(ctx, audit.Entry{
		ID:         uuid.New(),
		TenantID:   tenantB,
		ActorID:    id.NewUserID(),
		ActorRole:  id.RoleSuperAdmin,
		EntityType: "http_route",
		Action:     audit.ActionCrossTenantAccess,
		Timestamp:  now.Add(time.Second),
	}))

	entries, err := s.store.ListByTenant(ctx, tenantA)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	got := entries[0]
	s.Equal(entry.ID, got.ID)
	s.Equal(tenantA, got.TenantID)
	s.Equal(entry.ActorID, got.ActorID)
	s.Equal(id.RoleSuperAdmin, got.ActorRole)
	s.Equal("listing-1", got.EntityID)
	s.Equal(audit.ActionListingUpdated, got.Action)
	s.Equal(map[string]any{"status": "draft"}, got.Before)
	s.Equal(map[string]any{"status": "active"}, got.After)
	s.Equal("req-1", got.RequestID)
	s.WithinDuration(now, got.Timestamp, time.Millisecond)
}

func (s *PostgresStoreSuite) TestNullableColumns() {
	ctx := context.Background()
	tenant := id.NewTenantID()

	s.Require().NoError(s.store.Append(ctx, audit.Entry{
		ID:         uuid.New(),
		TenantID:   tenant,
		ActorID:    id.NewUserID(),
		ActorRole:  id.RoleSuperAdmin,
		EntityType: "http_route",
		Action:     audit.ActionCrossTenantAccess,
		Timestamp:  time.Now().UTC(),
	}))

	entries, err := s.store.ListByTenant(ctx, tenant)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Empty(entries[0].EntityID)
	s.Empty(entries[0].RequestID)
	s.Nil(entries[0].Before)
	s.Nil(entries[0].After)
}
