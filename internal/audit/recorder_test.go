package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/requestcontext"
)

// failingStore rejects every append, standing in for a broken audit
// database.
type failingStore struct{}

func (failingStore) Append(context.Context, Entry) error { return errors.New("disk on fire") }
func (failingStore) ListByTenant(context.Context, id.TenantID) ([]Entry, error) {
	return nil, errors.New("disk on fire")
}

// chanSink hands every published entry to the test goroutine.
type chanSink struct{ ch chan Entry }

func (s chanSink) Publish(_ context.Context, entry Entry) error {
	s.ch <- entry
	return nil
}

type RecorderSuite struct {
	suite.Suite
	store    *MemoryStore
	recorder *Recorder
	tenantA  id.TenantID
	tenantB  id.TenantID
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.recorder = NewRecorder(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.tenantA = id.NewTenantID()
	s.tenantB = id.NewTenantID()
}

func (s *RecorderSuite) ctxFor(role id.Role, tenant id.TenantID) context.Context {
	return requestcontext.WithSecurity(context.Background(), requestcontext.SecurityContext{
		CallerID:     id.NewUserID(),
		Role:         role,
		HomeTenant:   tenant,
		ActiveTenant: tenant,
	})
}

func (s *RecorderSuite) TestLog() {
	s.Run("records the action under the active tenant", func() {
		now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctxFor(id.RoleTenantAdmin, s.tenantA), now)
		ctx = requestcontext.WithRequestID(ctx, "req-123")

		s.recorder.Log(ctx, ActionListingCreated, "listings", "listing-1",
			nil, map[string]any{"title": "new"})

		entries, err := s.store.ListByTenant(context.Background(), s.tenantA)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)

		entry := entries[0]
		s.Equal(ActionListingCreated, entry.Action)
		s.Equal(s.tenantA, entry.TenantID)
		s.Equal(id.RoleTenantAdmin, entry.ActorRole)
		s.Equal("listings", entry.EntityType)
		s.Equal("listing-1", entry.EntityID)
		s.Equal("req-123", entry.RequestID)
		s.Equal(now, entry.Timestamp)
		s.False(entry.ActorID.IsNil())
		s.Nil(entry.Before)
		s.Equal(map[string]any{"title": "new"}, entry.After)
	})

	s.Run("silently skips when the context carries no caller", func() {
		before := len(s.store.All())
		s.recorder.Log(context.Background(), ActionListingCreated, "listings", "x", nil, nil)
		s.Len(s.store.All(), before)
	})

	s.Run("silently skips without an active tenant", func() {
		ctx := requestcontext.WithSecurity(context.Background(), requestcontext.SecurityContext{
			CallerID: id.NewUserID(),
			Role:     id.RoleSuperAdmin,
		})
		before := len(s.store.All())
		s.recorder.Log(ctx, ActionListingCreated, "listings", "x", nil, nil)
		s.Len(s.store.All(), before)
	})
}

func (s *RecorderSuite) TestLogCrossTenant() {
	s.Run("operator action lands in the target tenant's trail", func() {
		ctx := s.ctxFor(id.RoleSuperAdmin, s.tenantA)
		err := s.recorder.LogCrossTenant(ctx, s.tenantB, ActionApplicationApproved,
			"applications", "app-1", map[string]any{"status": "pending"}, map[string]any{"status": "approved"})
		s.Require().NoError(err)

		entries, err := s.store.ListByTenant(context.Background(), s.tenantB)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(s.tenantB, entries[0].TenantID)
		s.Equal(id.RoleSuperAdmin, entries[0].ActorRole)

		own, err := s.store.ListByTenant(context.Background(), s.tenantA)
		s.Require().NoError(err)
		s.Empty(own)
	})

	s.Run("regular roles cannot write to another tenant's trail", func() {
		before := len(s.store.All())
		ctx := s.ctxFor(id.RoleTenantAdmin, s.tenantA)
		err := s.recorder.LogCrossTenant(ctx, s.tenantB, ActionApplicationApproved, "applications", "app-1", nil, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Len(s.store.All(), before)
	})

	s.Run("anonymous contexts cannot write at all", func() {
		err := s.recorder.LogCrossTenant(context.Background(), s.tenantB, ActionApplicationApproved, "applications", "app-1", nil, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *RecorderSuite) TestAppendIsBestEffort() {
	recorder := NewRecorder(failingStore{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := s.ctxFor(id.RoleSuperAdmin, s.tenantA)

	// Neither call may panic or surface the store failure.
	recorder.Log(ctx, ActionListingCreated, "listings", "x", nil, nil)
	s.NoError(recorder.LogCrossTenant(ctx, s.tenantB, ActionListingDeleted, "listings", "x", nil, nil))
}

func (s *RecorderSuite) TestRunDeliversToSink() {
	sink := chanSink{ch: make(chan Entry, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.recorder.Run(ctx, sink) }()

	s.recorder.Log(s.ctxFor(id.RoleTenantAdmin, s.tenantA), ActionListingCreated, "listings", "listing-1", nil, nil)

	select {
	case entry := <-sink.ch:
		s.Equal(ActionListingCreated, entry.Action)
		s.Equal(s.tenantA, entry.TenantID)
	case <-time.After(2 * time.Second):
		s.Fail("sink never received the entry")
	}

	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(2 * time.Second):
		s.Fail("Run did not stop on cancellation")
	}
}
