package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/requestcontext"
)

var (
	entriesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokergate_audit_entries_total",
		Help: "Audit entries recorded, by action",
	}, []string{"action"})
	appendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brokergate_audit_append_failures_total",
		Help: "Audit store appends that failed and were dropped",
	})
	sinkDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brokergate_audit_sink_dropped_total",
		Help: "Audit entries dropped because the sink buffer was full",
	})
)

// Recorder appends audit entries for privileged and cross-tenant actions.
//
// Appends are best-effort: a failed write is logged to the operational
// channel and counted, but never converts a successful business action into
// a user-visible error. Each qualifying action is attempted exactly once.
type Recorder struct {
	store  Store
	logger *slog.Logger
	sink   chan Entry
}

// NewRecorder constructs a recorder. The sink buffer decouples out-of-band
// delivery from request latency; Run must be started for it to drain.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		sink:   make(chan Entry, 256),
	}
}

// Log records an action performed by the caller in its active tenant.
// It is a no-op when the context carries no caller identity or no active
// tenant: an entry that cannot be attributed is worse than none.
func (r *Recorder) Log(ctx context.Context, action Action, entityType, entityID string, before, after map[string]any) {
	sec, ok := requestcontext.Security(ctx)
	if !ok || sec.CallerID.IsNil() || sec.ActiveTenant.IsNil() {
		return
	}
	r.append(ctx, Entry{
		TenantID:   sec.ActiveTenant,
		ActorID:    sec.CallerID,
		ActorRole:  sec.Role,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
	})
}

// LogCrossTenant records a privileged action under the target tenant, so that
// tenant's own audit trail shows actions performed on it by the platform
// operator. Non-privileged callers cannot write to another tenant's trail.
func (r *Recorder) LogCrossTenant(ctx context.Context, targetTenant id.TenantID, action Action, entityType, entityID string, before, after map[string]any) error {
	sec, ok := requestcontext.Security(ctx)
	if !ok || sec.CallerID.IsNil() {
		return dErrors.New(dErrors.CodeForbidden, "cross-tenant audit requires an authenticated caller")
	}
	if !sec.Privileged() {
		return dErrors.New(dErrors.CodeForbidden, "cross-tenant audit is restricted to the privileged role")
	}
	r.append(ctx, Entry{
		TenantID:   targetTenant,
		ActorID:    sec.CallerID,
		ActorRole:  sec.Role,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Before:     before,
		After:      after,
	})
	return nil
}

func (r *Recorder) append(ctx context.Context, entry Entry) {
	entry.ID = uuid.New()
	entry.RequestID = requestcontext.RequestID(ctx)
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}

	if err := r.store.Append(ctx, entry); err != nil {
		appendFailures.Inc()
		r.logger.ErrorContext(ctx, "audit append failed",
			"action", entry.Action,
			"tenant_id", entry.TenantID,
			"request_id", entry.RequestID,
			"error", err,
		)
	} else {
		entriesRecorded.WithLabelValues(string(entry.Action)).Inc()
	}

	select {
	case r.sink <- entry:
	default:
		sinkDropped.Inc()
	}
}

// Run drains the sink buffer into the given delivery target until ctx ends.
// Delivery failures are logged and dropped; the store remains the system of
// record.
func (r *Recorder) Run(ctx context.Context, sink Sink) error {
	if sink == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-r.sink:
			if err := sink.Publish(ctx, entry); err != nil {
				r.logger.WarnContext(ctx, "audit sink publish failed",
					"action", entry.Action,
					"error", err,
				)
			}
		}
	}
}
