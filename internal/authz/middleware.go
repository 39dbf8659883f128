package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"brokergate/internal/audit"
	"brokergate/internal/auth/jwt"
	"brokergate/internal/authz/metrics"
	id "brokergate/pkg/domain"
	dErrors "brokergate/pkg/domain-errors"
	"brokergate/pkg/platform/httputil"
	"brokergate/pkg/requestcontext"
)

// TokenValidator verifies bearer credentials and extracts the caller's
// identity. Implemented by the jwt service.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwt.Identity, error)
}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Pipeline composes authentication, the role gate, tenant resolution, the
// ownership guard, and the cross-tenant audit hook. The order is fixed:
// role check before tenant resolution before ownership check before the
// handler body. Rejecting on role first keeps tenant-existence information
// away from callers that were never allowed in.
type Pipeline struct {
	validator  TokenValidator
	revocation RevocationChecker
	verifier   *Verifier
	recorder   *audit.Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewPipeline wires the pipeline's collaborators. revocation may be nil
// (revocation checking disabled); metrics may be nil in tests.
func NewPipeline(validator TokenValidator, revocation RevocationChecker, verifier *Verifier, recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		validator:  validator,
		revocation: revocation,
		verifier:   verifier,
		recorder:   recorder,
		metrics:    m,
		logger:     logger,
	}
}

// identityKey carries the validated (pre-resolution) caller identity between
// Authenticate and Require.
type identityKey struct{}

func withIdentity(ctx context.Context, identity *jwt.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func identityFrom(ctx context.Context) (*jwt.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*jwt.Identity)
	return identity, ok
}

// Authenticate validates the bearer credential when one is present. A request
// without an Authorization header proceeds as anonymous; whether anonymous is
// acceptable is the role gate's decision, made per route.
func (p *Pipeline) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			p.deny(w, dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header"))
			return
		}

		identity, err := p.validator.ValidateToken(token)
		if err != nil {
			p.logger.WarnContext(ctx, "invalid token",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			p.deny(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
			return
		}

		if p.revocation != nil {
			if identity.JTI == "" {
				p.deny(w, dErrors.New(dErrors.CodeUnauthorized, "token missing jti"))
				return
			}
			revoked, err := p.revocation.IsRevoked(ctx, identity.JTI)
			if err != nil {
				p.logger.ErrorContext(ctx, "revocation check failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				p.deny(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token"))
				return
			}
			if revoked {
				p.deny(w, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked"))
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(ctx, identity)))
	})
}

// Require enforces the route's declared policy. It builds the request's
// security context, runs the fixed pipeline order, and installs the context
// for the handler and every store call underneath it.
func (p *Pipeline) Require(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sec := requestcontext.SecurityContext{Role: id.RoleAnonymous}
			if identity, ok := identityFrom(ctx); ok {
				sec = requestcontext.SecurityContext{
					CallerID:   identity.UserID,
					Role:       identity.Role,
					HomeTenant: identity.HomeTenant,
				}
			}

			// Role gate first: an unauthorized caller learns nothing about
			// tenant requirements.
			if outcome := AuthorizeRole(sec, policy.AllowedRoles); !outcome.Allowed {
				p.logger.WarnContext(ctx, "role check failed",
					"request_id", requestcontext.RequestID(ctx),
					"role", sec.Role,
					"reason", outcome.Reason,
				)
				p.deny(w, outcome.Err())
				return
			}

			tenantHeader := r.Header.Get(HeaderTenantID)
			if policy.RequireTenant || tenantHeader != "" {
				active, err := ResolveTenant(sec.Role, sec.HomeTenant, tenantHeader)
				if err != nil {
					p.logger.WarnContext(ctx, "tenant resolution failed",
						"request_id", requestcontext.RequestID(ctx),
						"role", sec.Role,
						"error", err,
					)
					p.deny(w, err)
					return
				}
				sec.ActiveTenant = active
			} else {
				sec.ActiveTenant = sec.HomeTenant
			}

			ctx = requestcontext.WithSecurity(ctx, sec)

			if sec.Privileged() && sec.CrossTenant() {
				p.metrics.IncrementCrossTenant()
				if !sec.ActiveTenant.IsNil() {
					_ = p.recorder.LogCrossTenant(ctx, sec.ActiveTenant, audit.ActionCrossTenantAccess,
						"http_route", r.Method+" "+r.URL.Path, nil, nil)
				}
			}

			if policy.OwnershipEntity != "" {
				if idParam := chi.URLParam(r, "id"); idParam != "" {
					entityID, err := id.ParseEntityID(idParam)
					if err != nil {
						p.deny(w, err)
						return
					}
					if err := p.verifier.Verify(ctx, policy.OwnershipEntity, entityID); err != nil {
						p.logger.WarnContext(ctx, "ownership check failed",
							"request_id", requestcontext.RequestID(ctx),
							"entity", policy.OwnershipEntity,
							"entity_id", idParam,
							"error", err,
						)
						p.deny(w, err)
						return
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (p *Pipeline) deny(w http.ResponseWriter, err error) {
	p.metrics.IncrementDenial(string(dErrors.CodeOf(err)))
	httputil.WriteError(w, err)
}
