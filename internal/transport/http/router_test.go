package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"brokergate/internal/audit"
	"brokergate/internal/auth/jwt"
	"brokergate/internal/authz"
	"brokergate/internal/scope"
	id "brokergate/pkg/domain"
)

// RouterSuite exercises the full stack: router, authorization pipeline,
// scoped store, and audit recorder, over in-memory backends.
type RouterSuite struct {
	suite.Suite
	router     http.Handler
	jwtSvc     *jwt.Service
	auditStore *audit.MemoryStore
	tenantA    id.TenantID
	tenantB    id.TenantID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.tenantA = id.NewTenantID()
	s.tenantB = id.NewTenantID()
	s.jwtSvc = jwt.New("router-test-signing-key-32-bytes!!!!", "brokergate-test", "brokergate")
	s.auditStore = audit.NewMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := scope.DefaultRegistry()
	store := scope.NewScopedStore(scope.NewMemoryClient(), registry)
	recorder := audit.NewRecorder(s.auditStore, logger)
	verifier := authz.NewVerifier(store, registry)
	pipe := authz.NewPipeline(s.jwtSvc, nil, verifier, recorder, nil, logger)

	handler := NewHandler(store, recorder, s.auditStore, logger)
	s.router = NewRouter(handler, pipe, Policies())
}

func (s *RouterSuite) token(role id.Role, tenant id.TenantID) string {
	token, err := s.jwtSvc.GenerateToken(jwt.Identity{
		UserID:     id.NewUserID(),
		Role:       role,
		HomeTenant: tenant,
	}, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path, token string, tenant id.TenantID, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if !tenant.IsNil() {
		req.Header.Set(authz.HeaderTenantID, tenant.String())
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *RouterSuite) decode(rr *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

// createListing creates a listing under the given tenant as a broker and
// returns its id.
func (s *RouterSuite) createListing(tenant id.TenantID, title string) string {
	rr := s.do(http.MethodPost, "/v1/listings", s.token(id.RoleBroker, tenant), tenant,
		map[string]any{"title": title, "price": 450000, "address": "12 Harbor St"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return s.decode(rr)["id"].(string)
}

func (s *RouterSuite) TestHealthIsPublic() {
	rr := s.do(http.MethodGet, "/healthz", "", id.TenantID{}, nil)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *RouterSuite) TestListingLifecycle() {
	broker := s.token(id.RoleBroker, s.tenantA)

	rr := s.do(http.MethodPost, "/v1/listings", broker, s.tenantA,
		map[string]any{"title": "Waterfront flat", "price": 725000, "address": "1 Pier Rd"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	created := s.decode(rr)
	s.Equal(s.tenantA.String(), created["tenant_id"])
	s.Equal("draft", created["status"])

	listingID := created["id"].(string)

	rr = s.do(http.MethodGet, "/v1/listings/"+listingID, broker, s.tenantA, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("Waterfront flat", s.decode(rr)["title"])

	rr = s.do(http.MethodPut, "/v1/listings/"+listingID, broker, s.tenantA,
		map[string]any{"status": "active"})
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("active", s.decode(rr)["status"])

	rr = s.do(http.MethodGet, "/v1/listings?status=active", broker, s.tenantA, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Len(s.decode(rr)["listings"], 1)
}

func (s *RouterSuite) TestListingAccessControl() {
	s.Run("unauthenticated create", func() {
		rr := s.do(http.MethodPost, "/v1/listings", "", s.tenantA, map[string]any{"title": "x"})
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("inspector cannot create listings", func() {
		rr := s.do(http.MethodPost, "/v1/listings", s.token(id.RoleInspector, s.tenantA), s.tenantA,
			map[string]any{"title": "x"})
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("tenant header naming another tenant", func() {
		rr := s.do(http.MethodPost, "/v1/listings", s.token(id.RoleBroker, s.tenantA), s.tenantB,
			map[string]any{"title": "x"})
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("missing tenant header", func() {
		rr := s.do(http.MethodGet, "/v1/listings", s.token(id.RoleBroker, s.tenantA), id.TenantID{}, nil)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("only tenant admins delete listings", func() {
		listingID := s.createListing(s.tenantA, "protected")

		rr := s.do(http.MethodDelete, "/v1/listings/"+listingID, s.token(id.RoleBroker, s.tenantA), s.tenantA, nil)
		s.Equal(http.StatusForbidden, rr.Code)

		rr = s.do(http.MethodDelete, "/v1/listings/"+listingID, s.token(id.RoleTenantAdmin, s.tenantA), s.tenantA, nil)
		s.Equal(http.StatusNoContent, rr.Code)
	})
}

func (s *RouterSuite) TestTenantIsolation() {
	listingID := s.createListing(s.tenantA, "tenant A only")
	s.createListing(s.tenantB, "tenant B only")

	s.Run("lists are confined to the caller's tenant", func() {
		rr := s.do(http.MethodGet, "/v1/listings", s.token(id.RoleAgent, s.tenantB), s.tenantB, nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		listings := s.decode(rr)["listings"].([]any)
		s.Require().Len(listings, 1)
		s.Equal("tenant B only", listings[0].(map[string]any)["title"])
	})

	s.Run("another tenant's listing reads as not found", func() {
		rr := s.do(http.MethodGet, "/v1/listings/"+listingID, s.token(id.RoleAgent, s.tenantB), s.tenantB, nil)
		s.Equal(http.StatusNotFound, rr.Code)
		s.Contains(rr.Body.String(), "NOT_FOUND")
	})

	s.Run("another tenant's listing cannot be updated", func() {
		rr := s.do(http.MethodPut, "/v1/listings/"+listingID, s.token(id.RoleBroker, s.tenantB), s.tenantB,
			map[string]any{"title": "hijacked"})
		s.Equal(http.StatusNotFound, rr.Code)

		rr = s.do(http.MethodGet, "/v1/listings/"+listingID, s.token(id.RoleBroker, s.tenantA), s.tenantA, nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal("tenant A only", s.decode(rr)["title"])
	})
}

func (s *RouterSuite) TestQRCodeScan() {
	listingID := s.createListing(s.tenantA, "scannable")

	rr := s.do(http.MethodPost, "/v1/qrcodes", s.token(id.RoleBroker, s.tenantA), s.tenantA,
		map[string]any{"listing_id": listingID, "target": "https://example.com/l/1"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	codeID := s.decode(rr)["id"].(string)

	s.Run("anonymous scan with the right tenant header", func() {
		rr := s.do(http.MethodGet, "/v1/qrcodes/"+codeID, "", s.tenantA, nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		s.Equal("https://example.com/l/1", s.decode(rr)["target"])
	})

	s.Run("scan under the wrong tenant reveals nothing", func() {
		rr := s.do(http.MethodGet, "/v1/qrcodes/"+codeID, "", s.tenantB, nil)
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("scan without a tenant header is rejected", func() {
		rr := s.do(http.MethodGet, "/v1/qrcodes/"+codeID, "", id.TenantID{}, nil)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("a QR code cannot point at another tenant's listing", func() {
		foreign := s.createListing(s.tenantB, "unreachable")
		rr := s.do(http.MethodPost, "/v1/qrcodes", s.token(id.RoleBroker, s.tenantA), s.tenantA,
			map[string]any{"listing_id": foreign, "target": "https://example.com/x"})
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *RouterSuite) TestApplicationResolution() {
	listingID := s.createListing(s.tenantA, "applied for")
	admin := s.token(id.RoleTenantAdmin, s.tenantA)

	rr := s.do(http.MethodPost, "/v1/applications", s.token(id.RoleAgent, s.tenantA), s.tenantA,
		map[string]any{"listing_id": listingID, "applicant": "Jordan Reyes"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	appID := s.decode(rr)["id"].(string)

	s.Run("agents cannot approve", func() {
		rr := s.do(http.MethodPost, "/v1/applications/"+appID+"/approve", s.token(id.RoleAgent, s.tenantA), s.tenantA, nil)
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("admin approves a pending application", func() {
		rr := s.do(http.MethodPost, "/v1/applications/"+appID+"/approve", admin, s.tenantA, nil)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		s.Equal("approved", s.decode(rr)["status"])
	})

	s.Run("a resolved application cannot be resolved again", func() {
		rr := s.do(http.MethodPost, "/v1/applications/"+appID+"/reject", admin, s.tenantA, nil)
		s.Equal(http.StatusConflict, rr.Code)
	})
}

func (s *RouterSuite) TestOperatorCrossTenantFlow() {
	listingID := s.createListing(s.tenantA, "operated on")
	operator := s.token(id.RoleSuperAdmin, id.TenantID{})

	rr := s.do(http.MethodPut, "/v1/listings/"+listingID, operator, s.tenantA,
		map[string]any{"status": "suspended"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal("suspended", s.decode(rr)["status"])

	entries, err := s.auditStore.ListByTenant(context.Background(), s.tenantA)
	s.Require().NoError(err)

	var actions []audit.Action
	for _, entry := range entries {
		actions = append(actions, entry.Action)
		s.Equal(id.RoleSuperAdmin, entry.ActorRole)
		s.Equal(s.tenantA, entry.TenantID)
	}
	s.Contains(actions, audit.ActionCrossTenantAccess)
	s.Contains(actions, audit.ActionListingUpdated)

	s.Run("the trail is readable through the operator endpoint", func() {
		rr := s.do(http.MethodGet, "/v1/admin/audit?tenant_id="+s.tenantA.String(), operator, id.TenantID{}, nil)
		s.Require().Equal(http.StatusOK, rr.Code)
		s.NotEmpty(s.decode(rr)["entries"])
	})

	s.Run("tenant admins cannot read trails through it", func() {
		rr := s.do(http.MethodGet, "/v1/admin/audit?tenant_id="+s.tenantA.String(),
			s.token(id.RoleTenantAdmin, s.tenantA), id.TenantID{}, nil)
		s.Equal(http.StatusForbidden, rr.Code)
	})
}

func (s *RouterSuite) TestOperatorMutationWithoutOverrideAuditsOnce() {
	// An operator acting on a tenant's resource without naming the tenant in
	// a header still leaves exactly one entry in that tenant's trail,
	// attributed to the tenant that owns the resource.
	listingID := s.createListing(s.tenantA, "applied for")
	rr := s.do(http.MethodPost, "/v1/applications", s.token(id.RoleAgent, s.tenantA), s.tenantA,
		map[string]any{"listing_id": listingID, "applicant": "Sam Okafor"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	appID := s.decode(rr)["id"].(string)

	operator := s.token(id.RoleSuperAdmin, id.TenantID{})
	rr = s.do(http.MethodPost, "/v1/applications/"+appID+"/approve", operator, id.TenantID{}, nil)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal("approved", s.decode(rr)["status"])

	entries, err := s.auditStore.ListByTenant(context.Background(), s.tenantA)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionApplicationApproved, entries[0].Action)
	s.Equal(s.tenantA, entries[0].TenantID)
	s.Equal(id.RoleSuperAdmin, entries[0].ActorRole)
}

func (s *RouterSuite) TestErrorEnvelopeStaysGeneric() {
	// Cross-tenant denials must not reveal why the request failed; the body
	// is the same generic envelope for a mismatch and a plain forbidden.
	mismatch := s.do(http.MethodGet, "/v1/listings", s.token(id.RoleBroker, s.tenantA), s.tenantB, nil)
	forbidden := s.do(http.MethodPost, "/v1/listings", s.token(id.RoleInspector, s.tenantA), s.tenantA,
		map[string]any{"title": "x"})

	s.Equal(http.StatusForbidden, mismatch.Code)
	s.Equal(http.StatusForbidden, forbidden.Code)
	s.JSONEq(mismatch.Body.String(), forbidden.Body.String())
}

func (s *RouterSuite) TestRequestIDHeader() {
	rr := s.do(http.MethodGet, "/healthz", "", id.TenantID{}, nil)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}
