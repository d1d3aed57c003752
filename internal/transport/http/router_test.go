package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/alangunning/nomulus/internal/domain/models"
	"github.com/alangunning/nomulus/internal/domain/store"
	"github.com/alangunning/nomulus/internal/flows"
	"github.com/alangunning/nomulus/internal/flows/handler"
	jwttoken "github.com/alangunning/nomulus/internal/jwt_token"
	"github.com/alangunning/nomulus/internal/platform/metrics"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/middleware/ratelimit"
	"github.com/alangunning/nomulus/pkg/platform/middleware/request"
	"github.com/alangunning/nomulus/pkg/secrets"
)

type stubHealth struct{ err error }

func (h stubHealth) Health(context.Context) error { return h.err }

// RouterSuite drives the full middleware chain, flow and in-memory store.
type RouterSuite struct {
	suite.Suite
	jwt    *jwttoken.JWTService
	store  *store.InMemory
	router http.Handler
	now    time.Time
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.now = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s.jwt = jwttoken.NewJWTService("test-key", "nomulus", "epp")
	s.store = store.NewInMemory()

	hash, err := secrets.HashWithCost("2fooBAR", bcrypt.MinCost)
	s.Require().NoError(err)
	domain, err := models.NewDomainResource("example.tld", "TheRegistrar", hash,
		time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	domain.TransferData = models.TransferData{
		Status:                    models.TransferStatusPending,
		GainingRegistrarID:        "NewRegistrar",
		LosingRegistrarID:         "TheRegistrar",
		RequestTime:               time.Date(2023, 12, 27, 0, 0, 0, 0, time.UTC),
		PendingExpirationTime:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ExtendedRegistrationYears: 1,
	}
	s.Require().NoError(s.store.Save(context.Background(), domain))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flow := flows.NewTransferQueryFlow(s.store, flows.WithLogger(logger), flows.WithPolicy(flows.Policy{MaxExtensionYears: 1}))
	reg := prometheus.NewRegistry()
	s.router = NewRouter(Dependencies{
		Logger:     logger,
		Tokens:     jwttoken.NewJWTServiceAdapter(s.jwt),
		Limiter:    ratelimit.New(100, 2, ratelimit.WithClock(func() time.Time { return s.now })),
		Metrics:    metrics.NewWithRegistry(reg, reg),
		Health:     map[string]HealthChecker{"store": stubHealth{}},
		Clock:      func() time.Time { return s.now },
		AdminToken: "ops-secret",
	}, handler.New(flow, logger))
}

func (s *RouterSuite) token(registrar id.RegistrarID) string {
	token, err := s.jwt.GenerateSessionToken(registrar, uuid.New(), time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) query(token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/epp/domain/transfer/query", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestTransferQueryEndToEnd() {
	w := s.query(s.token("NewRegistrar"), `{"name":"example.tld"}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.NotEmpty(w.Header().Get(request.HeaderRequestID))

	var env handler.Envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env))
	s.Equal(flows.ResultSuccess, env.Result.Code)
	s.Equal(models.TransferStatusClientApproved, env.ResData.TransferStatus)
	s.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *env.ResData.ExtendedRegistration)
}

func (s *RouterSuite) TestResponsesAreByteIdentical() {
	first := s.query(s.token("TheRegistrar"), `{"name":"example.tld"}`)
	second := s.query(s.token("TheRegistrar"), `{"name":"example.tld"}`)
	s.Equal(first.Body.String(), second.Body.String())
}

func (s *RouterSuite) TestUnrelatedRegistrar() {
	w := s.query(s.token("ThirdRegistrar"), `{"name":"example.tld"}`)
	s.Equal(http.StatusForbidden, w.Code)
	s.Contains(w.Body.String(), `"code":2201`)

	w = s.query(s.token("ThirdRegistrar"), `{"name":"example.tld","auth_info":{"pw":"2fooBAR"}}`)
	s.Equal(http.StatusOK, w.Code)
}

func (s *RouterSuite) TestAuthentication() {
	s.Run("missing token", func() {
		w := s.query("", `{"name":"example.tld"}`)
		s.Equal(http.StatusUnauthorized, w.Code)
		s.Contains(w.Body.String(), `"code":2200`)
	})

	s.Run("foreign token", func() {
		other := jwttoken.NewJWTService("other-key", "nomulus", "epp")
		token, err := other.GenerateSessionToken("NewRegistrar", uuid.New(), time.Hour)
		s.Require().NoError(err)
		w := s.query(token, `{"name":"example.tld"}`)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *RouterSuite) TestRateLimitPerRegistrar() {
	token := s.token("NewRegistrar")
	s.Equal(http.StatusOK, s.query(token, `{"name":"example.tld"}`).Code)
	s.Equal(http.StatusOK, s.query(token, `{"name":"example.tld"}`).Code)

	w := s.query(token, `{"name":"example.tld"}`)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.NotEmpty(w.Header().Get("Retry-After"))

	s.Equal(http.StatusOK, s.query(s.token("TheRegistrar"), `{"name":"example.tld"}`).Code)
}

func (s *RouterSuite) TestHealthAndMetrics() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"store":"ok"`)

	s.query(s.token("NewRegistrar"), `{"name":"example.tld"}`)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Admin-Token", "ops-secret")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `route="/epp/domain/transfer/query"`)
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(Dependencies{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		CORSOrigins: []string{"https://console.example"},
	})
	req := httptest.NewRequest(http.MethodOptions, "/epp/domain/transfer/query", nil)
	req.Header.Set("Origin", "https://console.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example" {
		t.Fatalf("allow origin = %q", got)
	}

	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestHealthDegraded(t *testing.T) {
	router := NewRouter(Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Health: map[string]HealthChecker{"redis": stubHealth{err: errors.New("down")}},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"redis":"unavailable"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}
