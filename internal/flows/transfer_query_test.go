package flows

//go:generate mockgen -source=resource.go -destination=mocks/mocks.go -package=mocks DomainLoader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/alangunning/nomulus/internal/domain/models"
	"github.com/alangunning/nomulus/internal/flows/metrics"
	"github.com/alangunning/nomulus/internal/flows/mocks"
	id "github.com/alangunning/nomulus/pkg/domain"
	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
	"github.com/alangunning/nomulus/pkg/platform/middleware/metadata"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
	"github.com/alangunning/nomulus/pkg/requestcontext"
	"github.com/alangunning/nomulus/pkg/secrets"
)

const (
	gaining   id.RegistrarID = "NewRegistrar"
	losing    id.RegistrarID = "TheRegistrar"
	unrelated id.RegistrarID = "ThirdRegistrar"
	password                 = "2fooBAR"
)

// =============================================================================
// Transfer Query Flow Test Suite
// =============================================================================
// The repository is mocked; everything else (state interpretation,
// authorization, expiration arithmetic) runs for real.

type TransferQueryFlowSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	loader   *mocks.MockDomainLoader
	flow     *TransferQueryFlow
	metrics  *metrics.Metrics
	authHash string
	tAuto    time.Time
}

func TestTransferQueryFlowSuite(t *testing.T) {
	suite.Run(t, new(TransferQueryFlowSuite))
}

func (s *TransferQueryFlowSuite) SetupSuite() {
	hash, err := secrets.HashWithCost(password, bcrypt.MinCost)
	s.Require().NoError(err)
	s.authHash = hash
	s.tAuto = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *TransferQueryFlowSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.loader = mocks.NewMockDomainLoader(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.flow = NewTransferQueryFlow(s.loader,
		WithPolicy(Policy{MaxExtensionYears: 1}),
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *TransferQueryFlowSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *TransferQueryFlowSuite) domain(status models.TransferStatus) *models.DomainResource {
	d := &models.DomainResource{
		RepoID:                     id.NewRepoID(),
		Name:                       "example.tld",
		SponsorRegistrarID:         losing,
		AuthInfoHash:               s.authHash,
		CreationTime:               time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		RegistrationExpirationTime: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if status != models.TransferStatusNone {
		d.TransferData = models.TransferData{
			Status:                    status,
			GainingRegistrarID:        gaining,
			LosingRegistrarID:         losing,
			RequestTime:               s.tAuto.AddDate(0, 0, -5),
			PendingExpirationTime:     s.tAuto,
			ExtendedRegistrationYears: 1,
		}
	}
	return d
}

func (s *TransferQueryFlowSuite) expectLoad(now time.Time, d *models.DomainResource) {
	s.loader.EXPECT().LoadAsOf(gomock.Any(), id.DomainName("example.tld"), now).Return(d, nil)
}

func (s *TransferQueryFlowSuite) requireKind(err error, kind Kind) {
	s.Require().Error(err)
	var fe *Error
	s.Require().True(errors.As(err, &fe), "expected flow error, got %v", err)
	s.Equal(kind, fe.Kind)
}

// =============================================================================
// Scenarios
// =============================================================================

func (s *TransferQueryFlowSuite) TestImplicitApprovalExtendsExpiration() {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d := s.domain(models.TransferStatusPending)
	s.expectLoad(now, d)

	resp, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
	s.Require().NoError(err)
	s.Require().NotNil(resp.ExtendedRegistration)
	s.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *resp.ExtendedRegistration)
	s.Equal(models.TransferStatusClientApproved, resp.TransferStatus)
	s.Equal(gaining, resp.GainingRegistrarID)
	s.Equal(losing, resp.LosingRegistrarID)
	s.Equal(s.tAuto, resp.ActionTime)
	s.Equal(models.TransferStatusPending, d.TransferData.Status, "stored status is never rewritten")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ImplicitApprovals))
}

func (s *TransferQueryFlowSuite) TestUnrelatedRegistrarBeforeDeadline() {
	now := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	s.expectLoad(now, s.domain(models.TransferStatusPending))

	_, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: unrelated, Now: now})
	s.requireKind(err, KindNotAuthorized)
	s.Equal(ResultAuthorizationError, ResultCodeOf(err))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *TransferQueryFlowSuite) TestNoTransferHistory() {
	now := s.tAuto
	for _, cmd := range []Command{
		{RegistrarID: gaining},
		{RegistrarID: unrelated},
		{RegistrarID: unrelated, AuthInfo: &AuthInfo{Password: password}},
	} {
		s.Run(string(cmd.RegistrarID), func() {
			s.expectLoad(now, s.domain(models.TransferStatusNone))
			cmd.TargetID = "example.tld"
			cmd.Now = now
			_, err := s.flow.Run(context.Background(), cmd)
			s.requireKind(err, KindNoTransferHistory)
			s.Equal(ResultCommandUseError, ResultCodeOf(err))
		})
	}
}

// =============================================================================
// Authorization
// =============================================================================

func (s *TransferQueryFlowSuite) TestAuthorization() {
	now := s.tAuto.AddDate(0, 0, -1)

	s.Run("gaining and losing registrars may view", func() {
		for _, caller := range []id.RegistrarID{gaining, losing} {
			s.expectLoad(now, s.domain(models.TransferStatusPending))
			resp, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: caller, Now: now})
			s.Require().NoError(err)
			s.Equal(models.TransferStatusPending, resp.TransferStatus)
		}
	})

	s.Run("verified credential bypasses identity", func() {
		s.expectLoad(now, s.domain(models.TransferStatusPending))
		resp, err := s.flow.Run(context.Background(), Command{
			TargetID: "example.tld", RegistrarID: unrelated, AuthInfo: &AuthInfo{Password: password}, Now: now,
		})
		s.Require().NoError(err)
		s.NotNil(resp)
	})

	s.Run("unrelated registrar is rejected for every status", func() {
		for _, status := range []models.TransferStatus{
			models.TransferStatusPending, models.TransferStatusClientApproved, models.TransferStatusClientRejected,
			models.TransferStatusClientCancelled, models.TransferStatusServerApproved, models.TransferStatusServerCancelled,
		} {
			s.expectLoad(now, s.domain(status))
			_, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: unrelated, Now: now})
			s.requireKind(err, KindNotAuthorized)
		}
	})
}

// =============================================================================
// Check ordering: existence, credential, history, authorization
// =============================================================================

func (s *TransferQueryFlowSuite) TestCheckOrdering() {
	now := s.tAuto

	s.Run("missing domain wins over everything", func() {
		s.loader.EXPECT().LoadAsOf(gomock.Any(), id.DomainName("example.tld"), now).Return(nil, sentinel.ErrNotFound)
		_, err := s.flow.Run(context.Background(), Command{
			TargetID: "example.tld", RegistrarID: unrelated, AuthInfo: &AuthInfo{Password: "wrong"}, Now: now,
		})
		s.requireKind(err, KindResourceNotFound)
		s.Equal(ResultObjectDoesNotExist, ResultCodeOf(err))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("bad credential wins over missing history", func() {
		s.expectLoad(now, s.domain(models.TransferStatusNone))
		_, err := s.flow.Run(context.Background(), Command{
			TargetID: "example.tld", RegistrarID: unrelated, AuthInfo: &AuthInfo{Password: "wrong"}, Now: now,
		})
		s.requireKind(err, KindBadCredential)
		s.Equal(ResultInvalidAuthorizationInfo, ResultCodeOf(err))
	})

	s.Run("bad credential is rejected even for a stakeholder", func() {
		s.expectLoad(now, s.domain(models.TransferStatusPending))
		_, err := s.flow.Run(context.Background(), Command{
			TargetID: "example.tld", RegistrarID: gaining, AuthInfo: &AuthInfo{Password: "wrong"}, Now: now,
		})
		s.requireKind(err, KindBadCredential)
	})

	s.Run("credential against a domain without authInfo is bad", func() {
		d := s.domain(models.TransferStatusPending)
		d.AuthInfoHash = ""
		s.expectLoad(now, d)
		_, err := s.flow.Run(context.Background(), Command{
			TargetID: "example.tld", RegistrarID: gaining, AuthInfo: &AuthInfo{Password: password}, Now: now,
		})
		s.requireKind(err, KindBadCredential)
	})
}

func (s *TransferQueryFlowSuite) TestExistence() {
	now := s.tAuto

	s.Run("deleted domain returned by a loose store is not found", func() {
		d := s.domain(models.TransferStatusPending)
		deleted := now.Add(-time.Hour)
		d.DeletionTime = &deleted
		s.expectLoad(now, d)
		_, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
		s.requireKind(err, KindResourceNotFound)
	})

	s.Run("unparseable name is not found without a read", func() {
		_, err := s.flow.Run(context.Background(), Command{TargetID: "not a domain", RegistrarID: gaining, Now: now})
		s.requireKind(err, KindResourceNotFound)
	})

	s.Run("name is canonicalized before the read", func() {
		s.expectLoad(now, s.domain(models.TransferStatusPending))
		_, err := s.flow.Run(context.Background(), Command{TargetID: "EXAMPLE.tld.", RegistrarID: gaining, Now: now})
		s.NoError(err)
	})
}

func (s *TransferQueryFlowSuite) TestStoreFaults() {
	now := s.tAuto

	s.Run("unavailable store", func() {
		s.loader.EXPECT().LoadAsOf(gomock.Any(), gomock.Any(), now).Return(nil, errors.Join(sentinel.ErrUnavailable, errors.New("dial tcp")))
		_, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
		s.Require().Error(err)
		s.Equal(Kind(""), KindOf(err))
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(ResultCommandFailed, ResultCodeOf(err))
	})

	s.Run("other store errors are internal", func() {
		s.loader.EXPECT().LoadAsOf(gomock.Any(), gomock.Any(), now).Return(nil, errors.New("boom"))
		_, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// =============================================================================
// Derived expiration
// =============================================================================

func (s *TransferQueryFlowSuite) TestDerivedExpirationScope() {
	now := s.tAuto.AddDate(0, 0, -1)
	cases := []struct {
		status  models.TransferStatus
		extends bool
	}{
		{models.TransferStatusPending, true},
		{models.TransferStatusClientApproved, true},
		{models.TransferStatusServerApproved, true},
		{models.TransferStatusClientRejected, false},
		{models.TransferStatusClientCancelled, false},
		{models.TransferStatusServerCancelled, false},
	}
	for _, tc := range cases {
		s.Run(tc.status.String(), func() {
			s.expectLoad(now, s.domain(tc.status))
			resp, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: losing, Now: now})
			s.Require().NoError(err)
			s.Equal(tc.status, resp.TransferStatus)
			s.Equal(tc.extends, resp.ExtendedRegistration != nil)
		})
	}
}

func (s *TransferQueryFlowSuite) TestExpirationCapping() {
	const maxYears = 3
	now := s.tAuto.AddDate(0, 0, -1)
	flow := NewTransferQueryFlow(s.loader, WithPolicy(Policy{MaxExtensionYears: maxYears}))
	current := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, years := range []int{0, maxYears, maxYears + 1, maxYears * 2} {
		d := s.domain(models.TransferStatusPending)
		d.TransferData.ExtendedRegistrationYears = years
		s.expectLoad(now, d)

		resp, err := flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
		s.Require().NoError(err)
		s.Require().NotNil(resp.ExtendedRegistration)
		s.Equal(current.AddDate(min(years, maxYears), 0, 0), *resp.ExtendedRegistration, "years=%d", years)
	}
}

func (s *TransferQueryFlowSuite) TestRegistrationCeiling() {
	now := s.tAuto.AddDate(0, 0, -1)
	flow := NewTransferQueryFlow(s.loader, WithPolicy(Policy{MaxExtensionYears: 10, RegistrationCeilingYears: 10}))
	d := s.domain(models.TransferStatusPending)
	d.RegistrationExpirationTime = now.AddDate(9, 6, 0)
	s.expectLoad(now, d)

	resp, err := flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
	s.Require().NoError(err)
	s.Equal(now.AddDate(10, 0, 0), *resp.ExtendedRegistration)
}

func (s *TransferQueryFlowSuite) TestExpirationUsesUTCCalendar() {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d := s.domain(models.TransferStatusPending)
	// 2024-02-28T21:00Z; in +05:00 the same instant falls on the leap day
	d.RegistrationExpirationTime = time.Date(2024, 2, 29, 2, 0, 0, 0, time.FixedZone("UTC+5", 5*60*60))
	s.expectLoad(now, d)

	resp, err := s.flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
	s.Require().NoError(err)
	s.Require().NotNil(resp.ExtendedRegistration)
	s.Equal(time.Date(2025, 2, 28, 21, 0, 0, 0, time.UTC), *resp.ExtendedRegistration)
	s.Equal(time.UTC, resp.ExtendedRegistration.Location())
}

// =============================================================================
// Idempotence and time handling
// =============================================================================

func (s *TransferQueryFlowSuite) TestIdempotent() {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d := s.domain(models.TransferStatusPending)
	s.loader.EXPECT().LoadAsOf(gomock.Any(), id.DomainName("example.tld"), now).Return(d, nil).Times(2)

	cmd := Command{TargetID: "example.tld", RegistrarID: gaining, Now: now}
	first, err := s.flow.Run(context.Background(), cmd)
	s.Require().NoError(err)
	second, err := s.flow.Run(context.Background(), cmd)
	s.Require().NoError(err)

	a, err := json.Marshal(first)
	s.Require().NoError(err)
	b, err := json.Marshal(second)
	s.Require().NoError(err)
	s.Equal(string(a), string(b))
}

func (s *TransferQueryFlowSuite) TestNowFromRequestContext() {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s.expectLoad(now, s.domain(models.TransferStatusPending))

	ctx := requestcontext.WithTime(context.Background(), now)
	resp, err := s.flow.Run(ctx, Command{TargetID: "example.tld", RegistrarID: gaining})
	s.Require().NoError(err)
	s.Equal(models.TransferStatusClientApproved, resp.TransferStatus)
}

func (s *TransferQueryFlowSuite) TestOutcomeMetricsAndAuditLog() {
	var buf bytes.Buffer
	flow := NewTransferQueryFlow(s.loader,
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))),
	)
	now := s.tAuto.AddDate(0, 0, -1)

	s.expectLoad(now, s.domain(models.TransferStatusPending))
	ctx := metadata.WithClientMetadata(context.Background(), "192.0.2.9", "RegistryTool")
	_, err := flow.Run(ctx, Command{TargetID: "example.tld", RegistrarID: gaining, Now: now})
	s.Require().NoError(err)

	s.expectLoad(now, s.domain(models.TransferStatusPending))
	_, err = flow.Run(context.Background(), Command{TargetID: "example.tld", RegistrarID: unrelated, Now: now})
	s.Require().Error(err)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.Outcomes.WithLabelValues(transferQueryFlowName, "success")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Outcomes.WithLabelValues(transferQueryFlowName, string(KindNotAuthorized))))
	s.Contains(buf.String(), `"log_type":"audit"`)
	s.Contains(buf.String(), `"result_code":2201`)
	s.Contains(buf.String(), `"client_ip":"192.0.2.9"`)
	s.Contains(buf.String(), `"client":"RegistryTool"`)
}
