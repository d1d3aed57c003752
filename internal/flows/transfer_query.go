// Package flows executes EPP commands against registry resources.
//
// A flow is a fixed pipeline: load, verify, authorize, compute, respond. Each
// step short-circuits with a typed *Error, and the order of the checks decides
// which error a caller sees when several would apply.
package flows

import (
	"context"
	"log/slog"
	"time"

	"github.com/alangunning/nomulus/internal/domain/models"
	"github.com/alangunning/nomulus/internal/flows/metrics"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/middleware/metadata"
	"github.com/alangunning/nomulus/pkg/requestcontext"
)

const transferQueryFlowName = "domain_transfer_query"

// AuthInfo is the optional authorization secret a caller presents for a
// specific resource.
type AuthInfo struct {
	Password string
}

// Command is one transfer query. Now is the instant every decision in the
// flow is made at; when zero it is taken from the request context.
type Command struct {
	TargetID    string
	RegistrarID id.RegistrarID
	AuthInfo    *AuthInfo
	Now         time.Time
}

// Policy bounds the derived expiration.
type Policy struct {
	MaxExtensionYears        int
	RegistrationCeilingYears int
}

// DefaultPolicy caps a transfer at the registry's ten year maximum term with
// no ceiling relative to now.
var DefaultPolicy = Policy{MaxExtensionYears: 10}

// TransferQueryFlow answers "what is the state of this domain's transfer?".
// It is read-only and safe for concurrent use.
type TransferQueryFlow struct {
	domains DomainLoader
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*TransferQueryFlow)

func WithLogger(logger *slog.Logger) Option {
	return func(f *TransferQueryFlow) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *TransferQueryFlow) {
		f.metrics = m
	}
}

func WithPolicy(p Policy) Option {
	return func(f *TransferQueryFlow) {
		f.policy = p
	}
}

// NewTransferQueryFlow constructs the flow over a domain loader.
func NewTransferQueryFlow(domains DomainLoader, opts ...Option) *TransferQueryFlow {
	f := &TransferQueryFlow{domains: domains, policy: DefaultPolicy}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run executes the query. Errors are *Error for business outcomes and
// domain errors for infrastructure faults.
func (f *TransferQueryFlow) Run(ctx context.Context, cmd Command) (*TransferResponse, error) {
	start := time.Now()
	now := cmd.Now
	if now.IsZero() {
		now = requestcontext.Now(ctx)
	}
	now = now.UTC()

	resp, err := f.run(ctx, cmd, now)
	f.observe(ctx, cmd, resp, err, time.Since(start))
	return resp, err
}

func (f *TransferQueryFlow) run(ctx context.Context, cmd Command, now time.Time) (*TransferResponse, error) {
	name, err := id.ParseDomainName(cmd.TargetID)
	if err != nil {
		return nil, ErrResourceNotFound(cmd.TargetID)
	}

	domain, err := loadAndVerifyExistence(ctx, f.domains, name, now)
	if err != nil {
		return nil, err
	}

	credentialVerified, err := verifyOptionalAuthInfo(cmd.AuthInfo, domain)
	if err != nil {
		return nil, err
	}

	transfer := domain.TransferData
	if !transfer.HasHistory() {
		return nil, ErrNoTransferHistory()
	}

	if !IsAuthorizedToView(credentialVerified, cmd.RegistrarID, transfer) {
		return nil, ErrNotAuthorized()
	}

	var newExpiration *time.Time
	if transfer.ExtendsRegistration(now) {
		extended := models.ExtensionPolicy{
			MaxExtensionYears:        f.policy.MaxExtensionYears,
			RegistrationCeilingYears: f.policy.RegistrationCeilingYears,
		}.NewExpiration(now.UTC(), domain.RegistrationExpirationTime.UTC(), transfer.ExtendedRegistrationYears)
		newExpiration = &extended
	}
	if transfer.IsImplicitlyApproved(now) {
		f.metrics.IncrementImplicitApproval()
	}

	return NewTransferResponse(domain.Name, transfer, transfer.EffectiveStatus(now), newExpiration), nil
}

func (f *TransferQueryFlow) observe(ctx context.Context, cmd Command, resp *TransferResponse, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	f.metrics.IncrementOutcome(transferQueryFlowName, outcome)
	f.metrics.ObserveDuration(transferQueryFlowName, elapsed)

	if f.logger == nil {
		return
	}
	attrs := []any{
		"flow", transferQueryFlowName,
		"domain", cmd.TargetID,
		"registrar_id", cmd.RegistrarID.String(),
		"result_code", int(ResultCodeOf(err)),
		"duration_ms", elapsed.Milliseconds(),
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	if clientIP := metadata.ClientIP(ctx); clientIP != "" {
		attrs = append(attrs, "client_ip", clientIP, "client", metadata.Client(ctx))
	}
	switch {
	case err == nil:
		attrs = append(attrs, "transfer_status", resp.TransferStatus.String(), "log_type", "audit")
		f.logger.InfoContext(ctx, "transfer queried", attrs...)
	case outcome == "error":
		f.logger.ErrorContext(ctx, "transfer query failed", append(attrs, "error", err)...)
	default:
		f.logger.InfoContext(ctx, "transfer query rejected", append(attrs, "outcome", outcome, "log_type", "audit")...)
	}
}
