package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/circuit"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
)

// Store is implemented by every domain backend.
type Store interface {
	Save(ctx context.Context, domain *models.DomainResource) error
	LoadAsOf(ctx context.Context, name id.DomainName, now time.Time) (*models.DomainResource, error)
}

// Failover reads from a primary store and falls back to a replica once the
// primary has failed enough times in a row to open its breaker. Writes go to
// both; a replica write failure is logged and does not fail the save.
type Failover struct {
	primary Store
	replica Store
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type FailoverOption func(*Failover)

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(f *Failover) {
		f.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) FailoverOption {
	return func(f *Failover) {
		f.breaker = b
	}
}

func NewFailover(primary, replica Store, opts ...FailoverOption) *Failover {
	f := &Failover{
		primary: primary,
		replica: replica,
		breaker: circuit.New("domain-store"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Failover) Save(ctx context.Context, domain *models.DomainResource) error {
	if err := f.primary.Save(ctx, domain); err != nil {
		return err
	}
	if err := f.replica.Save(ctx, domain); err != nil {
		f.logger.WarnContext(ctx, "replica save failed",
			"domain", domain.Name.String(),
			"error", err,
		)
	}
	return nil
}

// LoadAsOf treats a not-found answer from the primary as a healthy response.
func (f *Failover) LoadAsOf(ctx context.Context, name id.DomainName, now time.Time) (*models.DomainResource, error) {
	domain, err := f.primary.LoadAsOf(ctx, name, now)
	if err == nil || sentinel.IsNotFound(err) {
		if _, change := f.breaker.RecordSuccess(); change.Closed {
			f.logger.InfoContext(ctx, "domain store breaker closed", "breaker", f.breaker.Name())
		}
		return domain, err
	}

	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.logger.WarnContext(ctx, "domain store breaker opened, reading from replica",
			"breaker", f.breaker.Name(),
			"error", err,
		)
	}
	if !useFallback {
		return nil, err
	}
	return f.replica.LoadAsOf(ctx, name, now)
}
