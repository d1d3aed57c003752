package flows

import (
	"context"
	"errors"
	"time"

	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
	"github.com/alangunning/nomulus/pkg/secrets"
)

// DomainLoader reads a domain as it existed at a point in time.
type DomainLoader interface {
	LoadAsOf(ctx context.Context, name id.DomainName, now time.Time) (*models.DomainResource, error)
}

// loadAndVerifyExistence returns the domain as of now, or a ResourceNotFound
// flow error. Store faults are wrapped as internal errors.
func loadAndVerifyExistence(ctx context.Context, loader DomainLoader, name id.DomainName, now time.Time) (*models.DomainResource, error) {
	domain, err := loader.LoadAsOf(ctx, name, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrResourceNotFound(name.String())
		}
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "domain store unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain")
	}
	// a store that ignores the as-of instant must not leak a deleted domain
	if domain == nil || !domain.ExistsAt(now) {
		return nil, ErrResourceNotFound(name.String())
	}
	return domain, nil
}

// verifyOptionalAuthInfo checks a supplied credential against the domain's
// stored hash. A nil credential is not checked and reports false.
func verifyOptionalAuthInfo(credential *AuthInfo, domain *models.DomainResource) (bool, error) {
	if credential == nil {
		return false, nil
	}
	if err := secrets.Verify(credential.Password, domain.AuthInfoHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			return false, ErrBadCredential()
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify authorization information")
	}
	return true, nil
}
