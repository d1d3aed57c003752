package models

import (
	"time"

	id "github.com/alangunning/nomulus/pkg/domain"
	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
)

// DomainResource is the persisted state of a registered domain name.
//
// Invariants:
//   - Name is canonical (see id.ParseDomainName)
//   - CreationTime is before RegistrationExpirationTime
//   - DeletionTime, when set, is after CreationTime; from that instant on the
//     domain no longer exists for reads
//   - AuthInfoHash is a bcrypt hash of the authInfo password, or empty when the
//     domain has none
type DomainResource struct {
	RepoID                     id.RepoID      `json:"repo_id"`
	Name                       id.DomainName  `json:"name"`
	SponsorRegistrarID         id.RegistrarID `json:"sponsor_registrar_id"`
	AuthInfoHash               string         `json:"-"`
	CreationTime               time.Time      `json:"creation_time"`
	DeletionTime               *time.Time     `json:"deletion_time,omitempty"`
	RegistrationExpirationTime time.Time      `json:"registration_expiration_time"`
	TransferData               TransferData   `json:"transfer_data"`
}

// ExistsAt reports whether the domain had been created and not yet deleted at now.
func (d *DomainResource) ExistsAt(now time.Time) bool {
	if now.Before(d.CreationTime) {
		return false
	}
	return d.DeletionTime == nil || now.Before(*d.DeletionTime)
}

// NewDomainResource validates and constructs a domain with no transfer history.
func NewDomainResource(name id.DomainName, sponsor id.RegistrarID, authInfoHash string, created, expires time.Time) (*DomainResource, error) {
	if name.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "domain name cannot be empty")
	}
	if sponsor.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sponsoring registrar cannot be empty")
	}
	if !created.Before(expires) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiration must be after creation")
	}
	return &DomainResource{
		RepoID:                     id.NewRepoID(),
		Name:                       name,
		SponsorRegistrarID:         sponsor,
		AuthInfoHash:               authInfoHash,
		CreationTime:               created.UTC(),
		RegistrationExpirationTime: expires.UTC(),
	}, nil
}

// Clone returns a deep copy, so stores never hand out aliases of their state.
func (d *DomainResource) Clone() *DomainResource {
	c := *d
	if d.DeletionTime != nil {
		t := *d.DeletionTime
		c.DeletionTime = &t
	}
	return &c
}

// InUTC returns a copy with every instant in UTC. Stores save and load this
// form so calendar arithmetic never depends on the offset a caller used.
func (d *DomainResource) InUTC() *DomainResource {
	c := d.Clone()
	c.CreationTime = c.CreationTime.UTC()
	c.RegistrationExpirationTime = c.RegistrationExpirationTime.UTC()
	if c.DeletionTime != nil {
		t := c.DeletionTime.UTC()
		c.DeletionTime = &t
	}
	c.TransferData.RequestTime = c.TransferData.RequestTime.UTC()
	c.TransferData.PendingExpirationTime = c.TransferData.PendingExpirationTime.UTC()
	return c
}
