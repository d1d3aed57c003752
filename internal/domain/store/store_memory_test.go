package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store   *InMemory
	ctx     context.Context
	created time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.created = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newDomain(name string, created time.Time) *models.DomainResource {
	d, err := models.NewDomainResource(id.DomainName(name), "TheRegistrar", "", created, created.AddDate(2, 0, 0))
	s.Require().NoError(err)
	return d
}

func (s *InMemoryStoreSuite) TestLoadAsOf() {
	domain := s.newDomain("example.tld", s.created)
	s.Require().NoError(s.store.Save(s.ctx, domain))

	s.Run("finds an existing domain", func() {
		found, err := s.store.LoadAsOf(s.ctx, "example.tld", s.created.AddDate(0, 1, 0))
		s.Require().NoError(err)
		s.Equal(domain.RepoID, found.RepoID)
	})

	s.Run("not found before creation", func() {
		_, err := s.store.LoadAsOf(s.ctx, "example.tld", s.created.Add(-time.Nanosecond))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("not found for unknown name", func() {
		_, err := s.store.LoadAsOf(s.ctx, "missing.tld", s.created.AddDate(0, 1, 0))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestDeletedAndRecreated() {
	first := s.newDomain("example.tld", s.created)
	deleted := s.created.AddDate(0, 6, 0)
	first.DeletionTime = &deleted
	second := s.newDomain("example.tld", deleted.AddDate(0, 1, 0))

	s.Require().NoError(s.store.Save(s.ctx, first))
	s.Require().NoError(s.store.Save(s.ctx, second))

	found, err := s.store.LoadAsOf(s.ctx, "example.tld", s.created.AddDate(0, 1, 0))
	s.Require().NoError(err)
	s.Equal(first.RepoID, found.RepoID)

	_, err = s.store.LoadAsOf(s.ctx, "example.tld", deleted.AddDate(0, 0, 1))
	s.ErrorIs(err, sentinel.ErrNotFound)

	found, err = s.store.LoadAsOf(s.ctx, "example.tld", deleted.AddDate(0, 2, 0))
	s.Require().NoError(err)
	s.Equal(second.RepoID, found.RepoID)
	s.Equal(2, s.store.Len())
}

func (s *InMemoryStoreSuite) TestSaveReplacesAndIsolates() {
	domain := s.newDomain("example.tld", s.created)
	s.Require().NoError(s.store.Save(s.ctx, domain))

	domain.TransferData.Status = models.TransferStatusPending
	s.Require().NoError(s.store.Save(s.ctx, domain))
	s.Equal(1, s.store.Len())

	found, err := s.store.LoadAsOf(s.ctx, "example.tld", s.created)
	s.Require().NoError(err)
	s.Equal(models.TransferStatusPending, found.TransferData.Status)

	found.TransferData.Status = models.TransferStatusClientRejected
	again, err := s.store.LoadAsOf(s.ctx, "example.tld", s.created)
	s.Require().NoError(err)
	s.Equal(models.TransferStatusPending, again.TransferData.Status)
}

func (s *InMemoryStoreSuite) TestSaveNilIsNoop() {
	s.NoError(s.store.Save(s.ctx, nil))
	s.Equal(0, s.store.Len())
}

func (s *InMemoryStoreSuite) TestSaveNormalizesToUTC() {
	zone := time.FixedZone("UTC+5", 5*60*60)
	domain := s.newDomain("example.tld", s.created)
	domain.RegistrationExpirationTime = time.Date(2024, 2, 29, 2, 0, 0, 0, zone)
	domain.TransferData.PendingExpirationTime = time.Date(2024, 1, 1, 3, 0, 0, 0, zone)
	s.Require().NoError(s.store.Save(s.ctx, domain))

	found, err := s.store.LoadAsOf(s.ctx, "example.tld", s.created)
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 2, 28, 21, 0, 0, 0, time.UTC), found.RegistrationExpirationTime)
	s.Equal(time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC), found.TransferData.PendingExpirationTime)
	s.Equal(zone, domain.RegistrationExpirationTime.Location(), "caller's copy is untouched")
}
