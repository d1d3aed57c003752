// Package store persists domain resources and answers point-in-time reads.
//
// Every backend honors the same contract: LoadAsOf returns the incarnation of
// a name that existed at the given instant, or sentinel.ErrNotFound when none
// did. A name may have several incarnations over time (delete then re-create),
// each with its own repo id.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
)

// InMemory keeps domains in a map keyed by name. Every read and write works on
// copies, so callers can never mutate stored state.
type InMemory struct {
	mu      sync.RWMutex
	domains map[id.DomainName][]*models.DomainResource
}

func NewInMemory() *InMemory {
	return &InMemory{domains: make(map[id.DomainName][]*models.DomainResource)}
}

// Save inserts the domain or replaces the incarnation with the same repo id.
func (s *InMemory) Save(_ context.Context, domain *models.DomainResource) error {
	if domain == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := domain.InUTC()
	incarnations := s.domains[domain.Name]
	for i, existing := range incarnations {
		if existing.RepoID == domain.RepoID {
			incarnations[i] = stored
			return nil
		}
	}
	s.domains[domain.Name] = append(incarnations, stored)
	return nil
}

// LoadAsOf returns the incarnation of name that existed at now.
func (s *InMemory) LoadAsOf(_ context.Context, name id.DomainName, now time.Time) (*models.DomainResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, domain := range s.domains[name] {
		if domain.ExistsAt(now) {
			return domain.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Len reports how many incarnations are stored across all names.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, incarnations := range s.domains {
		n += len(incarnations)
	}
	return n
}
