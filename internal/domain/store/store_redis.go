package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
)

const domainKeyPrefix = "domain:"

// RedisStore keeps each name's incarnations in a hash at "domain:<name>",
// one field per repo id.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// redisDomain is the stored shape. It carries the authInfo hash, which the
// model deliberately keeps out of its JSON form.
type redisDomain struct {
	RepoID                     id.RepoID           `json:"repo_id"`
	Name                       id.DomainName       `json:"name"`
	SponsorRegistrarID         id.RegistrarID      `json:"sponsor_registrar_id"`
	AuthInfoHash               string              `json:"auth_info_hash"`
	CreationTime               time.Time           `json:"creation_time"`
	DeletionTime               *time.Time          `json:"deletion_time,omitempty"`
	RegistrationExpirationTime time.Time           `json:"registration_expiration_time"`
	TransferData               models.TransferData `json:"transfer_data"`
}

func domainKey(name id.DomainName) string {
	return domainKeyPrefix + name.String()
}

func (s *RedisStore) Save(ctx context.Context, domain *models.DomainResource) error {
	if domain == nil {
		return fmt.Errorf("domain is required")
	}
	domain = domain.InUTC()
	payload, err := json.Marshal(redisDomain{
		RepoID:                     domain.RepoID,
		Name:                       domain.Name,
		SponsorRegistrarID:         domain.SponsorRegistrarID,
		AuthInfoHash:               domain.AuthInfoHash,
		CreationTime:               domain.CreationTime,
		DeletionTime:               domain.DeletionTime,
		RegistrationExpirationTime: domain.RegistrationExpirationTime,
		TransferData:               domain.TransferData,
	})
	if err != nil {
		return fmt.Errorf("marshal domain: %w", err)
	}
	if err := s.client.HSet(ctx, domainKey(domain.Name), domain.RepoID.String(), payload).Err(); err != nil {
		return fmt.Errorf("save domain: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *RedisStore) LoadAsOf(ctx context.Context, name id.DomainName, now time.Time) (*models.DomainResource, error) {
	fields, err := s.client.HGetAll(ctx, domainKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load domain %s: %w", name, errors.Join(sentinel.ErrUnavailable, err))
	}

	// incarnations never overlap, but pick the latest created so a bad write
	// cannot make reads depend on map order
	var found *models.DomainResource
	for _, raw := range fields {
		var stored redisDomain
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("decode domain %s: %w", name, err)
		}
		domain := (&models.DomainResource{
			RepoID:                     stored.RepoID,
			Name:                       stored.Name,
			SponsorRegistrarID:         stored.SponsorRegistrarID,
			AuthInfoHash:               stored.AuthInfoHash,
			CreationTime:               stored.CreationTime,
			DeletionTime:               stored.DeletionTime,
			RegistrationExpirationTime: stored.RegistrationExpirationTime,
			TransferData:               stored.TransferData,
		}).InUTC()
		if domain.ExistsAt(now) && (found == nil || domain.CreationTime.After(found.CreationTime)) {
			found = domain
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}
