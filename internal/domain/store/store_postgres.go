package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
	"github.com/alangunning/nomulus/pkg/platform/sentinel"
	"github.com/alangunning/nomulus/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const (
	pgStateConnectionException = "08"
	pgStateCannotConnectNow    = "57P03"
)

// PostgresStore persists domains in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, if any.
func (s *PostgresStore) conn(ctx context.Context) dbtx {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// RunInTx runs fn with a transaction in its context. Store calls made with
// that context join the transaction; it commits only if fn returns nil.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	if err := fn(tx.WithTx(ctx, t)); err != nil {
		_ = t.Rollback()
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", classify(err))
	}
	return nil
}

// Migrate creates the domains table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.conn(ctx).ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("migrate domains: %w", classify(err))
		}
		return nil
	})
}

const upsertDomain = `
INSERT INTO domains (
    repo_id, name, sponsor_registrar_id, auth_info_hash, creation_time, deletion_time,
    registration_expiration_time, transfer_status, transfer_gaining_registrar_id,
    transfer_losing_registrar_id, transfer_request_time, transfer_pending_expiration,
    transfer_extended_years
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (repo_id) DO UPDATE SET
    sponsor_registrar_id = EXCLUDED.sponsor_registrar_id,
    auth_info_hash = EXCLUDED.auth_info_hash,
    deletion_time = EXCLUDED.deletion_time,
    registration_expiration_time = EXCLUDED.registration_expiration_time,
    transfer_status = EXCLUDED.transfer_status,
    transfer_gaining_registrar_id = EXCLUDED.transfer_gaining_registrar_id,
    transfer_losing_registrar_id = EXCLUDED.transfer_losing_registrar_id,
    transfer_request_time = EXCLUDED.transfer_request_time,
    transfer_pending_expiration = EXCLUDED.transfer_pending_expiration,
    transfer_extended_years = EXCLUDED.transfer_extended_years`

func (s *PostgresStore) Save(ctx context.Context, domain *models.DomainResource) error {
	if domain == nil {
		return fmt.Errorf("domain is required")
	}
	td := domain.TransferData
	_, err := s.conn(ctx).ExecContext(ctx, upsertDomain,
		uuid.UUID(domain.RepoID),
		domain.Name.String(),
		domain.SponsorRegistrarID.String(),
		domain.AuthInfoHash,
		domain.CreationTime,
		domain.DeletionTime,
		domain.RegistrationExpirationTime,
		td.Status.String(),
		td.GainingRegistrarID.String(),
		td.LosingRegistrarID.String(),
		nullTime(td.RequestTime),
		nullTime(td.PendingExpirationTime),
		td.ExtendedRegistrationYears,
	)
	if err != nil {
		return fmt.Errorf("save domain: %w", classify(err))
	}
	return nil
}

const selectDomainAsOf = `
SELECT repo_id, name, sponsor_registrar_id, auth_info_hash, creation_time, deletion_time,
       registration_expiration_time, transfer_status, transfer_gaining_registrar_id,
       transfer_losing_registrar_id, transfer_request_time, transfer_pending_expiration,
       transfer_extended_years
FROM domains
WHERE name = $1
  AND creation_time <= $2
  AND (deletion_time IS NULL OR deletion_time > $2)
ORDER BY creation_time DESC
LIMIT 1`

func (s *PostgresStore) LoadAsOf(ctx context.Context, name id.DomainName, now time.Time) (*models.DomainResource, error) {
	var (
		repoID                                uuid.UUID
		domainName, sponsor, status           string
		gaining, losing                       string
		deletion, requestTime, pendingExpires sql.NullTime
		d                                     models.DomainResource
	)
	err := s.conn(ctx).QueryRowContext(ctx, selectDomainAsOf, name.String(), now).Scan(
		&repoID, &domainName, &sponsor, &d.AuthInfoHash, &d.CreationTime, &deletion,
		&d.RegistrationExpirationTime, &status, &gaining,
		&losing, &requestTime, &pendingExpires,
		&d.TransferData.ExtendedRegistrationYears,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load domain %s: %w", name, classify(err))
	}

	transferStatus, err := models.ParseTransferStatus(status)
	if err != nil {
		return nil, fmt.Errorf("load domain %s: %w", name, err)
	}

	d.RepoID = id.RepoID(repoID)
	d.Name = id.DomainName(domainName)
	d.SponsorRegistrarID = id.RegistrarID(sponsor)
	d.CreationTime = d.CreationTime.UTC()
	d.RegistrationExpirationTime = d.RegistrationExpirationTime.UTC()
	if deletion.Valid {
		t := deletion.Time.UTC()
		d.DeletionTime = &t
	}
	d.TransferData.Status = transferStatus
	d.TransferData.GainingRegistrarID = id.RegistrarID(gaining)
	d.TransferData.LosingRegistrarID = id.RegistrarID(losing)
	if requestTime.Valid {
		d.TransferData.RequestTime = requestTime.Time.UTC()
	}
	if pendingExpires.Valid {
		d.TransferData.PendingExpirationTime = pendingExpires.Time.UTC()
	}
	return &d, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// classify marks connection-level failures with sentinel.ErrUnavailable so
// callers can tell an outage from a bad query. Both drivers are recognized.
func classify(err error) error {
	if isUnavailable(err) {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return err
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return unavailableState(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return unavailableState(string(pqErr.Code))
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn)
}

// unavailableState matches SQLSTATE class 08 (connection exception) and
// cannot_connect_now.
func unavailableState(code string) bool {
	return strings.HasPrefix(code, pgStateConnectionException) || code == pgStateCannotConnectNow
}
