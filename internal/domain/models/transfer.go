package models

import (
	"time"

	id "github.com/alangunning/nomulus/pkg/domain"
	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
)

// TransferStatus is the stored state of a domain's most recent transfer.
// The zero value, TransferStatusNone, means no transfer was ever requested.
type TransferStatus string

const (
	TransferStatusNone            TransferStatus = ""
	TransferStatusPending         TransferStatus = "pending"
	TransferStatusClientApproved  TransferStatus = "clientApproved"
	TransferStatusClientRejected  TransferStatus = "clientRejected"
	TransferStatusClientCancelled TransferStatus = "clientCancelled"
	TransferStatusServerApproved  TransferStatus = "serverApproved"
	TransferStatusServerCancelled TransferStatus = "serverCancelled"
)

// ParseTransferStatus accepts the EPP wire names; the empty string parses to
// TransferStatusNone.
func ParseTransferStatus(s string) (TransferStatus, error) {
	switch status := TransferStatus(s); status {
	case TransferStatusNone, TransferStatusPending,
		TransferStatusClientApproved, TransferStatusClientRejected, TransferStatusClientCancelled,
		TransferStatusServerApproved, TransferStatusServerCancelled:
		return status, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown transfer status: "+s)
}

func (s TransferStatus) String() string { return string(s) }

// IsApproved reports whether the status is an explicit approval.
func (s TransferStatus) IsApproved() bool {
	return s == TransferStatusClientApproved || s == TransferStatusServerApproved
}

// TransferData is the transfer history embedded in a domain.
//
// Invariants:
//   - When Status is TransferStatusNone every other field is meaningless and
//     must not be read.
//   - PendingExpirationTime is the instant after which a pending transfer the
//     losing registrar has not acted on counts as approved.
//   - ExtendedRegistrationYears is never negative.
//
// Interpretation is a pure function of the stored fields and a caller-supplied
// instant; nothing here writes the implicit approval back.
type TransferData struct {
	Status                    TransferStatus `json:"status"`
	GainingRegistrarID        id.RegistrarID `json:"gaining_registrar_id"`
	LosingRegistrarID         id.RegistrarID `json:"losing_registrar_id"`
	RequestTime               time.Time      `json:"request_time"`
	PendingExpirationTime     time.Time      `json:"pending_expiration_time"`
	ExtendedRegistrationYears int            `json:"extended_registration_years"`
}

// HasHistory reports whether a transfer was ever requested.
func (t TransferData) HasHistory() bool {
	return t.Status != TransferStatusNone
}

// IsImplicitlyApproved reports whether a pending transfer has passed its
// automatic approval deadline as of now. The deadline itself counts as passed.
func (t TransferData) IsImplicitlyApproved(now time.Time) bool {
	return t.Status == TransferStatusPending && !t.PendingExpirationTime.After(now)
}

// EffectiveStatus is the status every read-only consumer must observe at now:
// a lapsed pending transfer reads as client-approved.
func (t TransferData) EffectiveStatus(now time.Time) TransferStatus {
	if t.IsImplicitlyApproved(now) {
		return TransferStatusClientApproved
	}
	return t.Status
}

// ExtendsRegistration reports whether the transfer, as of now, carries a new
// expiration: approved (explicitly or implicitly) or still pending.
func (t TransferData) ExtendsRegistration(now time.Time) bool {
	status := t.EffectiveStatus(now)
	return status.IsApproved() || status == TransferStatusPending
}

// IsStakeholder reports whether registrarID is the gaining or losing registrar.
func (t TransferData) IsStakeholder(registrarID id.RegistrarID) bool {
	if registrarID.IsNil() {
		return false
	}
	return registrarID == t.GainingRegistrarID || registrarID == t.LosingRegistrarID
}
