package flows

import (
	"time"

	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
)

// TransferResponse is the transfer-query result data (EPP trnData). Field
// order is fixed so identical inputs encode to identical bytes.
type TransferResponse struct {
	Name                 id.DomainName         `json:"name"`
	TransferStatus       models.TransferStatus `json:"tr_status"`
	GainingRegistrarID   id.RegistrarID        `json:"re_id"`
	RequestTime          time.Time             `json:"re_date"`
	LosingRegistrarID    id.RegistrarID        `json:"ac_id"`
	ActionTime           time.Time             `json:"ac_date"`
	ExtendedRegistration *time.Time            `json:"ex_date,omitempty"`
}

// NewTransferResponse assembles the response. newExpiration is nil when the
// transfer does not extend the registration.
func NewTransferResponse(name id.DomainName, data models.TransferData, status models.TransferStatus, newExpiration *time.Time) *TransferResponse {
	return &TransferResponse{
		Name:                 name,
		TransferStatus:       status,
		GainingRegistrarID:   data.GainingRegistrarID,
		RequestTime:          data.RequestTime.UTC(),
		LosingRegistrarID:    data.LosingRegistrarID,
		ActionTime:           data.PendingExpirationTime.UTC(),
		ExtendedRegistration: newExpiration,
	}
}
