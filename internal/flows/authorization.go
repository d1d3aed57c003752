package flows

import (
	"github.com/alangunning/nomulus/internal/domain/models"
	id "github.com/alangunning/nomulus/pkg/domain"
)

// IsAuthorizedToView reports whether a caller may see a transfer: either it
// presented a verified credential, or it is one of the two registrars party to
// the transfer.
func IsAuthorizedToView(credentialVerified bool, caller id.RegistrarID, transfer models.TransferData) bool {
	return credentialVerified || transfer.IsStakeholder(caller)
}
