package handler

import (
	"strings"

	"github.com/alangunning/nomulus/internal/flows"
	id "github.com/alangunning/nomulus/pkg/domain"
)

// TransferQueryRequest is the HTTP request body for POST /epp/domain/transfer/query.
type TransferQueryRequest struct {
	Name     string           `json:"name" validate:"required,max=255"`
	AuthInfo *AuthInfoRequest `json:"auth_info,omitempty"`
}

// AuthInfoRequest carries the domain's authInfo password (EPP <domain:pw>).
type AuthInfoRequest struct {
	Password string `json:"pw" validate:"required,max=72"`
}

// Validate normalizes the name. Names that do not parse are left for the flow,
// which reports them as nonexistent objects.
func (r *TransferQueryRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return nil
}

// ToCommand builds the flow command for the authenticated registrar.
func (r *TransferQueryRequest) ToCommand(registrarID id.RegistrarID) flows.Command {
	cmd := flows.Command{TargetID: r.Name, RegistrarID: registrarID}
	if r.AuthInfo != nil {
		cmd.AuthInfo = &flows.AuthInfo{Password: r.AuthInfo.Password}
	}
	return cmd
}
