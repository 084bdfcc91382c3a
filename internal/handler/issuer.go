package handler

import (
	"net/http"

	"github.com/dmitrymomot/teamauth/pkg/provision"
)

// Issuer turns a provisioned login into a session. Sessions live outside this
// service; the issuer is the hand-off point.
type Issuer interface {
	Issue(w http.ResponseWriter, r *http.Request, res *provision.AuthenticationResult) error
}

// JSONIssuer writes the provisioning outcome as JSON. Useful when a separate
// session service calls the callback endpoint server-to-server.
type JSONIssuer struct{}

type issuedLogin struct {
	UserID      string `json:"user_id"`
	TenantID    string `json:"tenant_id"`
	TenantName  string `json:"tenant_name"`
	Subdomain   string `json:"subdomain,omitempty"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Language    string `json:"language,omitempty"`
	Client      string `json:"client"`
	IsNewUser   bool   `json:"is_new_user"`
	IsNewTenant bool   `json:"is_new_tenant"`
}

func (JSONIssuer) Issue(w http.ResponseWriter, _ *http.Request, res *provision.AuthenticationResult) error {
	writeJSON(w, http.StatusOK, issuedLogin{
		UserID:      res.User.ID.String(),
		TenantID:    res.Tenant.ID.String(),
		TenantName:  res.Tenant.Name,
		Subdomain:   res.Tenant.Subdomain,
		Email:       res.User.Email,
		Name:        res.User.Name,
		Language:    res.User.Language,
		Client:      string(res.Client),
		IsNewUser:   res.IsNewUser,
		IsNewTenant: res.IsNewTenant,
	})
	return nil
}
