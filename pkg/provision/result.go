package provision

// Client identifies the kind of client that started the login.
// It comes from the session layer and is passed through untouched.
type Client string

const (
	ClientWeb     Client = "web"
	ClientDesktop Client = "desktop"
)

// ParseClient maps a raw client value to a Client, defaulting to ClientWeb.
func ParseClient(s string) Client {
	if Client(s) == ClientDesktop {
		return ClientDesktop
	}
	return ClientWeb
}

// AuthenticationResult is handed to the session issuer after a successful login.
type AuthenticationResult struct {
	User        *User
	Tenant      *Tenant
	Linkage     *Linkage
	Client      Client
	IsNewUser   bool
	IsNewTenant bool
}

// Assemble packages a provisioning outcome with the caller's client descriptor.
// An upstream error is returned unchanged.
func Assemble(client Client, res *Result, err error) (*AuthenticationResult, error) {
	if err != nil {
		return nil, err
	}
	return &AuthenticationResult{
		User:        res.User,
		Tenant:      res.Tenant,
		Linkage:     res.Linkage,
		Client:      client,
		IsNewUser:   res.IsNewUser,
		IsNewTenant: res.IsNewTenant,
	}, nil
}
