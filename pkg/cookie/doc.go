// Package cookie sets and verifies HMAC-SHA256 signed cookies.
//
// The login flow uses it to bind the OAuth state token to the browser that
// started the flow: the start handler stores the token in a signed cookie and
// the callback only accepts a state parameter equal to the cookie's value.
//
//	m, err := cookie.New(secret, cookie.WithDomain("example.com"), cookie.WithSecure(true))
//	if err != nil {
//		return err
//	}
//
//	m.Set(w, "oauth_state", token, 10*time.Minute)
//	token, err := m.Get(r, "oauth_state") // ErrNotFound or ErrBadSig on failure
//	m.Delete(w, "oauth_state")
package cookie
