package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("cookie: not found")
	ErrBadSecret = errors.New("cookie: secret must be 32+ bytes")
	ErrBadSig    = errors.New("cookie: invalid signature")
)

// MinSecretLength is the shortest accepted signing secret, in bytes.
const MinSecretLength = 32

// Manager sets and reads HMAC-signed cookies.
type Manager struct {
	secret   []byte
	domain   string
	path     string
	secure   bool
	sameSite http.SameSite
}

// Option configures the Manager.
type Option func(*Manager)

// WithDomain sets the cookie domain, e.g. the base domain so tenant hosts
// and the callback host share the cookie.
func WithDomain(domain string) Option {
	return func(m *Manager) { m.domain = domain }
}

// WithPath sets the cookie path. Defaults to "/".
func WithPath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithSecure sets the Secure flag.
func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithSameSite sets the SameSite attribute. Defaults to Lax, which still
// sends the cookie on the provider's top-level redirect back.
func WithSameSite(ss http.SameSite) Option {
	return func(m *Manager) { m.sameSite = ss }
}

// New creates a Manager. Cookies are always HttpOnly.
func New(secret string, opts ...Option) (*Manager, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrBadSecret
	}
	m := &Manager{
		secret:   []byte(secret),
		path:     "/",
		sameSite: http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Set writes a signed cookie living for maxAge.
func (m *Manager) Set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(value)) +
		"." + base64.RawURLEncoding.EncodeToString(m.sign(name, []byte(value)))
	http.SetCookie(w, m.cookie(name, encoded, int(maxAge.Seconds())))
}

// Get returns the verified value of a signed cookie.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}

	rawValue, rawSig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return "", ErrBadSig
	}
	value, err := base64.RawURLEncoding.DecodeString(rawValue)
	if err != nil {
		return "", ErrBadSig
	}
	sig, err := base64.RawURLEncoding.DecodeString(rawSig)
	if err != nil {
		return "", ErrBadSig
	}
	if !hmac.Equal(sig, m.sign(name, value)) {
		return "", ErrBadSig
	}

	return string(value), nil
}

// Delete expires the cookie.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, m.cookie(name, "", -1))
}

// sign covers the name too, so a value cannot be replayed under another cookie.
func (m *Manager) sign(name string, value []byte) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(name))
	mac.Write([]byte{0})
	mac.Write(value)
	return mac.Sum(nil)
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	}
}
