// Package handler serves the OAuth login endpoints.
package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/teamauth/pkg/cache"
	"github.com/dmitrymomot/teamauth/pkg/cookie"
	"github.com/dmitrymomot/teamauth/pkg/hostrouter"
	"github.com/dmitrymomot/teamauth/pkg/i18n"
	"github.com/dmitrymomot/teamauth/pkg/logger"
	"github.com/dmitrymomot/teamauth/pkg/oauth"
	"github.com/dmitrymomot/teamauth/pkg/provision"
)

// Authenticator provisions completed logins. *provision.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, l provision.Login) (*provision.AuthenticationResult, error)
	TenantIDBySubdomain(ctx context.Context, subdomain string) (uuid.UUID, error)
}

// Config holds what the handler needs besides its collaborators.
type Config struct {
	BaseDomain         string
	ReservedSubdomains []string
	Languages          []string // for the Accept-Language fallback
	StateTTL           time.Duration
}

// Handler serves GET /auth/{provider} and GET /auth/{provider}/callback.
type Handler struct {
	cfg       Config
	providers oauth.Registry
	states    oauth.StateStore
	auth      Authenticator
	issuer    Issuer
	metrics   *Metrics
	cookies   *cookie.Manager
	tenants   *cache.Loader[uuid.UUID]
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithIssuer replaces the default JSONIssuer.
func WithIssuer(i Issuer) Option {
	return func(h *Handler) {
		if i != nil {
			h.issuer = i
		}
	}
}

// WithMetrics enables login counters.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithStateCookie binds each state token to the starting browser with a
// signed cookie. The callback rejects a state the browser was not given.
func WithStateCookie(m *cookie.Manager) Option {
	return func(h *Handler) { h.cookies = m }
}

// WithTenantCache caches subdomain to tenant ID lookups. Only hits are cached.
func WithTenantCache(l *cache.Loader[uuid.UUID]) Option {
	return func(h *Handler) { h.tenants = l }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// New creates a Handler.
func New(cfg Config, providers oauth.Registry, states oauth.StateStore, auth Authenticator, opts ...Option) *Handler {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = oauth.DefaultStateTTL
	}
	h := &Handler{
		cfg:       cfg,
		providers: providers,
		states:    states,
		auth:      auth,
		issuer:    JSONIssuer{},
		log:       logger.NewNope(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

const stateCookie = "oauth_state"

// Routes mounts the auth endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/auth/{provider}", func(r chi.Router) {
		r.Get("/", h.Start)
		r.Get("/callback", h.Callback)
	})
}

// Start redirects to the provider's consent page. The tenant host the login
// started on and the client kind travel in the server-side state.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		h.fail(w, r, "", &HTTPError{Err: err, Code: http.StatusNotFound, Message: "unknown provider", ErrorCode: "unknown_provider"}, "")
		return
	}

	token, err := oauth.NewStateToken()
	if err != nil {
		h.fail(w, r, p.Name(), &HTTPError{Err: err, Code: http.StatusInternalServerError, Message: "internal error", ErrorCode: "internal"}, "")
		return
	}

	state := oauth.State{
		Provider:  p.Name(),
		Subdomain: hostrouter.TenantSubdomain(r, h.cfg.BaseDomain, h.cfg.ReservedSubdomains...),
		Client:    string(provision.ParseClient(r.URL.Query().Get("client"))),
	}
	if err := h.states.Save(ctx, token, state, h.cfg.StateTTL); err != nil {
		h.fail(w, r, p.Name(), &HTTPError{Err: err, Code: http.StatusServiceUnavailable, Message: "try again", ErrorCode: "temporarily_unavailable"}, "")
		return
	}
	if h.cookies != nil {
		h.cookies.Set(w, stateCookie, token, h.cfg.StateTTL)
	}

	http.Redirect(w, r, p.AuthCodeURL(token), http.StatusFound)
}

// Callback completes the handshake: it checks the state, exchanges the code,
// provisions the account and hands the result to the Issuer.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	ctx := logger.WithAttrs(r.Context(), slog.String("provider", name))
	r = r.WithContext(ctx)

	res, err := h.callback(ctx, r, name)
	if h.cookies != nil {
		h.cookies.Delete(w, stateCookie)
	}
	if err != nil {
		httpErr, outcome := classify(err)
		h.fail(w, r, name, httpErr, outcome)
		return
	}

	if err := h.issuer.Issue(w, r, res); err != nil {
		h.fail(w, r, name, &HTTPError{Err: err, Code: http.StatusInternalServerError, Message: "internal error", ErrorCode: "internal"}, outcomeUnavailable)
		return
	}
	h.metrics.observe(name, outcomeSuccess)
}

func (h *Handler) callback(ctx context.Context, r *http.Request, name string) (*provision.AuthenticationResult, error) {
	p, err := h.providers.Get(name)
	if err != nil {
		return nil, errors.Join(oauth.ErrInvalidState, err)
	}

	q := r.URL.Query()
	if err := h.checkBinding(r, q.Get("state")); err != nil {
		return nil, err
	}
	state, err := h.states.Consume(ctx, q.Get("state"))
	if err != nil {
		return nil, err
	}
	if state.Provider != p.Name() {
		return nil, fmt.Errorf("%w: state issued for %q", oauth.ErrInvalidState, state.Provider)
	}
	if perr := q.Get("error"); perr != "" {
		// The user denied consent or the provider refused the request.
		return nil, &provision.ValidationError{Field: "authorization", Reason: perr}
	}
	code := q.Get("code")
	if code == "" {
		return nil, &provision.ValidationError{Field: "authorization", Reason: "missing code"}
	}

	tok, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Join(oauth.ErrRequestFailed, fmt.Errorf("exchange code: %w", err))
	}

	profile, err := p.FetchProfile(ctx, tok)
	if err != nil {
		return nil, err
	}

	locale := profile.Locale
	if locale == "" {
		locale = i18n.FromAcceptLanguage(r.Header.Get("Accept-Language"), h.cfg.Languages)
	}

	existing, err := h.tenantID(ctx, state.Subdomain)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant host: %w", err)
	}

	grant := oauth.GrantFromToken(tok, p.Scopes(), h.now())

	return h.auth.Authenticate(ctx, provision.Login{
		Provider: p.Name(),
		Profile: provision.RawProfile{
			ID:           profile.ID,
			Email:        profile.Email,
			Name:         profile.Name,
			Picture:      profile.Picture,
			HostedDomain: profile.HostedDomain,
			Locale:       locale,
		},
		Credentials: provision.Credentials{
			AccessToken:  grant.AccessToken,
			RefreshToken: grant.RefreshToken,
			ExpiresIn:    grant.ExpiresIn,
			Scopes:       grant.Scopes,
		},
		ExistingTenantID: existing,
		IP:               clientIP(r),
		Client:           provision.ParseClient(state.Client),
	})
}

func (h *Handler) checkBinding(r *http.Request, token string) error {
	if h.cookies == nil {
		return nil
	}
	bound, err := h.cookies.Get(r, stateCookie)
	if err != nil {
		return errors.Join(oauth.ErrInvalidState, err)
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(bound), []byte(token)) != 1 {
		return fmt.Errorf("%w: state not bound to this browser", oauth.ErrInvalidState)
	}
	return nil
}

func (h *Handler) tenantID(ctx context.Context, subdomain string) (uuid.UUID, error) {
	if subdomain == "" {
		return uuid.Nil, nil
	}
	if h.tenants == nil {
		return h.auth.TenantIDBySubdomain(ctx, subdomain)
	}
	return h.tenants.Get(ctx, subdomain, func(ctx context.Context) (uuid.UUID, bool, error) {
		id, err := h.auth.TenantIDBySubdomain(ctx, subdomain)
		return id, id != uuid.Nil, err
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, provider string, e *HTTPError, outcome string) {
	e.RequestID = middleware.GetReqID(r.Context())

	level := slog.LevelWarn
	if e.Code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.log.Log(r.Context(), level, "login failed",
		slog.Int("status", e.Code),
		slog.String("code", e.ErrorCode),
		slog.Any("error", e.Err),
	)

	if outcome != "" {
		h.metrics.observe(provider, outcome)
	}
	writeJSON(w, e.Code, e)
}

// clientIP returns the request's remote IP. Behind a proxy, chi's RealIP
// middleware has already replaced RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
