// Package server runs the HTTP listener and its graceful shutdown.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrymomot/teamauth/pkg/logger"
)

// Server timeouts.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// ShutdownHook releases a resource after the listener stops.
type ShutdownHook func(ctx context.Context) error

// Server serves a handler until its context ends, then drains in-flight
// requests and runs shutdown hooks in registration order.
type Server struct {
	handler         http.Handler
	address         string
	log             *slog.Logger
	shutdownTimeout time.Duration
	hooks           []ShutdownHook
}

// Option configures a Server.
type Option func(*Server)

// WithAddress sets the listen address. Defaults to ":8080".
func WithAddress(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.address = addr
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithShutdownTimeout bounds the drain and the shutdown hooks together.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithShutdownHooks appends hooks such as closing the database pool.
func WithShutdownHooks(hooks ...ShutdownHook) Option {
	return func(s *Server) {
		s.hooks = append(s.hooks, hooks...)
	}
}

// New creates a Server for h.
func New(h http.Handler, opts ...Option) *Server {
	s := &Server{
		handler:         h,
		address:         ":8080",
		log:             logger.NewNope(),
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run listens on the configured address and blocks until SIGINT, SIGTERM or
// the end of ctx.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends. It returns nil after a
// clean shutdown, or the joined serve, drain and hook errors.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Join(err, s.runHooks())
		}
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, s.runHooksContext(shutdownCtx))

	if err := errors.Join(errs...); err != nil {
		s.log.Error("shutdown completed with errors", slog.Any("error", err))
		return err
	}

	s.log.Info("shutdown completed")
	return nil
}

func (s *Server) runHooks() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.runHooksContext(ctx)
}

func (s *Server) runHooksContext(ctx context.Context) error {
	var errs []error
	for _, hook := range s.hooks {
		if err := hook(ctx); err != nil {
			s.log.Error("shutdown hook failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
