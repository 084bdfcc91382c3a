package server_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/teamauth/internal/server"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestServe(t *testing.T) {
	t.Parallel()

	t.Run("serves until the context ends then runs hooks", func(t *testing.T) {
		t.Parallel()

		var order []string

		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		})
		srv := server.New(h,
			server.WithShutdownTimeout(time.Second),
			server.WithShutdownHooks(
				func(context.Context) error { order = append(order, "db"); return nil },
				func(context.Context) error { order = append(order, "redis"); return nil },
			),
		)

		ln := listen(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx, ln) }()

		resp, err := http.Get("http://" + ln.Addr().String())
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, resp.Body.Close())
		require.NoError(t, err)
		require.Equal(t, "ok", string(body))

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
		require.Equal(t, []string{"db", "redis"}, order)
	})

	t.Run("hook errors are returned", func(t *testing.T) {
		t.Parallel()

		errHook := errors.New("close failed")
		srv := server.New(http.NotFoundHandler(),
			server.WithShutdownHooks(func(context.Context) error { return errHook }),
		)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := srv.Serve(ctx, listen(t))
		require.ErrorIs(t, err, errHook)
	})

	t.Run("in-flight requests are drained", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})
		h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			close(started)
			<-release
			_, _ = io.WriteString(w, "late")
		})
		srv := server.New(h, server.WithShutdownTimeout(5*time.Second))

		ln := listen(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx, ln) }()

		respCh := make(chan string, 1)
		go func() {
			resp, err := http.Get("http://" + ln.Addr().String())
			if err != nil {
				respCh <- err.Error()
				return
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			respCh <- string(b)
		}()

		<-started
		cancel()
		close(release)

		require.Equal(t, "late", <-respCh)
		require.NoError(t, <-done)
	})
}

func TestRun_ListenError(t *testing.T) {
	t.Parallel()

	ln := listen(t)
	defer ln.Close()

	srv := server.New(http.NotFoundHandler(), server.WithAddress(ln.Addr().String()))
	require.Error(t, srv.Run(context.Background()))
}
