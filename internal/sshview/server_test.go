// SPDX-License-Identifier: MPL-2.0

package sshview

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	gossh "golang.org/x/crypto/ssh"

	"github.com/showrefs/showrefs/internal/testutil"
	"github.com/showrefs/showrefs/pkg/refgraph"
)

const testSpec = "App:Core,Log,Missing Core:App Log!:"

type staticSource struct{ snap *refgraph.Snapshot }

func (s staticSource) Current() *refgraph.Snapshot { return s.snap }

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := New(cfg, staticSource{testutil.Snapshot(t, testSpec, "App")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := newServer(t, DefaultConfig())
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { testutil.MustStop(t, srv) })
	return srv
}

func dial(t *testing.T, srv *Server, password string) (*gossh.Client, error) {
	t.Helper()
	return gossh.Dial("tcp", srv.Address(), &gossh.ClientConfig{
		User:            "viewer",
		Auth:            []gossh.AuthMethod{gossh.Password(password)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(), //nolint:gosec // test server with ephemeral key
	})
}

func run(t *testing.T, client *gossh.Client, command string) (string, error) {
	t.Helper()
	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer func() { _ = sess.Close() }()
	out, err := sess.Output(command)
	return string(out), err
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	srv := newServer(t, DefaultConfig())
	if srv.State() != StateCreated || srv.IsRunning() {
		t.Fatalf("new server state = %s", srv.State())
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !srv.IsRunning() {
		t.Errorf("State = %s, want running", srv.State())
	}
	if srv.Port() == 0 || !strings.Contains(srv.Address(), ":") {
		t.Errorf("Address() = %q, Port() = %d", srv.Address(), srv.Port())
	}
	if srv.Host() != "127.0.0.1" {
		t.Errorf("Host() = %q", srv.Host())
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if srv.State() != StateStopped {
		t.Errorf("State = %s, want stopped", srv.State())
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if err := srv.Wait(); err != nil {
		t.Errorf("Wait() after Stop = %v", err)
	}
}

func TestServerDoubleStart(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestServerStopWithoutStart(t *testing.T) {
	t.Parallel()

	srv := newServer(t, DefaultConfig())
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if srv.State() != StateStopped {
		t.Errorf("State = %s, want stopped", srv.State())
	}
	if srv.Address() != "" {
		t.Errorf("Address() = %q, want empty", srv.Address())
	}
}

func TestServerStartWithCancelledContext(t *testing.T) {
	t.Parallel()

	srv := newServer(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := srv.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() error = %v, want context.Canceled", err)
	}
	if srv.State() != StateFailed {
		t.Errorf("State = %s, want failed", srv.State())
	}
	if err := srv.Wait(); err == nil {
		t.Error("Wait() after failed Start should return the failure")
	}
}

func TestServerStartWithUsedPort(t *testing.T) {
	t.Parallel()

	first := startServer(t)

	cfg := DefaultConfig()
	cfg.Port = ListenPort(first.Port())
	second := newServer(t, cfg)
	if err := second.Start(context.Background()); err == nil {
		testutil.MustStop(t, second)
		t.Fatal("Start() on a used port should fail")
	}
	if second.State() != StateFailed {
		t.Errorf("State = %s, want failed", second.State())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Host = " "
	cfg.Port = 70000
	_, err := New(cfg, staticSource{})
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, ErrInvalidHostAddress) || !errors.Is(err, ErrInvalidListenPort) {
		t.Errorf("New() error = %v", err)
	}
}

func TestNew_Token(t *testing.T) {
	t.Parallel()

	a := newServer(t, DefaultConfig())
	b := newServer(t, DefaultConfig())
	if len(a.Token()) != 32 || a.Token() == b.Token() {
		t.Errorf("generated tokens %q and %q", a.Token(), b.Token())
	}

	cfg := DefaultConfig()
	cfg.Token = "secret"
	if got := newServer(t, cfg).Token(); got != "secret" {
		t.Errorf("Token() = %q, want secret", got)
	}
}

func TestIsClosedConnError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("something"), false},
		{"closed conn OpError", &net.OpError{Op: "accept", Err: net.ErrClosed}, true},
		{"different OpError", &net.OpError{Op: "read", Err: errors.New("reset")}, false},
		{"bare ErrClosed", net.ErrClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isClosedConnError(tt.err); got != tt.want {
				t.Errorf("isClosedConnError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServer_SessionViews(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	client, err := dial(t, srv, srv.Token())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = client.Close() }()

	out, err := run(t, client, "oneline")
	if err != nil {
		t.Fatalf("oneline error = %v", err)
	}
	want := "App -> Core, Log (shared), Missing (not available)\nCore -> App\nLog (shared)\nMissing (not available)\n"
	if out != want {
		t.Errorf("oneline = %q, want %q", out, want)
	}

	out, err = run(t, client, "")
	if err != nil || !strings.HasPrefix(out, "App\n  Core\n") {
		t.Errorf("default view = %q, %v", out, err)
	}

	_, err = run(t, client, "frobnicate")
	var exitErr *gossh.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitStatus() != 1 {
		t.Errorf("unknown command error = %v, want exit status 1", err)
	}
}

func TestServer_RejectsWrongPassword(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	if client, err := dial(t, srv, "wrong"); err == nil {
		_ = client.Close()
		t.Fatal("Dial() with a wrong password should fail")
	}
}
