// SPDX-License-Identifier: MPL-2.0

package sshview

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"

	"github.com/showrefs/showrefs/pkg/refgraph"
)

type (
	// Source supplies the snapshot each session renders. *refgraph.Session
	// implements it.
	Source interface {
		Current() *refgraph.Snapshot
	}

	// Server is a read-only SSH server for module graph views. A Server is
	// single-use: once stopped or failed, create a new one.
	Server struct {
		cfg    Config
		source Source
		token  string
		logger *log.Logger

		state atomic.Int32

		srvMu    sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		addr     string

		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		startedCh chan struct{}
		errCh     chan error
		lastErr   error
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithLogger sets the server logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Server that renders snapshots from source.
func New(cfg Config, source Source, opts ...Option) (*Server, error) {
	if valid, errs := cfg.IsValid(); !valid {
		return nil, errors.Join(errs...)
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = DefaultConfig().StartupTimeout
	}

	token := cfg.Token
	if token == "" {
		generated, err := generateToken()
		if err != nil {
			return nil, err
		}
		token = generated
	}

	s := &Server{
		cfg:       cfg,
		source:    source,
		token:     token,
		logger:    log.New(io.Discard),
		startedCh: make(chan struct{}),
		errCh:     make(chan error, 1),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(StateCreated))
	return s, nil
}

// Start binds the listener and blocks until the server accepts
// connections, fails, or ctx is done. Use Err to watch for failures after
// Start returns nil.
func (s *Server) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", s.State())
	}

	select {
	case <-ctx.Done():
		return s.transitionToFailed(fmt.Errorf("context cancelled before start: %w", ctx.Err()))
	default:
	}

	startupCtx, startupCancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer startupCancel()

	addr := net.JoinHostPort(s.cfg.Host.String(), strconv.Itoa(int(s.cfg.Port)))
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		return s.transitionToFailed(fmt.Errorf("failed to listen on %s: %w", addr, err))
	}

	opts := []ssh.Option{
		wish.WithAddress(addr),
		wish.WithPasswordAuth(s.passwordHandler),
		wish.WithPublicKeyAuth(s.publicKeyHandler),
		wish.WithMiddleware(s.viewMiddleware()),
	}
	if s.cfg.HostKeyPath != "" {
		opts = append(opts, wish.WithHostKeyPath(s.cfg.HostKeyPath))
	}
	srv, err := wish.NewServer(opts...)
	if err != nil {
		_ = listener.Close()
		return s.transitionToFailed(fmt.Errorf("failed to create SSH server: %w", err))
	}

	s.srvMu.Lock()
	s.srv = srv
	s.listener = listener
	s.addr = listener.Addr().String()
	s.srvMu.Unlock()

	s.wg.Add(1)
	go s.serve()

	select {
	case <-s.startedCh:
		s.logger.Info("SSH view server started", "address", s.addr)
		return nil
	case err := <-s.errCh:
		return s.transitionToFailed(err)
	case <-startupCtx.Done():
		return s.transitionToFailed(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
	}
}

// Stop shuts the server down, waiting for open sessions up to the
// shutdown timeout. Calling Stop more than once is a no-op.
func (s *Server) Stop() error {
	for {
		current := s.State()
		switch current {
		case StateStopped, StateFailed:
			return nil
		case StateCreated:
			if s.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				s.cancel()
				return nil
			}
		case StateStopping:
			s.wg.Wait()
			return nil
		case StateStarting, StateRunning:
			if s.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				return s.doStop()
			}
		default:
			return fmt.Errorf("unknown server state: %d", current)
		}
	}
}

func (s *Server) doStop() error {
	s.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	s.srvMu.Lock()
	if s.srv != nil {
		if err := s.srv.Shutdown(shutdownCtx); err != nil && !isClosedConnError(err) {
			s.logger.Error("Shutdown error", "error", err)
			shutdownErr = err
		}
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.srvMu.Unlock()

	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	close(s.errCh)
	s.logger.Info("SSH view server stopped")
	return shutdownErr
}

func (s *Server) serve() {
	defer s.wg.Done()

	if s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(s.startedCh)
	}

	s.srvMu.Lock()
	srv, listener := s.srv, s.listener
	s.srvMu.Unlock()

	err := srv.Serve(listener)
	if err == nil || errors.Is(err, ssh.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return
	}
	select {
	case s.errCh <- fmt.Errorf("serve error: %w", err):
	default:
		s.logger.Error("SSH view server error", "error", err)
	}
}

func (s *Server) transitionToFailed(err error) error {
	s.srvMu.Lock()
	s.lastErr = err
	s.srvMu.Unlock()
	s.state.Store(int32(StateFailed))
	s.cancel()
	return err
}

// Err returns a channel that receives fatal server errors. It is closed
// when the server stops.
func (s *Server) Err() <-chan error { return s.errCh }

// State returns the current server state.
func (s *Server) State() ServerState { return ServerState(s.state.Load()) }

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool { return s.State() == StateRunning }

// Host returns the configured bind host.
func (s *Server) Host() string { return s.cfg.Host.String() }

// Token returns the password clients must present.
func (s *Server) Token() string { return s.token }

// Address returns the bound host:port, blocking until the server started.
// It returns "" when the server never started.
func (s *Server) Address() string {
	select {
	case <-s.startedCh:
		s.srvMu.Lock()
		defer s.srvMu.Unlock()
		return s.addr
	case <-s.ctx.Done():
		return ""
	}
}

// Port returns the bound port, or 0 when the server never started.
func (s *Server) Port() int {
	_, portStr, err := net.SplitHostPort(s.Address())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// Wait blocks until the server stops and returns the failure, if any.
func (s *Server) Wait() error {
	if s.State() == StateCreated {
		<-s.ctx.Done()
	}
	s.wg.Wait()
	if s.State() == StateFailed {
		s.srvMu.Lock()
		defer s.srvMu.Unlock()
		return s.lastErr
	}
	return nil
}

func (s *Server) passwordHandler(ctx ssh.Context, password string) bool {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.token)) == 1 {
		return true
	}
	s.logger.Warn("Rejected SSH login", "user", ctx.User(), "remote", ctx.RemoteAddr())
	return false
}

// publicKeyHandler rejects every key; only the token is accepted.
func (s *Server) publicKeyHandler(ssh.Context, ssh.PublicKey) bool {
	return false
}

func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isClosedConnError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && errors.Is(opErr.Err, net.ErrClosed)
}
