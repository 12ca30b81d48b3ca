package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"example.com/mediaserve/internal/config"
	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
	"example.com/mediaserve/internal/util"
)

// ErrServerClosed is returned by Serve after Shutdown has been called.
var ErrServerClosed = errors.New("server: closed")

// Server manages the listener, the per-connection workers and graceful shutdown.
type Server struct {
	cfg     *config.Config
	log     *logger.Logger
	router  RouterInterface
	address string
	limits  http1.Limits

	mu           sync.Mutex
	listener     net.Listener
	activeConns  map[net.Conn]struct{}
	shuttingDown bool
	connWG       sync.WaitGroup

	doneChan chan struct{}
	doneOnce sync.Once
}

// NewServer creates a new Server instance that will listen on address.
func NewServer(cfg *config.Config, lg *logger.Logger, router RouterInterface, address string) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}
	if cfg.Server == nil {
		config.ApplyDefaults(cfg)
	}

	return &Server{
		cfg:         cfg,
		log:         lg,
		router:      router,
		address:     address,
		limits:      http1.Limits{MaxHeaderBytes: cfg.Server.MaxHeaderBytesValue()},
		activeConns: make(map[net.Conn]struct{}),
		doneChan:    make(chan struct{}),
	}, nil
}

// Listen opens the server's listener. A listener inherited through LISTEN_FDS takes
// precedence over binding the configured address.
func (s *Server) Listen() (net.Listener, error) {
	l, err := util.InheritedListener()
	if err != nil {
		return nil, fmt.Errorf("error using inherited listener from %s: %w", util.ListenFdsEnvKey, err)
	}
	if l != nil {
		s.log.Info("Using inherited listener", logger.LogFields{"localAddr": l.Addr().String()})
	} else {
		reusePort := s.cfg.Server.ReusePort != nil && *s.cfg.Server.ReusePort
		l, err = util.CreateListener("tcp", s.address, reusePort)
		if err != nil {
			if util.IsAddrInUse(err) {
				return nil, fmt.Errorf("address %s is already in use: %w", s.address, err)
			}
			return nil, err
		}
	}

	if s.cfg.Server.MaxConnections != nil && *s.cfg.Server.MaxConnections > 0 {
		l = util.LimitListener(l, *s.cfg.Server.MaxConnections)
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.log.Info("Started server", logger.LogFields{"address": l.Addr().String()})
	return l, nil
}

// Addr returns the listener's address, or nil before Listen or Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done is closed once Shutdown has finished.
func (s *Server) Done() <-chan struct{} {
	return s.doneChan
}

// Serve accepts connections on l and handles each one on its own goroutine. It
// returns ErrServerClosed after Shutdown, or the accept error that stopped it.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	var tempDelay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			s.log.Error("Error accepting connection", logger.LogFields{"error": err.Error(), "retry_in": tempDelay.String()})
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		if !s.trackConn(conn) {
			conn.Close()
			return ErrServerClosed
		}
		go s.handleConnection(conn)
	}
}

// Start listens, serves and blocks until the process receives SIGINT or SIGTERM, which
// trigger a graceful shutdown. SIGHUP reopens the log files.
func (s *Server) Start() error {
	l, err := s.Listen()
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(l) }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case err := <-serveErr:
			return err
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				s.log.Info("Received SIGHUP, reopening log files", nil)
				if err := s.log.ReopenLogFiles(); err != nil {
					s.log.Error("Failed to reopen log files", logger.LogFields{"error": err.Error()})
				}
				continue
			}

			s.log.Info("Received signal, shutting down", logger.LogFields{"signal": sig.String()})
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.GracefulShutdownTimeoutValue())
			err := s.Shutdown(ctx)
			cancel()
			<-serveErr
			return err
		}
	}
}

// Shutdown stops accepting new connections and waits for in-flight connections to
// finish. When ctx expires first, remaining connections are closed forcibly and the
// context error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		<-s.doneChan
		return nil
	}
	s.shuttingDown = true
	l := s.listener
	s.mu.Unlock()

	defer s.doneOnce.Do(func() { close(s.doneChan) })

	if l != nil {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Warn("Error closing listener", logger.LogFields{"error": err.Error()})
		}
	}

	s.log.Info("Shutting down, waiting for in-flight connections", logger.LogFields{"connections": s.ActiveConnections()})

	finished := make(chan struct{})
	go func() {
		s.connWG.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.log.Info("Server shut down gracefully", nil)
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		remaining := len(s.activeConns)
		for c := range s.activeConns {
			c.Close()
		}
		s.mu.Unlock()
		s.log.Warn("Graceful shutdown timed out, closed remaining connections", logger.LogFields{"connections": remaining})
		<-finished
		return ctx.Err()
	}
}

// ActiveConnections returns the number of connections currently being handled.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// trackConn registers conn as active. It reports false once shutdown has begun.
func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.activeConns[conn] = struct{}{}
	s.connWG.Add(1)
	return true
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.activeConns, conn)
	s.mu.Unlock()
	s.connWG.Done()
}
