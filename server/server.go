// Package server implements a raw TCP print server (the port 9100 protocol)
// forwarding each client's bytes to a printer adapter.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nixxel-company-limited/escpos/adapter"
	"github.com/nixxel-company-limited/escpos/escpos"
)

// DefaultIdleTimeout ends a print job whose client stays silent this long.
const DefaultIdleTimeout = 30 * time.Second

// Server represents a TCP server that forwards data to a printer adapter
type Server struct {
	adapter      adapter.Adapter
	listener     net.Listener
	address      string
	logger       *zap.Logger
	resetOnStart bool
	idleTimeout  time.Duration

	mu      sync.Mutex
	running bool
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup

	// jobMu is held for the lifetime of a connection so jobs from different
	// clients never interleave on the printer.
	jobMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default logs to stdout at info level.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResetOnStart sends ESC @ to the printer after the adapter is opened.
func WithResetOnStart(reset bool) Option {
	return func(s *Server) {
		s.resetOnStart = reset
	}
}

// WithIdleTimeout sets how long a connection may stay silent.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// New creates a new server instance
func New(device adapter.Adapter, address string, opts ...Option) *Server {
	s := &Server{
		adapter:     device,
		address:     address,
		idleTimeout: DefaultIdleTimeout,
		conns:       make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		encoder := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
		s.logger = zap.New(zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel))
	}
	s.logger = s.logger.With(zap.String("component", "server"))
	return s
}

// Start starts the TCP server and blocks until Stop is called
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("address", s.address), zap.String("mode", "blocking"))

	if err := s.listen(); err != nil {
		return err
	}

	s.acceptConnections()
	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking)
func (s *Server) StartAsync() error {
	s.logger.Info("Starting server", zap.String("address", s.address), zap.String("mode", "async"))

	if err := s.listen(); err != nil {
		return err
	}

	go s.acceptConnections()
	s.logger.Info("Server started in background, ready to accept connections")
	return nil
}

// listen opens the listener and the adapter
func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Error("Server already running")
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Error("Failed to start server", zap.Error(err))
		return fmt.Errorf("failed to start server: %w", err)
	}

	if !s.adapter.IsOpen() {
		s.logger.Info("Opening printer adapter")
		if err := s.adapter.Open(); err != nil {
			listener.Close()
			s.logger.Error("Failed to open adapter", zap.Error(err))
			return fmt.Errorf("failed to open adapter: %w", err)
		}
		s.logger.Info("Printer adapter opened")
	} else {
		s.logger.Info("Printer adapter already open")
	}

	if s.resetOnStart {
		if _, err := escpos.New(s.adapter, escpos.WithLogger(s.logger)); err != nil {
			listener.Close()
			s.logger.Error("Failed to reset printer", zap.Error(err))
			return fmt.Errorf("failed to reset printer: %w", err)
		}
		s.logger.Info("Printer reset")
	}

	s.listener = listener
	s.running = true
	s.wg.Add(1) // accept loop
	s.logger.Info("Server listening", zap.String("address", listener.Addr().String()))
	return nil
}

// acceptConnections handles incoming client connections
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() {
				s.logger.Info("Server shutting down, stopping accept loop")
				return
			}
			s.logger.Warn("Error accepting connection", zap.Error(err))
			continue
		}

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		s.logger.Info("Client connected", zap.String("client", conn.RemoteAddr().String()))
		go s.handleConnection(conn)
	}
}

// handleConnection forwards one print job to the adapter
func (s *Server) handleConnection(conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()
	logger := s.logger.With(zap.String("client", clientAddr))

	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		logger.Info("Client disconnected")
	}()

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	buf := make([]byte, 4096)
	total := 0

	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		n, err := conn.Read(buf)

		if n > 0 {
			written, writeErr := s.adapter.Write(buf[:n])
			if writeErr != nil {
				logger.Error("Error writing to adapter", zap.Error(writeErr))
				return
			}
			total += written
			logger.Debug("Forwarded data to printer", zap.Int("bytes", written))
		}

		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				logger.Info("Print job complete", zap.Int("bytes", total))
			case errors.As(err, &netErr) && netErr.Timeout():
				logger.Warn("Client idle, ending print job", zap.Int("bytes", total))
			case !s.IsRunning():
				logger.Info("Connection closed by shutdown", zap.Int("bytes", total))
			default:
				logger.Error("Error reading from client", zap.Error(err))
			}
			return
		}
	}
}

// Stop closes the listener and open connections, then the adapter
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Debug("Stop called but server is not running")
		return nil
	}

	s.logger.Info("Stopping server")
	s.running = false
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	s.wg.Wait()
	s.logger.Info("All connections closed")

	if s.adapter.IsOpen() {
		if err := s.adapter.Close(); err != nil {
			s.logger.Error("Error closing adapter", zap.Error(err))
			return err
		}
		s.logger.Info("Printer adapter closed")
	}

	s.logger.Info("Server stopped")
	return nil
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the configured address
func (s *Server) Address() string {
	return s.address
}

// ListenAddr returns the bound address, or nil when not running
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || !s.running {
		return nil
	}
	return s.listener.Addr()
}

// GetAdapter returns the underlying adapter
func (s *Server) GetAdapter() adapter.Adapter {
	return s.adapter
}
