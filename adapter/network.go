package adapter

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos/config"
)

// DefaultNetworkTimeout applies to dialing and to each write when the
// configuration leaves the timeout unset.
const DefaultNetworkTimeout = 5 * time.Second

// NetworkAdapter writes to a printer listening on a raw TCP port (usually 9100)
type NetworkAdapter struct {
	address string
	timeout time.Duration
	conn    net.Conn
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewNetworkAdapter creates a network adapter. Open dials the printer.
func NewNetworkAdapter(cfg config.NetworkConfig, logger *zap.Logger) (*NetworkAdapter, error) {
	if cfg.Address == "" {
		return nil, errors.New("address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultNetworkTimeout
	}
	return &NetworkAdapter{
		address: cfg.Address,
		timeout: timeout,
		logger:  logger.With(zap.String("address", cfg.Address)),
	}, nil
}

// Open dials the printer
func (a *NetworkAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return ErrAlreadyOpen
	}

	dialer := &net.Dialer{
		Timeout:   a.timeout,
		KeepAlive: 30 * time.Second,
	}
	conn, err := dialer.Dial("tcp", a.address)
	if err != nil {
		a.logger.Error("Failed to connect to printer", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", a.address, err)
	}

	a.conn = conn
	a.logger.Info("Connected to network printer")
	return nil
}

// Write sends data to the printer, failing if it is not accepted within the timeout
func (a *NetworkAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return 0, ErrNotOpen
	}

	if err := a.conn.SetWriteDeadline(time.Now().Add(a.timeout)); err != nil {
		return 0, fmt.Errorf("failed to set write deadline: %w", err)
	}

	n, err := a.conn.Write(data)
	if err != nil {
		a.logger.Error("Failed to write to network printer", zap.Error(err), zap.Int("bytes_to_write", len(data)))
		return n, fmt.Errorf("write failed: %w", err)
	}

	a.logger.Debug("Data written to network printer", zap.Int("bytes_written", n))
	return n, nil
}

// Close closes the connection
func (a *NetworkAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return nil
	}

	err := a.conn.Close()
	a.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	a.logger.Info("Disconnected from network printer")
	return nil
}

// IsOpen returns whether the connection is open
func (a *NetworkAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil
}

// Address returns the printer address
func (a *NetworkAdapter) Address() string {
	return a.address
}
