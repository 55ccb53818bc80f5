package adapter

import (
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos/config"
)

// SerialAdapter writes to a printer on an RS-232 or USB-serial port
type SerialAdapter struct {
	config config.SerialConfig
	port   serial.Port
	logger *zap.Logger
	mu     sync.Mutex
	isOpen bool
}

// NewSerialAdapter creates a serial adapter. The port is not opened.
func NewSerialAdapter(cfg config.SerialConfig, logger *zap.Logger) (*SerialAdapter, error) {
	if cfg.Port == "" {
		return nil, errors.New("port is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SerialAdapter{
		config: cfg,
		logger: logger.With(zap.String("port", cfg.Port)),
	}, nil
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (a *SerialAdapter) mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: a.config.BaudRate,
		DataBits: a.config.DataBits,
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 9600
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	switch a.config.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits: %d", a.config.StopBits)
	}

	switch a.config.Parity {
	case "", "none":
		mode.Parity = serial.NoParity
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("unsupported parity: %s", a.config.Parity)
	}

	return mode, nil
}

// Open opens the serial port
func (a *SerialAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return ErrAlreadyOpen
	}

	mode, err := a.mode()
	if err != nil {
		return err
	}

	port, err := serial.Open(a.config.Port, mode)
	if err != nil {
		a.logger.Error("Failed to open serial port", zap.Error(err))
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	a.port = port
	a.isOpen = true
	a.logger.Info("Serial port opened", zap.Int("baud_rate", a.config.BaudRate))
	return nil
}

// Write sends data to the printer
func (a *SerialAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen || a.port == nil {
		return 0, ErrNotOpen
	}

	n, err := a.port.Write(data)
	if err != nil {
		a.logger.Error("Failed to write to serial port", zap.Error(err), zap.Int("bytes_to_write", len(data)))
		return n, fmt.Errorf("failed to write to serial port: %w", err)
	}

	a.logger.Debug("Data written to serial port", zap.Int("bytes_written", n))
	return n, nil
}

// Close closes the serial port
func (a *SerialAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen || a.port == nil {
		return nil
	}

	err := a.port.Close()
	a.port = nil
	a.isOpen = false
	if err != nil {
		a.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	a.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the port is open
func (a *SerialAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}
