// Package adapter provides the printer sinks an escpos.Encoder writes to.
//
// Every adapter is write-only: ESC/POS status queries are not supported.
package adapter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos/config"
)

var (
	// ErrNotOpen is returned by Write before Open or after Close.
	ErrNotOpen = errors.New("device not open")

	// ErrAlreadyOpen is returned by Open on an open adapter.
	ErrAlreadyOpen = errors.New("device already open")

	// ErrUnknownSinkType is returned by New for an unsupported sink.type.
	ErrUnknownSinkType = errors.New("unknown sink type")
)

// Adapter defines the interface for printer communication adapters
type Adapter interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}

// New builds the adapter selected by cfg.Type. The adapter is not opened.
func New(cfg config.Sink, logger *zap.Logger) (Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "adapter"), zap.String("sink", cfg.Type))

	switch cfg.Type {
	case config.SinkUSB:
		if cfg.USB.Serial != "" {
			return NewUSBAdapterBySerial(cfg.USB.Serial, logger)
		}
		if cfg.USB.VendorID != "" {
			vid, pid, err := cfg.USB.IDs()
			if err != nil {
				return nil, err
			}
			return NewUSBAdapter(vid, pid, logger)
		}
		return NewUSBAdapterAuto(logger)
	case config.SinkSerial:
		return NewSerialAdapter(cfg.Serial, logger)
	case config.SinkNetwork:
		return NewNetworkAdapter(cfg.Network, logger)
	case config.SinkFile:
		return NewFileAdapter(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSinkType, cfg.Type)
	}
}
