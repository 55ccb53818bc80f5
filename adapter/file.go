package adapter

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// FileAdapter writes to a device node such as /dev/usb/lp0, or appends to a
// regular file to capture the byte stream
type FileAdapter struct {
	path   string
	file   *os.File
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileAdapter creates a file adapter. Open opens or creates the file.
func NewFileAdapter(path string, logger *zap.Logger) (*FileAdapter, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileAdapter{
		path:   path,
		logger: logger.With(zap.String("path", path)),
	}, nil
}

// Open opens the file write-only, creating it if needed
func (a *FileAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		return ErrAlreadyOpen
	}

	f, err := os.OpenFile(a.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		a.logger.Error("Failed to open printer file", zap.Error(err))
		return fmt.Errorf("failed to open %s: %w", a.path, err)
	}

	a.file = f
	a.logger.Info("Printer file opened")
	return nil
}

// Write sends data to the file
func (a *FileAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return 0, ErrNotOpen
	}

	n, err := a.file.Write(data)
	if err != nil {
		a.logger.Error("Failed to write to printer file", zap.Error(err))
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Close closes the file
func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}

	err := a.file.Close()
	a.file = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", a.path, err)
	}
	return nil
}

// IsOpen returns whether the file is open
func (a *FileAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file != nil
}
