package adapter

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassPrinter = 0x07
)

// EventType represents device events
type EventType int

const (
	EventConnect EventType = iota
	EventData
	EventClose
)

// Event represents a device event
type Event struct {
	Type   EventType
	Device *gousb.Device
	Data   []byte
}

// USBAdapter writes to the bulk OUT endpoint of a USB printer-class interface
type USBAdapter struct {
	device         *gousb.Device
	ctx            *gousb.Context
	config         *gousb.Config
	iface          *gousb.Interface
	outEndpoint    *gousb.OutEndpoint
	logger         *zap.Logger
	eventListeners map[EventType][]func(Event)
	listenersMutex sync.RWMutex
	isOpen         bool
	mu             sync.Mutex
}

func newUSBAdapter(ctx *gousb.Context, logger *zap.Logger) *USBAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &USBAdapter{
		ctx:            ctx,
		logger:         logger,
		eventListeners: make(map[EventType][]func(Event)),
	}
}

// NewUSBAdapter opens the device with the given VID/PID, falling back to the
// first printer found
func NewUSBAdapter(vid, pid uint16, logger *zap.Logger) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	adapter := newUSBAdapter(ctx, logger)

	device, err := GetDeviceByVIDPID(ctx, vid, pid)
	if err != nil {
		adapter.logger.Warn("Printer not found by VID/PID, trying auto-detection",
			zap.String("vid", gousb.ID(vid).String()),
			zap.String("pid", gousb.ID(pid).String()),
			zap.Error(err),
		)
		devices := FindPrinters(ctx, adapter.logger)
		if len(devices) == 0 {
			ctx.Close()
			return nil, errors.New("cannot find printer")
		}
		closeAllBut(devices, devices[0])
		device = devices[0]
	}

	adapter.device = device
	return adapter, nil
}

// NewUSBAdapterAuto creates adapter with auto-detection
func NewUSBAdapterAuto(logger *zap.Logger) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	adapter := newUSBAdapter(ctx, logger)

	devices := FindPrinters(ctx, adapter.logger)
	if len(devices) == 0 {
		ctx.Close()
		return nil, errors.New("cannot find printer")
	}
	closeAllBut(devices, devices[0])

	adapter.device = devices[0]
	return adapter, nil
}

// NewUSBAdapterBySerial creates an adapter for the device with the given serial number
func NewUSBAdapterBySerial(serial string, logger *zap.Logger) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	adapter := newUSBAdapter(ctx, logger)

	device, err := GetDeviceBySerial(ctx, serial)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	adapter.device = device
	return adapter, nil
}

func closeAllBut(devices []*gousb.Device, keep *gousb.Device) {
	for _, d := range devices {
		if d != keep {
			d.Close()
		}
	}
}

// IsPrinter checks if a device is a printer
func IsPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfg, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}

	cfgDesc, err := dev.Config(cfg)
	if err != nil {
		return false
	}
	defer cfgDesc.Close()

	_, ok := printerInterface(cfgDesc.Desc)
	return ok
}

// printerInterface returns the number of the first printer-class interface
func printerInterface(desc gousb.ConfigDesc) (int, bool) {
	for _, iface := range desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				return iface.Number, true
			}
		}
	}
	return -1, false
}

// FindPrinters returns all USB printer devices
func FindPrinters(ctx *gousb.Context, logger *zap.Logger) []*gousb.Device {
	if logger == nil {
		logger = zap.NewNop()
	}
	printers := []*gousb.Device{}

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true // Check all devices
	})
	if err != nil {
		logger.Debug("Opening some USB devices failed", zap.Error(err))
	}

	for _, dev := range devices {
		if IsPrinter(dev) {
			logger.Info("Found printer", zap.String("device", dev.Desc.String()))
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}

	return printers
}

// GetDeviceByVIDPID opens a device by VID and PID
func GetDeviceByVIDPID(ctx *gousb.Context, vid, pid uint16) (*gousb.Device, error) {
	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, errors.New("device not found")
	}
	return device, nil
}

// GetDeviceBySerial opens a device by serial number
func GetDeviceBySerial(ctx *gousb.Context, serial string) (*gousb.Device, error) {
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil && len(devices) == 0 {
		return nil, err
	}

	for _, dev := range devices {
		s, err := dev.SerialNumber()
		if err == nil && s == serial {
			closeAllBut(devices, dev)
			return dev, nil
		}
	}

	closeAllBut(devices, nil)
	return nil, errors.New("device with serial number not found")
}

// On adds an event listener
func (a *USBAdapter) On(eventType EventType, handler func(Event)) {
	a.listenersMutex.Lock()
	defer a.listenersMutex.Unlock()

	a.eventListeners[eventType] = append(a.eventListeners[eventType], handler)
}

// emit triggers an event
func (a *USBAdapter) emit(event Event) {
	a.listenersMutex.RLock()
	defer a.listenersMutex.RUnlock()

	for _, handler := range a.eventListeners[event.Type] {
		go handler(event)
	}
}

// Open claims the printer interface and its OUT endpoint
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return ErrAlreadyOpen
	}

	if a.device == nil {
		return errors.New("device not found")
	}

	// Set auto-detach kernel driver (usblp) on Linux
	if runtime.GOOS == "linux" {
		a.device.SetAutoDetach(true)
	}

	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	ifaceNum, ok := printerInterface(cfg.Desc)
	if !ok {
		cfg.Close()
		return errors.New("no printer interface found")
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction == gousb.EndpointDirectionOut {
			ep, err := iface.OutEndpoint(epDesc.Number)
			if err == nil {
				a.outEndpoint = ep
				break
			}
		}
	}

	if a.outEndpoint == nil {
		iface.Close()
		cfg.Close()
		return errors.New("cannot find output endpoint from printer")
	}

	a.config = cfg
	a.iface = iface
	a.isOpen = true
	a.logger.Info("USB printer opened",
		zap.String("device", a.device.Desc.String()),
		zap.Int("interface", ifaceNum),
	)
	a.emit(Event{Type: EventConnect, Device: a.device})

	return nil
}

// Write sends data to the printer
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen || a.outEndpoint == nil {
		return 0, ErrNotOpen
	}

	a.emit(Event{Type: EventData, Device: a.device, Data: data})

	n, err := a.outEndpoint.Write(data)
	if err != nil {
		a.logger.Error("Failed to write to USB printer", zap.Error(err), zap.Int("bytes_to_write", len(data)))
		return n, fmt.Errorf("write failed: %w", err)
	}

	a.logger.Debug("Data written to USB printer", zap.Int("bytes_written", n))
	return n, nil
}

// Close releases the interface, the device and the libusb context
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	if a.iface != nil {
		a.iface.Close()
		a.iface = nil
		a.outEndpoint = nil
	}

	if a.config != nil {
		if err := a.config.Close(); err != nil {
			errs = append(errs, err)
		}
		a.config = nil
	}

	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if a.ctx != nil {
		if err := a.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		a.ctx = nil
	}

	wasOpen := a.isOpen
	a.isOpen = false
	if wasOpen {
		a.logger.Info("USB printer closed")
		a.emit(Event{Type: EventClose, Device: a.device})
	}
	a.device = nil

	return errors.Join(errs...)
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}

// GetDevice returns the underlying USB device
func (a *USBAdapter) GetDevice() *gousb.Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device
}
