package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sink types
const (
	SinkUSB     = "usb"
	SinkSerial  = "serial"
	SinkNetwork = "network"
	SinkFile    = "file"
)

// EnvPrefix is prepended to every environment variable, e.g. ESCPOS_SINK_TYPE.
const EnvPrefix = "ESCPOS"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig `mapstructure:"server"`
	Sink    Sink         `mapstructure:"sink"`
	Logging Logging      `mapstructure:"logging"`
}

// ServerConfig represents the raw print server configuration
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ResetOnStart bool   `mapstructure:"reset_on_start"`
}

// Sink selects and configures the printer the encoder writes to
type Sink struct {
	Type    string        `mapstructure:"type"`
	Path    string        `mapstructure:"path"`
	USB     USBConfig     `mapstructure:"usb"`
	Serial  SerialConfig  `mapstructure:"serial"`
	Network NetworkConfig `mapstructure:"network"`
}

// USBConfig identifies a USB printer. An empty VendorID selects the first
// printer-class device found.
type USBConfig struct {
	VendorID  string `mapstructure:"vendor_id"`
	ProductID string `mapstructure:"product_id"`
	Serial    string `mapstructure:"serial"`
}

// SerialConfig represents serial port configuration
type SerialConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
}

// NetworkConfig represents a raw TCP printer (usually port 9100)
type NetworkConfig struct {
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Logging represents logging configuration
type Logging struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads the configuration from environment variables and, when path is
// not empty, from that YAML file. Environment variables take precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "localhost:9100")
	v.SetDefault("server.reset_on_start", true)

	v.SetDefault("sink.type", SinkUSB)
	v.SetDefault("sink.path", "")
	v.SetDefault("sink.usb.vendor_id", "")
	v.SetDefault("sink.usb.product_id", "")
	v.SetDefault("sink.usb.serial", "")
	v.SetDefault("sink.serial.port", "")
	v.SetDefault("sink.serial.baud_rate", 9600)
	v.SetDefault("sink.serial.data_bits", 8)
	v.SetDefault("sink.serial.stop_bits", 1)
	v.SetDefault("sink.serial.parity", "none")
	v.SetDefault("sink.network.address", "")
	v.SetDefault("sink.network.timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
}

// Validate checks the fields the selected sink needs
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address is required")
	}

	switch c.Sink.Type {
	case SinkUSB:
		if c.Sink.USB.VendorID != "" || c.Sink.USB.ProductID != "" {
			if _, _, err := c.Sink.USB.IDs(); err != nil {
				return err
			}
		}
	case SinkSerial:
		if c.Sink.Serial.Port == "" {
			return errors.New("sink.serial.port is required for serial sinks")
		}
		if c.Sink.Serial.BaudRate <= 0 {
			return errors.New("sink.serial.baud_rate must be positive")
		}
		switch c.Sink.Serial.Parity {
		case "none", "odd", "even", "mark", "space":
		default:
			return fmt.Errorf("sink.serial.parity %q is not supported", c.Sink.Serial.Parity)
		}
	case SinkNetwork:
		if c.Sink.Network.Address == "" {
			return errors.New("sink.network.address is required for network sinks")
		}
	case SinkFile:
		if c.Sink.Path == "" {
			return errors.New("sink.path is required for file sinks")
		}
	default:
		return fmt.Errorf("sink.type must be one of: %v", []string{SinkUSB, SinkSerial, SinkNetwork, SinkFile})
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// IDs parses the hexadecimal vendor and product IDs
func (u USBConfig) IDs() (vid, pid uint16, err error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(u.VendorID, "0x"), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sink.usb.vendor_id %q: %w", u.VendorID, err)
	}
	p, err := strconv.ParseUint(strings.TrimPrefix(u.ProductID, "0x"), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sink.usb.product_id %q: %w", u.ProductID, err)
	}
	return uint16(v), uint16(p), nil
}
