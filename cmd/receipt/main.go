// Command receipt prints a sample receipt exercising every encoder operation.
//
// The printer is selected through the same configuration as the print
// server; -stdout writes the raw bytes to standard output instead, e.g.
//
//	receipt -stdout > /dev/usb/lp0
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos/adapter"
	"github.com/nixxel-company-limited/escpos/config"
	"github.com/nixxel-company-limited/escpos/escpos"
	"github.com/nixxel-company-limited/escpos/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	toStdout := flag.Bool("stdout", false, "write the receipt to standard output")
	qrContent := flag.String("qr", "https://github.com/nixxel-company-limited/escpos", "QR code content")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *toStdout {
		// Keep log lines out of the byte stream
		cfg.Logging.Output = "stderr"
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	var sink io.Writer
	if !*toStdout {
		device, err := adapter.New(cfg.Sink, logger)
		if err != nil {
			logger.Fatal("Failed to create adapter", zap.Error(err))
		}
		if err := device.Open(); err != nil {
			logger.Fatal("Failed to open adapter", zap.Error(err))
		}
		defer device.Close()
		sink = device
	}

	// A nil sink makes the encoder write to standard output
	enc, err := escpos.New(sink, escpos.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to initialize printer", zap.Error(err))
	}

	if err := printReceipt(enc, *qrContent); err != nil {
		logger.Error("Failed to print receipt", zap.Error(err))
		return
	}
	logger.Info("Receipt sent")
}

func printReceipt(enc *escpos.Encoder, qr string) error {
	steps := []func() error{
		enc.JustifyCenter,
		func() error { return enc.TextDoubleHeight("ESC/POS DEMO\n") },
		func() error { return enc.TextNormal("Receipt printer test\n") },
		func() error { return enc.Feed(2) },

		enc.JustifyLeft,
		func() error { return enc.TextNormal("Normal text\n") },
		func() error { return enc.TextSmall("Small text (font B)\n") },
		func() error { return enc.TextBold("Emphasized text\n") },
		func() error { return enc.TextUnderline("Underlined text\n") },
		func() error { return enc.TextDoubleWidth("Double width\n") },
		func() error { return enc.SelectPrintMode(escpos.ModeEmphasized | escpos.ModeDoubleHeight | escpos.ModeDoubleWidth) },
		func() error { return enc.Text("Combined modes\n") },
		func() error { return enc.SelectPrintMode(escpos.ModeFontA) },

		func() error { return enc.SetUnderline(escpos.UnderlineDouble) },
		func() error { return enc.Text("Heavy underline\n") },
		func() error { return enc.SetUnderline(escpos.UnderlineNone) },
		func() error { return enc.SetEmphasis(true) },
		func() error { return enc.Text("Emphasis on\n") },
		func() error { return enc.SetEmphasis(false) },
		func() error { return enc.SetDoubleStrike(true) },
		func() error { return enc.Text("Double strike\n") },
		func() error { return enc.SetDoubleStrike(false) },
		func() error { return enc.SetFont(escpos.FontB) },
		func() error { return enc.Text("Font B\n") },
		func() error { return enc.SetFont(escpos.FontA) },

		enc.JustifyRight,
		func() error { return enc.Text("Right aligned\n") },
		enc.JustifyCenter,
		func() error { return enc.SetBarcodeHeight(80) },
		func() error { return enc.Barcode("ESCPOS-123", escpos.BarcodeCODE39) },
		func() error { return enc.Feed(1) },
		func() error { return enc.QRCode(qr, escpos.DefaultQRSize, escpos.DefaultQRLevel) },
		func() error { return enc.Feed(1) },
		enc.JustifyLeft,

		func() error { return enc.Feed(4) },
		func() error { return enc.FeedReverse(1) },
		enc.FullCut,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
