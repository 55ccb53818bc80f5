package escpos

import "fmt"

// Two-dimensional symbol function codes (GS ( k, cn = 49 for QR code).
const (
	qrModel       = 49
	fnQRStore     = 80
	fnQRSize      = 67
	fnQRErrLevel  = 69
	fnQRPrint     = 81
	qrStoreHeader = 48
	qrPrintArg    = 48
)

// SetBarcodeHeight sets the height in dots of subsequent barcodes (GS h n).
func (e *Encoder) SetBarcodeHeight(height int) error {
	if err := checkRange("set_barcode_height", "height", height, 0, maxByte); err != nil {
		return err
	}
	return e.write("set_barcode_height", []byte{GS, 'h', byte(height)})
}

// Barcode prints content as a one-dimensional barcode (GS k m d1...dk NUL).
// The content is sent verbatim and must suit the symbology; the printer
// decides what to do with characters it cannot encode.
func (e *Encoder) Barcode(content string, typ BarcodeType) error {
	frame := make([]byte, 0, len(content)+4)
	frame = append(frame, GS, 'k', byte(typ))
	frame = append(frame, content...)
	frame = append(frame, NUL)
	return e.write("barcode", frame)
}

// QRCode stores content in the printer's symbol buffer, sets the error
// correction level and module size, then prints the symbol.
//
// size is the module width in dots (1 to 16). Four frames are written in a
// fixed order; if one fails the remaining frames are not sent and the printer
// is left holding whatever was stored. The printer never reports whether the
// symbol could be built, e.g. when the content is too dense for the level.
func (e *Encoder) QRCode(content string, size int, level QRErrorLevel) error {
	limit := MaxQRContent
	if e.extendedQR {
		limit = MaxExtendedQRContent
	}
	if len(content) > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrQRContentTooLong, len(content), limit)
	}
	if err := checkRange("qrcode", "size", size, MinQRSize, MaxQRSize); err != nil {
		return err
	}
	if err := checkRange("qrcode", "level", int(level), int(QRLevelL), int(QRLevelH)); err != nil {
		return err
	}

	store := make([]byte, 0, len(content)+1)
	store = append(store, qrStoreHeader)
	store = append(store, content...)

	frames := []struct {
		op   string
		fn   byte
		args []byte
	}{
		{"qrcode_store", fnQRStore, store},
		{"qrcode_error_level", fnQRErrLevel, []byte{byte(level)}},
		{"qrcode_size", fnQRSize, []byte{byte(size)}},
		{"qrcode_print", fnQRPrint, []byte{qrPrintArg}},
	}
	for _, f := range frames {
		if err := e.write(f.op, symbolFrame(f.fn, f.args)); err != nil {
			return err
		}
	}
	return nil
}

// symbolFrame builds GS ( k pL pH cn fn args. The length counts cn, fn and args.
func symbolFrame(fn byte, args []byte) []byte {
	n := len(args) + 2
	frame := make([]byte, 0, n+5)
	frame = append(frame, GS, '(', 'k', byte(n), byte(n>>8), qrModel, fn)
	return append(frame, args...)
}
