// Package escpos encodes printer directives into ESC/POS command frames.
//
// An Encoder writes every frame to its sink as soon as the corresponding
// method is called. It keeps no record of the printer state: setters are
// absolute, and the styled text shortcuts do not restore the previous mode.
//
// The channel is one-directional. A nil error means the bytes were accepted
// by the sink, not that the printer understood them.
//
// An Encoder is not safe for concurrent use. Interleaving calls from several
// goroutines corrupts the byte stream, notably inside the four QR code frames.
package escpos

import (
	"io"
	"os"

	"go.uber.org/zap"
)

// Encoder writes ESC/POS frames to an io.Writer.
type Encoder struct {
	w          io.Writer
	logger     *zap.Logger
	extendedQR bool
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger logs every frame at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Encoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExtendedQR lets QRCode use both bytes of the store frame length field,
// accepting content up to MaxExtendedQRContent bytes instead of MaxQRContent.
func WithExtendedQR() Option {
	return func(e *Encoder) {
		e.extendedQR = true
	}
}

// New creates an encoder bound to w and resets the printer (ESC @).
// A nil w selects standard output. The caller keeps ownership of w.
func New(w io.Writer, opts ...Option) (*Encoder, error) {
	if w == nil {
		w = os.Stdout
	}

	e := &Encoder{
		w:      w,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.Initialize(); err != nil {
		return nil, err
	}
	return e, nil
}

// write hands one complete frame to the sink in a single call.
func (e *Encoder) write(op string, frame []byte) error {
	n, err := e.w.Write(frame)
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.logger.Debug("Frame write failed", zap.String("op", op), zap.Int("written", n), zap.Error(err))
		return err
	}

	if ce := e.logger.Check(zap.DebugLevel, "Frame written"); ce != nil {
		ce.Write(zap.String("op", op), zap.Binary("frame", frame))
	}
	return nil
}

// Initialize resets the printer to its power-on state (ESC @).
func (e *Encoder) Initialize() error {
	return e.write("initialize", []byte{ESC, '@'})
}

// Text writes s verbatim. Bytes that collide with control codes are not escaped.
func (e *Encoder) Text(s string) error {
	if s == "" {
		return nil
	}
	return e.write("text", []byte(s))
}

// Write writes p verbatim, so an Encoder can be used as an io.Writer.
func (e *Encoder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := e.write("write", p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Feed prints the buffer and feeds lines lines. A count of 0 or 1 sends a
// single LF, anything larger sends ESC d n.
func (e *Encoder) Feed(lines int) error {
	if err := checkRange("feed", "lines", lines, 0, maxByte); err != nil {
		return err
	}
	if lines <= 1 {
		return e.write("feed", []byte{LF})
	}
	return e.write("feed", []byte{ESC, 'd', byte(lines)})
}

// SelectPrintMode sets the print mode (ESC ! n). Bit combinations are not checked.
func (e *Encoder) SelectPrintMode(mode PrintMode) error {
	return e.write("select_print_mode", []byte{ESC, '!', byte(mode)})
}

func (e *Encoder) styled(mode PrintMode, s string) error {
	if err := e.SelectPrintMode(mode); err != nil {
		return err
	}
	return e.Text(s)
}

// TextNormal selects font A with no other flags and writes s.
func (e *Encoder) TextNormal(s string) error {
	return e.styled(ModeFontA, s)
}

// TextSmall selects font B and writes s.
func (e *Encoder) TextSmall(s string) error {
	return e.styled(ModeFontB, s)
}

// TextBold selects emphasized mode and writes s.
func (e *Encoder) TextBold(s string) error {
	return e.styled(ModeEmphasized, s)
}

// TextUnderline selects underline mode and writes s.
func (e *Encoder) TextUnderline(s string) error {
	return e.styled(ModeUnderline, s)
}

// TextDoubleHeight selects double-height mode and writes s.
func (e *Encoder) TextDoubleHeight(s string) error {
	return e.styled(ModeDoubleHeight, s)
}

// TextDoubleWidth selects double-width mode and writes s.
func (e *Encoder) TextDoubleWidth(s string) error {
	return e.styled(ModeDoubleWidth, s)
}

// SetUnderline sets the underline thickness (ESC - n).
func (e *Encoder) SetUnderline(level Underline) error {
	return e.write("set_underline", []byte{ESC, '-', byte(level)})
}

// SetEmphasis turns emphasized mode on or off (ESC E n).
func (e *Encoder) SetEmphasis(on bool) error {
	return e.write("set_emphasis", []byte{ESC, 'E', boolByte(on)})
}

// SetDoubleStrike turns double-strike mode on or off (ESC G n).
func (e *Encoder) SetDoubleStrike(on bool) error {
	return e.write("set_double_strike", []byte{ESC, 'G', boolByte(on)})
}

// SetFont selects the character font (ESC M n).
func (e *Encoder) SetFont(font Font) error {
	return e.write("set_font", []byte{ESC, 'M', byte(font)})
}

// SetJustification aligns subsequent lines (ESC a n).
func (e *Encoder) SetJustification(j Justification) error {
	return e.write("set_justification", []byte{ESC, 'a', byte(j)})
}

func (e *Encoder) JustifyLeft() error {
	return e.SetJustification(JustifyLeft)
}

func (e *Encoder) JustifyCenter() error {
	return e.SetJustification(JustifyCenter)
}

func (e *Encoder) JustifyRight() error {
	return e.SetJustification(JustifyRight)
}

// FeedReverse prints the buffer and feeds the paper back lines lines (ESC e n).
func (e *Encoder) FeedReverse(lines int) error {
	if err := checkRange("feed_reverse", "lines", lines, 0, maxByte); err != nil {
		return err
	}
	return e.write("feed_reverse", []byte{ESC, 'e', byte(lines)})
}

// Cut feeds lines lines and cuts the paper (GS V m n).
func (e *Encoder) Cut(mode CutMode, lines int) error {
	if err := checkRange("cut", "lines", lines, 0, maxByte); err != nil {
		return err
	}
	return e.write("cut", []byte{GS, 'V', byte(mode), byte(lines)})
}

// FullCut is Cut(CutFull, DefaultCutLines).
func (e *Encoder) FullCut() error {
	return e.Cut(CutFull, DefaultCutLines)
}

// PartialCut is Cut(CutPartial, DefaultCutLines).
func (e *Encoder) PartialCut() error {
	return e.Cut(CutPartial, DefaultCutLines)
}

func boolByte(on bool) byte {
	if on {
		return 1
	}
	return 0
}
