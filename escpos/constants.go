package escpos

// Control bytes
const (
	NUL = 0x00
	LF  = 0x0A
	ESC = 0x1B
	GS  = 0x1D
)

// PrintMode is a bit set for ESC ! n. Flags are combined with bitwise OR.
type PrintMode byte

const (
	ModeFontA        PrintMode = 0
	ModeFontB        PrintMode = 1
	ModeEmphasized   PrintMode = 8
	ModeDoubleHeight PrintMode = 16
	ModeDoubleWidth  PrintMode = 32
	ModeUnderline    PrintMode = 128
)

// Underline selects the underline thickness for ESC - n.
type Underline byte

const (
	UnderlineNone   Underline = 0
	UnderlineSingle Underline = 1
	UnderlineDouble Underline = 2
)

// Font selects a character font for ESC M n.
type Font byte

const (
	FontA Font = 0
	FontB Font = 1
	FontC Font = 2
)

// Justification for ESC a n.
type Justification byte

const (
	JustifyLeft   Justification = 0
	JustifyCenter Justification = 1
	JustifyRight  Justification = 2
)

// CutMode for GS V m n.
type CutMode byte

const (
	CutFull    CutMode = 65
	CutPartial CutMode = 66
)

// DefaultCutLines is the feed applied before cutting by FullCut and PartialCut.
const DefaultCutLines = 3

// BarcodeType selects the one-dimensional symbology for GS k.
type BarcodeType byte

const (
	BarcodeUPCA    BarcodeType = 0
	BarcodeUPCE    BarcodeType = 1
	BarcodeJAN13   BarcodeType = 2
	BarcodeJAN8    BarcodeType = 3
	BarcodeCODE39  BarcodeType = 4
	BarcodeITF     BarcodeType = 5
	BarcodeCODABAR BarcodeType = 6
)

// QRErrorLevel is the raw device code for the QR error correction level.
type QRErrorLevel byte

const (
	QRLevelL QRErrorLevel = 48
	QRLevelM QRErrorLevel = 49
	QRLevelQ QRErrorLevel = 50
	QRLevelH QRErrorLevel = 51
)

// QR defaults
const (
	DefaultQRSize  = 5
	DefaultQRLevel = QRLevelQ

	MinQRSize = 1
	MaxQRSize = 16
)

// MaxQRContent is the longest payload whose store frame length fits the low
// length byte. MaxExtendedQRContent is the QR model 2 capacity, reachable
// with WithExtendedQR.
const (
	MaxQRContent         = 255 - 3
	MaxExtendedQRContent = 7089
)

const maxByte = 255
