package editor

const (
	keyCtrlA     = 0x01
	keyCtrlC     = 0x03
	keyCtrlD     = 0x04
	keyCtrlE     = 0x05
	keyTab       = 0x09
	keyLF        = 0x0a
	keyCR        = 0x0d
	keyCtrlR     = 0x12
	keyESC       = 0x1b
	keyBackspace = 0x08
	keyDEL       = 0x7f
)

// escResult is the decoded meaning of an ESC [ ... sequence.
type escResult int

const (
	escNone escResult = iota
	escLeft
	escRight
	escUp
	escDown
	escHome
	escEnd
	escDeleteForward
)

// decodeEscape reads the remainder of an ESC [ sequence from next (a
// function returning the next raw byte) and classifies it. It is a
// no-op (escNone) for any sequence gshell does not bind, per spec.md
// §4.5's "ESC [ sequences" row.
func decodeEscape(next func() (byte, error)) escResult {
	b1, err := next()
	if err != nil || b1 != '[' {
		return escNone
	}
	b2, err := next()
	if err != nil {
		return escNone
	}
	switch b2 {
	case 'D':
		return escLeft
	case 'C':
		return escRight
	case 'A':
		return escUp
	case 'B':
		return escDown
	case 'H':
		return escHome
	case 'F':
		return escEnd
	case '3':
		b3, err := next()
		if err != nil || b3 != '~' {
			return escNone
		}
		return escDeleteForward
	default:
		return escNone
	}
}
