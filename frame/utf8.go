package frame

import (
	"github.com/pkg/errors"

	"github.com/sourrust/flac/internal/bits"
)

// decodeUTF8Int decodes and returns a "UTF-8" coded number from the bit
// reader. Frame headers use the UTF-8 variable length encoding, extended to
// sequences of up to 7 bytes, to store the frame or sample number.
//
//	header byte  continuation bytes  decoded bits
//	0xxxxxxx     0                    7
//	110xxxxx     1                   11
//	1110xxxx     2                   16
//	11110xxx     3                   21
//	111110xx     4                   26
//	1111110x     5                   31
//	11111110     6                   36
func decodeUTF8Int(br *bits.Reader) (x uint64, err error) {
	c0, err := br.Read(8)
	if err != nil {
		return 0, readErr(err)
	}

	// Number of continuation bytes, determined by the leading ones of c0.
	var l int
	switch {
	case c0&0x80 == 0:
		// 1-byte sequence; the byte is the value.
		return c0, nil
	case c0&0xE0 == 0xC0:
		l, x = 1, c0&0x1F
	case c0&0xF0 == 0xE0:
		l, x = 2, c0&0x0F
	case c0&0xF8 == 0xF0:
		l, x = 3, c0&0x07
	case c0&0xFC == 0xF8:
		l, x = 4, c0&0x03
	case c0&0xFE == 0xFC:
		l, x = 5, c0&0x01
	case c0 == 0xFE:
		l, x = 6, 0
	default:
		// 10xxxxxx (stray continuation byte) or 11111111.
		return 0, errors.Wrapf(ErrMalformedStream, "invalid UTF-8 header byte 0x%02X of encoded number", c0)
	}

	for i := 0; i < l; i++ {
		c, err := br.Read(8)
		if err != nil {
			return 0, readErr(err)
		}
		if c&0xC0 != 0x80 {
			return 0, errors.Wrapf(ErrMalformedStream, "invalid UTF-8 continuation byte 0x%02X of encoded number", c)
		}
		x = x<<6 | c&0x3F
	}
	return x, nil
}
