package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sourrust/flac/internal/bits"
)

func TestDecodeUTF8Int(t *testing.T) {
	golden := []struct {
		data []byte
		want uint64
	}{
		{data: []byte{0x00}, want: 0},
		{data: []byte{0x7F}, want: 127},
		{data: []byte{0xC2, 0x80}, want: 128},
		{data: []byte{0xDF, 0xBF}, want: 0x7FF},
		{data: []byte{0xE0, 0xA0, 0x80}, want: 0x800},
		{data: []byte{0xEF, 0xBF, 0xBF}, want: 0xFFFF},
		{data: []byte{0xF0, 0x90, 0x80, 0x80}, want: 0x10000},
		{data: []byte{0xF7, 0xBF, 0xBF, 0xBF}, want: 0x1FFFFF},
		{data: []byte{0xF8, 0x88, 0x80, 0x80, 0x80}, want: 0x200000},
		{data: []byte{0xFC, 0x84, 0x80, 0x80, 0x80, 0x80}, want: 0x4000000},
		// 7-byte sequence; 36 bits, exceeds the range of standard UTF-8.
		{data: []byte{0xFE, 0xBF, 0xBF, 0xBF, 0xBF, 0xBF, 0xBF}, want: 0xFFFFFFFFF},
	}
	for _, g := range golden {
		br := bits.NewReader(bytes.NewReader(g.data))
		got, err := decodeUTF8Int(br)
		if err != nil {
			t.Errorf("data %02X: unexpected error; %v", g.data, err)
			continue
		}
		if got != g.want {
			t.Errorf("data %02X: expected %d, got %d", g.data, g.want, got)
		}
	}
}

func TestDecodeUTF8IntInvalid(t *testing.T) {
	golden := [][]byte{
		// Stray continuation byte.
		{0x80},
		// 0xFF is never valid.
		{0xFF},
		// Continuation byte without high bit pattern 10.
		{0xC2, 0x00},
		{0xE0, 0x80, 0xC0},
	}
	for _, data := range golden {
		br := bits.NewReader(bytes.NewReader(data))
		if _, err := decodeUTF8Int(br); !errors.Is(err, ErrMalformedStream) {
			t.Errorf("data %02X: expected ErrMalformedStream, got %v", data, err)
		}
	}

	// Running out of continuation bytes is reported as out of data.
	br := bits.NewReader(bytes.NewReader([]byte{0xC2}))
	if _, err := decodeUTF8Int(br); !errors.Is(err, ErrOutOfData) {
		t.Errorf("truncated sequence: expected ErrOutOfData, got %v", err)
	}
}
