package meta

import (
	"io"
)

// readBytes reads and returns exactly n bytes from the provided io.Reader.
func readBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, unexpected(err)
	}
	return buf, nil
}

// readByte reads and returns a single byte from the provided io.Reader.
func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, unexpected(err)
	}
	return buf[0], nil
}

// isAllZero reports whether every byte of the buffer is zero.
func isAllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// unexpected returns io.ErrUnexpectedEOF if err is io.EOF, and returns err
// otherwise. A metadata block body which ends prematurely is always
// unexpected, as the block header states its length.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
