// Package bits provides bit access operations and binary decoding
// algorithms.
package bits

import "io"

// A Reader handles bit reading operations. It reads bytes from the
// underlying io.Reader one at a time and only when needed, so that hash
// functions attached with io.TeeReader observe exactly the bytes consumed
// so far.
type Reader struct {
	// Underlying reader.
	r io.Reader
	// Current byte being read.
	cur byte
	// Number of unread bits in cur.
	n uint
	// Single byte read buffer.
	buf [1]byte
}

// NewReader returns a new Reader that reads bits from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read reads and returns the next n bits, at most 64. The bits of the
// stream are interpreted most significant bit first. A zero bit count
// returns 0 without reading.
func (br *Reader) Read(n byte) (x uint64, err error) {
	if n == 0 {
		return 0, nil
	}
	if n > 64 {
		panic("bits.Reader.Read: invalid bit count; above 64")
	}
	left := uint(n)
	for left > 0 {
		if br.n == 0 {
			if _, err := io.ReadFull(br.r, br.buf[:]); err != nil {
				return 0, err
			}
			br.cur = br.buf[0]
			br.n = 8
		}
		take := br.n
		if take > left {
			take = left
		}
		x = x<<take | uint64(br.cur>>(br.n-take)&(0xFF>>(8-take)))
		br.n -= take
		left -= take
	}
	return x, nil
}

// Align discards the unread bits of the current byte, so that the next read
// starts at a byte boundary. It returns the number of bits discarded.
func (br *Reader) Align() (skipped uint) {
	skipped = br.n
	br.n = 0
	return skipped
}
