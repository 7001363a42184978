// Package crc16 implements the 16-bit cyclic redundancy check, or CRC-16,
// checksum.
package crc16

import "github.com/sourrust/flac/internal/hashutil"

// Size of a CRC-16 checksum in bytes.
const Size = 2

// Predefined polynomials.
const (
	// Buypass is the polynomial used by frame footer checksums;
	// x^16 + x^15 + x^2 + 1. It processes bytes most significant bit first,
	// with zero initial value.
	Buypass = 0x8005
)

// Table is a 256-word table representing the polynomial for efficient
// processing.
type Table [256]uint16

// BuypassTable is the table for the Buypass polynomial.
var BuypassTable = MakeTable(Buypass)

// MakeTable returns the Table constructed from the specified polynomial.
func MakeTable(poly uint16) (table *Table) {
	table = new(Table)
	for i := range table {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// digest represents the partial evaluation of a checksum.
type digest struct {
	crc   uint16
	table *Table
}

// New creates a new hashutil.Hash16 computing the CRC-16 checksum using the
// polynomial represented by the Table.
func New(table *Table) hashutil.Hash16 {
	return &digest{table: table}
}

// NewBuypass creates a new hashutil.Hash16 computing the CRC-16 checksum
// using the Buypass polynomial.
func NewBuypass() hashutil.Hash16 {
	return New(BuypassTable)
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.crc = 0 }

// Update returns the result of adding the bytes in p to the crc.
func Update(crc uint16, table *Table, p []byte) uint16 {
	for _, v := range p {
		crc = crc<<8 ^ table[byte(crc>>8)^v]
	}
	return crc
}

func (d *digest) Write(p []byte) (n int, err error) {
	d.crc = Update(d.crc, d.table, p)
	return len(p), nil
}

func (d *digest) Sum16() uint16 { return d.crc }

func (d *digest) Sum(in []byte) []byte {
	return append(in, byte(d.crc>>8), byte(d.crc))
}

// Checksum returns the CRC-16 checksum of data using the polynomial
// represented by the Table.
func Checksum(data []byte, table *Table) uint16 {
	return Update(0, table, data)
}

// ChecksumBuypass returns the CRC-16 checksum of data using the Buypass
// polynomial.
func ChecksumBuypass(data []byte) uint16 {
	return Update(0, BuypassTable, data)
}
