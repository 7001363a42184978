package bits

// IntN returns the signed two's complement of x with the specified integer
// bit width.
//
// Examples of unsigned (n-bit width) x values on the left and decoded values
// on the right:
//
//	0b011 -> 3
//	0b010 -> 2
//	0b001 -> 1
//	0b000 -> 0
//	0b111 -> -1
//	0b110 -> -2
//	0b101 -> -3
//	0b100 -> -4
func IntN(x uint64, n uint) int64 {
	if x&(1<<(n-1)) != 0 {
		// Sign bit set; extend with ones. A shift count of 64 clears the
		// mask, leaving x unchanged, which is the correct full-width result.
		return int64(x | ^uint64(0)<<n)
	}
	return int64(x)
}
