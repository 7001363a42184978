package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SeekTable contains one or more pre-calculated audio frame seek points.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_seektable
type SeekTable struct {
	// One or more seek points.
	Points []SeekPoint
}

// PlaceholderPoint is the sample number used to mark a seek point as a
// placeholder.
const PlaceholderPoint = 0xFFFFFFFFFFFFFFFF

// A SeekPoint specifies the byte offset and initial sample number of a given
// target frame.
//
// ref: https://www.xiph.org/flac/format.html#seekpoint
type SeekPoint struct {
	// Sample number of the first sample in the target frame, or
	// PlaceholderPoint for a placeholder point.
	SampleNum uint64
	// Offset in bytes from the first byte of the first frame header to the
	// first byte of the target frame's header.
	Offset uint64
	// Number of samples in the target frame.
	NSamples uint16
}

// parseSeekTable reads and parses the body of a SeekTable metadata block.
//
// SeekTable format (pseudo code):
//
//	type METADATA_BLOCK_SEEKTABLE struct {
//	   // The number of seek points is derived from the header length,
//	   // divided by the size of a seek point; which is 18 bytes.
//	   points []point
//	}
//
//	type point struct {
//	   sample_num uint64
//	   offset     uint64
//	   nsamples   uint16
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_seektable
func (block *Block) parseSeekTable() error {
	if block.Length%18 != 0 {
		return fmt.Errorf("meta.Block.parseSeekTable: invalid block length %d; expected a multiple of 18", block.Length)
	}
	n := block.Length / 18
	if n < 1 {
		return errors.New("meta.Block.parseSeekTable: at least one seek point is required")
	}
	table := &SeekTable{Points: make([]SeekPoint, n)}
	block.Body = table
	var prev uint64
	for i := range table.Points {
		point := &table.Points[i]
		if err := binary.Read(block.lr, binary.BigEndian, point); err != nil {
			return unexpected(err)
		}
		// Seek points must be sorted by ascending sample number, with
		// placeholder points at the end of the table.
		if i > 0 && point.SampleNum != PlaceholderPoint && point.SampleNum <= prev {
			return fmt.Errorf("meta.Block.parseSeekTable: seek points not sorted by sample number; %d after %d", point.SampleNum, prev)
		}
		prev = point.SampleNum
	}
	return nil
}
