package meta

import (
	"fmt"
	"io"

	"github.com/eaburns/bit"
)

// StreamInfo contains information about the FLAC audio stream, such as its
// sample rate and channel count. It must be present as the first metadata
// block of a FLAC stream, and the frame decoder validates every frame header
// against it.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
type StreamInfo struct {
	// Minimum block size (in samples) used in the stream.
	BlockSizeMin uint16
	// Maximum block size (in samples) used in the stream.
	BlockSizeMax uint16
	// Minimum frame size in bytes; a 0 value implies unknown.
	FrameSizeMin uint32
	// Maximum frame size in bytes; a 0 value implies unknown.
	FrameSizeMax uint32
	// Sample rate in Hz; between 1 and 655350 Hz.
	SampleRate uint32
	// Number of channels; between 1 and 8 channels.
	NChannels uint8
	// Sample size in bits-per-sample; between 4 and 32 bits.
	BitsPerSample uint8
	// Total number of inter-channel samples in the stream. A 0 value implies
	// unknown.
	NSamples uint64
	// MD5 checksum of the unencoded audio data.
	MD5sum [16]byte
}

// parseStreamInfo reads and parses the body of a StreamInfo metadata block.
//
// StreamInfo format (pseudo code):
//
//	type METADATA_BLOCK_STREAMINFO struct {
//	   block_size_min  uint16
//	   block_size_max  uint16
//	   frame_size_min  uint24
//	   frame_size_max  uint24
//	   sample_rate     uint20
//	   nchannels       uint3 // (number of channels)-1
//	   bits_per_sample uint5 // (bits-per-sample)-1
//	   nsamples        uint36
//	   md5sum          [16]byte
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
func (block *Block) parseStreamInfo() error {
	br := bit.NewReader(block.lr)
	// block_size_min:  16 bits
	// block_size_max:  16 bits
	// frame_size_min:  24 bits
	// frame_size_max:  24 bits
	// sample_rate:     20 bits
	// nchannels:       3 bits
	// bits_per_sample: 5 bits
	// nsamples:        36 bits
	fields, err := br.ReadFields(16, 16, 24, 24, 20, 3, 5, 36)
	if err != nil {
		return unexpected(err)
	}
	si := &StreamInfo{
		BlockSizeMin:  uint16(fields[0]),
		BlockSizeMax:  uint16(fields[1]),
		FrameSizeMin:  uint32(fields[2]),
		FrameSizeMax:  uint32(fields[3]),
		SampleRate:    uint32(fields[4]),
		NChannels:     uint8(fields[5]) + 1,
		BitsPerSample: uint8(fields[6]) + 1,
		NSamples:      fields[7],
	}
	block.Body = si

	if si.BlockSizeMin < 16 {
		return fmt.Errorf("meta.Block.parseStreamInfo: invalid minimum block size; expected >= 16, got %d", si.BlockSizeMin)
	}
	if si.BlockSizeMax < si.BlockSizeMin {
		return fmt.Errorf("meta.Block.parseStreamInfo: maximum block size (%d) below minimum (%d)", si.BlockSizeMax, si.BlockSizeMin)
	}
	if si.SampleRate == 0 {
		return fmt.Errorf("meta.Block.parseStreamInfo: invalid sample rate; expected > 0")
	}
	if si.BitsPerSample < 4 {
		return fmt.Errorf("meta.Block.parseStreamInfo: invalid sample size; expected >= 4 bits-per-sample, got %d", si.BitsPerSample)
	}

	// MD5 checksum of the unencoded audio data (size: 16 bytes).
	if _, err := io.ReadFull(block.lr, si.MD5sum[:]); err != nil {
		return unexpected(err)
	}
	return nil
}
