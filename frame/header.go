package frame

import (
	"io"

	"github.com/pkg/errors"

	"github.com/sourrust/flac/internal/bits"
	"github.com/sourrust/flac/internal/hashutil/crc8"
)

// A Header contains the basic properties of an audio frame, such as its
// block size and channel layout. To facilitate random access decoding each
// frame header starts with a sync code. Every property stored in the frame
// header is decoded without reference to other frames.
//
// ref: https://www.xiph.org/flac/format.html#frame_header
type Header struct {
	// Specifies if the block size is fixed or variable.
	HasFixedBlockSize bool
	// Block size in inter-channel samples, i.e. the number of audio samples
	// in each subframe.
	BlockSize uint16
	// Sample rate in Hz; a 0 value implies unknown, get sample rate from
	// StreamInfo.
	SampleRate uint32
	// Specifies the number of channels (subframes) that exist in the frame,
	// their order and possible inter-channel decorrelation.
	Channels Channels
	// Sample size in bits-per-sample; a 0 value implies unknown, get sample
	// size from StreamInfo.
	BitsPerSample uint8
	// Specifies the frame number if the block size is fixed, and the first
	// sample number in the frame otherwise.
	Num uint64
}

// Channels specifies the number of channels (subframes) that exist in a
// frame, their order and possible inter-channel decorrelation.
type Channels uint8

// Channel assignments. The following abbreviations are used:
//
//	C:   center (directly in front)
//	R:   right (standard stereo)
//	Sr:  side right (directly to the right)
//	Rs:  right surround (back right)
//	Cs:  center surround (rear center)
//	Ls:  left surround (back left)
//	Sl:  side left (directly to the left)
//	L:   left (standard stereo)
//	Lfe: low-frequency effect (placed according to room acoustics)
//
// The first 8 channel constants follow the SMPTE/ITU-R channel order:
//
//	L R C Lfe Ls Rs Sl Sr
const (
	ChannelsMono           Channels = iota // 1 channel: mono.
	ChannelsLR                             // 2 channels: left, right.
	ChannelsLRC                            // 3 channels: left, right, center.
	ChannelsLRLsRs                         // 4 channels: left, right, left surround, right surround.
	ChannelsLRCLsRs                        // 5 channels: left, right, center, left surround, right surround.
	ChannelsLRCLfeLsRs                     // 6 channels: left, right, center, LFE, left surround, right surround.
	ChannelsLRCLfeCsSlSr                   // 7 channels: left, right, center, LFE, center surround, side left, side right.
	ChannelsLRCLfeLsRsSlSr                 // 8 channels: left, right, center, LFE, left surround, right surround, side left, side right.
	ChannelsLeftSide                       // left/side stereo: left, side; using inter-channel decorrelation.
	ChannelsSideRight                      // side/right stereo: side, right; using inter-channel decorrelation.
	ChannelsMidSide                        // mid/side stereo: mid, side; using inter-channel decorrelation.
)

// nchannels maps from a channel assignment to its number of channels.
var nchannels = [...]int{
	ChannelsMono:           1,
	ChannelsLR:             2,
	ChannelsLRC:            3,
	ChannelsLRLsRs:         4,
	ChannelsLRCLsRs:        5,
	ChannelsLRCLfeLsRs:     6,
	ChannelsLRCLfeCsSlSr:   7,
	ChannelsLRCLfeLsRsSlSr: 8,
	ChannelsLeftSide:       2,
	ChannelsSideRight:      2,
	ChannelsMidSide:        2,
}

// Count returns the number of channels (subframes) used by the provided
// channel assignment.
func (channels Channels) Count() int {
	return nchannels[channels]
}

// Sync code of frame headers; 14 bits with the bit pattern 11111111111110.
const syncCode = 0x3FFE

// parseHeader reads and parses the header of an audio frame. An io.EOF
// before the first byte of the sync code signals a clean end of stream.
//
// Frame header format (pseudo code):
//
//	type FRAME_HEADER struct {
//	   sync_code            uint14
//	   _                    uint1
//	   has_variable_blocksize bool
//	   block_size_spec      uint4
//	   sample_rate_spec     uint4
//	   channel_assignment   uint4
//	   sample_size_spec     uint3
//	   _                    uint1
//	   // "UTF-8" coded frame number (fixed block size) or sample number
//	   // (variable block size).
//	   num                  uint36
//	   switch block_size_spec {
//	   case 0110:
//	      block_size uint8  // block_size-1
//	   case 0111:
//	      block_size uint16 // block_size-1
//	   }
//	   switch sample_rate_spec {
//	   case 1100:
//	      sample_rate uint8  // sample rate in kHz
//	   case 1101:
//	      sample_rate uint16 // sample rate in Hz
//	   case 1110:
//	      sample_rate uint16 // sample rate in daHz (tens of Hz)
//	   }
//	   crc8 uint8
//	}
//
// ref: https://www.xiph.org/flac/format.html#frame_header
func (f *Frame) parseHeader() error {
	// A running CRC-8 of the header bytes, verified against the checksum
	// stored in the last byte of the header.
	h8 := crc8.NewATM()
	br := bits.NewReader(io.TeeReader(f.hr, h8))

	// Sync code (size: 14 bits), reserved (size: 1 bit) and blocking
	// strategy (size: 1 bit). The first byte is read on its own, so that an
	// end of stream at a frame boundary is reported as io.EOF rather than as
	// a truncated frame.
	x, err := br.Read(8)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return readErr(err)
	}
	sync := x << 6
	x, err = br.Read(8)
	if err != nil {
		return readErr(err)
	}
	sync |= x >> 2
	if sync != syncCode {
		return errors.Wrapf(ErrMalformedStream, "invalid frame sync code; expected 0x%04X, got 0x%04X", syncCode, sync)
	}
	if x&0x02 != 0 {
		return errors.Wrap(ErrMalformedStream, "non-zero reserved bit after frame sync code")
	}
	// Blocking strategy; 0 for fixed block size, 1 for variable block size.
	f.HasFixedBlockSize = x&0x01 == 0

	// Block size spec (size: 4 bits) and sample rate spec (size: 4 bits).
	// Both may defer the value to a trailing field at the end of the header.
	x, err = br.Read(8)
	if err != nil {
		return readErr(err)
	}
	blockSizeSpec := x >> 4
	sampleRateSpec := x & 0x0F

	// Channel assignment (size: 4 bits), sample size spec (size: 3 bits) and
	// reserved (size: 1 bit).
	x, err = br.Read(8)
	if err != nil {
		return readErr(err)
	}
	// Channel assignment:
	//    0000-0111: (number of independent channels)-1.
	//    1000: left/side stereo.
	//    1001: side/right stereo.
	//    1010: mid/side stereo.
	//    1011-1111: reserved.
	n := x >> 4
	if n > uint64(ChannelsMidSide) {
		return errors.Wrapf(ErrMalformedStream, "reserved channel assignment bit pattern %04b", n)
	}
	f.Channels = Channels(n)

	// Sample size:
	//    000: get from StreamInfo.
	//    001: 8 bits-per-sample.
	//    010: 12 bits-per-sample.
	//    011: reserved.
	//    100: 16 bits-per-sample.
	//    101: 20 bits-per-sample.
	//    110: 24 bits-per-sample.
	//    111: reserved.
	switch n = x >> 1 & 0x07; n {
	case 0:
		f.BitsPerSample = f.info.BitsPerSample
	case 1:
		f.BitsPerSample = 8
	case 2:
		f.BitsPerSample = 12
	case 4:
		f.BitsPerSample = 16
	case 5:
		f.BitsPerSample = 20
	case 6:
		f.BitsPerSample = 24
	default:
		return errors.Wrapf(ErrMalformedStream, "reserved sample size bit pattern %03b", n)
	}
	if x&0x01 != 0 {
		return errors.Wrap(ErrMalformedStream, "non-zero reserved bit of frame header")
	}

	// "UTF-8" coded frame number or sample number.
	f.Num, err = decodeUTF8Int(br)
	if err != nil {
		return err
	}
	if f.HasFixedBlockSize {
		if f.Num >= 1<<31 {
			return errors.Wrapf(ErrMalformedStream, "frame number %d exceeds 31 bits", f.Num)
		}
	} else if f.Num >= 1<<36 {
		return errors.Wrapf(ErrMalformedStream, "sample number %d exceeds 36 bits", f.Num)
	}

	// Block size:
	//    0000: reserved.
	//    0001: 192 samples.
	//    0010-0101: 576 * 2^(n-2) samples.
	//    0110: get 8 bit (block_size-1) from end of header.
	//    0111: get 16 bit (block_size-1) from end of header.
	//    1000-1111: 256 * 2^(n-8) samples.
	switch n = blockSizeSpec; {
	case n == 0:
		return errors.Wrap(ErrMalformedStream, "reserved block size bit pattern")
	case n == 1:
		f.BlockSize = 192
	case n <= 5:
		f.BlockSize = 576 << (n - 2)
	case n == 6:
		x, err = br.Read(8)
		if err != nil {
			return readErr(err)
		}
		f.BlockSize = uint16(x) + 1
	case n == 7:
		x, err = br.Read(16)
		if err != nil {
			return readErr(err)
		}
		// The stored value is block_size-1; 0xFFFF would encode 65536, beyond
		// the valid block size range of 1-65535.
		if x == 0xFFFF {
			return errors.Wrap(ErrMalformedStream, "invalid block size 65536; exceeds 65535")
		}
		f.BlockSize = uint16(x) + 1
	default:
		f.BlockSize = 256 << (n - 8)
	}
	if f.info.BlockSizeMax != 0 && f.BlockSize > f.info.BlockSizeMax {
		return errors.Wrapf(ErrMalformedStream, "block size %d exceeds the maximum block size %d of the stream", f.BlockSize, f.info.BlockSizeMax)
	}

	// Sample rate:
	//    0000: get from StreamInfo.
	//    0001-1011: fixed sample rates, see table below.
	//    1100: get 8 bit sample rate (in kHz) from end of header.
	//    1101: get 16 bit sample rate (in Hz) from end of header.
	//    1110: get 16 bit sample rate (in daHz) from end of header.
	//    1111: invalid, to prevent sync-fooling string of 1s.
	switch n = sampleRateSpec; n {
	case 0:
		f.SampleRate = f.info.SampleRate
	case 1:
		f.SampleRate = 88200
	case 2:
		f.SampleRate = 176400
	case 3:
		f.SampleRate = 192000
	case 4:
		f.SampleRate = 8000
	case 5:
		f.SampleRate = 16000
	case 6:
		f.SampleRate = 22050
	case 7:
		f.SampleRate = 24000
	case 8:
		f.SampleRate = 32000
	case 9:
		f.SampleRate = 44100
	case 10:
		f.SampleRate = 48000
	case 11:
		f.SampleRate = 96000
	case 12:
		x, err = br.Read(8)
		if err != nil {
			return readErr(err)
		}
		f.SampleRate = uint32(x) * 1000
	case 13:
		x, err = br.Read(16)
		if err != nil {
			return readErr(err)
		}
		f.SampleRate = uint32(x)
	case 14:
		x, err = br.Read(16)
		if err != nil {
			return readErr(err)
		}
		f.SampleRate = uint32(x) * 10
	default:
		return errors.Wrapf(ErrMalformedStream, "invalid sample rate bit pattern %04b", n)
	}

	// The frame header must agree with the properties of the stream.
	if f.Channels.Count() != int(f.info.NChannels) {
		return errors.Wrapf(ErrMalformedStream, "frame channel count %d differs from the %d channels of the stream", f.Channels.Count(), f.info.NChannels)
	}
	if f.BitsPerSample != f.info.BitsPerSample {
		return errors.Wrapf(ErrMalformedStream, "frame sample size %d differs from the %d bits-per-sample of the stream", f.BitsPerSample, f.info.BitsPerSample)
	}

	// Verify the CRC-8 of the header. The checksum byte itself is read
	// through the bit reader, so that the running CRC-16 of the frame covers
	// it.
	got := h8.Sum8()
	x, err = br.Read(8)
	if err != nil {
		return readErr(err)
	}
	if want := uint8(x); want != got {
		return errors.Wrapf(ErrMalformedStream, "frame header CRC-8 mismatch; expected 0x%02X, got 0x%02X", want, got)
	}
	return nil
}
