// Package frame implements access to FLAC audio frames.
//
// A brief introduction of the FLAC audio format [1] follows. FLAC encoders
// divide the audio stream into blocks through a process called blocking [2].
// A block contains the unencoded audio samples from all channels during a
// short period of time. Each audio block is divided into subblocks, one per
// channel.
//
// There is often a correlation between the left and right channel of stereo
// audio. Using inter-channel prediction [3] the samples of one channel are
// stored as the difference against the samples of another, which lowers the
// number of bits required to represent them.
//
// The encoded audio samples of a subblock are stored in a subframe, using a
// prediction method to model the sound and residuals to correct the
// prediction error. One frame holds the subframes of every channel of a
// block, and a stream consists of metadata followed by frames.
//
//	[1]: https://www.xiph.org/flac/format.html#architecture
//	[2]: https://www.xiph.org/flac/format.html#blocking
//	[3]: https://www.xiph.org/flac/format.html#interchannel
package frame

import (
	"encoding/binary"
	stderrors "errors"
	"hash"
	"io"

	"github.com/pkg/errors"

	"github.com/sourrust/flac/internal/bits"
	"github.com/sourrust/flac/internal/hashutil"
	"github.com/sourrust/flac/internal/hashutil/crc16"
	"github.com/sourrust/flac/meta"
)

// A Frame contains the header and subframes of an audio frame. It holds the
// decoded samples of one block of the audio stream, one subframe per
// channel. After a call to Parse the samples of the subframes are fully
// decoded and decorrelated.
//
// ref: https://www.xiph.org/flac/format.html#frame
type Frame struct {
	// Audio frame header.
	Header
	// One subframe per channel, containing the decoded audio samples of its
	// channel.
	Subframes []*Subframe
	// Specifies if the frame footer CRC-16 matched the decoded frame. A
	// frame with a checksum mismatch is reported with ErrIntegrity, and its
	// samples are delivered unverified.
	Verified bool
	// Underlying io.Reader.
	r io.Reader
	// Reader tee; anything read through hr updates the running CRC-16.
	hr io.Reader
	// Running CRC-16 of the frame, verified against the frame footer.
	crc hashutil.Hash16
	// Properties of the enclosing stream, used to resolve frame header
	// fields which defer to StreamInfo and to validate the frame against the
	// stream.
	info *meta.StreamInfo
}

// New creates a new Frame for accessing the audio samples of r. It reads and
// parses an audio frame header, and returns io.EOF when the stream ends
// cleanly at a frame boundary. Call Frame.Parse to parse the audio samples
// of its subframes.
func New(r io.Reader, info *meta.StreamInfo) (f *Frame, err error) {
	crc := crc16.NewBuypass()
	f = &Frame{r: r, crc: crc, info: info}
	f.hr = io.TeeReader(r, crc)
	if err := f.parseHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse reads and parses the header and the subframes of an audio frame. It
// returns io.EOF when the stream ends cleanly at a frame boundary. If the
// frame footer CRC-16 does not match, the frame is returned along with
// ErrIntegrity and its samples are delivered unverified.
func Parse(r io.Reader, info *meta.StreamInfo) (f *Frame, err error) {
	f, err = New(r, info)
	if err != nil {
		return nil, err
	}
	if err := f.Parse(); err != nil {
		if stderrors.Is(err, ErrIntegrity) {
			return f, err
		}
		return nil, err
	}
	return f, nil
}

// Parse reads and parses the audio samples of each subframe of the frame,
// decorrelates the channels if they are inter-channel correlated, and
// verifies the frame footer CRC-16. On ErrIntegrity the decoded samples are
// retained, flagged as unverified.
func (f *Frame) Parse() error {
	f.Subframes = make([]*Subframe, f.Channels.Count())
	br := bits.NewReader(f.hr)
	for ch := range f.Subframes {
		// Side channels of inter-channel decorrelation store the difference
		// between two channels, which requires one extra bit-per-sample.
		bps := uint(f.BitsPerSample)
		switch f.Channels {
		case ChannelsLeftSide, ChannelsMidSide:
			if ch == 1 {
				bps++
			}
		case ChannelsSideRight:
			if ch == 0 {
				bps++
			}
		}
		sub, err := f.parseSubframe(br, bps)
		if err != nil {
			return err
		}
		f.Subframes[ch] = sub
	}

	// Zero padding to a byte boundary. The padding bits are covered by the
	// running CRC-16.
	br.Align()

	// Verify the CRC-16 of the frame. The footer checksum is read directly
	// from the underlying reader, as it is not part of its own coverage.
	got := f.crc.Sum16()
	var want uint16
	if err := binary.Read(f.r, binary.BigEndian, &want); err != nil {
		return readErr(err)
	}
	f.decorrelate()
	if want != got {
		return errors.Wrapf(ErrIntegrity, "frame footer CRC-16 mismatch; expected 0x%04X, got 0x%04X", want, got)
	}
	f.Verified = true
	return nil
}

// decorrelate restores the original left and right channel sample values of
// inter-channel decorrelated stereo frames, in place.
//
// ref: https://www.xiph.org/flac/format.html#interchannel
func (f *Frame) decorrelate() {
	switch f.Channels {
	case ChannelsLeftSide:
		// The side channel stores the difference, left - right.
		left := f.Subframes[0].Samples
		side := f.Subframes[1].Samples
		for i := range side {
			side[i] = left[i] - side[i]
		}
	case ChannelsSideRight:
		// The side channel stores the difference, left - right.
		side := f.Subframes[0].Samples
		right := f.Subframes[1].Samples
		for i := range side {
			side[i] += right[i]
		}
	case ChannelsMidSide:
		// The mid channel stores the average of both channels, truncated. Its
		// discarded low bit is recovered from the side channel, as the sum
		// and the difference of two integers have the same parity.
		mid := f.Subframes[0].Samples
		side := f.Subframes[1].Samples
		for i := range mid {
			m := int64(mid[i])<<1 | int64(side[i])&1
			s := int64(side[i])
			mid[i] = int32((m + s) >> 1)
			side[i] = int32((m - s) >> 1)
		}
	}
}

// SampleNumber returns the number of the first sample of the frame within
// the stream.
func (f *Frame) SampleNumber() uint64 {
	if f.HasFixedBlockSize {
		return f.Num * uint64(f.BlockSize)
	}
	return f.Num
}

// Hash adds the decoded audio samples of the frame to a running MD5 hash. It
// is used to verify the audio stream against the MD5 checksum stored in
// StreamInfo. The samples are hashed in the same byte order they are stored
// by the reference encoder; interleaved by channel, little-endian, using the
// lowest whole byte count that fits the sample size.
func (f *Frame) Hash(md5sum hash.Hash) {
	var buf [4]byte
	nbytes := (int(f.BitsPerSample) + 7) / 8
	for i := 0; i < int(f.BlockSize); i++ {
		for _, sub := range f.Subframes {
			x := sub.Samples[i]
			for b := 0; b < nbytes; b++ {
				buf[b] = byte(x)
				x >>= 8
			}
			md5sum.Write(buf[:nbytes])
		}
	}
}
