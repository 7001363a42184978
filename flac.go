// Package flac provides access to FLAC (Free Lossless Audio Codec) streams.
//
// The basic structure of a FLAC bitstream is:
//   - the four byte string signature "fLaC"
//   - the StreamInfo metadata block
//   - zero or more other metadata blocks
//   - one or more audio frames
//
// ref: https://www.xiph.org/flac/format.html
package flac

import (
	"bufio"
	"bytes"
	"crypto/md5"
	stderrors "errors"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/sourrust/flac/frame"
	"github.com/sourrust/flac/meta"
)

// A Stream contains the metadata and provides access to the audio frames of
// a FLAC bitstream.
//
// ref: https://www.xiph.org/flac/format.html#stream
type Stream struct {
	// The StreamInfo metadata block describes the basic properties of the
	// audio stream.
	Info *meta.StreamInfo
	// Zero or more metadata blocks following StreamInfo.
	Blocks []*meta.Block
	// Underlying buffered reader, positioned at the first byte of the next
	// audio frame.
	r *bufio.Reader
	// Underlying io.Closer of the stream, or nil.
	c io.Closer
}

// New reads the metadata of a FLAC bitstream from r and returns a handle to
// the stream, positioned at the first audio frame. Call Stream.ParseNext to
// decode one frame at a time and Stream.ParseAll to decode the remaining
// frames of the stream.
func New(r io.Reader) (s *Stream, err error) {
	s = &Stream{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		s.c = c
	}
	if err := s.parseMeta(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open reads the metadata of the FLAC bitstream stored in the given file and
// returns a handle to the stream. Callers should close the stream when done
// reading from it.
func Open(path string) (s *Stream, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s, err = New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Parse reads a FLAC bitstream from r and decodes it in full; metadata and
// every audio frame. Use New for more granularity.
func Parse(r io.Reader) (s *Stream, frames []*frame.Frame, err error) {
	s, err = New(r)
	if err != nil {
		return nil, nil, err
	}
	frames, err = s.ParseAll()
	if err != nil {
		return nil, nil, err
	}
	return s, frames, nil
}

// ParseFile reads the FLAC bitstream stored in the given file and decodes it
// in full; metadata and every audio frame.
func ParseFile(path string) (s *Stream, frames []*frame.Frame, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	defer f.Close()
	return Parse(f)
}

// signature marks the beginning of a FLAC bitstream.
const signature = "fLaC"

// parseMeta verifies the signature of the stream and reads its metadata
// blocks. The first metadata block must be StreamInfo.
func (s *Stream) parseMeta() error {
	// Verify the "fLaC" signature (size: 4 bytes).
	var buf [4]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return errors.WithStack(err)
	}
	if string(buf[:]) != signature {
		return errors.Errorf("flac.parseMeta: invalid signature; expected %q, got %q", signature, buf)
	}

	isFirst := true
	for {
		block, err := meta.Parse(s.r)
		if err != nil {
			return errors.WithStack(err)
		}
		if isFirst {
			si, ok := block.Body.(*meta.StreamInfo)
			if !ok {
				return errors.Errorf("flac.parseMeta: first block type is invalid; expected StreamInfo, got %v", block.Type)
			}
			s.Info = si
			isFirst = false
		} else {
			s.Blocks = append(s.Blocks, block)
		}
		if block.IsLast {
			break
		}
	}
	return nil
}

// ParseNext reads and decodes the next audio frame of the stream. It returns
// io.EOF when the stream ends cleanly at a frame boundary. A frame whose
// footer CRC-16 does not match is returned along with frame.ErrIntegrity,
// its samples decoded but unverified.
func (s *Stream) ParseNext() (f *frame.Frame, err error) {
	return frame.Parse(s.r, s.Info)
}

// ParseAll reads and decodes the remaining audio frames of the stream, and
// verifies the decoded audio samples against the MD5 checksum stored in
// StreamInfo, if present. Frames reported with frame.ErrIntegrity are kept,
// their samples unverified; any other error ends decoding and the frames
// decoded so far are returned along with it.
func (s *Stream) ParseAll() (frames []*frame.Frame, err error) {
	md5sum := md5.New()
	for {
		f, err := s.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			if !stderrors.Is(err, frame.ErrIntegrity) {
				return frames, err
			}
		}
		frames = append(frames, f)
		f.Hash(md5sum)
	}
	// An all zero MD5 checksum implies unknown.
	var zero [16]byte
	if s.Info.MD5sum != zero && !bytes.Equal(md5sum.Sum(nil), s.Info.MD5sum[:]) {
		return frames, errors.Errorf("flac.Stream.ParseAll: MD5 checksum mismatch of decoded audio samples; expected %032x, got %032x", s.Info.MD5sum, md5sum.Sum(nil))
	}
	return frames, nil
}

// Resync advances the stream to the next two byte frame sync pattern,
// skipping corrupt data after a decoding error. It stops at the first byte
// of a plausible frame header and returns the number of bytes skipped, or
// io.EOF when the stream ends without another sync pattern.
func (s *Stream) Resync() (skipped int, err error) {
	for {
		buf, err := s.r.Peek(2)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return skipped, err
		}
		// Sync code and a zero reserved bit; 0xFF followed by 0xF8 or 0xF9.
		if buf[0] == 0xFF && buf[1]&0xFE == 0xF8 {
			return skipped, nil
		}
		if _, err := s.r.ReadByte(); err != nil {
			return skipped, err
		}
		skipped++
	}
}

// Close closes the underlying reader of the stream, if it implements
// io.Closer.
func (s *Stream) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
