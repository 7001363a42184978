package frame

import (
	stderrors "errors"
	"io"

	"github.com/pkg/errors"
)

// Error kinds reported while decoding audio frames. Use errors.Is to
// discriminate between them, as the returned errors carry additional
// context.
var (
	// ErrOutOfData signals that the stream ended in the middle of a frame
	// field. It is fatal for the current frame.
	ErrOutOfData = stderrors.New("frame: unexpected end of stream data")
	// ErrMalformedStream signals a structural violation of the frame bit
	// layout; e.g. an invalid sync code, a reserved bit pattern or a frame
	// header CRC-8 mismatch. It is fatal for the current frame and the
	// decoder makes no recovery attempt; resynchronization is up to the
	// caller.
	ErrMalformedStream = stderrors.New("frame: malformed stream")
	// ErrUnsupportedStream signals a structurally valid but unsupported
	// encoding, e.g. an effective bit depth above 32 bits. It is never
	// reported for malformed input.
	ErrUnsupportedStream = stderrors.New("frame: unsupported stream")
	// ErrIntegrity signals a frame footer CRC-16 mismatch. The decoded
	// samples of the frame are still delivered, flagged as unverified,
	// since partial corruption tolerance is a caller policy decision.
	ErrIntegrity = stderrors.New("frame: CRC-16 mismatch")
)

// readErr translates errors from reads within the body of a frame. Running
// out of bytes in the middle of a field is reported as ErrOutOfData.
func readErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.WithStack(ErrOutOfData)
	}
	return errors.WithStack(err)
}
