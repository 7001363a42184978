package frame

import (
	"github.com/pkg/errors"

	"github.com/sourrust/flac/internal/bits"
)

// A Subframe contains the decoded audio samples of one channel.
//
// ref: https://www.xiph.org/flac/format.html#subframe
type Subframe struct {
	// Subframe header, specifying the prediction method and order of the
	// subframe.
	SubHeader
	// Decoded audio samples. Samples is initially nil and gets populated by
	// the decode methods, first with warm-up samples and residuals, then in
	// place with the predicted sample values.
	Samples []int32
	// Number of audio samples in the subframe.
	NSamples int
}

// A SubHeader specifies the prediction method and order of a subframe.
//
// ref: https://www.xiph.org/flac/format.html#subframe_header
type SubHeader struct {
	// Specifies the prediction method used to encode the audio samples of
	// the subframe.
	Pred Pred
	// Prediction order used by fixed and FIR linear prediction.
	Order int
	// Number of wasted bits-per-sample. Samples are stored right shifted by
	// Wasted bits and shifted back after decoding.
	Wasted uint
}

// Pred specifies the prediction method used to encode the audio samples of a
// subframe.
type Pred uint8

// Prediction methods.
const (
	// PredConstant specifies that the subframe contains a constant sound. The
	// audio samples are encoded as a single sample value.
	PredConstant Pred = iota
	// PredVerbatim specifies that the subframe contains unencoded audio
	// samples. Often used for random sound, which is hard to predict.
	PredVerbatim
	// PredFixed specifies that the subframe encodes audio samples with a
	// fixed polynomial predictor of order 0-4.
	PredFixed
	// PredFIR specifies that the subframe encodes audio samples with a
	// finite impulse response (FIR) linear predictor of order 1-32, with
	// coefficients stored in the subframe.
	PredFIR
)

// parseSubframe reads and parses the header and the encoded audio samples of
// a subframe, and restores the original sample values of the channel.
func (f *Frame) parseSubframe(br *bits.Reader, bps uint) (sub *Subframe, err error) {
	sub = &Subframe{NSamples: int(f.BlockSize)}
	if err := sub.parseHeader(br); err != nil {
		return nil, err
	}
	if sub.Wasted >= bps {
		return nil, errors.Wrapf(ErrMalformedStream, "%d wasted bits-per-sample exceeds the %d bit sample size", sub.Wasted, bps)
	}
	bps -= sub.Wasted
	// Side channels carry one extra bit-per-sample, which may push a 32 bit
	// stream beyond the widest sample size the decoder handles.
	if bps > 32 {
		return nil, errors.Wrapf(ErrUnsupportedStream, "%d bits-per-sample exceeds 32", bps)
	}
	if sub.Order > sub.NSamples {
		return nil, errors.Wrapf(ErrMalformedStream, "prediction order %d exceeds the block size %d", sub.Order, sub.NSamples)
	}

	switch sub.Pred {
	case PredConstant:
		err = sub.decodeConstant(br, bps)
	case PredVerbatim:
		err = sub.decodeVerbatim(br, bps)
	case PredFixed:
		err = sub.decodeFixed(br, bps)
	case PredFIR:
		err = sub.decodeFIR(br, bps)
	}
	if err != nil {
		return nil, err
	}

	// Left shift all samples by the number of wasted bits-per-sample.
	if sub.Wasted > 0 {
		for i := range sub.Samples {
			sub.Samples[i] <<= sub.Wasted
		}
	}
	return sub, nil
}

// parseHeader reads and parses the header of a subframe.
//
// Subframe header format (pseudo code):
//
//	type SUBFRAME_HEADER struct {
//	   _          uint1 // zero-padding, to prevent sync-fooling.
//	   type       uint6
//	   // 0: no wasted bits-per-sample in source subblock, k = 0.
//	   // 1: k wasted bits-per-sample in source subblock, k-1 follows,
//	   //    unary coded.
//	   wasted_flag uint1
//	}
//
// ref: https://www.xiph.org/flac/format.html#subframe_header
func (sub *Subframe) parseHeader(br *bits.Reader) error {
	// Zero padding (size: 1 bit).
	x, err := br.Read(1)
	if err != nil {
		return readErr(err)
	}
	if x != 0 {
		return errors.Wrap(ErrMalformedStream, "non-zero padding bit of subframe header")
	}

	// Subframe prediction method (size: 6 bits).
	//    000000: constant.
	//    000001: verbatim.
	//    00001x: reserved.
	//    0001xx: reserved.
	//    001xxx: fixed, xxx=order; reserved if order > 4.
	//    01xxxx: reserved.
	//    1xxxxx: FIR, xxxxx=order-1.
	x, err = br.Read(6)
	if err != nil {
		return readErr(err)
	}
	switch {
	case x == 0x00:
		sub.Pred = PredConstant
	case x == 0x01:
		sub.Pred = PredVerbatim
	case x&0x38 == 0x08:
		order := int(x & 0x07)
		if order > 4 {
			return errors.Wrapf(ErrMalformedStream, "reserved subframe type bit pattern %06b", x)
		}
		sub.Pred = PredFixed
		sub.Order = order
	case x&0x20 != 0:
		sub.Pred = PredFIR
		sub.Order = int(x&0x1F) + 1
	default:
		return errors.Wrapf(ErrMalformedStream, "reserved subframe type bit pattern %06b", x)
	}

	// Wasted bits-per-sample (size: 1+k bits).
	x, err = br.Read(1)
	if err != nil {
		return readErr(err)
	}
	if x != 0 {
		// k-1 follows, unary coded.
		k, err := br.ReadUnary()
		if err != nil {
			return readErr(err)
		}
		sub.Wasted = uint(k) + 1
	}
	return nil
}

// decodeConstant reads a single sample value, which is used for all audio
// samples of the subframe.
//
// ref: https://www.xiph.org/flac/format.html#subframe_constant
func (sub *Subframe) decodeConstant(br *bits.Reader, bps uint) error {
	x, err := br.Read(byte(bps))
	if err != nil {
		return readErr(err)
	}
	sample := int32(bits.IntN(x, bps))
	sub.Samples = make([]int32, sub.NSamples)
	for i := range sub.Samples {
		sub.Samples[i] = sample
	}
	return nil
}

// decodeVerbatim reads the unencoded audio samples of the subframe.
//
// ref: https://www.xiph.org/flac/format.html#subframe_verbatim
func (sub *Subframe) decodeVerbatim(br *bits.Reader, bps uint) error {
	sub.Samples = make([]int32, sub.NSamples)
	for i := range sub.Samples {
		x, err := br.Read(byte(bps))
		if err != nil {
			return readErr(err)
		}
		sub.Samples[i] = int32(bits.IntN(x, bps))
	}
	return nil
}

// fixedCoeffs maps from prediction order to the coefficients of the fixed
// polynomial predictors.
var fixedCoeffs = [...][]int32{
	1: {1},
	2: {2, -1},
	3: {3, -3, 1},
	4: {4, -6, 4, -1},
}

// decodeFixed reads the warm-up samples and the residuals of the subframe,
// and restores the original sample values with a fixed polynomial predictor.
//
// ref: https://www.xiph.org/flac/format.html#subframe_fixed
func (sub *Subframe) decodeFixed(br *bits.Reader, bps uint) error {
	// Warm-up samples; one unencoded sample per prediction order.
	sub.Samples = make([]int32, 0, sub.NSamples)
	for i := 0; i < sub.Order; i++ {
		x, err := br.Read(byte(bps))
		if err != nil {
			return readErr(err)
		}
		sub.Samples = append(sub.Samples, int32(bits.IntN(x, bps)))
	}

	if err := sub.decodeResidual(br); err != nil {
		return err
	}
	// An order 0 predictor has no coefficients; the residuals are the sample
	// values.
	return sub.predict(fixedCoeffs[sub.Order], 0)
}

// decodeFIR reads the warm-up samples, the predictor coefficients and the
// residuals of the subframe, and restores the original sample values with a
// FIR linear predictor.
//
// ref: https://www.xiph.org/flac/format.html#subframe_lpc
func (sub *Subframe) decodeFIR(br *bits.Reader, bps uint) error {
	// Warm-up samples; one unencoded sample per prediction order.
	sub.Samples = make([]int32, 0, sub.NSamples)
	for i := 0; i < sub.Order; i++ {
		x, err := br.Read(byte(bps))
		if err != nil {
			return readErr(err)
		}
		sub.Samples = append(sub.Samples, int32(bits.IntN(x, bps)))
	}

	// Coefficient precision in bits (size: 4 bits); stored as precision-1,
	// where the bit pattern 1111 is invalid.
	x, err := br.Read(4)
	if err != nil {
		return readErr(err)
	}
	if x == 0x0F {
		return errors.Wrap(ErrMalformedStream, "invalid predictor coefficient precision bit pattern 1111")
	}
	prec := uint(x) + 1

	// Predictor shift in bits (size: 5 bits); signed two's complement, but a
	// negative shift never occurs in valid streams.
	x, err = br.Read(5)
	if err != nil {
		return readErr(err)
	}
	shift := int32(bits.IntN(x, 5))
	if shift < 0 {
		return errors.Wrapf(ErrMalformedStream, "negative predictor shift %d", shift)
	}

	// Predictor coefficients, most recent first (size: order * prec bits).
	coeffs := make([]int32, sub.Order)
	for i := range coeffs {
		x, err := br.Read(byte(prec))
		if err != nil {
			return readErr(err)
		}
		coeffs[i] = int32(bits.IntN(x, prec))
	}

	if err := sub.decodeResidual(br); err != nil {
		return err
	}
	return sub.predict(coeffs, shift)
}

// decodeResidual reads the encoded residuals (prediction method errors) of
// the subframe and appends them to sub.Samples.
//
// ref: https://www.xiph.org/flac/format.html#residual
func (sub *Subframe) decodeResidual(br *bits.Reader) error {
	// Residual coding method (size: 2 bits).
	//    00: Rice coding with a 4-bit Rice parameter.
	//    01: Rice coding with a 5-bit Rice parameter.
	//    1x: reserved.
	x, err := br.Read(2)
	if err != nil {
		return readErr(err)
	}
	switch x {
	case 0:
		return sub.decodeRicePart(br, 4)
	case 1:
		return sub.decodeRicePart(br, 5)
	default:
		return errors.Wrapf(ErrMalformedStream, "reserved residual coding method bit pattern %02b", x)
	}
}

// decodeRicePart reads a Rice partitioned residual, using a Rice parameter
// of the specified size in bits.
//
// ref: https://www.xiph.org/flac/format.html#partitioned_rice
// ref: https://www.xiph.org/flac/format.html#partitioned_rice2
func (sub *Subframe) decodeRicePart(br *bits.Reader, paramSize byte) error {
	// Partition order (size: 4 bits). The residual is split into 2^order
	// partitions of equal sample count.
	x, err := br.Read(4)
	if err != nil {
		return readErr(err)
	}
	partOrder := uint(x)
	nparts := 1 << partOrder
	if sub.NSamples%nparts != 0 {
		return errors.Wrapf(ErrMalformedStream, "block size %d is not evenly divisible by 2^%d partitions", sub.NSamples, partOrder)
	}
	partLen := sub.NSamples / nparts

	// The escape bit pattern of the Rice parameter, an all ones pattern,
	// switches the partition to unencoded binary of explicit width.
	escape := uint64(1)<<paramSize - 1
	for i := 0; i < nparts; i++ {
		n := partLen
		if i == 0 {
			// The warm-up samples of the subframe take the place of the first
			// residuals of the first partition.
			n -= sub.Order
			if n < 0 {
				return errors.Wrapf(ErrMalformedStream, "prediction order %d exceeds the %d samples of the first partition", sub.Order, partLen)
			}
		}

		x, err := br.Read(paramSize)
		if err != nil {
			return readErr(err)
		}
		if x == escape {
			// Unencoded residuals of explicit bit width (size: 5 bits).
			width, err := br.Read(5)
			if err != nil {
				return readErr(err)
			}
			for j := 0; j < n; j++ {
				var residual int32
				if width > 0 {
					x, err := br.Read(byte(width))
					if err != nil {
						return readErr(err)
					}
					residual = int32(bits.IntN(x, uint(width)))
				}
				sub.Samples = append(sub.Samples, residual)
			}
			continue
		}

		// Rice coded residuals; an unary coded quotient followed by k bits of
		// remainder, zig-zag mapped to signed values.
		k := byte(x)
		for j := 0; j < n; j++ {
			quo, err := br.ReadUnary()
			if err != nil {
				return readErr(err)
			}
			rem, err := br.Read(k)
			if err != nil {
				return readErr(err)
			}
			sub.Samples = append(sub.Samples, int32(bits.ZigZag(quo<<k|rem)))
		}
	}
	return nil
}

// predict restores the original sample values of the subframe in place,
// adding the prediction of each sample, derived from the coeffs most recent
// samples and right shifted by shift bits, to its residual.
func (sub *Subframe) predict(coeffs []int32, shift int32) error {
	if len(sub.Samples) != sub.NSamples {
		return errors.Wrapf(ErrMalformedStream, "subframe sample count mismatch; expected %d, got %d", sub.NSamples, len(sub.Samples))
	}
	for i := len(coeffs); i < len(sub.Samples); i++ {
		var sum int64
		for j, c := range coeffs {
			sum += int64(c) * int64(sub.Samples[i-1-j])
		}
		sub.Samples[i] += int32(sum >> uint(shift))
	}
	return nil
}
