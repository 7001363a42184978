package frame

import (
	"bytes"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/icza/bitio"

	"github.com/sourrust/flac/internal/bits"
)

func TestPredictFixed(t *testing.T) {
	golden := []struct {
		order    int
		warmup   []int32
		residual []int32
		want     []int32
	}{
		{
			order:    3,
			warmup:   []int32{-729, -722, -667},
			residual: []int32{-19, -16, 17, -23, -7, 16, -16, -5, 3, -8, -13, -15, -1},
			want: []int32{-729, -722, -667, -583, -486, -359, -225, -91, 59,
				209, 354, 497, 630, 740, 812, 845},
		},
		{
			order:    2,
			warmup:   []int32{21877, 27482},
			residual: []int32{-6513},
			want:     []int32{21877, 27482, 26574},
		},
		{
			// An order 0 predictor leaves the residuals untouched.
			order:    0,
			warmup:   nil,
			residual: []int32{16, -3, 55, 49},
			want:     []int32{16, -3, 55, 49},
		},
	}
	for i, g := range golden {
		sub := &Subframe{
			SubHeader: SubHeader{Pred: PredFixed, Order: g.order},
			NSamples:  len(g.want),
		}
		sub.Samples = append(append([]int32{}, g.warmup...), g.residual...)
		if err := sub.predict(fixedCoeffs[g.order], 0); err != nil {
			t.Errorf("i=%d: unexpected error; %v", i, err)
			continue
		}
		if !reflect.DeepEqual(g.want, sub.Samples) {
			t.Errorf("i=%d: expected samples %v, got %v", i, g.want, sub.Samples)
		}
	}
}

func TestPredictFIR(t *testing.T) {
	golden := []struct {
		coeffs   []int32
		shift    int32
		warmup   []int32
		residual []int32
		want     []int32
	}{
		{
			coeffs:   []int32{1042, -399, -75, -269, 121, 166, -75},
			shift:    9,
			warmup:   []int32{-796, -547, -285, -32, 199, 443, 670},
			residual: []int32{-2, -23, 14, 6, 3, -4, 12, -2, 10},
			want: []int32{-796, -547, -285, -32, 199, 443, 670, 875, 1046,
				1208, 1343, 1454, 1541, 1616, 1663, 1701},
		},
		{
			coeffs:   []int32{1757, -1199, 879, -836, 555, -255, 119},
			shift:    10,
			warmup:   []int32{-21363, -21951, -22649, -24364, -27297, -26870, -30017},
			residual: []int32{3157},
			want: []int32{-21363, -21951, -22649, -24364, -27297, -26870,
				-30017, -29718},
		},
	}
	for i, g := range golden {
		sub := &Subframe{
			SubHeader: SubHeader{Pred: PredFIR, Order: len(g.coeffs)},
			NSamples:  len(g.want),
		}
		sub.Samples = append(append([]int32{}, g.warmup...), g.residual...)
		if err := sub.predict(g.coeffs, g.shift); err != nil {
			t.Errorf("i=%d: unexpected error; %v", i, err)
			continue
		}
		if !reflect.DeepEqual(g.want, sub.Samples) {
			t.Errorf("i=%d: expected samples %v, got %v", i, g.want, sub.Samples)
		}
	}
}

// testSubframe parses a subframe from the bit writer callback output, using
// the given block size and bits-per-sample.
func testSubframe(t *testing.T, blockSize int, bps uint, write func(bw *bitio.Writer)) (*Subframe, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	bw := bitio.NewWriter(buf)
	write(bw)
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	f := &Frame{Header: Header{BlockSize: uint16(blockSize)}}
	return f.parseSubframe(bits.NewReader(buf), bps)
}

func TestParseSubframeConstant(t *testing.T) {
	sub, err := testSubframe(t, 4, 8, func(bw *bitio.Writer) {
		bw.WriteBits(0, 1)    // zero padding
		bw.WriteBits(0x00, 6) // constant
		bw.WriteBits(0, 1)    // no wasted bits
		bw.WriteBits(4, 8)    // sample value
	})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Pred != PredConstant {
		t.Errorf("expected constant prediction method, got %v", sub.Pred)
	}
	want := []int32{4, 4, 4, 4}
	if !reflect.DeepEqual(want, sub.Samples) {
		t.Errorf("expected samples %v, got %v", want, sub.Samples)
	}
}

func TestParseSubframeVerbatim(t *testing.T) {
	want := []int32{16, -3, 55, 49}
	sub, err := testSubframe(t, len(want), 8, func(bw *bitio.Writer) {
		bw.WriteBits(0, 1)    // zero padding
		bw.WriteBits(0x01, 6) // verbatim
		bw.WriteBits(0, 1)    // no wasted bits
		for _, sample := range want {
			bw.WriteBits(uint64(sample)&0xFF, 8)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Pred != PredVerbatim {
		t.Errorf("expected verbatim prediction method, got %v", sub.Pred)
	}
	if !reflect.DeepEqual(want, sub.Samples) {
		t.Errorf("expected samples %v, got %v", want, sub.Samples)
	}
}

func TestParseSubframeWastedBits(t *testing.T) {
	// A constant subframe with 10 wasted bits-per-sample; the stored sample
	// value 1 decodes to 1 << 10.
	sub, err := testSubframe(t, 4, 16, func(bw *bitio.Writer) {
		bw.WriteBits(0, 1)    // zero padding
		bw.WriteBits(0x00, 6) // constant
		bw.WriteBits(1, 1)    // wasted bits follow
		bw.WriteBits(1, 10)   // unary coded 9, i.e. 10 wasted bits
		bw.WriteBits(1, 6)    // sample value at 16-10 bits
	})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Wasted != 10 {
		t.Errorf("expected 10 wasted bits-per-sample, got %d", sub.Wasted)
	}
	want := []int32{1024, 1024, 1024, 1024}
	if !reflect.DeepEqual(want, sub.Samples) {
		t.Errorf("expected samples %v, got %v", want, sub.Samples)
	}
}

func TestParseSubframeFixed(t *testing.T) {
	// A fixed order 1 subframe; the warm-up sample 10 followed by the Rice
	// coded residuals 1, -1 and 2 with parameter k=0.
	sub, err := testSubframe(t, 4, 8, func(bw *bitio.Writer) {
		bw.WriteBits(0, 1)       // zero padding
		bw.WriteBits(0x08|1, 6)  // fixed, order 1
		bw.WriteBits(0, 1)       // no wasted bits
		bw.WriteBits(10, 8)      // warm-up sample
		bw.WriteBits(0, 2)       // Rice coding with 4-bit parameter
		bw.WriteBits(0, 4)       // partition order 0
		bw.WriteBits(0, 4)       // Rice parameter k=0
		bits.WriteUnary(bw, 2)   // residual 1, zig-zag coded
		bits.WriteUnary(bw, 1)   // residual -1, zig-zag coded
		bits.WriteUnary(bw, 4)   // residual 2, zig-zag coded
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []int32{10, 11, 10, 12}
	if !reflect.DeepEqual(want, sub.Samples) {
		t.Errorf("expected samples %v, got %v", want, sub.Samples)
	}
}

func TestParseSubframeRiceEscape(t *testing.T) {
	// A fixed order 0 subframe with a single escape coded partition of 8 bit
	// wide unencoded residuals.
	want := []int32{16, -3, 55, 49}
	sub, err := testSubframe(t, len(want), 8, func(bw *bitio.Writer) {
		bw.WriteBits(0, 1)    // zero padding
		bw.WriteBits(0x08, 6) // fixed, order 0
		bw.WriteBits(0, 1)    // no wasted bits
		bw.WriteBits(0, 2)    // Rice coding with 4-bit parameter
		bw.WriteBits(0, 4)    // partition order 0
		bw.WriteBits(0xF, 4)  // escape code
		bw.WriteBits(8, 5)    // unencoded residual width
		for _, sample := range want {
			bw.WriteBits(uint64(sample)&0xFF, 8)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, sub.Samples) {
		t.Errorf("expected samples %v, got %v", want, sub.Samples)
	}
}

func TestParseSubframeRiceEscapeZeroWidth(t *testing.T) {
	// An escape coded partition of width 0 holds all zero residuals without
	// storing any bits.
	sub, err := testSubframe(t, 4, 8, func(bw *bitio.Writer) {
		bw.WriteBits(0, 1)    // zero padding
		bw.WriteBits(0x08, 6) // fixed, order 0
		bw.WriteBits(0, 1)    // no wasted bits
		bw.WriteBits(0, 2)    // Rice coding with 4-bit parameter
		bw.WriteBits(0, 4)    // partition order 0
		bw.WriteBits(0xF, 4)  // escape code
		bw.WriteBits(0, 5)    // unencoded residual width 0
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []int32{0, 0, 0, 0}
	if !reflect.DeepEqual(want, sub.Samples) {
		t.Errorf("expected samples %v, got %v", want, sub.Samples)
	}
}

func TestParseSubframeInvalid(t *testing.T) {
	golden := []struct {
		name      string
		blockSize int
		bps       uint
		write     func(bw *bitio.Writer)
		want      error
	}{
		{
			name:      "non-zero padding bit",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(1, 1)
				bw.WriteBits(0x00, 6)
				bw.WriteBits(0, 1)
				bw.WriteBits(4, 8)
			},
			want: ErrMalformedStream,
		},
		{
			name:      "reserved subframe type",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x02, 6) // 000010: reserved
				bw.WriteBits(0, 1)
			},
			want: ErrMalformedStream,
		},
		{
			name:      "reserved fixed order",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x08|5, 6) // fixed order 5: reserved
				bw.WriteBits(0, 1)
			},
			want: ErrMalformedStream,
		},
		{
			name:      "block size not divisible by partition count",
			blockSize: 5,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x08, 6) // fixed, order 0
				bw.WriteBits(0, 1)
				bw.WriteBits(0, 2) // Rice coding with 4-bit parameter
				bw.WriteBits(1, 4) // partition order 1; 5 % 2 != 0
			},
			want: ErrMalformedStream,
		},
		{
			name:      "order exceeds first partition",
			blockSize: 8,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x08|4, 6) // fixed, order 4
				bw.WriteBits(0, 1)
				for i := 0; i < 4; i++ {
					bw.WriteBits(0, 8) // warm-up samples
				}
				bw.WriteBits(0, 2) // Rice coding with 4-bit parameter
				bw.WriteBits(2, 4) // partition order 2; first partition holds 2 < 4 samples
			},
			want: ErrMalformedStream,
		},
		{
			name:      "invalid coefficient precision",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x20, 6) // FIR, order 1
				bw.WriteBits(0, 1)
				bw.WriteBits(0, 8)   // warm-up sample
				bw.WriteBits(0xF, 4) // precision bit pattern 1111: invalid
			},
			want: ErrMalformedStream,
		},
		{
			name:      "negative predictor shift",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x20, 6) // FIR, order 1
				bw.WriteBits(0, 1)
				bw.WriteBits(0, 8)    // warm-up sample
				bw.WriteBits(11, 4)   // precision 12
				bw.WriteBits(0x1F, 5) // shift -1
			},
			want: ErrMalformedStream,
		},
		{
			name:      "reserved residual coding method",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x08, 6) // fixed, order 0
				bw.WriteBits(0, 1)
				bw.WriteBits(2, 2) // 10: reserved
			},
			want: ErrMalformedStream,
		},
		{
			name:      "truncated subframe",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x01, 6) // verbatim
				bw.WriteBits(0, 1)
				bw.WriteBits(0, 8) // one of four samples
			},
			want: ErrOutOfData,
		},
		{
			name:      "wasted bits exceed sample size",
			blockSize: 4,
			bps:       8,
			write: func(bw *bitio.Writer) {
				bw.WriteBits(0, 1)
				bw.WriteBits(0x00, 6) // constant
				bw.WriteBits(1, 1)    // wasted bits follow
				bw.WriteBits(0, 8)    // unary coded 8, i.e. 9 wasted bits
				bw.WriteBits(1, 1)
			},
			want: ErrMalformedStream,
		},
	}
	for _, g := range golden {
		_, err := testSubframe(t, g.blockSize, g.bps, g.write)
		if !errors.Is(err, g.want) {
			t.Errorf("%s: expected %v, got %v", g.name, g.want, err)
		}
	}
}

func TestDecorrelate(t *testing.T) {
	golden := []struct {
		channels Channels
		ch0, ch1 []int32
		want0    []int32
		want1    []int32
	}{
		{
			channels: ChannelsLeftSide,
			ch0:      []int32{2, 5, 83, 113, 127, -63, -45, -15},
			ch1:      []int32{7, 38, 142, 238, 0, -152, -52, -18},
			want0:    []int32{2, 5, 83, 113, 127, -63, -45, -15},
			want1:    []int32{-5, -33, -59, -125, 127, 89, 7, 3},
		},
		{
			channels: ChannelsSideRight,
			ch0:      []int32{7, 38, 142, 238, 0, -152, -52, -18},
			ch1:      []int32{-5, -33, -59, -125, 127, 89, 7, 3},
			want0:    []int32{2, 5, 83, 113, 127, -63, -45, -15},
			want1:    []int32{-5, -33, -59, -125, 127, 89, 7, 3},
		},
		{
			channels: ChannelsMidSide,
			ch0:      []int32{-2, -14, 12, -6, 127, 13, -19, -6},
			ch1:      []int32{7, 38, 142, 238, 0, -152, -52, -18},
			want0:    []int32{2, 5, 83, 113, 127, -63, -45, -15},
			want1:    []int32{-5, -33, -59, -125, 127, 89, 7, 3},
		},
		{
			// Independent channels are left untouched.
			channels: ChannelsLR,
			ch0:      []int32{2, 5, 83, 113},
			ch1:      []int32{7, 38, 142, 238},
			want0:    []int32{2, 5, 83, 113},
			want1:    []int32{7, 38, 142, 238},
		},
	}
	for i, g := range golden {
		f := &Frame{
			Header: Header{Channels: g.channels},
			Subframes: []*Subframe{
				{Samples: append([]int32{}, g.ch0...)},
				{Samples: append([]int32{}, g.ch1...)},
			},
		}
		f.decorrelate()
		if !reflect.DeepEqual(g.want0, f.Subframes[0].Samples) {
			t.Errorf("i=%d: expected channel 0 samples %v, got %v", i, g.want0, f.Subframes[0].Samples)
		}
		if !reflect.DeepEqual(g.want1, f.Subframes[1].Samples) {
			t.Errorf("i=%d: expected channel 1 samples %v, got %v", i, g.want1, f.Subframes[1].Samples)
		}
	}
}

func TestDecorrelateMidSideRoundTrip(t *testing.T) {
	// Mid/side decorrelation must recover the original left and right sample
	// values exactly, including at the extremes of the sample range.
	rng := rand.New(rand.NewSource(1))
	left := []int32{0, -1, 1, 32767, -32768, 32767, -32768}
	right := []int32{0, 1, -1, -32768, 32767, 32767, -32768}
	for i := 0; i < 1000; i++ {
		left = append(left, int32(int16(rng.Uint64())))
		right = append(right, int32(int16(rng.Uint64())))
	}
	mid := make([]int32, len(left))
	side := make([]int32, len(left))
	for i := range left {
		mid[i] = (left[i] + right[i]) >> 1
		side[i] = left[i] - right[i]
	}
	f := &Frame{
		Header: Header{Channels: ChannelsMidSide},
		Subframes: []*Subframe{
			{Samples: mid},
			{Samples: side},
		},
	}
	f.decorrelate()
	for i := range left {
		if f.Subframes[0].Samples[i] != left[i] || f.Subframes[1].Samples[i] != right[i] {
			t.Fatalf("i=%d: expected samples (%d, %d), got (%d, %d)", i, left[i], right[i], f.Subframes[0].Samples[i], f.Subframes[1].Samples[i])
		}
	}
}
