package crc16

import "testing"

func TestChecksumBuypass(t *testing.T) {
	golden := []struct {
		data string
		want uint16
	}{
		{data: "", want: 0x0000},
		{data: "123456789", want: 0xFEE8},
		{data: "\x00", want: 0x0000},
		{data: "\x01", want: 0x8005},
	}
	for _, g := range golden {
		got := ChecksumBuypass([]byte(g.data))
		if g.want != got {
			t.Errorf("checksum mismatch for %q; expected 0x%04X, got 0x%04X", g.data, g.want, got)
			continue
		}
	}
}

func TestHash16(t *testing.T) {
	h := NewBuypass()
	h.Write([]byte("12345"))
	h.Write([]byte("6789"))
	want := ChecksumBuypass([]byte("123456789"))
	if got := h.Sum16(); got != want {
		t.Errorf("running hash mismatch; expected 0x%04X, got 0x%04X", want, got)
	}
	h.Reset()
	if got := h.Sum16(); got != 0 {
		t.Errorf("hash not cleared after reset; got 0x%04X", got)
	}
}
