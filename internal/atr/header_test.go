package atr

import (
	"bytes"
	"testing"
)

func TestParseHeaderRejectsShortBuffer(t *testing.T) {
	_, err := parseHeader(make([]byte, 10))
	if err == nil {
		t.Fatal("expected HeaderTooShort error")
	}
}

func TestParseHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[0], buf[1] = 0x00, 0x00
	_, err := parseHeader(buf)
	if err == nil {
		t.Fatal("expected InvalidMagic error")
	}
}

func TestParseHeaderRejectsBadSectorSize(t *testing.T) {
	buf := make([]byte, HeaderSize)
	buf[0], buf[1] = 0x96, 0x02
	buf[4], buf[5] = 100, 0 // sector size 100, invalid
	_, err := parseHeader(buf)
	if err == nil {
		t.Fatal("expected invalid sector size error")
	}
}

func TestHeaderEncodeRoundTrip(t *testing.T) {
	h := headerFor(720*128, 128)
	buf := h.encode()
	got, err := parseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestHeaderLeavesReservedByteZero(t *testing.T) {
	h := headerFor(720*256, 256)
	buf := h.encode()
	if buf[7] != 0 {
		t.Errorf("reserved byte 7 = %d, want 0", buf[7])
	}
}

func TestHeaderPreservesNonZeroReservedBytes(t *testing.T) {
	buf := headerFor(720*256, 256).encode()
	for i := 7; i < HeaderSize; i++ {
		buf[i] = byte(0xA0 + i)
	}
	h, err := parseHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	got := h.encode()
	if !bytes.Equal(got[7:16], buf[7:16]) {
		t.Errorf("encode() reserved bytes = %v, want %v (round-tripped verbatim)", got[7:16], buf[7:16])
	}
}
