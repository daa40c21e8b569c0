package can

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewFrameTruncates(t *testing.T) {
	f := NewFrame(0xFFFFFFFF, true, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if f.ID != ExtendedIDMask {
		t.Errorf("Expected ID masked to 29 bits, got 0x%X", f.ID)
	}
	if f.Len != 8 {
		t.Errorf("Expected Len 8, got %d", f.Len)
	}
	if !bytes.Equal(f.Payload(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("Unexpected payload % X", f.Payload())
	}

	s := NewFrame(0xFFFF, false, nil)
	if s.ID != StandardIDMask {
		t.Errorf("Expected ID masked to 11 bits, got 0x%X", s.ID)
	}
	if len(s.Payload()) != 0 {
		t.Errorf("Expected empty payload, got % X", s.Payload())
	}
}

func TestPayloadClampsLen(t *testing.T) {
	f := Frame{Len: 15}
	if len(f.Payload()) != MaxDataLength {
		t.Errorf("Expected payload clamped to %d, got %d", MaxDataLength, len(f.Payload()))
	}
}

func TestDecodeWire(t *testing.T) {
	want := NewFrame(0x18FE4100, true, []byte{1, 2, 3})
	got, err := decodeWire(encodeWire(want))
	if err != nil {
		t.Fatalf("decodeWire failed: %v", err)
	}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}

	std := NewFrame(0x123, false, []byte{0xAA})
	got, err = decodeWire(encodeWire(std))
	if err != nil {
		t.Fatalf("decodeWire failed: %v", err)
	}
	if got != std {
		t.Errorf("Expected %v, got %v", std, got)
	}
}

func TestDecodeWireErrorFrame(t *testing.T) {
	buf := encodeWire(NewFrame(0x10, false, nil))
	buf[3] |= 0x20 // CAN_ERR_FLAG
	if _, err := decodeWire(buf); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame for error frame, got %v", err)
	}
}

func TestDecodeWireShort(t *testing.T) {
	if _, err := decodeWire(make([]byte, 8)); err == nil {
		t.Error("Expected error for short read")
	}
}

func TestDecodeWireClampsDLC(t *testing.T) {
	buf := encodeWire(NewFrame(0x1, false, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	buf[4] = 12
	f, err := decodeWire(buf)
	if err != nil {
		t.Fatalf("decodeWire failed: %v", err)
	}
	if f.Len != 8 {
		t.Errorf("Expected Len 8, got %d", f.Len)
	}
}

func TestParseText(t *testing.T) {
	tests := []struct {
		in   string
		want Frame
	}{
		{"18FE4100#010203", NewFrame(0x18FE4100, true, []byte{1, 2, 3})},
		{"123#DEADBEEF", NewFrame(0x123, false, []byte{0xDE, 0xAD, 0xBE, 0xEF})},
		{"  00000001#  ", NewFrame(1, true, nil)},
		{"7FF#01.02", NewFrame(0x7FF, false, []byte{1, 2})},
	}
	for _, tt := range tests {
		got, err := ParseText(tt.in)
		if err != nil {
			t.Errorf("ParseText(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseText(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParseTextRemote(t *testing.T) {
	f, err := ParseText("123#R")
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	if !f.Remote || f.Len != 0 {
		t.Errorf("Expected empty remote frame, got %+v", f)
	}
	if f.Text() != "123#R" {
		t.Errorf("Expected round trip, got %q", f.Text())
	}
}

func TestParseTextInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"123",
		"12#00",
		"1234#00",
		"800#00",
		"20000000#00",
		"XYZ#00",
		"123#0",
		"123#010203040506070809",
	} {
		if _, err := ParseText(in); !errors.Is(err, ErrBadFrameText) {
			t.Errorf("ParseText(%q): expected ErrBadFrameText, got %v", in, err)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	f := NewFrame(0x0CFF1000, true, []byte{0x01, 0xAB})
	got, err := ParseText(f.Text())
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	if got != f {
		t.Errorf("Expected %v, got %v", f, got)
	}
}

func TestMemQueue(t *testing.T) {
	q := NewMemQueue(1)
	if !q.Push(NewFrame(1, false, nil)) {
		t.Fatal("Expected first push to succeed")
	}
	if q.Push(NewFrame(2, false, nil)) {
		t.Error("Expected push into full queue to fail")
	}

	f, err := q.Receive(context.Background())
	if err != nil || f.ID != 1 {
		t.Fatalf("Expected frame 1, got %v (%v)", f, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline error, got %v", err)
	}
}

func TestMemQueueIdleReportsNoFrame(t *testing.T) {
	q := NewMemQueue(1)
	if _, err := q.Receive(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame from an idle queue, got %v", err)
	}
}
