package can

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadFrameText = errors.New("malformed frame text")

// ParseText decodes a candump-style frame such as "18FE4100#010203".
// Three hex digits select a standard identifier, eight an extended one.
// "R" after the '#' marks a remote frame.
func ParseText(s string) (Frame, error) {
	s = strings.TrimSpace(s)
	idPart, dataPart, ok := strings.Cut(s, "#")
	if !ok {
		return Frame{}, fmt.Errorf("%q: missing '#': %w", s, ErrBadFrameText)
	}

	var extended bool
	switch len(idPart) {
	case 3:
	case 8:
		extended = true
	default:
		return Frame{}, fmt.Errorf("%q: identifier must be 3 or 8 hex digits: %w", s, ErrBadFrameText)
	}

	id, err := strconv.ParseUint(idPart, 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("%q: %v: %w", s, err, ErrBadFrameText)
	}
	if (extended && id > ExtendedIDMask) || (!extended && id > StandardIDMask) {
		return Frame{}, fmt.Errorf("%q: identifier out of range: %w", s, ErrBadFrameText)
	}

	if strings.HasPrefix(strings.ToUpper(dataPart), "R") {
		f := NewFrame(uint32(id), extended, nil)
		f.Remote = true
		return f, nil
	}

	data, err := hex.DecodeString(strings.ReplaceAll(dataPart, ".", ""))
	if err != nil {
		return Frame{}, fmt.Errorf("%q: %v: %w", s, err, ErrBadFrameText)
	}
	if len(data) > MaxDataLength {
		return Frame{}, fmt.Errorf("%q: %d data bytes: %w", s, len(data), ErrBadFrameText)
	}
	return NewFrame(uint32(id), extended, data), nil
}

// Text is the inverse of ParseText.
func (f Frame) Text() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "%08X#", f.ID)
	} else {
		fmt.Fprintf(&b, "%03X#", f.ID)
	}
	if f.Remote {
		b.WriteString("R")
		return b.String()
	}
	b.WriteString(strings.ToUpper(hex.EncodeToString(f.Payload())))
	return b.String()
}
