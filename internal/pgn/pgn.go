package pgn

import "fmt"

const (
	// The PGN field occupies identifier bits 9-26.
	fieldShift = 9
	fieldMask  = 0x3FFFF

	dataPageBit         = 1 << 16
	extendedDataPageBit = 1 << 17
)

// Number is a Parameter Group Number split into its routing fields.
// Two Numbers are the same message type iff they compare equal.
type Number struct {
	Specific         uint8
	Format           uint8
	DataPage         bool
	ExtendedDataPage bool
}

// FromRawID extracts the PGN from a 29-bit extended identifier.
// Defined for every input; bits outside 9-26 are ignored.
func FromRawID(raw uint32) Number {
	return FromValue((raw >> fieldShift) & fieldMask)
}

// FromValue splits an 18-bit PGN value. Bits above 17 are ignored.
func FromValue(v uint32) Number {
	return Number{
		Specific:         uint8(v & 0xFF),
		Format:           uint8((v >> 8) & 0xFF),
		DataPage:         v&dataPageBit != 0,
		ExtendedDataPage: v&extendedDataPageBit != 0,
	}
}

// Value returns the 18-bit PGN field.
func (n Number) Value() uint32 {
	v := uint32(n.Specific) | uint32(n.Format)<<8
	if n.DataPage {
		v |= dataPageBit
	}
	if n.ExtendedDataPage {
		v |= extendedDataPageBit
	}
	return v
}

// RawID places the PGN field at its position inside an extended identifier.
// All other identifier bits are zero.
func (n Number) RawID() uint32 {
	return n.Value() << fieldShift
}

func (n Number) String() string {
	return fmt.Sprintf("PGN(0x%05X)", n.Value())
}
