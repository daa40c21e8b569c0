//go:build linux

package can

import (
	"testing"

	"golang.org/x/sys/unix"
)

// passes applies CAN_RAW_FILTER semantics: a frame is delivered when any
// filter matches (id & mask) == (filter.id & mask).
func passes(filters []unix.CanFilter, canID uint32) bool {
	if filters == nil {
		return true
	}
	for _, f := range filters {
		if canID&f.Mask == f.Id&f.Mask {
			return true
		}
	}
	return false
}

func TestAcceptFilters(t *testing.T) {
	extended := uint32(0x18FE4121) | unix.CAN_EFF_FLAG
	extendedLow := uint32(0x00000123) | unix.CAN_EFF_FLAG
	standard := uint32(0x123)
	standardMax := uint32(0x7FF)

	tests := []struct {
		accept Accept
		id     uint32
		want   bool
	}{
		{AcceptExtended, extended, true},
		{AcceptExtended, extendedLow, true},
		{AcceptExtended, standard, false},
		{AcceptExtended, standardMax, false},
		{AcceptStandard, standard, true},
		{AcceptStandard, standardMax, true},
		{AcceptStandard, extended, false},
		{AcceptStandard, extendedLow, false},
		{AcceptAll, extended, true},
		{AcceptAll, standard, true},
	}
	for _, tt := range tests {
		if got := passes(acceptFilters(tt.accept), tt.id); got != tt.want {
			t.Errorf("%v filter with id 0x%08X: expected %v, got %v", tt.accept, tt.id, tt.want, got)
		}
	}
}

func TestAcceptAllHasNoFilter(t *testing.T) {
	if f := acceptFilters(AcceptAll); f != nil {
		t.Errorf("Expected no kernel filter, got %v", f)
	}
}
