// Package meshnode holds the value types shared across the node core:
// addresses, key material, and the events the core emits to the
// application layer. Sub-packages under internal/ hold the tables and
// state machines that operate on these types.
package meshnode

import "fmt"

// Address is a 16-bit mesh address. Its type is determined by its bit
// pattern: unassigned, unicast, group, virtual, or fixed-group.
type Address uint16

const (
	UnassignedAddress Address = 0x0000

	groupRangeStart      Address = 0xC000
	fixedGroupRangeStart Address = 0xFF00
	virtualRangeStart    Address = 0x8000
	virtualRangeEnd      Address = 0xBFFF
)

// IsUnassigned reports whether the address is the unassigned sentinel.
func (a Address) IsUnassigned() bool { return a == UnassignedAddress }

// IsUnicast reports whether the address is a unicast address (top bit
// clear, nonzero).
func (a Address) IsUnicast() bool {
	return a != UnassignedAddress && a&0x8000 == 0
}

// IsVirtual reports whether the address falls in the virtual range.
func (a Address) IsVirtual() bool {
	return a >= virtualRangeStart && a <= virtualRangeEnd
}

// IsGroup reports whether the address is a group address, fixed or
// assigned.
func (a Address) IsGroup() bool {
	return a >= groupRangeStart
}

// IsFixedGroup reports whether the address is one of the reserved
// fixed-group addresses (e.g. all-nodes, all-proxies).
func (a Address) IsFixedGroup() bool {
	return a >= fixedGroupRangeStart
}

func (a Address) String() string {
	switch {
	case a.IsUnassigned():
		return "unassigned"
	case a.IsVirtual():
		return fmt.Sprintf("virtual(0x%04x)", uint16(a))
	case a.IsFixedGroup():
		return fmt.Sprintf("fixed-group(0x%04x)", uint16(a))
	case a.IsGroup():
		return fmt.Sprintf("group(0x%04x)", uint16(a))
	case a.IsUnicast():
		return fmt.Sprintf("unicast(0x%04x)", uint16(a))
	default:
		return fmt.Sprintf("0x%04x", uint16(a))
	}
}
