// Package area implements the four-entry memory-area table reported
// by the boot firmware: address lookup and per-operation alignment
// bookkeeping.
package area

import "fmt"

// Op selects which of an area's four alignment units governs a
// request.
type Op int

const (
	OpErase Op = iota
	OpRead
	OpWrite
	OpCRC
)

func (o Op) String() string {
	switch o {
	case OpErase:
		return "erase"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpCRC:
		return "crc"
	default:
		return "unknown"
	}
}

// Area is one of the four fixed memory-area slots.
type Area struct {
	KOA byte   // Kind Of Area: high nibble = type, low nibble = index
	SAD uint32 // start address
	EAD uint32 // end address, inclusive
	EAU uint32 // erase alignment unit, bytes (0 = unsupported)
	WAU uint32 // write alignment unit, bytes
	RAU uint32 // read alignment unit, bytes
	CAU uint32 // CRC alignment unit, bytes
}

// Area kind codes, the high nibble of KOA.
const (
	KindCode   byte = 0x0
	KindData   byte = 0x1
	KindConfig byte = 0x2
)

// Kind returns the area's high-nibble type code.
func (a Area) Kind() byte { return a.KOA >> 4 }

// Index returns the area's low-nibble index.
func (a Area) Index() byte { return a.KOA & 0x0F }

func (a Area) alignment(op Op) uint32 {
	switch op {
	case OpErase:
		return a.EAU
	case OpRead:
		return a.RAU
	case OpWrite:
		return a.WAU
	case OpCRC:
		return a.CAU
	default:
		return 0
	}
}

// Map is the four-area table populated by querying protocol.CmdArea
// once per session.
type Map struct {
	Areas [4]Area
}

// UnknownAreaError reports that an address does not fall within any
// configured area.
type UnknownAreaError struct {
	Addr uint32
}

func (e *UnknownAreaError) Error() string {
	return fmt.Sprintf("area: address %#08x is not in any configured area", e.Addr)
}

// AlignmentError reports a caller-provided address or size
// incompatible with the relevant area's alignment, or an operation
// unsupported on that area.
type AlignmentError struct {
	Op    Op
	Addr  uint32
	Align uint32
	// Unsupported is true when Align == 0 on the containing area,
	// meaning Op is not available there at all.
	Unsupported bool
}

func (e *AlignmentError) Error() string {
	if e.Unsupported {
		return fmt.Sprintf("area: %s is unsupported on the area containing %#08x", e.Op, e.Addr)
	}
	return fmt.Sprintf("area: %#08x is not aligned to %d bytes for %s", e.Addr, e.Align, e.Op)
}

// Find returns the unique area slot whose [SAD, EAD] contains addr,
// or an UnknownAreaError. Areas are assumed non-overlapping.
func (m *Map) Find(addr uint32) (*Area, error) {
	for i := range m.Areas {
		a := &m.Areas[i]
		if addr >= a.SAD && addr <= a.EAD {
			return a, nil
		}
	}
	return nil, &UnknownAreaError{Addr: addr}
}

// FindKind returns the first area whose Kind() matches kind, or an
// UnknownAreaError with Addr 0 if no such area is configured.
func (m *Map) FindKind(kind byte) (*Area, error) {
	for i := range m.Areas {
		if m.Areas[i].Kind() == kind {
			return &m.Areas[i], nil
		}
	}
	return nil, &UnknownAreaError{Addr: 0}
}

// Bounds validates and resolves a (start, size) request for op against
// the area containing start:
//   - start must be divisible by the relevant alignment;
//   - size == 0 means "from start to the end of the containing area";
//   - the computed end must not exceed the area's EAD;
//   - an area alignment of 0 for op makes the operation unsupported.
//
// It returns the resolved inclusive end address.
func (m *Map) Bounds(op Op, start uint32, size uint32) (end uint32, err error) {
	a, err := m.Find(start)
	if err != nil {
		return 0, err
	}
	align := a.alignment(op)
	if align == 0 {
		return 0, &AlignmentError{Op: op, Addr: start, Unsupported: true}
	}
	if start%align != 0 {
		return 0, &AlignmentError{Op: op, Addr: start, Align: align}
	}
	if size == 0 {
		return a.EAD, nil
	}
	units := (uint64(size) + uint64(align) - 1) / uint64(align)
	end64 := uint64(start) + units*uint64(align) - 1
	if end64 > uint64(a.EAD) {
		return 0, &AlignmentError{Op: op, Addr: start, Align: align}
	}
	return uint32(end64), nil
}
