package session

import (
	"encoding/binary"

	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/transport"
)

// Boundary is the secure/non-secure code-flash and data-flash split:
// five big-endian 16-bit KB counts, plus a derived Non-Secure
// Callable view. NSC is computed, not a sixth wire field.
type Boundary struct {
	CFS1 uint16 // code flash secure size, KB
	CFS2 uint16 // code flash secure size 2, KB
	DFS  uint16 // data flash secure size, KB
	SRS1 uint16 // secure region size 1, KB
	SRS2 uint16 // secure region size 2, KB
}

// NSC returns the derived Non-Secure Callable byte range
// [CFS1-SRS1, CFS1), in bytes, or (0,0) if SRS1 is 0 (no NSC region
// configured).
func (b Boundary) NSC() (start, end uint32) {
	if b.SRS1 == 0 {
		return 0, 0
	}
	cfs1 := uint32(b.CFS1) * 1024
	srs1 := uint32(b.SRS1) * 1024
	if srs1 > cfs1 {
		return 0, 0
	}
	return cfs1 - srs1, cfs1
}

// BoundaryGet sends CmdBoundary with no payload and decodes the
// 10-byte reply.
func (s *Session) BoundaryGet() (*Boundary, error) {
	_, payload, err := s.roundTrip(protocol.CmdBoundary, nil, transport.InitialTimeout)
	if err != nil {
		return nil, err
	}
	if len(payload) != 10 {
		return nil, &protocol.FramingError{Reason: "boundary reply is not 10 bytes"}
	}
	return &Boundary{
		CFS1: binary.BigEndian.Uint16(payload[0:2]),
		CFS2: binary.BigEndian.Uint16(payload[2:4]),
		DFS:  binary.BigEndian.Uint16(payload[4:6]),
		SRS1: binary.BigEndian.Uint16(payload[6:8]),
		SRS2: binary.BigEndian.Uint16(payload[8:10]),
	}, nil
}

// BoundarySet sends CmdBoundary with the five fields encoded as the
// request payload and awaits a success-or-error reply.
func (s *Session) BoundarySet(b Boundary) error {
	payload := make([]byte, 10)
	binary.BigEndian.PutUint16(payload[0:2], b.CFS1)
	binary.BigEndian.PutUint16(payload[2:4], b.CFS2)
	binary.BigEndian.PutUint16(payload[4:6], b.DFS)
	binary.BigEndian.PutUint16(payload[6:8], b.SRS1)
	binary.BigEndian.PutUint16(payload[8:10], b.SRS2)
	_, _, err := s.roundTrip(protocol.CmdBoundary, payload, transport.LongTimeout)
	return err
}
