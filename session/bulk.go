package session

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/daedaluz/radfu/area"
	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/transport"
)

// chunkSize is the fixed payload size of every streamed bulk-transfer
// frame: read chunks carry up to this many bytes, write chunks are
// zero-padded to exactly this many.
const chunkSize = 1024

// bulkState tracks where a streamed transfer is in its
// Idle -> InitSent -> Streaming -> Done/Failed sequence. Read and
// Write each advance a local bulkState through the sequence as they drive their chunk loop, and
// tag any failure with the phase it happened in via BulkError so a
// caller can tell an init-round-trip rejection from a mid-stream
// framing error without inspecting the underlying error.
type bulkState int

const (
	bulkIdle bulkState = iota
	bulkInitSent
	bulkStreaming
	bulkDone
	bulkFailed
)

func (s bulkState) String() string {
	switch s {
	case bulkIdle:
		return "idle"
	case bulkInitSent:
		return "init-sent"
	case bulkStreaming:
		return "streaming"
	case bulkDone:
		return "done"
	case bulkFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BulkError reports a bulk-transfer failure along with the phase it
// happened in, so e.g. a logger or retry
// policy can treat an init-round-trip rejection differently from a
// chunk dropped mid-stream.
type BulkError struct {
	State bulkState
	Err   error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("session: bulk transfer failed (%s): %v", e.State, e.Err)
}

func (e *BulkError) Unwrap() error { return e.Err }

// bulkFail wraps err as a BulkError tagged with the phase it failed
// in and returns the machine's terminal state alongside it, so a
// caller driving the loop can tell the transfer is over without
// inspecting the error.
func bulkFail(phase bulkState, err error) (bulkState, error) {
	return bulkFailed, &BulkError{phase, err}
}

func startEndPayload(start, end uint32) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], start)
	binary.BigEndian.PutUint32(payload[4:8], end)
	return payload
}

func numChunks(start, end uint32) int {
	total := uint64(end) - uint64(start) + 1
	return int((total + chunkSize - 1) / chunkSize)
}

// Erase requests the device erase from start within the area
// containing start, after validating against that area's erase
// alignment unit. size is rounded up to a whole number of erase units;
// size 0 erases to the end of the area.
func (s *Session) Erase(start, size uint32) error {
	end, err := s.areas.Bounds(area.OpErase, start, size)
	if err != nil {
		return err
	}
	_, _, err = s.roundTrip(protocol.CmdErase, startEndPayload(start, end), transport.LongTimeout)
	return err
}

// Read streams the range starting at start back from the device,
// acking each chunk, and returns the assembled image. size is rounded
// up to a whole number of read units; size 0 reads to the end of the
// area containing start.
func (s *Session) Read(start, size uint32) ([]byte, error) {
	end, err := s.areas.Bounds(area.OpRead, start, size)
	if err != nil {
		return nil, err
	}
	state := bulkIdle
	if _, _, err := s.roundTrip(protocol.CmdRead, startEndPayload(start, end), transport.InitialTimeout); err != nil {
		_, err = bulkFail(state, err)
		return nil, err
	}
	state = bulkInitSent
	want := numChunks(start, end)
	total := uint64(end) - uint64(start) + 1
	out := make([]byte, 0, total)
	state = bulkStreaming
	for i := 0; i < want; i++ {
		_, payload, err := s.readReply(transport.InitialTimeout)
		if err != nil {
			_, err = bulkFail(state, err)
			return nil, err
		}
		out = append(out, payload...)
		if err := s.ackChunk(protocol.CmdRead); err != nil {
			_, err = bulkFail(state, err)
			return nil, err
		}
	}
	state = bulkDone
	if uint64(len(out)) > total {
		out = out[:total]
	}
	return out, nil
}

// ackChunk sends the one-byte ack frame (cmd, 0x00 payload, ack-sod
// bit set) the device expects after each received Read chunk.
func (s *Session) ackChunk(cmd byte) error {
	pkt, err := protocol.Pack(cmd, []byte{0x00}, true)
	if err != nil {
		return err
	}
	return s.t.Send(pkt)
}

// Write streams data to start, chunked into chunkSize-byte frames
// (the trailing short chunk zero-padded), each awaiting an
// ack-or-error reply before the next is sent. If verify
// is true, it performs a read-back of the written range and compares
// byte-wise, returning a mismatch error if the device's flash content
// differs.
func (s *Session) Write(start uint32, data []byte, verify bool) error {
	end, err := s.areas.Bounds(area.OpWrite, start, uint32(len(data)))
	if err != nil {
		return err
	}
	state := bulkIdle
	if _, _, err := s.roundTrip(protocol.CmdWrite, startEndPayload(start, end), transport.InitialTimeout); err != nil {
		_, err = bulkFail(state, err)
		return err
	}
	state = bulkStreaming
	for off := 0; off < len(data); off += chunkSize {
		chunk := make([]byte, chunkSize)
		copy(chunk, data[off:])
		pkt, err := protocol.Pack(protocol.CmdWrite, chunk, false)
		if err != nil {
			_, err = bulkFail(state, err)
			return err
		}
		if err := s.t.Send(pkt); err != nil {
			_, err = bulkFail(state, err)
			return err
		}
		if _, _, err := s.readReply(transport.LongTimeout); err != nil {
			_, err = bulkFail(state, err)
			return err
		}
	}
	state = bulkDone
	if !verify {
		return nil
	}
	readBack, err := s.Read(start, uint32(len(data)))
	if err != nil {
		return err
	}
	for i := range data {
		if readBack[i] != data[i] {
			return &VerifyError{Addr: start + uint32(i), Want: data[i], Got: readBack[i]}
		}
	}
	return nil
}

// VerifyError reports the first byte-wise mismatch found by Write's
// verify-on-write pass or by the standalone Verify method.
type VerifyError struct {
	Addr      uint32
	Want, Got byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("session: verify mismatch at %#08x: want %#02x got %#02x", e.Addr, e.Want, e.Got)
}

// Verify reads back [start, start+len(want)) and compares it against
// want byte-wise, independent of any write.
func (s *Session) Verify(start uint32, want []byte) error {
	got, err := s.Read(start, uint32(len(want)))
	if err != nil {
		return err
	}
	for i := range want {
		if got[i] != want[i] {
			return &VerifyError{Addr: start + uint32(i), Want: want[i], Got: got[i]}
		}
	}
	return nil
}

// CRC requests the device's own CRC-32-IEEE-802.3 over [start, end].
func (s *Session) CRC(start, size uint32) (uint32, error) {
	end, err := s.areas.Bounds(area.OpCRC, start, size)
	if err != nil {
		return 0, err
	}
	_, payload, err := s.roundTrip(protocol.CmdCRC, startEndPayload(start, end), transport.LongTimeout)
	if err != nil {
		return 0, err
	}
	if len(payload) != 4 {
		return 0, &protocol.FramingError{Reason: "CRC reply is not 4 bytes"}
	}
	return binary.BigEndian.Uint32(payload), nil
}

// LocalCRC computes the same CRC-32-IEEE-802.3 polynomial locally
// (hash/crc32's stdlib IEEE table) over a buffer already in hand, so
// callers can compare a host-side image against CRC's device-computed
// value without a second read-back.
func LocalCRC(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// BlankCheck reads the range Read resolves for (start, size) and
// reports whether every byte is 0xFF.
func (s *Session) BlankCheck(start, size uint32) (bool, error) {
	data, err := s.Read(start, size)
	if err != nil {
		return false, err
	}
	for _, b := range data {
		if b != 0xFF {
			return false, nil
		}
	}
	return true, nil
}
