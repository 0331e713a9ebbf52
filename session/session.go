// Package session implements the boot-protocol session:
// device open, baud negotiation, ID authentication, area-info
// discovery, and the DLM/OSIS/boundary/param/key sub-protocols. The
// streamed bulk transfer flows (erase/read/write/crc/blank-check/
// verify) live alongside it in bulk.go, since both share the same
// session state and single-threaded call discipline.
package session

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/daedaluz/radfu/area"
	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/protocol/handshake"
	"github.com/daedaluz/radfu/transport"
)

// DeviceGroup identifies the MCU family inferred from the handshake's
// boot code.
type DeviceGroup int

const (
	GroupUnknown  DeviceGroup = iota
	GroupRA2RA4               // Cortex-M4/M23, boot code 0xC3
	GroupRA4M2RA6             // Cortex-M33, boot code 0xC6
	GroupRA8                  // Cortex-M85, boot code 0xC5
)

func (g DeviceGroup) String() string {
	switch g {
	case GroupRA2RA4:
		return "RA2/RA4"
	case GroupRA4M2RA6:
		return "RA4M2/RA6"
	case GroupRA8:
		return "RA8"
	default:
		return "unknown"
	}
}

func groupFromBootCode(code byte) DeviceGroup {
	switch code {
	case protocol.BootCodeCortexM4:
		return GroupRA2RA4
	case protocol.BootCodeCortexM33:
		return GroupRA4M2RA6
	case protocol.BootCodeCortexM85:
		return GroupRA8
	default:
		return GroupUnknown
	}
}

// Options configure Open. The zero value is usable.
type Options struct {
	// UART marks the link as a raw UART rather than USB-CDC; it
	// controls whether Close restores 9600 bps before closing.
	UART bool
	// Retries bounds the handshake's sync/confirm retry loops; 0
	// selects handshake.DefaultRetries.
	Retries int
}

// Session is the engine's top-level handle: a transport, its
// negotiated state, and the area table discovered at open. It is not
// safe for concurrent use.
type Session struct {
	t             transport.Transport
	opts          Options
	baud          int
	group         DeviceGroup
	bootCode      byte
	areas         area.Map
	authenticated bool
	uart          bool
	raisedBaud    bool
}

// ProtocolStateError reports an operation attempted in the wrong
// session state or with an invalid mode, e.g. an unknown OSIS mode.
type ProtocolStateError struct {
	Reason string
}

func (e *ProtocolStateError) Error() string { return fmt.Sprintf("session: %s", e.Reason) }

// Open performs the handshake, discovers the four memory areas, and
// returns a ready-to-use Session. t should be freshly opened at 9600
// bps; Open does not change the line rate itself --
// callers that want a faster link call SetBaud afterward.
func Open(t transport.Transport, opts Options) (*Session, error) {
	res, err := handshake.Connect(t, opts.Retries)
	if err != nil {
		return nil, err
	}
	s := &Session{
		t:        t,
		opts:     opts,
		baud:     transport.InitialBaud,
		group:    groupFromBootCode(res.BootCode),
		bootCode: res.BootCode,
		uart:     opts.UART,
	}
	if err := s.discoverAreas(); err != nil {
		return nil, err
	}
	return s, nil
}

// BootCode returns the raw boot-code byte confirmed during handshake.
func (s *Session) BootCode() byte { return s.bootCode }

// Group returns the inferred device family.
func (s *Session) Group() DeviceGroup { return s.group }

// Areas returns the session's discovered area table. Callers must not
// mutate it; it is read-only for the session's lifetime.
func (s *Session) Areas() *area.Map { return &s.areas }

// Authenticated reports whether Authenticate has succeeded this
// session.
func (s *Session) Authenticated() bool { return s.authenticated }

// Close shuts the session down. If the link is a UART whose baud was
// raised above the initial rate, Close best-effort restores 9600 bps
// first so the next Open can resync.
func (s *Session) Close() error {
	if s.uart && s.raisedBaud {
		_ = s.setBaudBestEffort(transport.InitialBaud)
	}
	return s.t.Close()
}

// roundTrip sends a single request and decodes its reply. It is the
// building block every non-streaming session operation is built on.
func (s *Session) roundTrip(cmd byte, payload []byte, timeout time.Duration) (respCmd byte, respPayload []byte, err error) {
	pkt, err := protocol.Pack(cmd, payload, false)
	if err != nil {
		return 0, nil, err
	}
	if err := s.t.Send(pkt); err != nil {
		return 0, nil, err
	}
	return s.readReply(timeout)
}

// readReply reads one framed reply: the SOD, then the 2-byte length
// header, then the rest, each honoring the two-tier timeout policy,
// and decodes it with protocol.Unpack.
func (s *Session) readReply(timeout time.Duration) (cmd byte, payload []byte, err error) {
	sod := make([]byte, 1)
	if err := transport.RecvFull(s.t, sod, timeout); err != nil {
		return 0, nil, err
	}
	hdr := make([]byte, 2)
	if err := transport.RecvFull(s.t, hdr, transport.ContinuationTimeout); err != nil {
		return 0, nil, err
	}
	length := int(hdr[0])<<8 | int(hdr[1])
	if length < 1 {
		return 0, nil, &protocol.FramingError{Reason: "bad length field"}
	}
	rest := make([]byte, length+2) // RCB + (length-1) payload + SUM + ETX
	if err := transport.RecvFull(s.t, rest, transport.ContinuationTimeout); err != nil {
		return 0, nil, err
	}
	full := append(append(sod, hdr...), rest...)
	return protocol.Unpack(full)
}

// ack reads a single success-or-error reply and returns nil on plain
// ack, or the decoded error otherwise.
func (s *Session) ack(timeout time.Duration) error {
	_, _, err := s.readReply(timeout)
	return err
}

// Signature is the decoded reply to GetSignature.
type Signature struct {
	RecommendedMaxBaud uint32
	NumAreas           byte
	DeviceGroup        byte
	BootFirmwareVersion [3]byte
	DeviceID            [16]byte
	ProductName         string
}

// GetSignature sends CmdSignature and decodes the 41-byte reply.
func (s *Session) GetSignature() (*Signature, error) {
	_, payload, err := s.roundTrip(protocol.CmdSignature, nil, transport.InitialTimeout)
	if err != nil {
		return nil, err
	}
	if len(payload) != 41 {
		return nil, &protocol.FramingError{Reason: fmt.Sprintf("signature reply is %d bytes, want 41", len(payload))}
	}
	sig := &Signature{
		RecommendedMaxBaud: binary.BigEndian.Uint32(payload[0:4]),
		NumAreas:           payload[4],
		DeviceGroup:        payload[5],
	}
	copy(sig.BootFirmwareVersion[:], payload[6:9])
	copy(sig.DeviceID[:], payload[9:25])
	sig.ProductName = trimProductName(payload[25:41])
	return sig, nil
}

func trimProductName(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}

// AllEraseID is the vendor "ALeRASE" magic id code that triggers a
// total-area erase on devices whose OSIS setting allows it.
var AllEraseID = [16]byte{'A', 'L', 'e', 'R', 'A', 'S', 'E', 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Authenticate sends the 16-byte id code via CmdIDAuth. On a device
// that doesn't require authentication, the boot firmware replies with
// McuError{ErrCodeFraming}; Authenticate surfaces that error as-is --
// treating it as "no authentication needed" is the *caller's* job
// (see protocol.IsUnauthenticated), not this method's.
func (s *Session) Authenticate(idCode [16]byte) error {
	_, _, err := s.roundTrip(protocol.CmdIDAuth, idCode[:], transport.InitialTimeout)
	if err != nil {
		return err
	}
	s.authenticated = true
	return nil
}

// SetBaud negotiates a new line rate: send CmdBaud, await ack, wait at
// least 1ms, then reprogram the local transport to match.
func (s *Session) SetBaud(rate int) error {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(rate))
	if _, _, err := s.roundTrip(protocol.CmdBaud, payload, transport.InitialTimeout); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)
	if err := s.t.SetBaud(rate); err != nil {
		return err
	}
	s.baud = rate
	if rate > transport.InitialBaud {
		s.raisedBaud = true
	}
	return nil
}

func (s *Session) setBaudBestEffort(rate int) error {
	return s.SetBaud(rate)
}

// NegotiateBaud raises the line rate to the highest the device
// advertises (via GetSignature) not exceeding max, falling back one
// ladder step to 115200 if the raised rate fails a verify-read.
func (s *Session) NegotiateBaud(max int) (int, error) {
	sig, err := s.GetSignature()
	if err != nil {
		return 0, err
	}
	target := transport.BestRate(int(sig.RecommendedMaxBaud))
	if max > 0 && target > max {
		target = transport.BestRate(max)
	}
	if err := s.SetBaud(target); err != nil {
		return 0, err
	}
	if _, err := s.GetSignature(); err != nil {
		// verify-read failed at the new rate: fall back one step.
		if fallbackErr := s.SetBaud(115200); fallbackErr != nil {
			return 0, fallbackErr
		}
		if _, err := s.GetSignature(); err != nil {
			return 0, err
		}
		return 115200, nil
	}
	return target, nil
}

func (s *Session) discoverAreas() error {
	for i := 0; i < 4; i++ {
		payload := []byte{byte(i)}
		_, reply, err := s.roundTrip(protocol.CmdArea, payload, transport.InitialTimeout)
		if err != nil {
			return err
		}
		if len(reply) != 25 {
			return &protocol.FramingError{Reason: fmt.Sprintf("area reply is %d bytes, want 25", len(reply))}
		}
		s.areas.Areas[i] = area.Area{
			KOA: reply[0],
			SAD: binary.BigEndian.Uint32(reply[1:5]),
			EAD: binary.BigEndian.Uint32(reply[5:9]),
			EAU: binary.BigEndian.Uint32(reply[9:13]),
			WAU: binary.BigEndian.Uint32(reply[13:17]),
			RAU: binary.BigEndian.Uint32(reply[17:21]),
			CAU: binary.BigEndian.Uint32(reply[21:25]),
		}
	}
	return nil
}
