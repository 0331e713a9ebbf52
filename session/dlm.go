package session

import (
	"fmt"
	"strings"

	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/transport"
)

// DLMState is the MCU's coarse Device Lifecycle Management state.
type DLMState byte

const (
	DLMCM      DLMState = 0x01
	DLMSSD     DLMState = 0x02
	DLMNSECSD  DLMState = 0x03
	DLMDPL     DLMState = 0x04
	DLMLckDbg  DLMState = 0x05
	DLMLckBoot DLMState = 0x06
	DLMRmaReq  DLMState = 0x07
	DLMRmaAck  DLMState = 0x08
)

func (d DLMState) String() string {
	switch d {
	case DLMCM:
		return "CM"
	case DLMSSD:
		return "SSD"
	case DLMNSECSD:
		return "NSECSD"
	case DLMDPL:
		return "DPL"
	case DLMLckDbg:
		return "LCK_DBG"
	case DLMLckBoot:
		return "LCK_BOOT"
	case DLMRmaReq:
		return "RMA_REQ"
	case DLMRmaAck:
		return "RMA_ACK"
	default:
		return fmt.Sprintf("DLM(%#02x)", byte(d))
	}
}

// ParseDLMState parses the CLI's `<state>` argument for dlm-transit/
// dlm-auth, matching DLMState.String()'s names
// case-insensitively.
func ParseDLMState(s string) (DLMState, error) {
	switch strings.ToUpper(s) {
	case "CM":
		return DLMCM, nil
	case "SSD":
		return DLMSSD, nil
	case "NSECSD":
		return DLMNSECSD, nil
	case "DPL":
		return DLMDPL, nil
	case "LCK_DBG":
		return DLMLckDbg, nil
	case "LCK_BOOT":
		return DLMLckBoot, nil
	case "RMA_REQ":
		return DLMRmaReq, nil
	case "RMA_ACK":
		return DLMRmaAck, nil
	default:
		return 0, fmt.Errorf("session: unknown DLM state %q", s)
	}
}

// unauthenticatedTransitions are the directed edges allowed without
// authentication.
var unauthenticatedTransitions = map[DLMState][]DLMState{
	DLMCM:     {DLMSSD},
	DLMSSD:    {DLMNSECSD, DLMDPL},
	DLMNSECSD: {DLMDPL},
	DLMDPL:    {DLMLckDbg, DLMLckBoot},
	DLMLckDbg: {DLMLckBoot},
}

// authenticatedExtra adds SSD/NSECSD re-entry and RMA_REQ targets on
// top of the unauthenticated set for key-proven transitions.
var authenticatedExtra = map[DLMState][]DLMState{
	DLMSSD:    {DLMSSD, DLMRmaReq},
	DLMNSECSD: {DLMNSECSD, DLMRmaReq},
	DLMDPL:    {DLMRmaReq},
}

// CanTransit reports whether from->to is a legal DLM transition given
// whether the caller can prove authorization. LCK_BOOT is
// terminal: no transition out of it is ever legal.
func CanTransit(from, to DLMState, authenticated bool) bool {
	if from == DLMLckBoot {
		return false
	}
	for _, t := range unauthenticatedTransitions[from] {
		if t == to {
			return true
		}
	}
	if authenticated {
		for _, t := range authenticatedExtra[from] {
			if t == to {
				return true
			}
		}
	}
	return false
}

// DLMGet sends CmdDLMGet and returns the device's current DLM state.
func (s *Session) DLMGet() (DLMState, error) {
	_, payload, err := s.roundTrip(protocol.CmdDLMGet, nil, transport.InitialTimeout)
	if err != nil {
		return 0, err
	}
	if len(payload) < 1 {
		return 0, &protocol.FramingError{Reason: "DLM-get reply has no state byte"}
	}
	return DLMState(payload[0]), nil
}

// DLMTransitionError reports a from->to request CanTransit already
// knows is illegal, caught before the device round trip.
type DLMTransitionError struct {
	From, To      DLMState
	Authenticated bool
}

func (e *DLMTransitionError) Error() string {
	return fmt.Sprintf("session: illegal DLM transition %s -> %s (authenticated=%v)", e.From, e.To, e.Authenticated)
}

// DLMTransit requests an unauthenticated transition to to, first
// fetching the device's current state and rejecting the request
// locally via CanTransit if the edge isn't legal rather than spending
// a round trip on a transition the device would refuse anyway.
func (s *Session) DLMTransit(to DLMState) error {
	from, err := s.DLMGet()
	if err != nil {
		return err
	}
	if !CanTransit(from, to, s.authenticated) {
		return &DLMTransitionError{From: from, To: to, Authenticated: s.authenticated}
	}
	_, _, err = s.roundTrip(protocol.CmdDLMTransit, []byte{byte(to)}, transport.LongTimeout)
	if err != nil {
		return err
	}
	if to == DLMLckBoot {
		// The bootloader stops responding after this transition:
		// close rather than risk a hung read on the next command. No
		// baud restore either: the link no longer answers.
		s.raisedBaud = false
		return s.Close()
	}
	return nil
}

// DLMAuthTransit requests an authenticated transition to to, proving
// authorization with a 16-byte key. As with DLMTransit, the edge is
// checked against CanTransit before anything is sent.
func (s *Session) DLMAuthTransit(to DLMState, key [16]byte) error {
	from, err := s.DLMGet()
	if err != nil {
		return err
	}
	if !CanTransit(from, to, true) {
		return &DLMTransitionError{From: from, To: to, Authenticated: true}
	}
	payload := append([]byte{byte(to)}, key[:]...)
	_, _, err = s.roundTrip(protocol.CmdDLMAuthTransit, payload, transport.LongTimeout)
	if err != nil {
		return err
	}
	if to == DLMLckBoot {
		s.raisedBaud = false
		return s.Close()
	}
	return nil
}
