package session

import (
	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/transport"
)

// ParamGet sends CmdParameter with no payload and returns the raw
// parameter bytes the device replies with. The boot firmware does not
// document a single parameter shape across device families, so this
// stays a byte slice rather than a decoded struct; cmd/radfu renders
// it as a hex dump.
func (s *Session) ParamGet() ([]byte, error) {
	_, payload, err := s.roundTrip(protocol.CmdParameter, nil, transport.InitialTimeout)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ParamSet sends CmdParameter with enable as a single boolean byte
// and awaits success-or-error.
func (s *Session) ParamSet(enable bool) error {
	var b byte
	if enable {
		b = 1
	}
	_, _, err := s.roundTrip(protocol.CmdParameter, []byte{b}, transport.InitialTimeout)
	return err
}

// Initialize sends CmdInitialize (factory reset) and awaits
// success-or-error. The device may take as long as an erase to
// respond, so this uses the long timeout.
func (s *Session) Initialize() error {
	_, _, err := s.roundTrip(protocol.CmdInitialize, nil, transport.LongTimeout)
	return err
}
