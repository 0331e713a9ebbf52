package session

import (
	"fmt"

	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/transport"
)

// KeySet injects a 16-byte authentication key for the given typed slot
// (protocol.KeyTypeSecDbg/NonSecDbg/RMA), sent as a leading type byte
// followed by the key.
func (s *Session) KeySet(keyType byte, key [16]byte) error {
	if err := checkKeyType(keyType); err != nil {
		return err
	}
	payload := append([]byte{keyType}, key[:]...)
	_, _, err := s.roundTrip(protocol.CmdKeySet, payload, transport.LongTimeout)
	return err
}

// KeyVerify checks a 16-byte key against the device's stored key for
// the given typed slot, without altering session state on mismatch
// (the device replies with ErrCodeIDMismatch, surfaced as-is).
func (s *Session) KeyVerify(keyType byte, key [16]byte) error {
	if err := checkKeyType(keyType); err != nil {
		return err
	}
	payload := append([]byte{keyType}, key[:]...)
	_, _, err := s.roundTrip(protocol.CmdKeyVerify, payload, transport.InitialTimeout)
	return err
}

func checkKeyType(t byte) error {
	switch t {
	case protocol.KeyTypeSecDbg, protocol.KeyTypeNonSecDbg, protocol.KeyTypeRMA:
		return nil
	default:
		return fmt.Errorf("session: unknown key type %#02x", t)
	}
}

// UserKeySet injects a 16-byte user key into the given numbered slot
// (device-defined range; this implementation does not bound slot, the
// device rejects an out-of-range slot with ErrCodeInvalidAddr).
func (s *Session) UserKeySet(slot byte, key [16]byte) error {
	payload := append([]byte{slot}, key[:]...)
	_, _, err := s.roundTrip(protocol.CmdUserKeySet, payload, transport.LongTimeout)
	return err
}

// UserKeyVerify checks a 16-byte user key against the given numbered
// slot.
func (s *Session) UserKeyVerify(slot byte, key [16]byte) error {
	payload := append([]byte{slot}, key[:]...)
	_, _, err := s.roundTrip(protocol.CmdUserKeyVerify, payload, transport.InitialTimeout)
	return err
}
