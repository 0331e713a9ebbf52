// Package handshake implements the boot-firmware connection handshake:
// sync, boot-code confirmation, and already-connected detection.
package handshake

import (
	"fmt"

	"github.com/daedaluz/radfu/protocol"
	"github.com/daedaluz/radfu/transport"
)

// DefaultRetries is the bounded retry count for sync and confirm.
const DefaultRetries = 20

// ProtocolStateError reports an unexpected response during the
// handshake.
type ProtocolStateError struct {
	Reason string
}

func (e *ProtocolStateError) Error() string {
	return fmt.Sprintf("handshake: %s", e.Reason)
}

// Result is what a successful handshake establishes.
type Result struct {
	BootCode byte
	// AlreadyConnected is true if the device was found already in
	// command mode, skipping sync entirely.
	AlreadyConnected bool
}

// Connect runs the handshake procedure against t: send Inquire, sync
// if needed, then confirm the boot code. retries bounds both the sync
// loop and the confirm loop; pass 0 to use DefaultRetries.
func Connect(t transport.Transport, retries int) (*Result, error) {
	if retries <= 0 {
		retries = DefaultRetries
	}

	pkt, err := protocol.Pack(protocol.CmdInquire, nil, false)
	if err != nil {
		return nil, err
	}
	if err := t.Send(pkt); err != nil {
		return nil, err
	}

	b := make([]byte, 1)
	n, err := t.Recv(b, transport.InitialTimeout)
	if err != nil {
		return nil, err
	}

	if n == 1 && b[0] == protocol.SodReply {
		// Device is already in command mode; drain the rest of the
		// reply.
		if err := drainReply(t, b[0]); err != nil {
			return nil, err
		}
		code, err := confirm(t, retries)
		if err != nil {
			return nil, err
		}
		return &Result{BootCode: code, AlreadyConnected: true}, nil
	}

	// n == 0 (timeout) or b[0] == sync byte: not yet synced.
	if !(n == 0 || b[0] == protocol.SyncByte) {
		return nil, &ProtocolStateError{Reason: fmt.Sprintf("unexpected byte %#02x while probing", b[0])}
	}

	if err := sync(t, retries); err != nil {
		return nil, err
	}
	code, err := confirm(t, retries)
	if err != nil {
		return nil, err
	}
	return &Result{BootCode: code}, nil
}

// drainReply consumes the rest of an already-arrived reply whose
// first byte (the SOD) has already been read, so the transport is
// left at a clean packet boundary.
func drainReply(t transport.Transport, sod byte) error {
	hdr := make([]byte, 2)
	if err := transport.RecvFull(t, hdr, transport.ContinuationTimeout); err != nil {
		return err
	}
	length := int(hdr[0])<<8 | int(hdr[1])
	rest := make([]byte, length+2) // RCB + (length-1) payload bytes + SUM + ETX
	return transport.RecvFull(t, rest, transport.ContinuationTimeout)
}

// sync sends three sync bytes and waits for a 0x00 reply, retrying up
// to attempts times.
func sync(t transport.Transport, attempts int) error {
	for i := 0; i < attempts; i++ {
		if err := t.Send([]byte{protocol.SyncByte, protocol.SyncByte, protocol.SyncByte}); err != nil {
			return err
		}
		b := make([]byte, 1)
		n, err := t.Recv(b, transport.InitialTimeout)
		if err != nil {
			return err
		}
		if n == 1 && b[0] == protocol.SyncByte {
			return nil
		}
	}
	return &ProtocolStateError{Reason: "sync: no response after retries"}
}

// confirm sends the generic-code byte and validates the boot code
// reply, retrying up to attempts times.
func confirm(t transport.Transport, attempts int) (byte, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := t.Send([]byte{protocol.GenericCode}); err != nil {
			return 0, err
		}
		b := make([]byte, 1)
		n, err := t.Recv(b, transport.InitialTimeout)
		if err != nil {
			return 0, err
		}
		if n != 1 {
			lastErr = &ProtocolStateError{Reason: "confirm: timed out waiting for boot code"}
			continue
		}
		switch b[0] {
		case protocol.BootCodeCortexM4, protocol.BootCodeCortexM33, protocol.BootCodeCortexM85:
			return b[0], nil
		default:
			lastErr = &ProtocolStateError{Reason: fmt.Sprintf("confirm: unexpected boot code %#02x", b[0])}
		}
	}
	if lastErr == nil {
		lastErr = &ProtocolStateError{Reason: "confirm: no response after retries"}
	}
	return 0, lastErr
}
