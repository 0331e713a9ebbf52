package protocol

import "fmt"

// ErrOversizePayload is returned by Pack when the payload exceeds
// MaxPayload bytes.
var ErrOversizePayload = fmt.Errorf("protocol: payload exceeds %d bytes", MaxPayload)

// FramingError reports a malformed packet: a short read, a wrong
// SOD/ETX byte, or an internally-inconsistent length field.
type FramingError struct {
	Reason string
	Len    int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("protocol: framing error (%s), buffer len %d", e.Reason, e.Len)
}

// ChecksumError reports a correctly-framed packet whose checksum byte
// does not satisfy the checksum law.
type ChecksumError struct {
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("protocol: checksum mismatch: want 0x%02X got 0x%02X", e.Want, e.Got)
}

// McuError reports a reply whose RCB carried the error-status bit.
// Code is the MCU's error byte; use ErrorName/ErrorDescription to
// render it.
type McuError struct {
	Code byte
}

func (e *McuError) Error() string {
	return fmt.Sprintf("protocol: mcu error %s (0x%02X): %s", ErrorName(e.Code), e.Code, ErrorDescription(e.Code))
}

// IsUnauthenticated reports whether err is the McuError a device
// without ID protection returns in response to an ID-auth command:
// ERR_PACKET (0xC1). Callers treat it as "no authentication needed"
// rather than an authentication failure.
func IsUnauthenticated(err error) bool {
	var mcu *McuError
	if e, ok := err.(*McuError); ok {
		mcu = e
	} else {
		return false
	}
	return mcu.Code == ErrCodeFraming
}
