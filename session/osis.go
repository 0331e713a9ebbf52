package session

import (
	"errors"

	"github.com/daedaluz/radfu/area"
)

// OSISMode selects which of the two OSIS probes to use. Older boot
// firmware doesn't expose the register for direct reads, so both
// probes stay available.
type OSISMode int

const (
	// OSISModeInfer derives lock status from whether Authenticate has
	// succeeded this session, without any extra device round trip.
	OSISModeInfer OSISMode = iota
	// OSISModeDirect reads the 128-bit OSIS register directly from
	// the config area via CmdRead.
	OSISModeDirect
)

// osisRegisterSize is the width of the on-chip OSIS register.
const osisRegisterSize = 16

// OSISResult reports the probe outcome and which mode actually
// produced it (OSISAuto may fall back from Direct to Infer).
type OSISResult struct {
	Locked bool
	Mode   OSISMode
	// Register holds the raw 128-bit register value when Mode is
	// OSISModeDirect; nil under inference.
	Register []byte
}

// OSIS runs the requested probe. OSISModeDirect returns an error if
// the device's config area doesn't expose room for the OSIS word
// range; use OSISAuto to fall back to inference automatically.
func (s *Session) OSIS(mode OSISMode) (*OSISResult, error) {
	switch mode {
	case OSISModeInfer:
		return &OSISResult{Locked: !s.authenticated, Mode: OSISModeInfer}, nil
	case OSISModeDirect:
		reg, err := s.readOSISRegister()
		if err != nil {
			return nil, err
		}
		return &OSISResult{Locked: registerLocked(reg), Mode: OSISModeDirect, Register: reg}, nil
	default:
		return nil, &ProtocolStateError{Reason: "unknown OSIS mode"}
	}
}

// OSISAuto tries OSISModeDirect first and falls back to OSISModeInfer
// if the config area doesn't expose the OSIS word range.
func (s *Session) OSISAuto() (*OSISResult, error) {
	reg, err := s.readOSISRegister()
	if err == nil {
		return &OSISResult{Locked: registerLocked(reg), Mode: OSISModeDirect, Register: reg}, nil
	}
	var unknown *area.UnknownAreaError
	var align *area.AlignmentError
	if errors.As(err, &unknown) || errors.As(err, &align) {
		return s.OSIS(OSISModeInfer)
	}
	return nil, err
}

// readOSISRegister reads osisRegisterSize bytes from the start of the
// config area via CmdRead.
func (s *Session) readOSISRegister() ([]byte, error) {
	cfg, err := s.areas.FindKind(area.KindConfig)
	if err != nil {
		return nil, err
	}
	if _, err := s.areas.Bounds(area.OpRead, cfg.SAD, osisRegisterSize); err != nil {
		return nil, err
	}
	return s.Read(cfg.SAD, osisRegisterSize)
}

// registerLocked treats an all-zero register as the device's "no
// restriction configured" sentinel; any set bit means at least one
// protection flag is active.
func registerLocked(reg []byte) bool {
	for _, b := range reg {
		if b != 0 {
			return true
		}
	}
	return false
}
