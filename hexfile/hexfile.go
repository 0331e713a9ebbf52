// Package hexfile implements the Intel-HEX and S-record ASCII record
// codecs, plus a raw-binary pass-through, for firmware images. It is a
// self-contained external collaborator to the core protocol engine:
// it knows nothing about the boot protocol and only produces or
// consumes (base address, byte image) pairs.
package hexfile

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format selects which record codec Parse/Emit use.
type Format int

const (
	Auto Format = iota
	Bin
	IHex
	SRec
)

func (f Format) String() string {
	switch f {
	case Auto:
		return "auto"
	case Bin:
		return "bin"
	case IHex:
		return "ihex"
	case SRec:
		return "srec"
	default:
		return "unknown"
	}
}

// ParseFormat parses the --input-format CLI flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "bin", "binary":
		return Bin, nil
	case "hex", "ihex":
		return IHex, nil
	case "srec", "s19", "s28", "s37", "mot":
		return SRec, nil
	default:
		return Auto, &BadInputError{Reason: fmt.Sprintf("unknown format %q", s)}
	}
}

// DetectFormat maps a file extension to a Format the way Auto does
// hex/ihex -> Intel-HEX, srec/s19/s28/s37/mot -> S-record,
// anything else -> binary.
func DetectFormat(path string) Format {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "hex", "ihex":
		return IHex
	case "srec", "s19", "s28", "s37", "mot":
		return SRec
	default:
		return Bin
	}
}

// ParsedFile is a contiguous byte image materialized from a record
// file, plus the base address it should be written at.
type ParsedFile struct {
	BaseAddress uint32
	HasAddress  bool
	Image       []byte
}

// Size is the number of bytes in Image.
func (p *ParsedFile) Size() int { return len(p.Image) }

// BadInputError reports a malformed record file: a bad checksum, a
// missing EOF/termination record, or an unrecognized format.
type BadInputError struct {
	Reason string
	Line   int
}

func (e *BadInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("hexfile: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("hexfile: %s", e.Reason)
}

// Parse reads a record file of the given format (or DetectFormat(path)
// if format is Auto) from r.
func Parse(r io.Reader, path string, format Format) (*ParsedFile, error) {
	if format == Auto {
		format = DetectFormat(path)
	}
	switch format {
	case Bin:
		return parseBin(r)
	case IHex:
		return parseIHex(r)
	case SRec:
		return parseSRec(r)
	default:
		return nil, &BadInputError{Reason: fmt.Sprintf("unsupported format %v", format)}
	}
}

// Emit writes image (starting at base) to w in the given format (or
// DetectFormat(path) if format is Auto).
func Emit(w io.Writer, path string, format Format, image []byte, base uint32) error {
	if format == Auto {
		format = DetectFormat(path)
	}
	switch format {
	case Bin:
		return emitBin(w, image)
	case IHex:
		return emitIHex(w, image, base)
	case SRec:
		return emitSRec(w, image, base)
	default:
		return &BadInputError{Reason: fmt.Sprintf("unsupported format %v", format)}
	}
}

// Merge combines several parsed files into one contiguous image
// spanning their union, filling any gaps (including the gap between
// files) with 0xFF. Files need not be given in address order. Not
// used by cmd/radfu's current verb surface.
func Merge(files []*ParsedFile) (*ParsedFile, error) {
	if len(files) == 0 {
		return &ParsedFile{}, nil
	}
	var lo, hi uint64
	first := true
	for _, f := range files {
		if len(f.Image) == 0 {
			continue
		}
		start := uint64(f.BaseAddress)
		end := start + uint64(len(f.Image))
		if first || start < lo {
			lo = start
		}
		if first || end > hi {
			hi = end
		}
		first = false
	}
	if first {
		return &ParsedFile{}, nil
	}
	out := make([]byte, hi-lo)
	for i := range out {
		out[i] = 0xFF
	}
	for _, f := range files {
		start := uint64(f.BaseAddress) - lo
		copy(out[start:], f.Image)
	}
	return &ParsedFile{BaseAddress: uint32(lo), HasAddress: true, Image: out}, nil
}
