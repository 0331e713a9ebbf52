package hexfile

import "os"

// ParseFile opens path and parses it per Parse, using format (or
// DetectFormat(path) if format is Auto). This is the entry point
// the session layer consumes as a (base address, byte image) pair.
func ParseFile(path string, format Format) (*ParsedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path, format)
}

// EmitFile writes image (starting at base) to path per Emit, using
// format (or DetectFormat(path) if format is Auto).
func EmitFile(path string, format Format, image []byte, base uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Emit(f, path, format, image, base); err != nil {
		return err
	}
	return f.Close()
}
