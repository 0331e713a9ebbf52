package hexfile

import (
	"io"
)

func parseBin(r io.Reader) (*ParsedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &BadInputError{Reason: err.Error()}
	}
	return &ParsedFile{Image: data}, nil
}

func emitBin(w io.Writer, image []byte) error {
	_, err := w.Write(image)
	return err
}
