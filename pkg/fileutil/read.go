package fileutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// MaxFileSize caps how much of any JSON document is read.
const MaxFileSize = 4 << 20

// ErrFileTooLarge is marked errors.ErrIO.
var ErrFileTooLarge = errors.Mark(errors.Newf("file exceeds %d bytes", MaxFileSize), errors.ErrIO)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFileWithLimit reads path, refusing files over MaxFileSize.
func ReadFileWithLimit(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	// Stat is a fast path; the limited read below catches files that grow
	// or lie about their size.
	if info, err := f.Stat(); err == nil && info.Size() > MaxFileSize {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s", path)
	}
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if len(data) > MaxFileSize {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s", path)
	}
	return data, nil
}

// ReadFileIfExists reports a missing file as exists=false with no error.
// Other failures are marked errors.ErrIO.
func ReadFileIfExists(path string) (data []byte, exists bool, err error) {
	data, err = ReadFileWithLimit(path)
	switch {
	case err == nil:
		return data, true, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	default:
		return nil, false, errors.Mark(err, errors.ErrIO)
	}
}

// TrimDocument strips a UTF-8 byte order mark and surrounding whitespace.
// Hand-edited JSON files on Windows often carry a BOM that encoding/json
// rejects.
func TrimDocument(data []byte) []byte {
	return bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
}
