// Package fitfile reads and writes .fit files on disk.
package fitfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/ridefit/pkg/fit"
)

var ErrTooLarge = errors.New("fitfile: file too large to map")

// File is an opened .fit file whose header has been validated.
type File struct {
	Data    []byte
	Header  fit.Header
	mmapped bool
}

// Open maps path read-only and validates its header. If mmap is unavailable
// it falls back to reading the file into memory. The returned File must be
// closed to release the mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() > int64(int(^uint(0)>>1)) {
		return nil, ErrTooLarge
	}
	size := int(stat.Size())

	if size > 0 {
		data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			ff, perr := newFile(data, true)
			if perr != nil {
				_ = unix.Munmap(data)
				return nil, fmt.Errorf("%s: %w", path, perr)
			}
			return ff, nil
		}
	}

	data, err := readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	ff, err := newFile(data, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ff, nil
}

func newFile(data []byte, mmapped bool) (*File, error) {
	dec, err := fit.NewDecoder(data, fit.WithChecksum(false))
	if err != nil {
		return nil, err
	}
	return &File{Data: data, Header: dec.Header(), mmapped: mmapped}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Close releases the mapping. Data must not be used afterwards.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.mmapped = false
	return err
}

// WriteFile writes data to a temporary file next to path and renames it into
// place, so readers never observe a partial file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
