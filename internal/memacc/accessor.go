// Package memacc serves target memory contents from buffers and image
// files. Each accessor covers an address range and the set of cores that
// can see it.
package memacc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"flashread/internal/target"
)

// Space is a bitmask of core indices; bit n set means core n sees the
// memory.
type Space uint32

// SpaceAny is memory every core sees.
const SpaceAny Space = 0xFFFFFFFF

// CoreSpace returns the space of a single core.
func CoreSpace(index int) Space {
	if index < 0 || index > 31 {
		return 0
	}
	return 1 << uint(index)
}

// Includes reports whether core index is part of the space.
func (s Space) Includes(index int) bool {
	return s&CoreSpace(index) != 0
}

func (s Space) String() string {
	if s == SpaceAny {
		return "Any"
	}
	var parts []string
	for i := 0; i < 32; i++ {
		if s.Includes(i) {
			parts = append(parts, "core"+strconv.Itoa(i))
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, ",")
}

var (
	ErrOverlap      = errors.New("memory accessor overlap")
	ErrNotMapped    = errors.New("address not mapped")
	ErrReadOnly     = errors.New("memory is read-only")
	ErrRangeInvalid = errors.New("accessor range invalid")
	ErrFileAccess   = errors.New("file access error")
)

// Accessor reads one address range.
type Accessor interface {
	Range() target.Range
	Space() Space
	// ReadBytes fills buf from addr, stopping at the end of the range,
	// and returns the number of bytes read.
	ReadBytes(addr uint64, buf []byte) (int, error)
	String() string
}

// WriteAccessor is an Accessor whose contents can change.
type WriteAccessor interface {
	Accessor
	WriteBytes(addr uint64, data []byte) (int, error)
}

type baseAccessor struct {
	rng   target.Range
	space Space
}

func (b *baseAccessor) Range() target.Range { return b.rng }
func (b *baseAccessor) Space() Space        { return b.space }

func (b *baseAccessor) bytesInRange(addr uint64, want int) int {
	if !b.rng.Contains(addr) {
		return 0
	}
	avail := b.rng.End - addr
	if uint64(want) > avail {
		return int(avail)
	}
	return want
}

// BufferAccessor serves memory held in a byte slice.
type BufferAccessor struct {
	baseAccessor
	data     []byte
	writable bool
}

// NewBufferAccessor maps data read-only at addr.
func NewBufferAccessor(addr uint64, data []byte, space Space) *BufferAccessor {
	return &BufferAccessor{
		baseAccessor: baseAccessor{rng: target.Range{Start: addr, End: addr + uint64(len(data))}, space: space},
		data:         data,
	}
}

// NewRAMAccessor maps size writable bytes at addr, each set to fill.
func NewRAMAccessor(addr, size uint64, fill byte, space Space) *BufferAccessor {
	data := make([]byte, size)
	if fill != 0 {
		for i := range data {
			data[i] = fill
		}
	}
	acc := NewBufferAccessor(addr, data, space)
	acc.writable = true
	return acc
}

func (b *BufferAccessor) ReadBytes(addr uint64, buf []byte) (int, error) {
	n := b.bytesInRange(addr, len(buf))
	if n == 0 {
		return 0, nil
	}
	off := addr - b.rng.Start
	return copy(buf[:n], b.data[off:]), nil
}

func (b *BufferAccessor) WriteBytes(addr uint64, data []byte) (int, error) {
	if !b.writable {
		return 0, ErrReadOnly
	}
	n := b.bytesInRange(addr, len(data))
	if n == 0 {
		return 0, nil
	}
	off := addr - b.rng.Start
	return copy(b.data[off:], data[:n]), nil
}

func (b *BufferAccessor) String() string {
	kind := "BuffAcc"
	if b.writable {
		kind = "RAMAcc"
	}
	return fmt.Sprintf("%s; Range::%s; Space::%s", kind, b.rng, b.space)
}

// FileAccessor serves memory from a window of an image file.
type FileAccessor struct {
	baseAccessor
	path   string
	file   *os.File
	offset int64
}

// NewFileAccessor maps length bytes of the file at path, starting at
// offset, to addr. A zero length maps the rest of the file.
func NewFileAccessor(path string, addr uint64, offset, length int64, space Space) (*FileAccessor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}

	size := info.Size()
	if offset < 0 || offset > size {
		f.Close()
		return nil, fmt.Errorf("%w: offset %d outside %s (%d bytes)", ErrRangeInvalid, offset, path, size)
	}
	if length == 0 {
		length = size - offset
	}
	if length <= 0 || offset+length > size {
		f.Close()
		return nil, fmt.Errorf("%w: %d bytes at offset %d exceed %s (%d bytes)", ErrRangeInvalid, length, offset, path, size)
	}

	return &FileAccessor{
		baseAccessor: baseAccessor{rng: target.Range{Start: addr, End: addr + uint64(length)}, space: space},
		path:         path,
		file:         f,
		offset:       offset,
	}, nil
}

func (f *FileAccessor) ReadBytes(addr uint64, buf []byte) (int, error) {
	n := f.bytesInRange(addr, len(buf))
	if n == 0 {
		return 0, nil
	}
	read, err := f.file.ReadAt(buf[:n], f.offset+int64(addr-f.rng.Start))
	if err != nil && !errors.Is(err, io.EOF) {
		return read, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	return read, nil
}

// Close releases the image file.
func (f *FileAccessor) Close() error {
	return f.file.Close()
}

func (f *FileAccessor) String() string {
	return fmt.Sprintf("FileAcc; Range::%s; Space::%s; File::%s+0x%x", f.rng, f.space, f.path, f.offset)
}
