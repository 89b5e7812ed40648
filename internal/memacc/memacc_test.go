package memacc

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	return buf
}

func TestSpace(t *testing.T) {
	s := CoreSpace(0) | CoreSpace(2)
	if !s.Includes(0) || s.Includes(1) || !s.Includes(2) {
		t.Errorf("Includes() wrong for %s", s)
	}
	if got := s.String(); got != "core0,core2" {
		t.Errorf("String() = %q", got)
	}
	if SpaceAny.String() != "Any" || Space(0).String() != "None" {
		t.Errorf("String() of special spaces wrong")
	}
	if CoreSpace(32) != 0 || CoreSpace(-1) != 0 {
		t.Errorf("out of range core index should have an empty space")
	}
}

func TestOverlapRegions(t *testing.T) {
	mapper := NewMapper()

	if err := mapper.AddAccessor(NewBufferAccessor(0x0000, pattern(0x2000, 0), CoreSpace(0))); err != nil {
		t.Fatalf("Failed to set memory accessor: %v", err)
	}

	// Overlapping region - same core
	err := mapper.AddAccessor(NewBufferAccessor(0x1000, pattern(0x2000, 0), CoreSpace(0)))
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("Expected overlap error, got: %v", err)
	}

	// Overlapping region - shared space
	err = mapper.AddAccessor(NewBufferAccessor(0x1000, pattern(0x100, 0), SpaceAny))
	if !errors.Is(err, ErrOverlap) {
		t.Errorf("Expected overlap error for shared space, got: %v", err)
	}

	// Same addresses, other core
	if err := mapper.AddAccessor(NewBufferAccessor(0x0000, pattern(0x2000, 0x80), CoreSpace(1))); err != nil {
		t.Errorf("Failed to set accessor for a second core: %v", err)
	}

	// Adjacent region - same core
	if err := mapper.AddAccessor(NewBufferAccessor(0x2000, pattern(0x100, 0), CoreSpace(0))); err != nil {
		t.Errorf("Failed to set adjacent accessor: %v", err)
	}

	if err := mapper.AddAccessor(NewBufferAccessor(0x8000, nil, SpaceAny)); !errors.Is(err, ErrRangeInvalid) {
		t.Errorf("Expected invalid range for empty buffer, got: %v", err)
	}

	if got := len(mapper.Accessors()); got != 3 {
		t.Errorf("Accessors() = %d, want 3", got)
	}
}

func TestMapperReadSelectsSpace(t *testing.T) {
	mapper := NewMapper()
	core0 := pattern(0x100, 0x00)
	core1 := pattern(0x100, 0x40)
	if err := mapper.AddAccessor(NewBufferAccessor(0x1000, core0, CoreSpace(0))); err != nil {
		t.Fatal(err)
	}
	if err := mapper.AddAccessor(NewBufferAccessor(0x1000, core1, CoreSpace(1))); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 8)
	if err := mapper.Read(0x1010, CoreSpace(1), buf); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !bytes.Equal(buf, core1[0x10:0x18]) {
		t.Errorf("Read() from core1 = % x, want % x", buf, core1[0x10:0x18])
	}

	if err := mapper.Read(0x1010, CoreSpace(0), buf); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !bytes.Equal(buf, core0[0x10:0x18]) {
		t.Errorf("Read() from core0 = % x, want % x", buf, core0[0x10:0x18])
	}

	if err := mapper.Read(0x1010, CoreSpace(2), buf); !errors.Is(err, ErrNotMapped) {
		t.Errorf("Read() from unmapped core = %v, want ErrNotMapped", err)
	}
}

func TestMapperReadSpansAccessors(t *testing.T) {
	mapper := NewMapper()
	lo := pattern(0x10, 0x00)
	hi := pattern(0x10, 0x10)
	if err := mapper.AddAccessor(NewBufferAccessor(0x0, lo, SpaceAny)); err != nil {
		t.Fatal(err)
	}
	if err := mapper.AddAccessor(NewBufferAccessor(0x10, hi, SpaceAny)); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 0x18)
	if err := mapper.Read(0x4, CoreSpace(3), buf); err != nil {
		t.Fatalf("Read() across accessors: %v", err)
	}
	if !bytes.Equal(buf, pattern(0x18, 0x04)) {
		t.Errorf("Read() = % x", buf)
	}

	// Runs off the end of the second accessor.
	if err := mapper.Read(0x18, SpaceAny, make([]byte, 0x10)); !errors.Is(err, ErrNotMapped) {
		t.Errorf("Read() past the end = %v, want ErrNotMapped", err)
	}
}

func TestMapperWrite(t *testing.T) {
	mapper := NewMapper()
	ram := NewRAMAccessor(0x2000_0000, 0x100, 0xff, CoreSpace(0))
	flash := NewBufferAccessor(0x0, pattern(0x100, 0), CoreSpace(0))
	if err := mapper.AddAccessor(ram); err != nil {
		t.Fatal(err)
	}
	if err := mapper.AddAccessor(flash); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 4)
	if err := mapper.Read(0x2000_0000, CoreSpace(0), buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("fresh RAM = % x, want fill value", buf)
	}

	code := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := mapper.Write(0x2000_0010, CoreSpace(0), code); err != nil {
		t.Fatalf("Write() to RAM: %v", err)
	}
	if err := mapper.Read(0x2000_0010, CoreSpace(0), buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, code) {
		t.Errorf("RAM after write = % x, want % x", buf, code)
	}

	if err := mapper.Write(0x10, CoreSpace(0), code); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Write() to flash = %v, want ErrReadOnly", err)
	}
	if err := mapper.Write(0x2000_00fe, CoreSpace(0), code); !errors.Is(err, ErrNotMapped) {
		t.Errorf("Write() off the end of RAM = %v, want ErrNotMapped", err)
	}
}

func TestFileAccessor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flash.bin")
	image := pattern(0x200, 0x30)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		offset  int64
		length  int64
		wantLen uint64
		wantErr error
	}{
		{"whole file", 0, 0, 0x200, nil},
		{"window", 0x100, 0x80, 0x80, nil},
		{"rest of file", 0x180, 0, 0x80, nil},
		{"window past end", 0x180, 0x100, 0, ErrRangeInvalid},
		{"offset past end", 0x300, 0, 0, ErrRangeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := NewFileAccessor(path, 0x0800_0000, tt.offset, tt.length, SpaceAny)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewFileAccessor() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFileAccessor() error: %v", err)
			}
			defer acc.Close()

			if got := acc.Range().Len(); got != tt.wantLen {
				t.Errorf("Range().Len() = %#x, want %#x", got, tt.wantLen)
			}

			buf := make([]byte, 0x10)
			n, err := acc.ReadBytes(0x0800_0004, buf)
			if err != nil || n != 0x10 {
				t.Fatalf("ReadBytes() = %d, %v", n, err)
			}
			want := image[tt.offset+4 : tt.offset+4+0x10]
			if !bytes.Equal(buf, want) {
				t.Errorf("ReadBytes() = % x, want % x", buf, want)
			}
		})
	}

	if _, err := NewFileAccessor(filepath.Join(dir, "missing.bin"), 0, 0, 0, SpaceAny); !errors.Is(err, ErrFileAccess) {
		t.Errorf("NewFileAccessor(missing) = %v, want ErrFileAccess", err)
	}
}

func TestMapperCloseReleasesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.bin")
	if err := os.WriteFile(path, pattern(0x40, 0), 0o644); err != nil {
		t.Fatal(err)
	}
	acc, err := NewFileAccessor(path, 0, 0, 0, SpaceAny)
	if err != nil {
		t.Fatal(err)
	}

	mapper := NewMapper()
	if err := mapper.AddAccessor(acc); err != nil {
		t.Fatal(err)
	}
	if err := mapper.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if len(mapper.Accessors()) != 0 {
		t.Errorf("Close() should empty the mapper")
	}
	if _, err := acc.ReadBytes(0, make([]byte, 4)); err == nil {
		t.Errorf("ReadBytes() after Close should fail")
	}
}
