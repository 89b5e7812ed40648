package memacc

import (
	"errors"
	"fmt"
	"io"
)

// Mapper routes reads and writes to the accessor covering each address.
type Mapper struct {
	accessors []Accessor
	curr      Accessor
}

func NewMapper() *Mapper {
	return &Mapper{}
}

// AddAccessor registers acc. Accessors may share addresses only when
// their spaces are disjoint.
func (m *Mapper) AddAccessor(acc Accessor) error {
	rng := acc.Range()
	if rng.Empty() {
		return fmt.Errorf("%w: %s", ErrRangeInvalid, acc)
	}
	for _, existing := range m.accessors {
		if existing.Range().Intersects(rng) && existing.Space()&acc.Space() != 0 {
			return fmt.Errorf("%w: %s and %s", ErrOverlap, existing, acc)
		}
	}
	m.accessors = append(m.accessors, acc)
	return nil
}

// Accessors returns the registered accessors in insertion order.
func (m *Mapper) Accessors() []Accessor {
	return m.accessors
}

func (m *Mapper) find(addr uint64, space Space) Accessor {
	if m.curr != nil && m.curr.Range().Contains(addr) && m.curr.Space()&space != 0 {
		return m.curr
	}
	for _, acc := range m.accessors {
		if acc.Range().Contains(addr) && acc.Space()&space != 0 {
			m.curr = acc
			return acc
		}
	}
	return nil
}

// Read fills buf from addr as seen from space. A read may span several
// adjacent accessors; any gap fails with ErrNotMapped.
func (m *Mapper) Read(addr uint64, space Space, buf []byte) error {
	for len(buf) > 0 {
		acc := m.find(addr, space)
		if acc == nil {
			return fmt.Errorf("%w: 0x%08x (%s)", ErrNotMapped, addr, space)
		}
		n, err := acc.ReadBytes(addr, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: 0x%08x (%s)", ErrNotMapped, addr, space)
		}
		addr += uint64(n)
		buf = buf[n:]
	}
	return nil
}

// Write stores data at addr as seen from space.
func (m *Mapper) Write(addr uint64, space Space, data []byte) error {
	for len(data) > 0 {
		acc := m.find(addr, space)
		if acc == nil {
			return fmt.Errorf("%w: 0x%08x (%s)", ErrNotMapped, addr, space)
		}
		w, ok := acc.(WriteAccessor)
		if !ok {
			return fmt.Errorf("%w: %s", ErrReadOnly, acc)
		}
		n, err := w.WriteBytes(addr, data)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: 0x%08x (%s)", ErrNotMapped, addr, space)
		}
		addr += uint64(n)
		data = data[n:]
	}
	return nil
}

// Close releases every accessor that holds a resource and empties the
// mapper.
func (m *Mapper) Close() error {
	var errs []error
	for _, acc := range m.accessors {
		if c, ok := acc.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	m.accessors = nil
	m.curr = nil
	return errors.Join(errs...)
}
