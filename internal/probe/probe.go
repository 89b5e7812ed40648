// Package probe simulates a debug probe session over a target
// description and memory images. Flash contents come from a memory
// mapper, usually built from a snapshot directory; each RAM region of
// the target gets a zero-filled scratch buffer that algorithm loads
// write into.
package probe

import (
	"errors"
	"fmt"
	"sync"

	"flashread/internal/flashing"
	"flashread/internal/logging"
	"flashread/internal/memacc"
	"flashread/internal/snapshot"
	"flashread/internal/target"
)

var (
	ErrCoreBusy     = errors.New("probe: another core is attached")
	ErrNoSuchCore   = errors.New("probe: no such core")
	ErrDetached     = errors.New("probe: core is detached")
	ErrNotHalted    = errors.New("probe: core is running")
	ErrInvalidPC    = errors.New("probe: routine address is not in reachable RAM")
	ErrSessionClose = errors.New("probe: session is closed")
)

// Stats counts what the session was asked to do.
type Stats struct {
	// Attaches lists core indices in attach order.
	Attaches  []int
	Reads     int
	BytesRead int
	Writes    int
	Calls     int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger handed to the read path.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithCallResult makes every routine call return code.
func WithCallResult(code uint32) Option {
	return func(s *Session) { s.callResult = code }
}

// WithReadFault makes reads on core index fail with err.
func WithReadFault(index int, err error) Option {
	return func(s *Session) { s.readFaults[index] = err }
}

// Session is a simulated probe attached to one target. At most one core
// is attached at any time.
type Session struct {
	mu         sync.Mutex
	tgt        *target.Target
	images     *memacc.Mapper
	ram        *memacc.Mapper
	log        logging.Logger
	callResult uint32
	readFaults map[int]error
	attached   *core
	closed     bool
	stats      Stats
}

var _ flashing.Session = (*Session)(nil)

// NewSession creates a session serving flash reads from images. The
// session owns images and closes it in Close.
func NewSession(tgt *target.Target, images *memacc.Mapper, opts ...Option) (*Session, error) {
	if images == nil {
		images = memacc.NewMapper()
	}
	s := &Session{
		tgt:        tgt,
		images:     images,
		ram:        memacc.NewMapper(),
		log:        logging.NoOpLogger{},
		readFaults: map[int]error{},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, region := range tgt.RamRegions() {
		space, err := regionSpace(tgt, region.Cores)
		if err != nil {
			return nil, fmt.Errorf("ram region %s: %w", region.Name, err)
		}
		acc := memacc.NewRAMAccessor(region.Range.Start, region.Range.Len(), 0, space)
		if err := s.ram.AddAccessor(acc); err != nil {
			return nil, fmt.Errorf("ram region %s: %w", region.Name, err)
		}
	}
	return s, nil
}

// Open loads the snapshot in dir and creates a session over it.
func Open(tgt *target.Target, dir string, opts ...Option) (*Session, error) {
	snap, err := snapshot.LoadSnapshot(dir)
	if err != nil {
		return nil, err
	}
	images, err := snapshot.BuildMapper(dir, snap, tgt.CoreNames())
	if err != nil {
		return nil, err
	}
	s, err := NewSession(tgt, images, opts...)
	if err != nil {
		_ = images.Close()
		return nil, err
	}
	s.log.Logf(logging.SeverityDebug, "Opened snapshot %q with %d devices", dir, len(snap.Devices))
	return s, nil
}

func regionSpace(tgt *target.Target, cores []string) (memacc.Space, error) {
	if len(cores) == 0 {
		return memacc.SpaceAny, nil
	}
	var space memacc.Space
	for _, name := range cores {
		idx, ok := tgt.CoreIndexByName(name)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrNoSuchCore, name)
		}
		space |= memacc.CoreSpace(idx)
	}
	return space, nil
}

func (s *Session) Target() *target.Target { return s.tgt }
func (s *Session) Logger() logging.Logger { return s.log }

// Core attaches to the core at index.
func (s *Session) Core(index int) (flashing.Core, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClose
	}
	if index < 0 || index >= len(s.tgt.Cores) {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchCore, index)
	}
	if s.attached != nil {
		return nil, fmt.Errorf("%w: %s", ErrCoreBusy, s.attached.name)
	}
	c := &core{
		s:     s,
		index: index,
		name:  s.tgt.Cores[index].Name,
		space: memacc.CoreSpace(index),
	}
	s.attached = c
	s.stats.Attaches = append(s.stats.Attaches, index)
	s.log.Logf(logging.SeverityDebug, "Attached to core %d (%s)", index, c.name)
	return c, nil
}

// Stats returns a copy of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Attaches = append([]int(nil), s.stats.Attaches...)
	return st
}

// Close releases the memory images. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.attached = nil
	return s.images.Close()
}

type core struct {
	s        *Session
	index    int
	name     string
	space    memacc.Space
	halted   bool
	detached bool
}

// check must be called with s.mu held.
func (c *core) check() error {
	if c.detached {
		return ErrDetached
	}
	return nil
}

func (c *core) Halt() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	c.halted = true
	return nil
}

func (c *core) ReadMemory(address uint64, data []byte) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if err := c.s.readFaults[c.index]; err != nil {
		return err
	}
	c.s.stats.Reads++

	err := c.s.ram.Read(address, c.space, data)
	if errors.Is(err, memacc.ErrNotMapped) {
		err = c.s.images.Read(address, c.space, data)
	}
	if err != nil {
		return err
	}
	c.s.stats.BytesRead += len(data)
	return nil
}

func (c *core) WriteMemory(address uint64, data []byte) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	c.s.stats.Writes++
	return c.s.ram.Write(address, c.space, data)
}

// Call checks that pc lies in RAM this core reaches and returns the
// session's configured result code.
func (c *core) Call(pc uint64, args ...uint64) (uint32, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.check(); err != nil {
		return 0, err
	}
	if !c.halted {
		return 0, ErrNotHalted
	}
	c.s.stats.Calls++
	var b [1]byte
	if err := c.s.ram.Read(pc, c.space, b[:]); err != nil {
		return 0, fmt.Errorf("%w: 0x%08x on core %s", ErrInvalidPC, pc, c.name)
	}
	c.s.log.Logf(logging.SeverityDebug, "Core %s: call 0x%08x %v -> %d", c.name, pc, args, c.s.callResult)
	return c.s.callResult, nil
}

func (c *core) Close() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.detached {
		return nil
	}
	c.detached = true
	if c.s.attached == c {
		c.s.attached = nil
	}
	c.s.log.Logf(logging.SeverityDebug, "Detached from core %s", c.name)
	return nil
}
