package flashing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"

	"flashread/internal/logging"
	"flashread/internal/target"
)

func u64(v uint64) *uint64 { return &v }

func rng(start, end uint64) target.Range { return target.Range{Start: start, End: end} }

var (
	mainInstr = []byte{0xe0, 0x20, 0xbf, 0xd4, 0x00, 0x00, 0x00, 0x00}
	auxInstr  = []byte{0xe0, 0x20, 0xbf, 0xd4}
)

// testTarget has two cores. Its groups are main-algo@main (flash, info)
// and aux-algo@aux (aux-flash); the alias entry is covered by nothing.
func testTarget() *target.Target {
	return &target.Target{
		Name: "test-dual",
		Cores: []target.Core{
			{Name: "main", Type: "armv7em"},
			{Name: "aux", Type: "armv6m"},
		},
		MemoryMap: []target.MemoryRegion{
			&target.NvmRegion{Name: "flash", Range: rng(0, 0x10000), Cores: []string{"main"}},
			&target.NvmRegion{Name: "flash-alias", Range: rng(0x08000000, 0x08010000), IsAlias: true, Cores: []string{"main"}},
			&target.NvmRegion{Name: "info", Range: rng(0x10000, 0x11000), Cores: []string{"main"}},
			&target.NvmRegion{Name: "aux-flash", Range: rng(0x100000, 0x120000), Cores: []string{"aux"}},
			&target.RamRegion{Name: "ram", Range: rng(0x20000000, 0x20010000), Cores: []string{"main"}},
			&target.RamRegion{Name: "aux-ram", Range: rng(0x21000000, 0x21004000), Cores: []string{"aux"}},
			&target.GenericRegion{Name: "periph", Range: rng(0x40000000, 0x50000000)},
		},
		FlashAlgorithms: []target.FlashAlgorithm{
			{
				Name:         "main-algo",
				Default:      true,
				Cores:        []string{"main"},
				Instructions: mainInstr,
				PCInit:       u64(1),
				PCUninit:     u64(5),
				StackSize:    0x800,
				FlashProperties: target.FlashProperties{
					AddressRange: rng(0, 0x20000),
					PageSize:     0x100,
				},
			},
			{
				Name:         "aux-algo",
				Cores:        []string{"aux"},
				Instructions: auxInstr,
				FlashProperties: target.FlashProperties{
					AddressRange: rng(0x100000, 0x120000),
					PageSize:     0x100,
				},
			},
		},
	}
}

// singleGroupTarget is testTarget without the aux core's flash.
func singleGroupTarget() *target.Target {
	tgt := testTarget()
	var kept []target.MemoryRegion
	for _, r := range tgt.MemoryMap {
		if r.RegionName() != "aux-flash" {
			kept = append(kept, r)
		}
	}
	tgt.MemoryMap = kept
	tgt.FlashAlgorithms = tgt.FlashAlgorithms[:1]
	return tgt
}

func memByte(core int, addr uint64) byte { return byte(addr*3) + byte(core)*0x40 }

var errFakeBusy = errors.New("fake session: core already attached")

// fakeSession records every core operation as a string in ops.
type fakeSession struct {
	tgt        *target.Target
	readErr    map[int]error
	callResult uint32
	ops        []string
	attached   int
	attaches   []int
	overlapped bool
}

func newFakeSession(tgt *target.Target) *fakeSession {
	return &fakeSession{tgt: tgt, attached: -1, readErr: map[int]error{}}
}

func (s *fakeSession) Target() *target.Target { return s.tgt }
func (s *fakeSession) Logger() logging.Logger { return logging.NoOpLogger{} }

func (s *fakeSession) Core(index int) (Core, error) {
	if s.attached >= 0 {
		s.overlapped = true
		return nil, errFakeBusy
	}
	s.attached = index
	s.attaches = append(s.attaches, index)
	s.record(index, "attach")
	return &fakeCore{s: s, index: index}, nil
}

func (s *fakeSession) record(index int, format string, args ...any) {
	s.ops = append(s.ops, fmt.Sprintf("%d:", index)+fmt.Sprintf(format, args...))
}

type fakeCore struct {
	s     *fakeSession
	index int
}

func (c *fakeCore) Halt() error {
	c.s.record(c.index, "halt")
	return nil
}

func (c *fakeCore) ReadMemory(address uint64, data []byte) error {
	c.s.record(c.index, "read 0x%x+%d", address, len(data))
	if err := c.s.readErr[c.index]; err != nil {
		return err
	}
	for i := range data {
		data[i] = memByte(c.index, address+uint64(i))
	}
	return nil
}

func (c *fakeCore) WriteMemory(address uint64, data []byte) error {
	c.s.record(c.index, "write 0x%x+%d", address, len(data))
	return nil
}

func (c *fakeCore) Call(pc uint64, args ...uint64) (uint32, error) {
	c.s.record(c.index, "call 0x%x %v", pc, args)
	return c.s.callResult, nil
}

func (c *fakeCore) Close() error {
	c.s.record(c.index, "detach")
	c.s.attached = -1
	return nil
}

// mockCore is a testify mock of Core.
type mockCore struct{ mock.Mock }

func (m *mockCore) Halt() error { return m.Called().Error(0) }

func (m *mockCore) ReadMemory(address uint64, data []byte) error {
	ret := m.Called(address, len(data))
	if fill, ok := ret.Get(0).(byte); ok {
		for i := range data {
			data[i] = fill
		}
	}
	return ret.Error(1)
}

func (m *mockCore) WriteMemory(address uint64, data []byte) error {
	return m.Called(address, data).Error(0)
}

func (m *mockCore) Call(pc uint64, args ...uint64) (uint32, error) {
	ret := m.Called(pc, args)
	return ret.Get(0).(uint32), ret.Error(1)
}

func (m *mockCore) Close() error { return m.Called().Error(0) }

// mockSession hands out one core.
type mockSession struct {
	tgt     *target.Target
	core    Core
	coreErr error
}

func (s *mockSession) Target() *target.Target { return s.tgt }
func (s *mockSession) Logger() logging.Logger { return nil }

func (s *mockSession) Core(int) (Core, error) {
	if s.coreErr != nil {
		return nil, s.coreErr
	}
	return s.core, nil
}

// eventLog collects progress events.
type eventLog struct{ events []ProgressEvent }

func (l *eventLog) progress() *Progress {
	return NewProgress(func(ev ProgressEvent) { l.events = append(l.events, ev) })
}

func (l *eventLog) kinds() []ProgressEventKind {
	out := make([]ProgressEventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func requireNoOverlap(t *testing.T, s *fakeSession) {
	t.Helper()
	if s.overlapped {
		t.Fatalf("two cores were attached at the same time; ops: %v", s.ops)
	}
}
