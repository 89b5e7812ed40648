package flashing

import (
	"flashread/internal/logging"
	"flashread/internal/target"
)

// Session is an exclusively owned probe connection to one target. A read
// holds it for its whole duration.
type Session interface {
	Target() *target.Target
	// Core attaches to the core at index. The returned Core must be
	// closed before another core can be attached.
	Core(index int) (Core, error)
	Logger() logging.Logger
}

// Core is an attached, halted-or-haltable processor.
type Core interface {
	Halt() error
	ReadMemory(address uint64, data []byte) error
	WriteMemory(address uint64, data []byte) error
	// Call runs the routine at pc with args in the argument registers
	// and returns its result register once it halts again.
	Call(pc uint64, args ...uint64) (uint32, error)
	Close() error
}

func sessionLogger(s Session) logging.Logger {
	return orNoOp(s.Logger())
}
