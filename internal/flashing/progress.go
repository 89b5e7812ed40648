package flashing

import (
	"fmt"

	"github.com/google/uuid"
)

// ProgressEventKind says what happened in a flasher session.
type ProgressEventKind int

const (
	SessionOpened ProgressEventKind = iota
	ReadStarted
	ReadProgress
	ReadFinished
	ReadFailed
	SessionClosed
)

func (k ProgressEventKind) String() string {
	switch k {
	case SessionOpened:
		return "SESSION_OPENED"
	case ReadStarted:
		return "READ_STARTED"
	case ReadProgress:
		return "READ_PROGRESS"
	case ReadFinished:
		return "READ_FINISHED"
	case ReadFailed:
		return "READ_FAILED"
	case SessionClosed:
		return "SESSION_CLOSED"
	default:
		return fmt.Sprintf("KIND_%d", int(k))
	}
}

// ProgressEvent reports one step of a flasher session. Address and Size
// describe the whole read for ReadStarted and ReadFinished, and the chunk
// for ReadProgress and ReadFailed. They are zero for SessionOpened and
// SessionClosed.
type ProgressEvent struct {
	Kind      ProgressEventKind
	SessionID uuid.UUID
	Algorithm string
	Core      string
	Address   uint64
	Size      int
	Err       error
}

// Progress is the sink a read reports to. A nil *Progress discards
// events. Handlers run on the reading goroutine, once per event.
type Progress struct {
	handler func(ProgressEvent)
}

// NewProgress wraps handler; a nil handler discards events.
func NewProgress(handler func(ProgressEvent)) *Progress {
	return &Progress{handler: handler}
}

// Clone returns a Progress reporting to the same handler.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	return &Progress{handler: p.handler}
}

// Emit delivers ev to the handler.
func (p *Progress) Emit(ev ProgressEvent) {
	if p == nil || p.handler == nil {
		return
	}
	p.handler(ev)
}
