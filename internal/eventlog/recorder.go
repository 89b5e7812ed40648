package eventlog

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"flashread/internal/flashing"
)

// Recorder turns the progress events of one read into Events. Each
// recorder carries a fresh operation ID.
type Recorder struct {
	logger Logger
	opID   uuid.UUID
	now    func() time.Time
}

// NewRecorder records to logger; a nil logger discards events.
func NewRecorder(logger Logger) *Recorder {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &Recorder{logger: logger, opID: uuid.New(), now: time.Now}
}

// OperationID returns the ID stamped on every event.
func (r *Recorder) OperationID() uuid.UUID { return r.opID }

// Progress returns a progress sink feeding this recorder.
func (r *Recorder) Progress() *flashing.Progress {
	return flashing.NewProgress(r.Record)
}

// Record converts ev and logs it.
func (r *Recorder) Record(ev flashing.ProgressEvent) {
	event := Event{
		Timestamp:   r.now(),
		OperationID: r.opID.String(),
		SessionID:   ev.SessionID.String(),
		Kind:        kindOf(ev.Kind),
		Algorithm:   ev.Algorithm,
		Core:        ev.Core,
		Address:     ev.Address,
		Size:        ev.Size,
	}
	if ev.Err != nil {
		event.Error = ev.Err.Error()
	}
	r.logger.Log(event)
}

func kindOf(k flashing.ProgressEventKind) Kind {
	switch k {
	case flashing.SessionOpened:
		return KindSessionOpened
	case flashing.ReadStarted:
		return KindReadStarted
	case flashing.ReadProgress:
		return KindReadProgress
	case flashing.ReadFinished:
		return KindReadFinished
	case flashing.ReadFailed:
		return KindReadFailed
	case flashing.SessionClosed:
		return KindSessionClosed
	}
	panic(fmt.Sprintf("eventlog: unknown progress kind %d", int(k)))
}

// CheckExclusive reports the first point in events where two sessions
// of one operation were open at the same time, or where an event
// appears outside its session.
func CheckExclusive(events []Event) error {
	open := map[string]string{}
	for i, ev := range events {
		current, isOpen := open[ev.OperationID]
		switch ev.Kind {
		case KindSessionOpened:
			if isOpen {
				return fmt.Errorf("event %d: session %s opened while %s is open", i, ev.SessionID, current)
			}
			open[ev.OperationID] = ev.SessionID
		case KindSessionClosed:
			if !isOpen || current != ev.SessionID {
				return fmt.Errorf("event %d: session %s closed but not open", i, ev.SessionID)
			}
			delete(open, ev.OperationID)
		default:
			if !isOpen || current != ev.SessionID {
				return fmt.Errorf("event %d: %s for session %s outside that session", i, ev.Kind, ev.SessionID)
			}
		}
	}
	if len(open) > 0 {
		ops := make([]string, 0, len(open))
		for k := range open {
			ops = append(ops, k)
		}
		slices.Sort(ops)
		op := ops[0]
		return fmt.Errorf("operation %s: session %s never closed", op, open[op])
	}
	return nil
}
