package eventlog

import "time"

// Event is one step of a flash read session.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event was recorded (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// OperationID identifies the read request (UUID). All sessions of one
	// read share it.
	OperationID string `cbor:"2,keyasint"`

	// SessionID identifies the flasher session (UUID).
	SessionID string `cbor:"3,keyasint"`

	Kind Kind `cbor:"4,keyasint"`

	Algorithm string `cbor:"5,keyasint,omitempty"`
	Core      string `cbor:"6,keyasint,omitempty"`
	Address   uint64 `cbor:"7,keyasint,omitempty"`
	Size      int    `cbor:"8,keyasint,omitempty"`

	// Error is the failure text for failed reads and sessions.
	Error string `cbor:"9,keyasint,omitempty"`
}

// Kind classifies the event.
type Kind uint8

const (
	KindSessionOpened Kind = 0
	KindReadStarted   Kind = 1
	KindReadProgress  Kind = 2
	KindReadFinished  Kind = 3
	KindReadFailed    Kind = 4
	KindSessionClosed Kind = 5
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSessionOpened:
		return "SESSION_OPENED"
	case KindReadStarted:
		return "READ_STARTED"
	case KindReadProgress:
		return "READ_PROGRESS"
	case KindReadFinished:
		return "READ_FINISHED"
	case KindReadFailed:
		return "READ_FAILED"
	case KindSessionClosed:
		return "SESSION_CLOSED"
	default:
		return "UNKNOWN"
	}
}
