package flashing

import (
	"fmt"

	"github.com/google/uuid"

	"flashread/internal/logging"
	"flashread/internal/target"
)

const defaultReadChunk = 0x400

// Flasher drives one flash algorithm on one core of a session. Each
// RunVerify call is one programming session: attach, load, init, run,
// uninit, detach.
type Flasher struct {
	id        uuid.UUID
	session   Session
	coreIndex int
	coreName  string
	algo      *Algorithm
	progress  *Progress
	log       logging.Logger
}

// NewFlasher assembles raw for the core at coreIndex. Assembly errors
// are returned as is.
func NewFlasher(session Session, coreIndex int, raw *target.FlashAlgorithm, progress *Progress) (*Flasher, error) {
	tgt := session.Target()
	if coreIndex < 0 || coreIndex >= len(tgt.Cores) {
		return nil, &Error{
			Code:    CodeCoreNotFound,
			Target:  tgt.Name,
			Message: fmt.Sprintf("core index %d", coreIndex),
		}
	}
	coreName := tgt.Cores[coreIndex].Name
	algo, err := assembleAlgorithm(raw, tgt, coreName)
	if err != nil {
		return nil, err
	}
	return &Flasher{
		id:        uuid.New(),
		session:   session,
		coreIndex: coreIndex,
		coreName:  coreName,
		algo:      algo,
		progress:  progress,
		log:       sessionLogger(session),
	}, nil
}

// ID identifies this flasher in progress events.
func (f *Flasher) ID() uuid.UUID { return f.id }

// Algorithm returns the assembled algorithm.
func (f *Flasher) Algorithm() *Algorithm { return f.algo }

// CoreName returns the name of the core the flasher runs on.
func (f *Flasher) CoreName() string { return f.coreName }

func (f *Flasher) event(kind ProgressEventKind, address uint64, size int, err error) {
	f.progress.Emit(ProgressEvent{
		Kind:      kind,
		SessionID: f.id,
		Algorithm: f.algo.Name,
		Core:      f.coreName,
		Address:   address,
		Size:      size,
		Err:       err,
	})
}

// RunVerify runs op inside a verify session. Uninit and core detach run
// on every path once the respective step has started. An op error wins
// over cleanup errors; op returning false without error is
// ErrVerifyFailed.
func (f *Flasher) RunVerify(op func(*ActiveFlasher) (bool, error)) (err error) {
	core, err := f.session.Core(f.coreIndex)
	if err != nil {
		return err
	}
	f.event(SessionOpened, 0, 0, nil)
	defer func() {
		if cerr := core.Close(); cerr != nil && err == nil {
			err = cerr
		}
		f.event(SessionClosed, 0, 0, err)
	}()

	active, err := f.init(core, FunctionVerify)
	if err != nil {
		return err
	}
	defer func() {
		if uerr := active.uninit(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	ok, err := op(active)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{
			Code:    CodeVerifyFailed,
			Target:  f.session.Target().Name,
			Message: fmt.Sprintf("algorithm %s on core %s", f.algo.Name, f.coreName),
		}
	}
	return nil
}

func (f *Flasher) init(core Core, fn Function) (*ActiveFlasher, error) {
	if err := core.Halt(); err != nil {
		return nil, err
	}
	if err := core.WriteMemory(f.algo.LoadAddress, f.algo.Instructions); err != nil {
		return nil, err
	}
	f.log.Logf(logging.SeverityDebug, "Loaded %s at 0x%08x on core %s", f.algo.Name, f.algo.LoadAddress, f.coreName)

	active := &ActiveFlasher{flasher: f, core: core, fn: fn}
	if f.algo.PCInit != nil {
		base := f.algo.Properties.AddressRange.Start
		if err := active.call("Init", *f.algo.PCInit, base, 0, uint64(fn)); err != nil {
			return nil, err
		}
	}
	return active, nil
}

// ActiveFlasher is a flasher with its algorithm loaded and initialised.
// It is only valid inside the op passed to RunVerify.
type ActiveFlasher struct {
	flasher *Flasher
	core    Core
	fn      Function
}

func (a *ActiveFlasher) call(routine string, pc uint64, args ...uint64) error {
	result, err := a.core.Call(pc, args...)
	if err != nil {
		return err
	}
	if result != 0 {
		return &Error{
			Code:    CodeRoutineFailed,
			Target:  a.flasher.session.Target().Name,
			Message: fmt.Sprintf("%s of %s returned %d", routine, a.flasher.algo.Name, result),
		}
	}
	return nil
}

func (a *ActiveFlasher) uninit() error {
	if a.flasher.algo.PCUninit == nil {
		return nil
	}
	return a.call("UnInit", *a.flasher.algo.PCUninit, uint64(a.fn))
}

// ReadFlash fills data from flash starting at address, one page-sized
// chunk at a time. Core errors are returned unchanged.
func (a *ActiveFlasher) ReadFlash(address uint64, data []byte) error {
	f := a.flasher
	f.event(ReadStarted, address, len(data), nil)

	chunk := int(f.algo.Properties.PageSize)
	if chunk <= 0 {
		chunk = defaultReadChunk
	}
	for off := 0; off < len(data); off += chunk {
		end := min(off+chunk, len(data))
		addr := address + uint64(off)
		if err := a.core.ReadMemory(addr, data[off:end]); err != nil {
			f.event(ReadFailed, addr, end-off, err)
			return err
		}
		f.event(ReadProgress, addr, end-off, nil)
	}
	f.event(ReadFinished, address, len(data), nil)
	return nil
}
