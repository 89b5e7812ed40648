package flashing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"flashread/internal/target"
)

func TestAssembleAlgorithm(t *testing.T) {
	tgt := testTarget()

	mainAlgo, err := assembleAlgorithm(&tgt.FlashAlgorithms[0], tgt, "main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x20000000), mainAlgo.LoadAddress)
	assert.Equal(t, uint64(0x20000001), *mainAlgo.PCInit)
	assert.Equal(t, uint64(0x20000005), *mainAlgo.PCUninit)
	assert.Equal(t, uint64(0x20000000+8+0x800), mainAlgo.StackTop)

	aux, err := assembleAlgorithm(&tgt.FlashAlgorithms[1], tgt, "aux")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x21000000), aux.LoadAddress)
	assert.Nil(t, aux.PCInit)
	assert.Nil(t, aux.PCUninit)
	assert.Equal(t, uint64(0x21000000+4+defaultStackSize), aux.StackTop)

	explicit := tgt.FlashAlgorithms[0]
	explicit.LoadAddress = u64(0x20008000)
	placed, err := assembleAlgorithm(&explicit, tgt, "main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x20008000), placed.LoadAddress)
	assert.Equal(t, uint64(0x20008001), *placed.PCInit)
}

func TestNewFlasherErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(tgt *target.Target)
		coreIndex int
		wantErr   error
	}{
		{
			name: "no ram for core",
			mutate: func(tgt *target.Target) {
				var kept []target.MemoryRegion
				for _, r := range tgt.MemoryMap {
					if r.RegionName() != "ram" {
						kept = append(kept, r)
					}
				}
				tgt.MemoryMap = kept
			},
			wantErr: ErrNoRamDefined,
		},
		{
			name: "load address in other core's ram",
			mutate: func(tgt *target.Target) {
				tgt.FlashAlgorithms[0].LoadAddress = u64(0x21000000)
			},
			wantErr: ErrInvalidAlgorithmLoadAddress,
		},
		{
			name: "stack does not fit",
			mutate: func(tgt *target.Target) {
				tgt.FlashAlgorithms[0].StackSize = 0x10000
			},
			wantErr: ErrAlgorithmTooLarge,
		},
		{
			name: "explicit load address near the end of ram",
			mutate: func(tgt *target.Target) {
				tgt.FlashAlgorithms[0].LoadAddress = u64(0x2000f800)
			},
			wantErr: ErrAlgorithmTooLarge,
		},
		{
			name:      "core index out of range",
			mutate:    func(*target.Target) {},
			coreIndex: 5,
			wantErr:   ErrCoreNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt := testTarget()
			tt.mutate(tgt)
			sess := &mockSession{tgt: tgt}
			f, err := NewFlasher(sess, tt.coreIndex, &tgt.FlashAlgorithms[0], nil)
			assert.Nil(t, f)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func newMockFlasher(t *testing.T, core *mockCore, progress *Progress) *Flasher {
	t.Helper()
	tgt := testTarget()
	f, err := NewFlasher(&mockSession{tgt: tgt, core: core}, 0, &tgt.FlashAlgorithms[0], progress)
	require.NoError(t, err)
	return f
}

func expectSetup(core *mockCore) {
	core.On("Halt").Return(nil).Once()
	core.On("WriteMemory", uint64(0x20000000), mainInstr).Return(nil).Once()
	core.On("Call", uint64(0x20000001), []uint64{0, 0, 3}).Return(uint32(0), nil).Once()
}

func TestRunVerifySequence(t *testing.T) {
	core := &mockCore{}
	mock.InOrder(
		core.On("Halt").Return(nil),
		core.On("WriteMemory", uint64(0x20000000), mainInstr).Return(nil),
		core.On("Call", uint64(0x20000001), []uint64{0, 0, 3}).Return(uint32(0), nil),
		core.On("ReadMemory", uint64(0x10), 4).Return(byte(0x5a), nil),
		core.On("Call", uint64(0x20000005), []uint64{3}).Return(uint32(0), nil),
		core.On("Close").Return(nil),
	)

	f := newMockFlasher(t, core, nil)
	data := make([]byte, 4)
	err := f.RunVerify(func(active *ActiveFlasher) (bool, error) {
		return true, active.ReadFlash(0x10, data)
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5a, 0x5a, 0x5a, 0x5a}, data)
	core.AssertExpectations(t)
}

func TestRunVerifyOpErrorStillCleansUp(t *testing.T) {
	errOp := errors.New("op failed")
	core := &mockCore{}
	expectSetup(core)
	core.On("Call", uint64(0x20000005), []uint64{3}).Return(uint32(7), nil).Once()
	core.On("Close").Return(errors.New("detach failed")).Once()

	f := newMockFlasher(t, core, nil)
	err := f.RunVerify(func(*ActiveFlasher) (bool, error) { return false, errOp })
	assert.Same(t, errOp, err, "op error wins over cleanup errors")
	core.AssertExpectations(t)
}

func TestRunVerifyOpReportsFailure(t *testing.T) {
	core := &mockCore{}
	expectSetup(core)
	core.On("Call", uint64(0x20000005), []uint64{3}).Return(uint32(0), nil).Once()
	core.On("Close").Return(nil).Once()

	f := newMockFlasher(t, core, nil)
	err := f.RunVerify(func(*ActiveFlasher) (bool, error) { return false, nil })
	require.ErrorIs(t, err, ErrVerifyFailed)
	core.AssertExpectations(t)
}

func TestRunVerifyUninitFailure(t *testing.T) {
	core := &mockCore{}
	expectSetup(core)
	core.On("Call", uint64(0x20000005), []uint64{3}).Return(uint32(1), nil).Once()
	core.On("Close").Return(nil).Once()

	f := newMockFlasher(t, core, nil)
	err := f.RunVerify(func(*ActiveFlasher) (bool, error) { return true, nil })
	require.ErrorIs(t, err, ErrRoutineFailed)
	assert.Contains(t, err.Error(), "UnInit of main-algo returned 1")
	core.AssertExpectations(t)
}

func TestRunVerifyHaltFailureDetaches(t *testing.T) {
	errHalt := errors.New("halt timeout")
	core := &mockCore{}
	core.On("Halt").Return(errHalt).Once()
	core.On("Close").Return(nil).Once()

	var events eventLog
	f := newMockFlasher(t, core, events.progress())
	called := false
	err := f.RunVerify(func(*ActiveFlasher) (bool, error) {
		called = true
		return true, nil
	})
	assert.Same(t, errHalt, err)
	assert.False(t, called)
	core.AssertExpectations(t)
	core.AssertNotCalled(t, "Call", mock.Anything, mock.Anything)

	assert.Equal(t, []ProgressEventKind{SessionOpened, SessionClosed}, events.kinds())
	assert.Same(t, errHalt, events.events[1].Err)
}

func TestRunVerifyAttachFailure(t *testing.T) {
	errAttach := errors.New("core locked")
	tgt := testTarget()
	var events eventLog
	f, err := NewFlasher(&mockSession{tgt: tgt, coreErr: errAttach}, 0, &tgt.FlashAlgorithms[0], events.progress())
	require.NoError(t, err)

	err = f.RunVerify(func(*ActiveFlasher) (bool, error) { return true, nil })
	assert.Same(t, errAttach, err)
	assert.Empty(t, events.events)
}

func TestReadFlashReportsFailedChunk(t *testing.T) {
	errRead := errors.New("fault")
	core := &mockCore{}
	expectSetup(core)
	core.On("ReadMemory", uint64(0x0), 0x100).Return(nil, nil).Once()
	core.On("ReadMemory", uint64(0x100), 0x10).Return(nil, errRead).Once()
	core.On("Call", uint64(0x20000005), []uint64{3}).Return(uint32(0), nil).Once()
	core.On("Close").Return(nil).Once()

	var events eventLog
	f := newMockFlasher(t, core, events.progress())
	err := f.RunVerify(func(active *ActiveFlasher) (bool, error) {
		return true, active.ReadFlash(0, make([]byte, 0x110))
	})
	assert.Same(t, errRead, err)
	core.AssertExpectations(t)

	want := []ProgressEventKind{SessionOpened, ReadStarted, ReadProgress, ReadFailed, SessionClosed}
	assert.Equal(t, want, events.kinds())
	failed := events.events[3]
	assert.Equal(t, uint64(0x100), failed.Address)
	assert.Equal(t, 0x10, failed.Size)
	assert.Same(t, errRead, failed.Err)
}
