package flashing

import (
	"fmt"

	"flashread/internal/target"
)

// Function codes passed to a flash algorithm's Init and UnInit routines.
type Function uint64

const (
	FunctionErase   Function = 1
	FunctionProgram Function = 2
	FunctionVerify  Function = 3
)

func (f Function) String() string {
	switch f {
	case FunctionErase:
		return "erase"
	case FunctionProgram:
		return "program"
	case FunctionVerify:
		return "verify"
	default:
		return fmt.Sprintf("function(%d)", uint64(f))
	}
}

const defaultStackSize = 0x200

// Algorithm is a flash algorithm placed in the RAM of one core. Routine
// addresses are absolute.
type Algorithm struct {
	Name         string
	LoadAddress  uint64
	Instructions []byte
	PCInit       *uint64
	PCUninit     *uint64
	// StackTop is the initial stack pointer; the stack grows down from it
	// towards the end of the instructions.
	StackTop   uint64
	Properties target.FlashProperties
}

// assembleAlgorithm places raw in RAM reachable by coreName. The load
// address is raw.LoadAddress when set, otherwise the start of the first
// reachable RAM region.
func assembleAlgorithm(raw *target.FlashAlgorithm, tgt *target.Target, coreName string) (*Algorithm, error) {
	stack := uint64(raw.StackSize)
	if stack == 0 {
		stack = defaultStackSize
	}
	need := uint64(len(raw.Instructions)) + stack

	var reachable []*target.RamRegion
	for _, ram := range tgt.RamRegions() {
		if len(ram.Cores) == 0 || target.HasCore(ram.Cores, coreName) {
			reachable = append(reachable, ram)
		}
	}
	if len(reachable) == 0 {
		return nil, &Error{
			Code:    CodeNoRamDefined,
			Target:  tgt.Name,
			Message: fmt.Sprintf("algorithm %s, core %s", raw.Name, coreName),
		}
	}

	var ram *target.RamRegion
	load := reachable[0].Range.Start
	if raw.LoadAddress != nil {
		load = *raw.LoadAddress
		for _, r := range reachable {
			if r.Range.Contains(load) {
				ram = r
				break
			}
		}
		if ram == nil {
			return nil, &Error{
				Code:    CodeInvalidAlgorithmLoadAddress,
				Target:  tgt.Name,
				Message: fmt.Sprintf("algorithm %s load address 0x%08x, core %s", raw.Name, load, coreName),
			}
		}
	} else {
		ram = reachable[0]
	}

	if avail := ram.Range.End - load; need > avail {
		return nil, &Error{
			Code:   CodeAlgorithmTooLarge,
			Target: tgt.Name,
			Message: fmt.Sprintf("algorithm %s needs 0x%x bytes at 0x%08x, %s has 0x%x",
				raw.Name, need, load, ram.Name, avail),
		}
	}

	algo := &Algorithm{
		Name:         raw.Name,
		LoadAddress:  load,
		Instructions: raw.Instructions,
		StackTop:     load + need,
		Properties:   raw.FlashProperties,
	}
	if raw.PCInit != nil {
		pc := load + *raw.PCInit
		algo.PCInit = &pc
	}
	if raw.PCUninit != nil {
		pc := load + *raw.PCUninit
		algo.PCUninit = &pc
	}
	return algo, nil
}
