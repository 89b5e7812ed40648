package flashing

import (
	"fmt"
	"strings"

	"flashread/internal/target"
)

// Code identifies a reportable flashing failure.
type Code uint32

const (
	CodeNone Code = iota
	CodeNoFlashAlgorithm
	CodeMultipleAlgorithmsNoDefault
	CodeMultipleDefaultAlgorithms
	CodeNoNvmCoreAccess
	CodeNoRamDefined
	CodeInvalidAlgorithmLoadAddress
	CodeAlgorithmTooLarge
	CodeCoreNotFound
	CodeRoutineFailed
	CodeVerifyFailed
)

type codeDesc struct {
	name string
	msg  string
}

var codeDescs = map[Code]codeDesc{
	CodeNone:                        {"NONE", "No error."},
	CodeNoFlashAlgorithm:            {"NO_FLASH_ALGORITHM", "No flash algorithm covers the region."},
	CodeMultipleAlgorithmsNoDefault: {"MULTIPLE_ALGORITHMS_NO_DEFAULT", "Several flash algorithms cover the region and none is the default."},
	CodeMultipleDefaultAlgorithms:   {"MULTIPLE_DEFAULT_ALGORITHMS", "Several default flash algorithms cover the region."},
	CodeNoNvmCoreAccess:             {"NO_NVM_CORE_ACCESS", "No core can access the region."},
	CodeNoRamDefined:                {"NO_RAM_DEFINED", "No RAM reachable by the core to load the flash algorithm into."},
	CodeInvalidAlgorithmLoadAddress: {"INVALID_ALGORITHM_LOAD_ADDRESS", "Flash algorithm load address is not in RAM reachable by the core."},
	CodeAlgorithmTooLarge:           {"ALGORITHM_TOO_LARGE", "Flash algorithm code and stack do not fit in RAM."},
	CodeCoreNotFound:                {"CORE_NOT_FOUND", "Core index is not defined by the target."},
	CodeRoutineFailed:               {"ROUTINE_FAILED", "Flash algorithm routine returned a failure code."},
	CodeVerifyFailed:                {"VERIFY_FAILED", "Verified operation reported failure."},
}

func (c Code) String() string {
	if d, ok := codeDescs[c]; ok {
		return d.name
	}
	return fmt.Sprintf("CODE_%d", uint32(c))
}

// Error is a reportable flashing failure. The code decides identity:
// errors.Is matches any *Error with the same code, so the sentinels
// below work for every instance.
type Error struct {
	Code Code
	// Region is the NVM region concerned, when there is one.
	Region *target.NvmRegion
	// Target is the name of the target description.
	Target string
	// Candidates lists the algorithm names an ambiguous lookup found.
	Candidates []string
	Message    string
	Err        error
}

var (
	ErrNoFlashAlgorithm            = &Error{Code: CodeNoFlashAlgorithm}
	ErrMultipleAlgorithmsNoDefault = &Error{Code: CodeMultipleAlgorithmsNoDefault}
	ErrMultipleDefaultAlgorithms   = &Error{Code: CodeMultipleDefaultAlgorithms}
	ErrNoNvmCoreAccess             = &Error{Code: CodeNoNvmCoreAccess}
	ErrNoRamDefined                = &Error{Code: CodeNoRamDefined}
	ErrInvalidAlgorithmLoadAddress = &Error{Code: CodeInvalidAlgorithmLoadAddress}
	ErrAlgorithmTooLarge           = &Error{Code: CodeAlgorithmTooLarge}
	ErrCoreNotFound                = &Error{Code: CodeCoreNotFound}
	ErrRoutineFailed               = &Error{Code: CodeRoutineFailed}
	ErrVerifyFailed                = &Error{Code: CodeVerifyFailed}
)

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.String())
	if d, ok := codeDescs[e.Code]; ok {
		fmt.Fprintf(&sb, " [%s]", d.msg)
	}
	if e.Region != nil {
		fmt.Fprintf(&sb, " region=%s", e.Region)
	}
	if e.Target != "" {
		fmt.Fprintf(&sb, " target=%s", e.Target)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&sb, " candidates=%s", strings.Join(e.Candidates, ","))
	}
	if e.Message != "" {
		sb.WriteString("; ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func regionError(code Code, region *target.NvmRegion, targetName string) *Error {
	r := region.Clone()
	return &Error{Code: code, Region: &r, Target: targetName}
}
