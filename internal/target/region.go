package target

import "fmt"

// Range is a half-open address range [Start, End).
type Range struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
}

// Len returns the number of bytes in the range.
func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range holds no addresses.
func (r Range) Empty() bool { return r.End <= r.Start }

// Contains tests if addr lies in the range.
func (r Range) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

// ContainsRange tests if other lies entirely in the range.
func (r Range) ContainsRange(other Range) bool {
	return other.Start >= r.Start && other.End <= r.End && other.Start <= other.End
}

// Intersects tests if the two ranges share at least one address.
func (r Range) Intersects(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("0x%08x..0x%08x", r.Start, r.End)
}

// MemoryRegion is one entry of a target memory map. The concrete types
// are *NvmRegion, *RamRegion and *GenericRegion.
type MemoryRegion interface {
	RegionName() string
	RegionRange() Range
	AccessCores() []string
	isMemoryRegion()
}

// NvmRegion describes non-volatile memory served by a flash algorithm.
// An alias region is a second view of memory a primary region already
// covers.
type NvmRegion struct {
	Name    string
	Range   Range
	IsAlias bool
	Cores   []string
}

func (r *NvmRegion) RegionName() string    { return r.Name }
func (r *NvmRegion) RegionRange() Range    { return r.Range }
func (r *NvmRegion) AccessCores() []string { return r.Cores }
func (*NvmRegion) isMemoryRegion()         {}

// Clone returns a deep copy so callers may hold regions past the target.
func (r *NvmRegion) Clone() NvmRegion {
	c := *r
	c.Cores = append([]string(nil), r.Cores...)
	return c
}

func (r *NvmRegion) String() string {
	name := r.Name
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("nvm %s %s cores=%v", name, r.Range, r.Cores)
}

// RamRegion is volatile memory. Flash algorithms are loaded into RAM.
type RamRegion struct {
	Name         string
	Range        Range
	IsBootMemory bool
	Cores        []string
}

func (r *RamRegion) RegionName() string    { return r.Name }
func (r *RamRegion) RegionRange() Range    { return r.Range }
func (r *RamRegion) AccessCores() []string { return r.Cores }
func (*RamRegion) isMemoryRegion()         {}

// GenericRegion is any other mapped memory, e.g. peripherals.
type GenericRegion struct {
	Name  string
	Range Range
	Cores []string
}

func (r *GenericRegion) RegionName() string    { return r.Name }
func (r *GenericRegion) RegionRange() Range    { return r.Range }
func (r *GenericRegion) AccessCores() []string { return r.Cores }
func (*GenericRegion) isMemoryRegion()         {}

// AsNvmRegion returns the NVM payload of region, if it has one.
func AsNvmRegion(region MemoryRegion) (*NvmRegion, bool) {
	nvm, ok := region.(*NvmRegion)
	return nvm, ok && nvm != nil
}

// AsRamRegion returns the RAM payload of region, if it has one.
func AsRamRegion(region MemoryRegion) (*RamRegion, bool) {
	ram, ok := region.(*RamRegion)
	return ram, ok && ram != nil
}

// HasCore reports whether name is in cores.
func HasCore(cores []string, name string) bool {
	for _, c := range cores {
		if c == name {
			return true
		}
	}
	return false
}
