package target

// SectorDescription describes a run of equally sized sectors starting at
// Address and continuing until the next description.
type SectorDescription struct {
	Size    uint64 `yaml:"size"`
	Address uint64 `yaml:"address"`
}

// FlashProperties describes the flash a single algorithm drives.
type FlashProperties struct {
	AddressRange    Range               `yaml:"address_range"`
	PageSize        uint32              `yaml:"page_size"`
	ErasedByteValue byte                `yaml:"erased_byte_value"`
	Sectors         []SectorDescription `yaml:"sectors"`
}

// FlashAlgorithm is the raw, target-description form of an on-chip
// programming routine. It is identified by Name.
type FlashAlgorithm struct {
	Name        string
	Description string
	// Default picks this algorithm when several cover the same region.
	Default bool
	// Cores that may run the algorithm; empty means any core.
	Cores        []string
	Instructions []byte
	// LoadAddress pins the algorithm in RAM; nil lets the flasher choose.
	LoadAddress     *uint64
	PCInit          *uint64
	PCUninit        *uint64
	StackSize       uint32
	FlashProperties FlashProperties
}

// ServesCore reports whether the algorithm may run on core.
func (a *FlashAlgorithm) ServesCore(core string) bool {
	return len(a.Cores) == 0 || HasCore(a.Cores, core)
}

// ServesAnyCore reports whether any of cores may run the algorithm.
func (a *FlashAlgorithm) ServesAnyCore(cores []string) bool {
	if len(a.Cores) == 0 {
		return true
	}
	for _, c := range cores {
		if HasCore(a.Cores, c) {
			return true
		}
	}
	return false
}

// Covers reports whether the algorithm's flash contains r.
func (a *FlashAlgorithm) Covers(r Range) bool {
	return a.FlashProperties.AddressRange.ContainsRange(r)
}
