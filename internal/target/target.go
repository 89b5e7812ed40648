// Package target models a device description: its cores, its memory map
// and the flash algorithms that can program its non-volatile memory.
package target

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
)

// Core is one processing unit of the target.
type Core struct {
	Name string
	// Type is the architecture, e.g. "armv7em" or "riscv".
	Type string
}

// Target is a read-only view of one device description.
type Target struct {
	Name            string
	Cores           []Core
	MemoryMap       []MemoryRegion
	FlashAlgorithms []FlashAlgorithm
}

// NvmRegions returns the NVM entries of the memory map in order,
// aliases included.
func (t *Target) NvmRegions() []*NvmRegion {
	var out []*NvmRegion
	for _, region := range t.MemoryMap {
		if nvm, ok := AsNvmRegion(region); ok {
			out = append(out, nvm)
		}
	}
	return out
}

// RamRegions returns the RAM entries of the memory map in order.
func (t *Target) RamRegions() []*RamRegion {
	var out []*RamRegion
	for _, region := range t.MemoryMap {
		if ram, ok := AsRamRegion(region); ok {
			out = append(out, ram)
		}
	}
	return out
}

// FlashAlgorithmByName looks an algorithm up by its name.
func (t *Target) FlashAlgorithmByName(name string) (*FlashAlgorithm, bool) {
	for i := range t.FlashAlgorithms {
		if t.FlashAlgorithms[i].Name == name {
			return &t.FlashAlgorithms[i], true
		}
	}
	return nil, false
}

// CoreIndexByName returns the index of the named core.
func (t *Target) CoreIndexByName(name string) (int, bool) {
	for i, c := range t.Cores {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// CoreNames lists the core names in index order.
func (t *Target) CoreNames() []string {
	names := make([]string, len(t.Cores))
	for i, c := range t.Cores {
		names[i] = c.Name
	}
	return names
}

// Validate checks the description is internally consistent: names are
// unique, ranges are non-empty and every referenced core exists. All
// problems are reported together.
func (t *Target) Validate() error {
	var errs []error
	if t.Name == "" {
		errs = append(errs, errors.New("target name is empty"))
	}
	if len(t.Cores) == 0 {
		errs = append(errs, fmt.Errorf("target %s defines no cores", t.Name))
	}

	cores := t.CoreNames()
	seen := map[string]bool{}
	for _, name := range cores {
		if name == "" {
			errs = append(errs, errors.New("core with empty name"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("duplicate core %q", name))
		}
		seen[name] = true
	}

	for i, region := range t.MemoryMap {
		if region == nil {
			errs = append(errs, fmt.Errorf("memory region %d is nil", i))
			continue
		}
		if region.RegionRange().Empty() {
			errs = append(errs, fmt.Errorf("memory region %d (%s) has empty range %s", i, region.RegionName(), region.RegionRange()))
		}
		for _, c := range region.AccessCores() {
			if !seen[c] {
				errs = append(errs, unknownCoreError(fmt.Sprintf("memory region %d (%s)", i, region.RegionName()), c, cores))
			}
		}
	}

	algos := map[string]bool{}
	for _, algo := range t.FlashAlgorithms {
		if algos[algo.Name] {
			errs = append(errs, fmt.Errorf("duplicate flash algorithm %q", algo.Name))
		}
		algos[algo.Name] = true
		if algo.FlashProperties.AddressRange.Empty() {
			errs = append(errs, fmt.Errorf("flash algorithm %q has empty address range", algo.Name))
		}
		for _, c := range algo.Cores {
			if !seen[c] {
				errs = append(errs, unknownCoreError(fmt.Sprintf("flash algorithm %q", algo.Name), c, cores))
			}
		}
	}

	return errors.Join(errs...)
}

func unknownCoreError(where, name string, known []string) error {
	if s := suggest(name, known); s != "" {
		return fmt.Errorf("%s references unknown core %q (did you mean %q?)", where, name, s)
	}
	return fmt.Errorf("%s references unknown core %q", where, name)
}

// suggest returns the known name closest to name, or "" when nothing is
// within a third of the name's length.
func suggest(name string, known []string) string {
	type cand struct {
		name string
		dist int
	}
	var cands []cand
	for _, k := range known {
		cands = append(cands, cand{k, levenshtein.ComputeDistance(name, k)})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	limit := len(name)/3 + 1
	if cands[0].dist > limit {
		return ""
	}
	return cands[0].name
}
