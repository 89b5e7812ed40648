// Package flashing reads target flash through flash algorithms. A read
// works out which algorithm and core serve each NVM region, groups the
// regions by that pair and runs one verify session per group.
package flashing

import (
	"fmt"
	"sort"

	"flashread/internal/logging"
	"flashread/internal/target"
)

// GroupKey identifies one (algorithm, core) pair.
type GroupKey struct {
	Algorithm string
	Core      string
}

func (k GroupKey) String() string { return k.Algorithm + "@" + k.Core }

func (k GroupKey) less(o GroupKey) bool {
	if k.Algorithm != o.Algorithm {
		return k.Algorithm < o.Algorithm
	}
	return k.Core < o.Core
}

// Group is the set of regions one flasher session serves.
type Group struct {
	Key       GroupKey
	Algorithm *target.FlashAlgorithm
	CoreIndex int
	Regions   []*target.NvmRegion
}

// Read fills data from target memory starting at address. One verify
// session runs per (algorithm, core) group, in GroupKey order, each one
// reading the full range. The first error stops the read and is returned.
func Read(session Session, progress *Progress, address uint64, data []byte) error {
	log := sessionLogger(session)
	log.Logf(logging.SeverityWarning, "Read %d bytes from 0x%08x", len(data), address)

	groups, err := Plan(session.Target(), log)
	if err != nil {
		return err
	}
	for _, g := range groups {
		log.Logf(logging.SeverityDebug, "Reading with algorithm %s on core %s", g.Key.Algorithm, g.Key.Core)
		flasher, err := NewFlasher(session, g.CoreIndex, g.Algorithm, progress.Clone())
		if err != nil {
			return err
		}
		err = flasher.RunVerify(func(active *ActiveFlasher) (bool, error) {
			if err := active.ReadFlash(address, data); err != nil {
				return false, err
			}
			return true, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Plan classifies, resolves and groups the NVM regions of tgt without
// touching hardware. log may be nil.
func Plan(tgt *target.Target, log logging.Logger) ([]Group, error) {
	log = orNoOp(log)
	regions := ClassifyRegions(tgt, log)
	return BuildGroups(tgt, regions, log)
}

// ClassifyRegions returns the NVM regions of tgt in memory map order,
// alias entries removed. log may be nil.
func ClassifyRegions(tgt *target.Target, log logging.Logger) []*target.NvmRegion {
	log = orNoOp(log)
	var out []*target.NvmRegion
	for _, region := range tgt.NvmRegions() {
		if region.IsAlias {
			log.Logf(logging.SeverityDebug, "Skipping alias memory region %s", region.Range)
			continue
		}
		log.Logf(logging.SeverityDebug, "Checking region: %s", region.Range)
		out = append(out, region)
	}
	return out
}

// Coverage is the algorithm and core resolved for one region.
type Coverage struct {
	Region    *target.NvmRegion
	Algorithm *target.FlashAlgorithm
	Core      string
}

// ResolveCoverage picks the algorithm and the core serving region. The
// core is the first one in the region's list that the algorithm may run
// on, which is the region's first core unless the algorithm is limited.
func ResolveCoverage(tgt *target.Target, region *target.NvmRegion) (Coverage, error) {
	algo, err := FlashAlgorithmForRegion(tgt, region)
	if err != nil {
		return Coverage{}, err
	}
	if len(region.Cores) == 0 {
		return Coverage{}, regionError(CodeNoNvmCoreAccess, region, tgt.Name)
	}
	for _, core := range region.Cores {
		if algo.ServesCore(core) {
			return Coverage{Region: region, Algorithm: algo, Core: core}, nil
		}
	}
	panic(fmt.Sprintf("flashing: algorithm %s was chosen for region %s but serves none of its cores", algo.Name, region.Name))
}

// FlashAlgorithmForRegion returns the algorithm covering region for one
// of its cores. Among several candidates the default one is chosen.
func FlashAlgorithmForRegion(tgt *target.Target, region *target.NvmRegion) (*target.FlashAlgorithm, error) {
	var candidates []*target.FlashAlgorithm
	for i := range tgt.FlashAlgorithms {
		algo := &tgt.FlashAlgorithms[i]
		// A region without cores is matched on range alone so the caller
		// can report that no core reaches it.
		if algo.Covers(region.Range) && (len(region.Cores) == 0 || algo.ServesAnyCore(region.Cores)) {
			candidates = append(candidates, algo)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, regionError(CodeNoFlashAlgorithm, region, tgt.Name)
	case 1:
		return candidates[0], nil
	}

	var defaults []*target.FlashAlgorithm
	for _, algo := range candidates {
		if algo.Default {
			defaults = append(defaults, algo)
		}
	}
	switch len(defaults) {
	case 1:
		return defaults[0], nil
	case 0:
		e := regionError(CodeMultipleAlgorithmsNoDefault, region, tgt.Name)
		e.Candidates = algorithmNames(candidates)
		return nil, e
	default:
		e := regionError(CodeMultipleDefaultAlgorithms, region, tgt.Name)
		e.Candidates = algorithmNames(defaults)
		return nil, e
	}
}

func orNoOp(log logging.Logger) logging.Logger {
	if log == nil {
		return logging.NoOpLogger{}
	}
	return log
}

func algorithmNames(algos []*target.FlashAlgorithm) []string {
	names := make([]string, len(algos))
	for i, a := range algos {
		names[i] = a.Name
	}
	return names
}

// BuildGroups resolves every region and groups them by (algorithm, core).
// Any resolution error aborts the whole build. log may be nil.
func BuildGroups(tgt *target.Target, regions []*target.NvmRegion, log logging.Logger) ([]Group, error) {
	log = orNoOp(log)
	index := make(map[GroupKey]int)
	var groups []Group
	for _, region := range regions {
		cov, err := ResolveCoverage(tgt, region)
		if err != nil {
			return nil, err
		}
		log.Logf(logging.SeverityDebug, "Using algorithm %s and core %s for region %s", cov.Algorithm.Name, cov.Core, region.Range)

		key := GroupKey{Algorithm: cov.Algorithm.Name, Core: cov.Core}
		if i, ok := index[key]; ok {
			groups[i].Regions = append(groups[i].Regions, region)
			continue
		}
		coreIndex, ok := tgt.CoreIndexByName(cov.Core)
		if !ok {
			panic(fmt.Sprintf("flashing: region %s names core %q which target %s does not define", region.Name, cov.Core, tgt.Name))
		}
		index[key] = len(groups)
		groups = append(groups, Group{
			Key:       key,
			Algorithm: cov.Algorithm,
			CoreIndex: coreIndex,
			Regions:   []*target.NvmRegion{region},
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key.less(groups[j].Key) })
	return groups, nil
}
