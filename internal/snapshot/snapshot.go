// Package snapshot reads memory snapshots: a snapshot.ini listing device
// files, each device file describing the memory dumps taken from it.
// The simulated probe serves target memory from these dumps.
package snapshot

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"flashread/internal/memacc"
)

// Snapshot is the parsed snapshot directory.
type Snapshot struct {
	Version     string
	Description string
	Devices     []Device
}

// Device is one device ini file.
type Device struct {
	Name  string
	Class string
	Type  string
	Dumps []MemoryDump
}

// MemoryDump maps (part of) an image file into target memory.
type MemoryDump struct {
	FilePath string
	Address  uint64
	Length   *uint64
	Offset   *uint64
	// Space names the core that sees the dump; empty means every core.
	Space string
}

// LoadSnapshot parses dirPath/snapshot.ini and the device files it lists.
func LoadSnapshot(dirPath string) (*Snapshot, error) {
	entries, err := readIniFile(filepath.Join(dirPath, SnapshotINIFilename), true)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	var deviceFiles []string
	seen := map[string]bool{}
	for _, entry := range entries {
		switch entry.section {
		case SnapshotSectionName:
			switch entry.key {
			case VersionKey, DescriptionKey:
				if seen[entry.key] {
					return nil, fmt.Errorf("duplicate snapshot %s key", entry.key)
				}
				seen[entry.key] = true
				if entry.key == VersionKey {
					snap.Version = entry.value
				} else {
					snap.Description = entry.value
				}
			}
		case DeviceListSectionName:
			deviceFiles = append(deviceFiles, entry.value)
		}
	}

	if snap.Version != "" && snap.Version != "1" && snap.Version != "1.0" {
		return nil, fmt.Errorf("illegal snapshot file version: %s", snap.Version)
	}

	for _, deviceFile := range deviceFiles {
		dev, err := parseDeviceIni(filepath.Join(dirPath, deviceFile))
		if err != nil {
			return nil, err
		}
		snap.Devices = append(snap.Devices, *dev)
	}
	return snap, nil
}

type dumpFieldState struct {
	gotAddress bool
	gotFile    bool
	gotLength  bool
	gotOffset  bool
	gotSpace   bool
}

func parseDeviceIni(path string) (*Device, error) {
	entries, err := readIniFile(path, false)
	if err != nil {
		return nil, err
	}

	dev := &Device{}
	var dumpOrder []string
	dumps := map[string]*MemoryDump{}
	fields := map[string]*dumpFieldState{}
	deviceKeys := map[string]bool{}

	for _, entry := range entries {
		if entry.section == DeviceSectionName {
			if deviceKeys[entry.key] {
				return nil, fmt.Errorf("%s:%d: duplicate device %s key", path, entry.line, entry.key)
			}
			deviceKeys[entry.key] = true
			switch entry.key {
			case DeviceNameKey:
				dev.Name = noneToEmpty(entry.value)
			case DeviceClassKey:
				dev.Class = noneToEmpty(entry.value)
			case DeviceTypeKey:
				dev.Type = noneToEmpty(entry.value)
			}
			continue
		}
		if !strings.HasPrefix(entry.section, DumpFileSectionPrefix) {
			continue
		}

		dump := dumps[entry.section]
		st := fields[entry.section]
		if dump == nil {
			dump = &MemoryDump{}
			st = &dumpFieldState{}
			dumps[entry.section] = dump
			fields[entry.section] = st
			dumpOrder = append(dumpOrder, entry.section)
		}

		dup := func(got *bool) error {
			if *got {
				return fmt.Errorf("%s:%d: duplicate dump %s key", path, entry.line, entry.key)
			}
			*got = true
			return nil
		}

		switch entry.key {
		case DumpFileKey:
			if err := dup(&st.gotFile); err != nil {
				return nil, err
			}
			dump.FilePath = entry.value
		case DumpSpaceKey:
			if err := dup(&st.gotSpace); err != nil {
				return nil, err
			}
			dump.Space = noneToEmpty(entry.value)
		case DumpAddressKey:
			if err := dup(&st.gotAddress); err != nil {
				return nil, err
			}
			addr, err := parseUint64(entry.value)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, entry.line, err)
			}
			dump.Address = addr
		case DumpLengthKey:
			if err := dup(&st.gotLength); err != nil {
				return nil, err
			}
			v, err := parseUint64(entry.value)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, entry.line, err)
			}
			dump.Length = &v
		case DumpOffsetKey:
			if err := dup(&st.gotOffset); err != nil {
				return nil, err
			}
			v, err := parseUint64(entry.value)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, entry.line, err)
			}
			dump.Offset = &v
		default:
			return nil, fmt.Errorf("%s:%d: unknown dump key: %s", path, entry.line, entry.key)
		}
	}

	for _, section := range dumpOrder {
		st := fields[section]
		if !st.gotAddress {
			return nil, fmt.Errorf("%s: [%s] missing mandatory address definition", path, section)
		}
		if !st.gotFile {
			return nil, fmt.Errorf("%s: [%s] missing mandatory file definition", path, section)
		}
		dev.Dumps = append(dev.Dumps, *dumps[section])
	}
	return dev, nil
}

// BuildMapper opens every dump of snap as a file accessor. cores gives
// the core names in target index order, so a dump space can be turned
// into a memacc.Space.
func BuildMapper(dirPath string, snap *Snapshot, cores []string) (*memacc.Mapper, error) {
	mapper := memacc.NewMapper()
	for _, dev := range snap.Devices {
		for _, dump := range dev.Dumps {
			space, err := dumpSpace(dump.Space, cores)
			if err != nil {
				mapper.Close()
				return nil, fmt.Errorf("device %s: %w", dev.Name, err)
			}
			var offset, length int64
			if dump.Offset != nil {
				offset = int64(*dump.Offset)
			}
			if dump.Length != nil {
				length = int64(*dump.Length)
			}
			path := dump.FilePath
			if !filepath.IsAbs(path) {
				path = filepath.Join(dirPath, path)
			}
			acc, err := memacc.NewFileAccessor(path, dump.Address, offset, length, space)
			if err != nil {
				mapper.Close()
				return nil, fmt.Errorf("device %s: %w", dev.Name, err)
			}
			if err := mapper.AddAccessor(acc); err != nil {
				acc.Close()
				mapper.Close()
				return nil, fmt.Errorf("device %s: %w", dev.Name, err)
			}
		}
	}
	return mapper, nil
}

func dumpSpace(name string, cores []string) (memacc.Space, error) {
	if name == "" {
		return memacc.SpaceAny, nil
	}
	for i, c := range cores {
		if c == name {
			return memacc.CoreSpace(i), nil
		}
	}
	return 0, fmt.Errorf("dump space %q is not a core of the target", name)
}

func parseUint64(value string) (uint64, error) {
	v, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid uint64: %s", value)
	}
	return v, nil
}

func noneToEmpty(value string) string {
	if value == "<none>" {
		return ""
	}
	return value
}
