package targetdesc

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"flashread/internal/target"
)

// LoadError describes a target description that could not be loaded.
type LoadError struct {
	// File is the path of the description, empty when parsing bytes.
	File string
	// Line is the YAML line of the problem, 0 if unknown.
	Line    int
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	loc := e.File
	if e.Line > 0 {
		loc += ":" + strconv.Itoa(e.Line)
	}
	if loc == "" {
		return msg
	}
	return loc + ": " + msg
}

func (e *LoadError) Unwrap() error { return e.Cause }

// targetFile mirrors the on-disk YAML layout.
type targetFile struct {
	Name            string          `yaml:"name"`
	Cores           []coreEntry     `yaml:"cores"`
	MemoryMap       []regionEntry   `yaml:"memory_map"`
	FlashAlgorithms []algorithmFile `yaml:"flash_algorithms"`
}

type coreEntry struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type regionFields struct {
	Name         string       `yaml:"name"`
	Range        target.Range `yaml:"range"`
	IsAlias      bool         `yaml:"is_alias"`
	IsBootMemory bool         `yaml:"is_boot_memory"`
	Cores        []string     `yaml:"cores"`
}

// regionEntry decodes one tagged memory map entry: a mapping with a
// single key naming the region kind.
type regionEntry struct {
	region target.MemoryRegion
}

func (e *regionEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode || len(value.Content) != 2 {
		return &LoadError{Line: value.Line, Message: "memory region must be a mapping with exactly one of nvm, ram or generic"}
	}
	kind, body := value.Content[0].Value, value.Content[1]

	var f regionFields
	if err := body.Decode(&f); err != nil {
		return &LoadError{Line: body.Line, Message: "invalid " + kind + " region", Cause: err}
	}

	switch kind {
	case "nvm":
		e.region = &target.NvmRegion{Name: f.Name, Range: f.Range, IsAlias: f.IsAlias, Cores: f.Cores}
	case "ram":
		e.region = &target.RamRegion{Name: f.Name, Range: f.Range, IsBootMemory: f.IsBootMemory, Cores: f.Cores}
	case "generic":
		e.region = &target.GenericRegion{Name: f.Name, Range: f.Range, Cores: f.Cores}
	default:
		return &LoadError{Line: value.Content[0].Line, Message: fmt.Sprintf("unknown memory region kind %q", kind)}
	}
	return nil
}

type algorithmFile struct {
	Name            string                 `yaml:"name"`
	Description     string                 `yaml:"description"`
	Default         bool                   `yaml:"default"`
	Cores           []string               `yaml:"cores"`
	Instructions    base64Blob             `yaml:"instructions"`
	LoadAddress     *uint64                `yaml:"load_address"`
	PCInit          *uint64                `yaml:"pc_init"`
	PCUninit        *uint64                `yaml:"pc_uninit"`
	StackSize       uint32                 `yaml:"stack_size"`
	FlashProperties target.FlashProperties `yaml:"flash_properties"`
}

// base64Blob is algorithm code stored as a base64 string.
type base64Blob []byte

func (b *base64Blob) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return &LoadError{Line: value.Line, Message: "instructions are not valid base64", Cause: err}
	}
	*b = data
	return nil
}

func (f *targetFile) toTarget() *target.Target {
	t := &target.Target{Name: f.Name}
	for _, c := range f.Cores {
		t.Cores = append(t.Cores, target.Core{Name: c.Name, Type: c.Type})
	}
	for _, r := range f.MemoryMap {
		t.MemoryMap = append(t.MemoryMap, r.region)
	}
	for _, a := range f.FlashAlgorithms {
		t.FlashAlgorithms = append(t.FlashAlgorithms, target.FlashAlgorithm{
			Name:            a.Name,
			Description:     a.Description,
			Default:         a.Default,
			Cores:           a.Cores,
			Instructions:    []byte(a.Instructions),
			LoadAddress:     a.LoadAddress,
			PCInit:          a.PCInit,
			PCUninit:        a.PCUninit,
			StackSize:       a.StackSize,
			FlashProperties: a.FlashProperties,
		})
	}
	return t
}
