// Package targetdesc loads target descriptions from YAML files.
package targetdesc

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"flashread/internal/target"
)

// Parse decodes and validates a target description.
func Parse(data []byte) (*target.Target, error) {
	var f targetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, le
		}
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	t := f.toTarget()
	if err := t.Validate(); err != nil {
		return nil, &LoadError{Message: "invalid target " + t.Name, Cause: err}
	}
	return t, nil
}

// Load reads a target description from path.
func Load(path string) (*target.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	t, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return t, nil
}

// LoadDirectory loads every .yaml or .yml file in dir, keyed by target
// name. Two files describing the same target are an error.
func LoadDirectory(dir string) (map[string]*target.Target, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	targets := map[string]*target.Target{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		t, err := Load(path)
		if err != nil {
			return nil, err
		}
		if _, dup := targets[t.Name]; dup {
			return nil, &LoadError{File: path, Message: "target " + t.Name + " is defined more than once"}
		}
		targets[t.Name] = t
	}
	return targets, nil
}

// Names returns the sorted target names of a LoadDirectory result.
func Names(targets map[string]*target.Target) []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
