package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type iniEntry struct {
	section string
	key     string
	value   string
	line    int
}

// readIni returns the key/value entries of an ini stream in file order.
// Comments start with ';' or '#'. Keys outside a section are skipped
// when allowNoSection is set and rejected otherwise.
func readIni(r io.Reader, name string, allowNoSection bool) ([]iniEntry, error) {
	var entries []iniEntry
	section := ""
	lineNo := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimSpace(strings.TrimPrefix(line, "\uFEFF"))
		}
		if idx := strings.IndexAny(line, ";#"); idx != -1 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		if section == "" {
			if allowNoSection {
				continue
			}
			return nil, fmt.Errorf("%s:%d: key outside of a section: %s", name, lineNo, line)
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s:%d: invalid ini line: %s", name, lineNo, line)
		}
		entries = append(entries, iniEntry{
			section: section,
			key:     strings.TrimSpace(key),
			value:   trimQuotes(value),
			line:    lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return entries, nil
}

func readIniFile(path string, allowNoSection bool) ([]iniEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readIni(f, path, allowNoSection)
}

func trimQuotes(value string) string {
	return strings.Trim(strings.TrimSpace(value), "\"'")
}
