package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeycumines/sketchctl/internal/storage"
)

// SetKeyInFile updates or adds a global option in the config file at path.
// Comments, blank lines and [section] blocks are left untouched. An existing
// global line is replaced in place; a new key goes before the first section
// header, or at the end when there are none. The rewrite is atomic and
// holds the config file's lock for the whole read-modify-write. Missing
// parent directories are created.
func SetKeyInFile(path, key, value string) error {
	return storage.WithLock(path, func() error {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading config file: %w", err)
		}
		updated := setGlobalKey(string(data), key, value)
		return storage.AtomicWriteFile(path, []byte(updated), 0644)
	})
}

func setGlobalKey(content, key, value string) string {
	newLine := key
	if value != "" {
		newLine = key + " " + value
	}

	var lines []string
	if content != "" {
		lines = strings.Split(content, "\n")
	}

	insertIndex := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			insertIndex = i
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _ := splitOption(trimmed); name == key {
			lines[i] = newLine
			return strings.Join(lines, "\n")
		}
	}

	switch {
	case insertIndex >= 0:
		lines = append(lines[:insertIndex+1], lines[insertIndex:]...)
		lines[insertIndex] = newLine
	case len(lines) > 0 && lines[len(lines)-1] == "":
		lines = append(lines[:len(lines)-1], newLine, "")
	default:
		lines = append(lines, newLine)
	}
	return strings.Join(lines, "\n")
}
