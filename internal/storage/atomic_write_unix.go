//go:build !windows

package storage

import "os"

// replaceFile moves src over dst. rename(2) replaces dst atomically.
func replaceFile(src, dst string) error {
	return os.Rename(src, dst)
}
