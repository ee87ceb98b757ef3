//go:build windows

package storage

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// replaceFile moves src over dst. os.Rename fails on Windows while dst is
// open elsewhere, so MoveFileEx is used directly.
func replaceFile(src, dst string) error {
	from, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", src, err)
	}
	to, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", dst, err)
	}
	if err := windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH); err != nil {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return nil
}
