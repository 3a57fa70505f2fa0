//go:build windows

package fsutil

import (
	stderrors "errors"
	"os"
)

// ErrSymlink is returned when the final path component is a symlink.
var ErrSymlink = stderrors.New("refusing to follow symlink")

// OpenNoFollow opens a file after rejecting a symlinked final component.
// O_NOFOLLOW is not available on Windows, so this is a check-then-open.
func OpenNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, ErrSymlink
	}
	return os.OpenFile(path, flag, perm)
}
