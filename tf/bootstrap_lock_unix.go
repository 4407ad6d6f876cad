//go:build !windows

package tf

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile blocks until the exclusive lock is held, so concurrent processes
// bootstrapping the same runtime wait for the first downloader instead of
// failing.
func lockFile(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_EX)
}

func unlockFile(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}
