package wire

import (
	"os"

	"golang.org/x/sys/unix"
)

// tryLockExclusive takes a non-blocking exclusive flock on f, the same
// advisory lock libwayland-server takes on its <name>.lock file to
// detect a still-running compositor on the same display name.
func tryLockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}
