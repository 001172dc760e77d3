package wire

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CreateAnonymousSHM creates a sealed, anonymous shared-memory file of
// size bytes, for the compositor's own synthetic buffers (default cursor
// image, test harnesses exercising bufferreg.RegisterSHM end to end)
// where there's no client pool fd to reuse.
//
// Grounded on friedelschoen-ctxmenu's createTmpfile (open a file under
// XDG_RUNTIME_DIR, truncate, unlink), adapted to memfd_create + F_SEAL_*
// since a server-side allocation has no directory entry to race other
// processes over and memfd avoids the filesystem round trip entirely.
func CreateAnonymousSHM(size int64) (fd int, err error) {
	fd, err = unix.MemfdCreate("compositor-core-shm", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return -1, fmt.Errorf("wire: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("wire: ftruncate: %w", err)
	}
	// Seal the size and the ability to add further seals: a pool backed by
	// this fd can never grow or shrink out from under a reader holding it.
	seals := unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_SEAL
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, seals); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("wire: seal memfd: %w", err)
	}
	return fd, nil
}
