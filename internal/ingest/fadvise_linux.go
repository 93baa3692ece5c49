//go:build linux

package ingest

import (
	"os"

	"golang.org/x/sys/unix"
)

// advise hints the kernel that the file will be one large sequential
// pass. Best effort, errors ignored.
func advise(f *os.File) {
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_WILLNEED)
}
