//go:build linux

package hostwalk

import (
	"os"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// statTimes recovers created/modified/accessed times for info. afero's
// os.FileInfo only exposes ModTime portably, so on a real OS-backed
// filesystem this re-stats hostPath to read ctime and atime out of
// unix.Stat_t; anything else (afero's in-memory filesystem, a future
// backend) falls back to ModTime for all three, since there is nothing
// else to read.
func statTimes(fs afero.Fs, hostPath string, info os.FileInfo) (created, modified, accessed time.Time) {
	modified = info.ModTime()
	created, accessed = modified, modified

	if _, ok := fs.(*afero.OsFs); !ok {
		return created, modified, accessed
	}
	var st unix.Stat_t
	if err := unix.Stat(hostPath, &st); err != nil {
		return created, modified, accessed
	}
	// Linux has no file-creation timestamp in struct stat; ctime tracks
	// metadata changes, which is the closest approximation available.
	created = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	accessed = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	return created, modified, accessed
}
