//go:build !linux

package hostwalk

import (
	"os"
	"time"

	"github.com/spf13/afero"
)

// statTimes falls back to ModTime on platforms where the unix.Stat_t
// layout used by stat_linux.go doesn't apply.
func statTimes(_ afero.Fs, _ string, info os.FileInfo) (created, modified, accessed time.Time) {
	modified = info.ModTime()
	return modified, modified, modified
}
