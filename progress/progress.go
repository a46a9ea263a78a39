// Package progress counts bytes written to the output image and renders
// a one-line completion summary.
package progress

import (
	"fmt"
	"sync/atomic"

	"github.com/chasonr/genfatimage/humanize"
)

// Writer counts the bytes written to it and discards them. The volume
// writer passes it a copy of every block it writes to the output image
// (MBR, directories, file data, FATs, boot sectors) so a Summary can
// report a final total; nothing here runs concurrently with the write it
// counts, but atomic is kept to match the counter's original shape.
type Writer struct {
	n uint64
}

func (w *Writer) Write(p []byte) (n int, err error) {
	atomic.AddUint64(&w.n, uint64(len(p)))
	return len(p), nil
}

// Count returns the number of bytes observed so far.
func (w *Writer) Count() uint64 {
	return atomic.LoadUint64(&w.n)
}

// Summary is the one-line completion report `cmd/genfatimage --verbose`
// prints after a successful write.
type Summary struct {
	BytesWritten uint64
	ClusterCount int
	FATWidth     int
	Output       string
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: wrote %s, %d clusters, FAT%d", s.Output, humanize.Bytes(s.BytesWritten), s.ClusterCount, s.FATWidth)
}
