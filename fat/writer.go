package fat

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chasonr/genfatimage/mbr"
)

// FileOpener opens a host path for sequential content reads during the
// write pass (spec §4.6, §5: file data and an optional boot-record
// overlay). Defined here, instead of depending on any particular
// filesystem package, so the core stays testable against an in-memory
// stub as easily as a real filesystem.
type FileOpener interface {
	Open(path string) (io.ReadCloser, error)
}

// volumeWriter carries the state threaded through one call to Write: the
// output handle, the in-memory FAT under construction, and the resolved
// geometry and options driving every field.
type volumeWriter struct {
	out     io.WriterAt
	counter io.Writer
	opener  FileOpener
	layout  *Layout
	r       *ResolvedOptions

	fat              []uint32
	serial           uint32
	rootFirstCluster uint32
}

func (vw *volumeWriter) writeAt(offset int64, data []byte) error {
	if _, err := vw.out.WriteAt(data, offset); err != nil {
		return ioErr(vw.r.Output, err)
	}
	if vw.counter != nil {
		vw.counter.Write(data)
	}
	return nil
}

func (vw *volumeWriter) dataOffset(cluster uint32) int64 {
	return int64(vw.layout.FirstDataSector)*int64(vw.layout.SectorSize) + int64(cluster-2)*int64(vw.layout.ClusterSize)
}

// allocateChain extends the in-memory FAT slice so that the chain starting
// at firstCluster and spanning numClusters entries exists, writing the
// next-pointers and the end-of-chain marker, per spec §4.6 step 3.
func (vw *volumeWriter) allocateChain(firstCluster uint32, numClusters int) {
	need := int(firstCluster) + numClusters
	for len(vw.fat) < need {
		vw.fat = append(vw.fat, 0)
	}
	for i := 0; i < numClusters-1; i++ {
		vw.fat[int(firstCluster)+i] = firstCluster + uint32(i) + 1
	}
	vw.fat[int(firstCluster)+numClusters-1] = 0x0FFFFFFF
}

// writeDir writes d's own serialized directory bytes, then recurses into
// its children, per spec §4.6 step 3.
func (vw *volumeWriter) writeDir(d *DirEntry) error {
	if d.FirstCluster == 0 {
		if len(d.dirBytes) > 0 {
			maxLen := (vw.layout.FirstDataSector - vw.layout.RootDirSector) * vw.layout.SectorSize
			assertf(len(d.dirBytes) <= maxLen, "writeDir: root directory (%d bytes) spills into the data region (max %d)", len(d.dirBytes), maxLen)
			offset := int64(vw.layout.RootDirSector) * int64(vw.layout.SectorSize)
			if err := vw.writeAt(offset, d.dirBytes); err != nil {
				return err
			}
		}
	} else {
		numClusters := ceilDiv(len(d.dirBytes), vw.layout.ClusterSize)
		vw.allocateChain(d.FirstCluster, numClusters)
		if err := vw.writeAt(vw.dataOffset(d.FirstCluster), d.dirBytes); err != nil {
			return err
		}
	}

	for _, c := range d.Children {
		if c.IsDir() {
			if err := vw.writeDir(c); err != nil {
				return err
			}
			continue
		}
		if err := vw.writeFile(c); err != nil {
			return err
		}
	}
	return nil
}

// writeFile streams a file's content from its host path in fixed-size
// chunks, per spec §5: the content is never read more than once, and the
// recorded file size (not whatever the host file turns out to contain at
// write time) is authoritative.
func (vw *volumeWriter) writeFile(c *DirEntry) error {
	if c.FileSize == 0 || c.FirstCluster == 0 {
		return nil
	}
	numClusters := ceilDiv(int(c.FileSize), vw.layout.ClusterSize)
	vw.allocateChain(c.FirstCluster, numClusters)

	src, err := vw.opener.Open(c.HostPath)
	if err != nil {
		return ioErr(c.HostPath, err)
	}
	defer src.Close()

	const chunkSize = 4096
	buf := make([]byte, chunkSize)
	offset := vw.dataOffset(c.FirstCluster)
	remaining := int64(c.FileSize)
	for remaining > 0 {
		want := int64(chunkSize)
		if remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(src, buf[:want])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return ioErr(c.HostPath, err)
		}
		if n > 0 {
			if err := vw.writeAt(offset, buf[:n]); err != nil {
				return err
			}
			offset += int64(n)
			remaining -= int64(n)
		}
		if int64(n) < want {
			// Host file shrank since it was added to the tree; the
			// remaining clusters keep whatever the volume's zero-fill
			// left behind (spec §5).
			break
		}
	}
	return nil
}

func packFAT(entries []uint32, width int) []byte {
	switch width {
	case 12:
		return packFAT12(entries)
	case 16:
		return packFAT16(entries)
	case 32:
		return packFAT32(entries)
	default:
		assertf(false, "packFAT: unsupported width %d", width)
		return nil
	}
}

// packFAT12 packs pairs of 12-bit entries into 3 bytes little-endian, per
// spec §4.6 step 5. A trailing odd entry is written as 2 bytes of its low
// 12 bits.
func packFAT12(entries []uint32) []byte {
	n := len(entries)
	size := (n / 2) * 3
	if n%2 == 1 {
		size += 2
	}
	buf := make([]byte, size)

	i, off := 0, 0
	for ; i+1 < n; i += 2 {
		e0, e1 := entries[i]&0xFFF, entries[i+1]&0xFFF
		buf[off] = byte(e0 & 0xFF)
		buf[off+1] = byte((e0>>8)&0x0F) | byte((e1&0x0F)<<4)
		buf[off+2] = byte((e1 >> 4) & 0xFF)
		off += 3
	}
	if i < n {
		e0 := entries[i] & 0xFFF
		buf[off] = byte(e0 & 0xFF)
		buf[off+1] = byte((e0 >> 8) & 0x0F)
	}
	return buf
}

func packFAT16(entries []uint32) []byte {
	buf := make([]byte, len(entries)*2)
	for i, e := range entries {
		writeUintAt(buf, i*2, 2, uint64(e&0xFFFF))
	}
	return buf
}

func packFAT32(entries []uint32) []byte {
	buf := make([]byte, len(entries)*4)
	for i, e := range entries {
		writeUintAt(buf, i*4, 4, uint64(e&0x0FFFFFFF))
	}
	return buf
}

// parseSerial parses the "HHHH-HHHH" form into (left<<16)|right, falling
// back to the current Unix time truncated to 32 bits, per spec §4.6's
// "Serial number" paragraph. s is assumed already validated by
// Options.Validate.
func parseSerial(s string) uint32 {
	if s == "" {
		return uint32(time.Now().Unix())
	}
	left, right, _ := strings.Cut(s, "-")
	l, err := strconv.ParseUint(left, 16, 16)
	assertf(err == nil, "parseSerial: invalid left half %q slipped past validation: %v", left, err)
	r, err := strconv.ParseUint(right, 16, 16)
	assertf(err == nil, "parseSerial: invalid right half %q slipped past validation: %v", right, err)
	return uint32(l)<<16 | uint32(r)
}

// buildBootSector assembles the boot sector: either the user-supplied
// boot-record file or a synthesized jump-and-loop stub, with the BPB and
// extended BPB fields overlaid on top, per spec §4.6 step 6.
func (vw *volumeWriter) buildBootSector() ([]byte, error) {
	r, l := vw.r, vw.layout
	buf := make([]byte, l.SectorSize)

	if r.BootRecord != "" {
		src, err := vw.opener.Open(r.BootRecord)
		if err != nil {
			return nil, ioErr(r.BootRecord, err)
		}
		defer src.Close()
		if _, err := io.ReadFull(src, buf); err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, ioErr(r.BootRecord, err)
		}
	} else {
		buf[0], buf[1], buf[2] = 0xEB, 0x58, 0x90
		if len(buf) > 0x5B {
			buf[0x5A], buf[0x5B] = 0xEB, 0xFE
		}
		if l.SectorSize >= 512 {
			buf[0x1FE], buf[0x1FF] = 0x55, 0xAA
		}
	}

	writeStringAt(buf, 0x03, 8, r.OEMName)
	writeUintAt(buf, 0x0B, 2, uint64(l.SectorSize))
	writeUintAt(buf, 0x0D, 1, uint64(l.SectorsPerCluster))
	writeUintAt(buf, 0x0E, 2, uint64(l.ReservedSectors))
	writeUintAt(buf, 0x10, 1, uint64(l.NumFATs))

	rootDirSpan := l.FirstDataSector - l.RootDirSector
	rootEntryField := 0
	if l.FATWidth != 32 {
		rootEntryField = rootDirSpan * l.SectorSize / 32
	}
	writeUintAt(buf, 0x11, 2, uint64(rootEntryField))

	volumeSectors := l.EndOfVolume - l.BootSector
	small := 0
	if volumeSectors < 0xFFFF {
		small = volumeSectors
	}
	writeUintAt(buf, 0x13, 2, uint64(small))

	buf[0x15] = mediaDescByte(r.MediaDesc)

	fatSectorsField := 0
	if l.FATWidth != 32 {
		fatSectorsField = l.FATSectors
	}
	writeUintAt(buf, 0x16, 2, uint64(fatSectorsField))

	writeUintAt(buf, 0x18, 2, uint64(r.SectorsPerTrack))
	writeUintAt(buf, 0x1A, 2, uint64(r.NumHeads))
	writeUintAt(buf, 0x1C, 4, uint64(l.BootSector))

	large := 0
	if small == 0 {
		large = volumeSectors
	}
	writeUintAt(buf, 0x20, 4, uint64(large))

	ext := 0x24
	if l.FATWidth == 32 {
		writeUintAt(buf, 0x24, 4, uint64(l.FATSectors))
		writeUintAt(buf, 0x2C, 4, uint64(vw.rootFirstCluster))
		writeUintAt(buf, 0x30, 2, 1)
		writeUintAt(buf, 0x32, 2, 6)
		ext = 0x40
	}

	if r.Partitioned {
		buf[ext] = 0x80
	} else {
		buf[ext] = 0x00
	}
	buf[ext+1] = 0
	buf[ext+2] = 0x29
	writeUintAt(buf, ext+3, 4, uint64(vw.serial))
	writeStringAt(buf, ext+7, 11, r.Label)

	var fsType string
	switch l.FATWidth {
	case 12:
		fsType = "FAT12   "
	case 16:
		fsType = "FAT16   "
	case 32:
		fsType = "FAT32   "
	}
	writeStringAt(buf, ext+18, 8, fsType)

	return buf, nil
}

// buildFSInfo assembles the FAT32-only FSInfo sector, per spec §4.6
// step 7.
func (vw *volumeWriter) buildFSInfo() []byte {
	buf := make([]byte, 512)
	copy(buf[0:4], "RRaA")
	copy(buf[484:488], "rrAa")

	free := int64(vw.layout.ClusterCount) + 2 - int64(len(vw.fat))
	if free < 0 {
		free = 0
	}
	writeUintAt(buf, 488, 4, uint64(free))
	writeUintAt(buf, 492, 4, uint64(len(vw.fat)+2))
	buf[510], buf[511] = 0x55, 0xAA
	return buf
}

// Write renders tree into out according to layout and r, per spec §4.6:
// zero-extends the image to its final size, writes the MBR if partitioned,
// walks the tree allocating cluster chains and streaming file content,
// packs and writes each FAT copy, and writes the boot sector (plus FSInfo
// and backup copies on FAT32). counter, if non-nil, observes every byte
// written — cmd/genfatimage wires progress.Writer there to build its
// completion summary. opener is used for file content and, if supplied,
// the boot-record overlay.
func Write(out io.WriterAt, counter io.Writer, opener FileOpener, tree *Tree, layout *Layout, r *ResolvedOptions) error {
	vw := &volumeWriter{
		out:              out,
		counter:          counter,
		opener:           opener,
		layout:           layout,
		r:                r,
		fat:              []uint32{0x0FFFFFFF, 0x0FFFFFFF},
		serial:           parseSerial(r.Serial),
		rootFirstCluster: tree.Root().FirstCluster,
	}

	totalSize := int64(layout.EndOfVolume) * int64(layout.SectorSize)
	if totalSize > 0 {
		if _, err := out.WriteAt([]byte{0}, totalSize-1); err != nil {
			return ioErr(r.Output, err)
		}
	}

	if r.Partitioned {
		mbrBuf := make([]byte, 512)
		mbr.Write(mbrBuf, mbr.Partition{
			Type:            mbr.PartitionType(layout.FATWidth, uint32(layout.EndOfVolume-layout.BootSector)),
			FirstLBA:        uint32(layout.BootSector),
			SectorCount:     uint32(layout.EndOfVolume - layout.BootSector),
			SectorsPerTrack: r.SectorsPerTrack,
			NumHeads:        r.NumHeads,
		})
		if err := vw.writeAt(0, mbrBuf); err != nil {
			return err
		}
	}

	if err := vw.writeDir(tree.Root()); err != nil {
		return err
	}

	vw.fat[0] = 0x0FFFFF00 | uint32(mediaDescByte(r.MediaDesc))

	packed := packFAT(vw.fat, layout.FATWidth)
	fatRegionSize := layout.FATSectors * layout.SectorSize
	if len(packed) < fatRegionSize {
		padded := make([]byte, fatRegionSize)
		copy(padded, packed)
		packed = padded
	}
	for i := 0; i < layout.NumFATs; i++ {
		offset := int64(layout.FirstFAT+i*layout.FATSectors) * int64(layout.SectorSize)
		if err := vw.writeAt(offset, packed); err != nil {
			return err
		}
	}

	bootSector, err := vw.buildBootSector()
	if err != nil {
		return err
	}
	if err := vw.writeAt(int64(layout.BootSector)*int64(layout.SectorSize), bootSector); err != nil {
		return err
	}

	if layout.FATWidth == 32 {
		fsInfo := vw.buildFSInfo()
		if err := vw.writeAt(int64(layout.BootSector+1)*int64(layout.SectorSize), fsInfo); err != nil {
			return err
		}
		if err := vw.writeAt(int64(layout.BootSector+6)*int64(layout.SectorSize), bootSector); err != nil {
			return err
		}
		if err := vw.writeAt(int64(layout.BootSector+7)*int64(layout.SectorSize), fsInfo); err != nil {
			return err
		}
	}

	return nil
}
