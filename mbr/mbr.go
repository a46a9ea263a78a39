// Package mbr writes the Master Boot Record partition table genfatimage
// emits when asked for a partitioned image: one active-partition record
// describing the FAT volume that follows, and the boot signature.
package mbr

import "encoding/binary"

// Partition describes the single partition record written at 0x1BE.
type Partition struct {
	// Type is the partition type byte (spec §4.6: 0x01 FAT12, 0x06/0x04
	// FAT16 depending on size, 0x0C FAT32).
	Type byte

	// FirstLBA and SectorCount are the partition's starting LBA and
	// length in sectors.
	FirstLBA   uint32
	SectorCount uint32

	// SectorsPerTrack and NumHeads are the CHS geometry used to encode
	// the CHS first/last sector fields.
	SectorsPerTrack uint16
	NumHeads        uint16
}

const recordSize = 512

// chs packs a logical block address into the 3-byte CHS (cylinder/head/
// sector) encoding used by the MBR partition record, spec §4.6:
//
//	sector = lba % spt + 1
//	head   = (lba / spt) % heads
//	cyl    = (lba / spt) / heads
//
// with cyl's top two bits folded into the sector byte's top two bits.
func chs(lba uint32, sectorsPerTrack, numHeads uint16) [3]byte {
	spt := uint32(sectorsPerTrack)
	heads := uint32(numHeads)
	if spt == 0 {
		spt = 1
	}
	if heads == 0 {
		heads = 1
	}

	sector := lba%spt + 1
	head := (lba / spt) % heads
	cyl := (lba / spt) / heads

	return [3]byte{
		byte(head),
		byte(sector&0x3F) | byte((cyl>>8)&0x03)<<6,
		byte(cyl & 0xFF),
	}
}

// Write renders the 512-byte MBR sector for p into dst, which must be at
// least 512 bytes. status is always written as 0x00 in the boot-indicator
// byte, preserving the source tool's literal behaviour (spec §9) rather
// than the conventional 0x80 for an active partition.
func Write(dst []byte, p Partition) {
	if len(dst) < recordSize {
		panic("mbr.Write: dst shorter than one sector")
	}
	for i := range dst[:recordSize] {
		dst[i] = 0
	}

	const partOff = 0x1BE
	dst[partOff] = 0x00 // boot indicator; see spec §9

	first := chs(p.FirstLBA, p.SectorsPerTrack, p.NumHeads)
	last := chs(p.FirstLBA+p.SectorCount-1, p.SectorsPerTrack, p.NumHeads)
	copy(dst[partOff+1:partOff+4], first[:])
	dst[partOff+4] = p.Type
	copy(dst[partOff+5:partOff+8], last[:])
	binary.LittleEndian.PutUint32(dst[partOff+8:partOff+12], p.FirstLBA)
	binary.LittleEndian.PutUint32(dst[partOff+12:partOff+16], p.SectorCount)

	dst[510] = 0x55
	dst[511] = 0xAA
}

// PartitionType chooses the type byte for a FAT volume of the given width
// and sector count, spec §4.6: 0x01 for FAT12, 0x06 for FAT16 at or above
// 65536 sectors (0x04 below), 0x0C for FAT32.
func PartitionType(fatWidth int, sectorCount uint32) byte {
	switch fatWidth {
	case 12:
		return 0x01
	case 16:
		if sectorCount >= 65536 {
			return 0x06
		}
		return 0x04
	case 32:
		return 0x0C
	default:
		panic("mbr.PartitionType: unsupported FAT width")
	}
}
