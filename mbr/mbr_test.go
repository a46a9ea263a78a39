package mbr

import "testing"

func TestChsEncodesSectorHeadCylinder(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name            string
		lba             uint32
		sectorsPerTrack uint16
		numHeads        uint16
		want            [3]byte
	}{
		{"lba zero", 0, 63, 255, [3]byte{0, 1, 0}},
		{"second sector, same track", 1, 63, 255, [3]byte{0, 2, 0}},
		{"first sector, second head", 63, 63, 255, [3]byte{1, 1, 0}},
		{"first sector, second cylinder", 63 * 255, 63, 255, [3]byte{0, 1, 1}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := chs(tc.lba, tc.sectorsPerTrack, tc.numHeads)
			if got != tc.want {
				t.Fatalf("chs(%d, %d, %d) = %v, want %v", tc.lba, tc.sectorsPerTrack, tc.numHeads, got, tc.want)
			}
		})
	}
}

func TestChsDoesNotDivideByZero(t *testing.T) {
	t.Parallel()

	// sectorsPerTrack and numHeads of zero must not panic; chs treats
	// them as 1, so every lba lands on sector 1, head 0, and its own
	// cylinder.
	got := chs(5, 0, 0)
	want := [3]byte{0, 1, 5}
	if got != want {
		t.Fatalf("chs(5, 0, 0) = %v, want %v", got, want)
	}
}

func TestWriteSetsSignatureAndPartitionFields(t *testing.T) {
	t.Parallel()

	dst := make([]byte, 512)
	Write(dst, Partition{
		Type:            0x0C,
		FirstLBA:        63,
		SectorCount:     204800,
		SectorsPerTrack: 63,
		NumHeads:        255,
	})

	if dst[510] != 0x55 || dst[511] != 0xAA {
		t.Fatalf("boot signature = %#x %#x, want 0x55 0xAA", dst[510], dst[511])
	}
	if dst[0x1BE] != 0x00 {
		t.Fatalf("boot indicator = %#x, want 0x00", dst[0x1BE])
	}
	if dst[0x1BE+4] != 0x0C {
		t.Fatalf("partition type = %#x, want 0x0C", dst[0x1BE+4])
	}

	gotLBA := uint32(dst[0x1BE+8]) | uint32(dst[0x1BE+9])<<8 | uint32(dst[0x1BE+10])<<16 | uint32(dst[0x1BE+11])<<24
	if gotLBA != 63 {
		t.Fatalf("first LBA = %d, want 63", gotLBA)
	}
	gotCount := uint32(dst[0x1BE+12]) | uint32(dst[0x1BE+13])<<8 | uint32(dst[0x1BE+14])<<16 | uint32(dst[0x1BE+15])<<24
	if gotCount != 204800 {
		t.Fatalf("sector count = %d, want 204800", gotCount)
	}
}

func TestWritePanicsOnShortBuffer(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("Write did not panic on a buffer shorter than one sector")
		}
	}()
	Write(make([]byte, 511), Partition{})
}

func TestWriteZeroesDestinationFirst(t *testing.T) {
	t.Parallel()

	dst := make([]byte, 512)
	for i := range dst {
		dst[i] = 0xAA
	}
	Write(dst, Partition{Type: 0x01, FirstLBA: 1, SectorCount: 1, SectorsPerTrack: 1, NumHeads: 1})

	for i := 0; i < 0x1BE; i++ {
		if dst[i] != 0 {
			t.Fatalf("dst[%d] = %#x, want 0 (pre-partition-table bytes must be zeroed)", i, dst[i])
		}
	}
}

func TestPartitionType(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		fatWidth    int
		sectorCount uint32
		want        byte
	}{
		{12, 2880, 0x01},
		{16, 1000, 0x04},
		{16, 65536, 0x06},
		{32, 1 << 20, 0x0C},
	} {
		tc := tc
		got := PartitionType(tc.fatWidth, tc.sectorCount)
		if got != tc.want {
			t.Errorf("PartitionType(%d, %d) = %#x, want %#x", tc.fatWidth, tc.sectorCount, got, tc.want)
		}
	}
}

func TestPartitionTypePanicsOnUnsupportedWidth(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("PartitionType did not panic for an unsupported FAT width")
		}
	}()
	PartitionType(8, 100)
}
