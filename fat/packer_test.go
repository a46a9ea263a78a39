package fat

import (
	"testing"
)

func TestWriteUintAtRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name   string
		width  int
		value  uint64
	}{
		{"byte", 1, 0xAB},
		{"word", 2, 0xBEEF},
		{"dword", 4, 0xDEADBEEF},
		{"qword", 8, 0x0123456789ABCDEF},
		{"zero", 4, 0},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			buf := make([]byte, 16)
			writeUintAt(buf, 4, tc.width, tc.value)
			if got := readUintAt(buf, 4, tc.width); got != tc.value {
				t.Fatalf("readUintAt after writeUintAt = %#x, want %#x", got, tc.value)
			}
		})
	}
}

func TestWriteStringAtPads(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		s     string
		width int
		want  string
	}{
		{"exact", "REPORT", 6, "REPORT"},
		{"short", "AB", 5, "AB   "},
		{"truncates", "TOOLONG", 3, "TOO"},
		{"empty", "", 4, "    "},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			buf := make([]byte, tc.width)
			writeStringAt(buf, 0, tc.width, tc.s)
			if got := string(buf); got != tc.want {
				t.Fatalf("writeStringAt(%q, width=%d) = %q, want %q", tc.s, tc.width, got, tc.want)
			}
		})
	}
}

func TestWriteUintAtLeavesNeighborsAlone(t *testing.T) {
	t.Parallel()

	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	writeUintAt(buf, 2, 2, 0x0000)
	want := []byte{0xFF, 0xFF, 0x00, 0x00, 0xFF, 0xFF}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf = %#v, want %#v", buf, want)
		}
	}
}

func FuzzWriteUintAtRoundTrip(f *testing.F) {
	f.Add(uint32(0), uint8(4))
	f.Add(uint32(0xFFFFFFFF), uint8(4))
	f.Add(uint32(0xFFFF), uint8(2))
	f.Fuzz(func(t *testing.T, value uint32, width uint8) {
		w := int(width % 5) // clamp to {0,1,2,3,4}
		if w == 0 || w == 3 {
			w = 4 // writeUintAt accepts only widths 1, 2, 4, and 8
		}
		if w < 4 {
			value &= (1 << (8 * w)) - 1
		}
		buf := make([]byte, 8)
		writeUintAt(buf, 0, w, uint64(value))
		if got := readUintAt(buf, 0, w); got != uint64(value) {
			t.Fatalf("round trip mismatch: wrote %#x width %d, read back %#x", value, w, got)
		}
	})
}
