package fat

import "encoding/binary"

// writeUintAt writes value little-endian into dst[offset:offset+width].
// width must be 1, 2, 4, or 8. It asserts value fits in width bytes, the
// same "fail a debug assertion on overflow" contract spec §4.1 describes
// for the byte packer.
func writeUintAt(dst []byte, offset, width int, value uint64) {
	assertf(offset+width <= len(dst), "writeUintAt: offset %d + width %d exceeds buffer len %d", offset, width, len(dst))
	if width < 8 {
		assertf(value>>uint(8*width) == 0, "writeUintAt: value %d does not fit in %d bytes", value, width)
	}
	slot := dst[offset : offset+width]
	switch width {
	case 1:
		slot[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(slot, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(slot, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(slot, value)
	default:
		assertf(false, "writeUintAt: unsupported width %d", width)
	}
}

// writeStringAt copies min(len(s), width) bytes of s into
// dst[offset:offset+width], space-padding (0x20) any remainder. No null
// terminator is written, per spec §4.1.
func writeStringAt(dst []byte, offset, width int, s string) {
	assertf(offset+width <= len(dst), "writeStringAt: offset %d + width %d exceeds buffer len %d", offset, width, len(dst))
	slot := dst[offset : offset+width]
	n := len(s)
	if n > width {
		n = width
	}
	copy(slot, s[:n])
	for i := n; i < width; i++ {
		slot[i] = ' '
	}
}

// readUintAt is the inverse of writeUintAt, used by tests that assert
// round-trip properties (spec §8).
func readUintAt(src []byte, offset, width int) uint64 {
	assertf(offset+width <= len(src), "readUintAt: offset %d + width %d exceeds buffer len %d", offset, width, len(src))
	slot := src[offset : offset+width]
	switch width {
	case 1:
		return uint64(slot[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(slot))
	case 4:
		return uint64(binary.LittleEndian.Uint32(slot))
	case 8:
		return binary.LittleEndian.Uint64(slot)
	default:
		assertf(false, "readUintAt: unsupported width %d", width)
		return 0
	}
}
