package fat

// dirRecordSize is the fixed size of every on-disk directory record,
// whether it holds a short name or one segment of a long name.
const dirRecordSize = 32

// buildShortRecord emits one 32-byte short-name directory record, spec
// §4.4. firstCluster may be 0 as a placeholder; buildDirectories patches
// the real value in after recursion (spec §9).
func buildShortRecord(name11 [11]byte, attrs Attr, caseFlags byte, firstCluster uint32, created, modified, accessed dosTimestamp, fileSize uint32) []byte {
	rec := make([]byte, dirRecordSize)
	copy(rec[0:11], name11[:])
	rec[11] = byte(attrs)
	rec[12] = caseFlags

	rec[13] = created.centiseconds
	writeUintAt(rec, 14, 2, uint64(created.time))
	writeUintAt(rec, 16, 2, uint64(created.date))

	writeUintAt(rec, 18, 2, uint64(accessed.date))

	writeUintAt(rec, 20, 2, uint64(firstCluster>>16))

	writeUintAt(rec, 22, 2, uint64(modified.time))
	writeUintAt(rec, 24, 2, uint64(modified.date))

	writeUintAt(rec, 26, 2, uint64(firstCluster&0xFFFF))
	writeUintAt(rec, 28, 4, uint64(fileSize))

	return rec
}

// buildLFNRecord emits one 32-byte LFN record carrying up to 13 UTF-16
// code units, spec §4.4.
func buildLFNRecord(seq byte, units []uint16, checksum byte) []byte {
	rec := make([]byte, dirRecordSize)
	rec[0] = seq
	for i, off := range lfnSlotOffsets {
		var unit uint16
		if i < len(units) {
			unit = units[i]
		}
		writeUintAt(rec, off, 2, uint64(unit))
	}
	rec[11] = byte(attrLFN)
	rec[12] = 0
	rec[13] = checksum
	writeUintAt(rec, 26, 2, 0)
	return rec
}

// buildLabelRecord emits the synthetic root volume-label record, spec
// §4.4: name padded to 11 bytes (case preserved, unlike short-name
// records), attrs = label, first cluster 0, no timestamp required.
func buildLabelRecord(label string) []byte {
	rec := make([]byte, dirRecordSize)
	for i := range rec[0:11] {
		rec[i] = ' '
	}
	n := len(label)
	if n > 11 {
		n = 11
	}
	copy(rec[0:n], label[:n])
	rec[11] = byte(AttrVolumeLabel)
	return rec
}

func ceilDiv(numerator, denominator int) int {
	if numerator <= 0 {
		return 0
	}
	return (numerator + denominator - 1) / denominator
}

// layoutState carries the monotonically increasing cluster cursor through
// the recursive layout pass, spec §4.4.
type layoutState struct {
	clusterSize int
	fatWidth    int
	cluster     int
}

// buildDirectories runs the two-pass recursive layout of spec §4.4,
// returning the number of data clusters consumed. It may be called
// repeatedly (the sizing solver calls it once per iteration); each call
// rebuilds every directory's dirBytes from scratch.
func (t *Tree) buildDirectories(volumeLabel string, clusterSize, fatWidth int) (int, error) {
	s := &layoutState{clusterSize: clusterSize, fatWidth: fatWidth, cluster: 2}
	if err := s.layoutDir(t.root, 0, true, volumeLabel); err != nil {
		return 0, err
	}
	t.rootDirEntries = len(t.root.dirBytes) / dirRecordSize
	return s.cluster - 2, nil
}

func (s *layoutState) layoutDir(d *DirEntry, parentCluster uint32, isRoot bool, volumeLabel string) error {
	d.dirBytes = nil

	isEmptyRoot := isRoot && volumeLabel == "" && len(d.Children) == 0
	if isRoot && (s.fatWidth != 32 || isEmptyRoot) {
		d.FirstCluster = 0
	} else {
		d.FirstCluster = uint32(s.cluster)
	}

	var buf []byte
	if isRoot {
		if volumeLabel != "" {
			buf = append(buf, buildLabelRecord(volumeLabel)...)
		}
	} else {
		ct := encodeTime(d.CreatedTime)
		mt := encodeTime(d.ModifiedTime)
		at := encodeTime(d.AccessedTime)
		buf = append(buf, buildShortRecord(normalize11("."), AttrDirectory, 0, d.FirstCluster, ct, mt, at, 0)...)
		buf = append(buf, buildShortRecord(normalize11(".."), AttrDirectory, 0, parentCluster, ct, mt, at, 0)...)
	}

	taken := map[string]bool{}
	for _, c := range d.Children {
		if isShortName(c.Name) {
			n11 := normalize11(c.Name)
			taken[string(n11[:])] = true
		}
	}

	for _, c := range d.Children {
		var name11 [11]byte
		var caseFlags byte

		if isShortName(c.Name) {
			name11 = normalize11(c.Name)
			stem, ext := splitStemExt(c.Name)
			if hasLower(stem) {
				caseFlags |= 0x08
			}
			if hasLower(ext) {
				caseFlags |= 0x10
			}
		} else {
			alias, err := makeShortAlias(c.Name, taken)
			if err != nil {
				return err
			}
			name11 = alias

			units, err := encodeLFNName(c.Name)
			if err != nil {
				return err
			}
			checksum := shortNameChecksum11(name11)
			numSeg := lfnSegmentCount(len(units))
			for i := numSeg; i >= 1; i-- {
				seq := byte(i)
				if i == numSeg {
					seq |= 0x40
				}
				start := (i - 1) * 13
				end := start + 13
				if end > len(units) {
					end = len(units)
				}
				buf = append(buf, buildLFNRecord(seq, units[start:end], checksum)...)
			}
		}

		c.dirEntryOffset = len(buf)
		var fileSize uint32
		if !c.IsDir() {
			fileSize = c.FileSize
		}
		ct := encodeTime(c.CreatedTime)
		mt := encodeTime(c.ModifiedTime)
		at := encodeTime(c.AccessedTime)
		buf = append(buf, buildShortRecord(name11, c.Attrs, caseFlags, 0, ct, mt, at, fileSize)...)
	}

	d.dirBytes = buf

	if d.FirstCluster != 0 {
		s.cluster += ceilDiv(len(d.dirBytes), s.clusterSize)
	}

	for _, c := range d.Children {
		if c.IsDir() {
			if err := s.layoutDir(c, d.FirstCluster, false, ""); err != nil {
				return err
			}
			continue
		}
		if c.FileSize == 0 {
			c.FirstCluster = 0
			continue
		}
		c.FirstCluster = uint32(s.cluster)
		s.cluster += ceilDiv(int(c.FileSize), s.clusterSize)
	}

	for _, c := range d.Children {
		writeUintAt(d.dirBytes, c.dirEntryOffset+20, 2, uint64(c.FirstCluster>>16))
		writeUintAt(d.dirBytes, c.dirEntryOffset+26, 2, uint64(c.FirstCluster&0xFFFF))
	}

	return nil
}
