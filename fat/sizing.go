package fat

// Layout is the fully resolved sector/cluster geometry the sizing solver
// (spec §4.5) produces and the volume writer (spec §4.6) consumes.
type Layout struct {
	SectorSize        int
	ClusterSize        int
	SectorsPerCluster int
	FATWidth          int // 12, 16, or 32
	NumFATs           int
	ClusterCount      int // data clusters consumed or reserved
	RootEntries       int // FAT12/16 only; 0 for FAT32
	ReservedSectors   int
	BootSector        int // LBA of the boot sector (0 unless partitioned)
	FirstFAT          int
	FATSectors        int
	RootDirSector     int
	FirstDataSector   int
	EndOfVolume       int // total sector count
}

const (
	maxFAT12 = 0xFF4
	maxFAT16 = 0xFFF4
	maxFAT32 = 0xFFFFFF4
)

func ceilDiv64(numerator, denominator int64) int64 {
	if numerator <= 0 {
		return 0
	}
	return (numerator + denominator - 1) / denominator
}

// reassessThresholds implements spec §4.5 step 6: given the current
// cluster count, decide whether (fatWidth, clusterSize) must change, and
// whether clusterCount itself must be bumped to keep a forced width
// self-consistent with FAT-type-detection heuristics real readers use.
func reassessThresholds(fatWidth, clusterSize, clusterCount, sectorSize, forcedWidth int) (newFatWidth, newClusterSize, newClusterCount int) {
	newFatWidth, newClusterSize, newClusterCount = fatWidth, clusterSize, clusterCount

	switch {
	case clusterCount > maxFAT32:
		newClusterSize = clusterSize * 2

	case clusterCount > maxFAT16:
		if forcedWidth == 12 || forcedWidth == 16 || sectorSize < 512 {
			newClusterSize = clusterSize * 2
		} else {
			newFatWidth = 32
		}

	case clusterCount > maxFAT12:
		switch forcedWidth {
		case 32:
			newClusterCount = maxFAT16 + 1
		case 12:
			newClusterSize = clusterSize * 2
		default:
			newFatWidth = 16
		}

	default:
		switch forcedWidth {
		case 32:
			newClusterCount = maxFAT16 + 1
		case 16:
			newClusterCount = maxFAT12 + 1
		default:
			newFatWidth = 12
		}
	}
	return
}

// Solve runs the iterative sizing solver of spec §4.5 against tree (already
// populated by the external walker) and r, returning the final layout.
func Solve(tree *Tree, r *ResolvedOptions) (*Layout, error) {
	sectorSize := int(r.SectorSize)

	fatWidth := 12
	if r.FATWidthForced != 0 {
		fatWidth = r.FATWidthForced
	}
	clusterSize := sectorSize
	if r.ClusterSize > 0 {
		clusterSize = r.ClusterSize
	}

	for {
		clusterCount, err := tree.buildDirectories(r.Label, clusterSize, fatWidth)
		if err != nil {
			return nil, err
		}

		sectorsPerCluster := clusterSize / sectorSize

		rootEntries := 0
		if fatWidth != 32 {
			rootEntries = tree.RootDirEntries()
			if int(r.RootDirSize) > rootEntries {
				rootEntries = int(r.RootDirSize)
			}
		}

		reservedSectors := 1
		if fatWidth == 32 {
			reservedSectors = 32
		}
		if int(r.ReservedSectors) > reservedSectors {
			reservedSectors = int(r.ReservedSectors)
		}

		if r.FreeSpace > 0 {
			clusterCount += int(ceilDiv64(r.FreeSpace, int64(clusterSize)))
		}

		bootSector := 0
		if r.Partitioned {
			bootSector = int(r.SectorsPerTrack)
			if bootSector < 1 {
				bootSector = 1
			}
		}

		calc := func(cc int) (fatSectors, rootDirSector, firstDataSector, endOfVolume int) {
			firstFAT := bootSector + reservedSectors
			fatSectors = ceilDiv((cc+2)*fatWidth, sectorSize*8)
			rootDirSector = firstFAT + fatSectors*int(r.NumFATs)
			extra := 0
			if fatWidth != 32 {
				extra = ceilDiv(rootEntries*32, sectorSize)
			}
			firstDataSector = rootDirSector + extra
			endOfVolume = firstDataSector + cc*sectorsPerCluster
			return
		}

		fatSectors, rootDirSector, firstDataSector, endOfVolume := calc(clusterCount)

		if r.VolumeSize != 0 {
			userSectors := int(r.VolumeSize / int64(sectorSize))
			if endOfVolume > userSectors {
				return nil, layoutImpossible("requested volume size (%d sectors) is too small; layout needs at least %d sectors", userSectors, endOfVolume)
			}
			freeSectors := userSectors - endOfVolume
			if sectorsPerCluster > 0 {
				clusterCount += freeSectors / sectorsPerCluster
			}
			fatSectors, rootDirSector, firstDataSector, endOfVolume = calc(clusterCount)
			for endOfVolume > userSectors && clusterCount > 0 {
				clusterCount--
				fatSectors, rootDirSector, firstDataSector, endOfVolume = calc(clusterCount)
			}
		}

		newFatWidth, newClusterSize, newClusterCount := reassessThresholds(fatWidth, clusterSize, clusterCount, sectorSize, r.FATWidthForced)

		if newFatWidth == fatWidth && newClusterSize == clusterSize {
			clusterCount = newClusterCount
			fatSectors, rootDirSector, firstDataSector, endOfVolume = calc(clusterCount)

			if r.RootDirSize != 0 && fatWidth != 32 {
				if tree.RootDirEntries() > int(r.RootDirSize) {
					return nil, layoutImpossible("root directory needs %d entries, exceeding the fixed size of %d", tree.RootDirEntries(), r.RootDirSize)
				}
			}

			return &Layout{
				SectorSize:        sectorSize,
				ClusterSize:       clusterSize,
				SectorsPerCluster: sectorsPerCluster,
				FATWidth:          fatWidth,
				NumFATs:           int(r.NumFATs),
				ClusterCount:      clusterCount,
				RootEntries:       rootEntries,
				ReservedSectors:   reservedSectors,
				BootSector:        bootSector,
				FirstFAT:          bootSector + reservedSectors,
				FATSectors:        fatSectors,
				RootDirSector:     rootDirSector,
				FirstDataSector:   firstDataSector,
				EndOfVolume:       endOfVolume,
			}, nil
		}

		if newClusterSize != clusterSize {
			pinned := r.ClusterSize > 0
			tooBig := clusterSize >= 128*sectorSize
			if pinned || tooBig {
				return nil, layoutImpossible("volume too large for the requested cluster size")
			}
		}

		fatWidth = newFatWidth
		clusterSize = newClusterSize
	}
}
