package fat

import (
	"regexp"
	"strconv"
	"strings"
)

// Preset selects one of the standard floppy-disk geometries, spec §6.
type Preset int

const (
	PresetNone Preset = 0
	Preset360  Preset = 360
	Preset720  Preset = 720
	Preset1200 Preset = 1200
	Preset1440 Preset = 1440
	Preset2880 Preset = 2880
)

const kib = 1024

type presetGeometry struct {
	volumeSize      int64
	clusterSize     int
	rootDirSize     uint16
	sectorsPerTrack uint16
	numHeads        uint16
	mediaDesc       string
}

var presetTable = map[Preset]presetGeometry{
	Preset360:  {360 * kib, 1024, 112, 9, 2, "FD"},
	Preset720:  {720 * kib, 1024, 112, 9, 2, "F9"},
	Preset1200: {1200 * kib, 512, 112, 15, 2, "F9"},
	Preset1440: {1440 * kib, 512, 224, 18, 2, "F0"},
	Preset2880: {2880 * kib, 1024, 224, 36, 2, "F0"},
}

// Options is the raw, unresolved options contract (spec §6), as produced by
// the external CLI layer. Fields that a preset may fix are pointers so
// Validate can tell "the user explicitly set this" apart from "left at its
// zero value."
type Options struct {
	Output  string
	Verbose bool
	Preset  Preset

	VolumeSize int64 // bytes; 0 = derive from contents
	FreeSpace  int64 // bytes; minimum free space to reserve

	ClusterSize     *int
	RootDirSize     *uint16
	FATWidthForced  *int // 12, 16, or 32
	SectorsPerTrack *uint16
	NumHeads        *uint16
	MediaDesc       *string
	SectorSize      *uint16
	ReservedSectors *uint16
	NumFATs         *uint8

	Partitioned bool
	Label       string
	BootRecord  string
	OEMName     string
	Serial      string
}

// ResolvedOptions is the fully defaulted, preset-applied option set the
// sizing solver and writer consume.
type ResolvedOptions struct {
	Output  string
	Verbose bool

	VolumeSize int64
	FreeSpace  int64

	ClusterSize     int
	RootDirSize     uint16
	FATWidthForced  int
	SectorsPerTrack uint16
	NumHeads        uint16
	MediaDesc       string // 1-2 hex digits, validated
	SectorSize      uint16
	ReservedSectors uint16 // 0 = auto
	NumFATs         uint8

	Partitioned bool
	Label       string
	BootRecord  string
	OEMName     string
	Serial      string
}

var serialRe = regexp.MustCompile(`^[0-9A-Fa-f]{1,4}-[0-9A-Fa-f]{1,4}$`)
var hexByteRe = regexp.MustCompile(`^[0-9A-Fa-f]{1,2}$`)

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// Validate checks the options contract in isolation, per spec §6's
// validation rules (excluding the "no files provided" rule, which needs
// the tree and is checked separately by CheckHasContent once the walker
// has run).
func (o *Options) Validate() error {
	if o.Preset != PresetNone {
		if _, ok := presetTable[o.Preset]; !ok {
			return badOption("unknown preset %dK", int(o.Preset))
		}
		fixed := map[string]bool{
			"cluster-size":      o.ClusterSize != nil,
			"root-dir-size":     o.RootDirSize != nil,
			"fat-width":         o.FATWidthForced != nil,
			"sectors-per-track": o.SectorsPerTrack != nil,
			"num-heads":         o.NumHeads != nil,
			"media-desc":        o.MediaDesc != nil,
			"sector-size":       o.SectorSize != nil,
			"reserved-sectors":  o.ReservedSectors != nil,
			"num-fats":          o.NumFATs != nil,
		}
		for name, set := range fixed {
			if set {
				return badOption("preset %dK cannot be combined with --%s", int(o.Preset), name)
			}
		}
		if o.VolumeSize != 0 {
			return badOption("preset %dK cannot be combined with an explicit volume size", int(o.Preset))
		}
	}

	if o.FATWidthForced != nil {
		switch *o.FATWidthForced {
		case 12, 16, 32:
		default:
			return badOption("fat width must be 12, 16, or 32, got %d", *o.FATWidthForced)
		}
	}

	if o.SectorSize != nil {
		ss := int(*o.SectorSize)
		if ss < 128 || ss > 32768 || !isPowerOfTwo(ss) {
			return badOption("sector size must be a power of two in [128, 32768], got %d", ss)
		}
		if o.FATWidthForced != nil && *o.FATWidthForced == 32 && ss < 512 {
			return badOption("FAT32 requires sector size >= 512, got %d", ss)
		}
	}

	if o.ClusterSize != nil {
		sectorSize := 512
		if o.SectorSize != nil {
			sectorSize = int(*o.SectorSize)
		}
		cs := *o.ClusterSize
		if cs <= 0 || cs%sectorSize != 0 {
			return badOption("cluster size must be a positive multiple of the sector size (%d), got %d", sectorSize, cs)
		}
		ratio := cs / sectorSize
		if !isPowerOfTwo(ratio) || ratio > 128 {
			return badOption("cluster size must be sector size times a power of two up to 128x, got %dx", ratio)
		}
	}

	if o.Serial != "" && !serialRe.MatchString(o.Serial) {
		return badOption("serial must match HHHH-HHHH (1-4 hex digits each side), got %q", o.Serial)
	}

	if o.MediaDesc != nil && !hexByteRe.MatchString(*o.MediaDesc) {
		return badOption("media descriptor must be 1-2 hex digits, got %q", *o.MediaDesc)
	}

	if len(o.Label) > 11 {
		return badOption("label must be at most 11 ASCII characters, got %q", o.Label)
	}

	return nil
}

// Resolve validates o and returns a fully defaulted ResolvedOptions, with
// any preset applied, per spec §6.
func (o *Options) Resolve() (*ResolvedOptions, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	r := &ResolvedOptions{
		Output:      o.Output,
		Verbose:     o.Verbose,
		FreeSpace:   o.FreeSpace,
		Partitioned: o.Partitioned,
		Label:       o.Label,
		BootRecord:  o.BootRecord,
		OEMName:     o.OEMName,
		Serial:      o.Serial,
	}
	if r.Output == "" {
		r.Output = "dos-volume.img"
	}
	if r.Label == "" {
		r.Label = "NO NAME"
	}
	if r.OEMName == "" {
		r.OEMName = "MSWIN4.1"
	}
	r.NumHeads = 255
	r.SectorsPerTrack = 63
	r.SectorSize = 512
	r.NumFATs = 2

	if o.Preset != PresetNone {
		g := presetTable[o.Preset]
		r.FATWidthForced = 12
		r.SectorSize = 512
		r.ReservedSectors = 1
		r.NumFATs = 2
		r.VolumeSize = g.volumeSize
		r.ClusterSize = g.clusterSize
		r.RootDirSize = g.rootDirSize
		r.SectorsPerTrack = g.sectorsPerTrack
		r.NumHeads = g.numHeads
		r.MediaDesc = g.mediaDesc
		return r, nil
	}

	r.VolumeSize = o.VolumeSize
	if o.ClusterSize != nil {
		r.ClusterSize = *o.ClusterSize
	}
	if o.RootDirSize != nil {
		r.RootDirSize = *o.RootDirSize
	}
	if o.FATWidthForced != nil {
		r.FATWidthForced = *o.FATWidthForced
	}
	if o.SectorsPerTrack != nil {
		r.SectorsPerTrack = *o.SectorsPerTrack
	}
	if o.NumHeads != nil {
		r.NumHeads = *o.NumHeads
	}
	if o.SectorSize != nil {
		r.SectorSize = *o.SectorSize
	}
	if o.ReservedSectors != nil {
		r.ReservedSectors = *o.ReservedSectors
	}
	if o.NumFATs != nil {
		r.NumFATs = *o.NumFATs
	}
	if o.MediaDesc != nil {
		r.MediaDesc = strings.ToUpper(*o.MediaDesc)
	} else if r.Partitioned {
		r.MediaDesc = "F8"
	} else {
		r.MediaDesc = "F0"
	}

	return r, nil
}

// CheckHasContent enforces spec §6's "no files provided and neither
// volume_size nor free_space set" rule, which needs to know whether the
// walker added anything to tree.
func CheckHasContent(r *ResolvedOptions, tree *Tree) error {
	if len(tree.Root().Children) > 0 {
		return nil
	}
	if r.VolumeSize != 0 || r.FreeSpace != 0 {
		return nil
	}
	return badOption("no files provided and neither volume size nor free space was set")
}

// mediaDescByte parses a resolved, validated MediaDesc hex string into a
// byte.
func mediaDescByte(s string) byte {
	v, err := strconv.ParseUint(s, 16, 8)
	assertf(err == nil, "mediaDescByte: invalid hex %q slipped past validation: %v", s, err)
	return byte(v)
}
