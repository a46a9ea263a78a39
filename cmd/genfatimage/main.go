// Command genfatimage builds a byte-exact FAT12/16/32 filesystem image
// from a set of host files and directories.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/chasonr/genfatimage/fat"
	"github.com/chasonr/genfatimage/hostwalk"
	"github.com/chasonr/genfatimage/progress"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "genfatimage: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("genfatimage", pflag.ContinueOnError)

	output := fs.StringP("output", "o", "dos-volume.img", "path to write the image to")
	verbose := fs.Bool("verbose", false, "print a summary once the image is written")
	preset := fs.Int("preset", 0, "standard floppy geometry in KiB (360, 720, 1200, 1440, 2880)")
	volumeSize := fs.Int64("volume-size", 0, "total image size in bytes (0: derive from contents)")
	freeSpace := fs.Int64("free-space", 0, "minimum free space to reserve, in bytes")
	clusterSize := fs.Int("cluster-size", 0, "bytes per cluster (0: let the sizing solver choose)")
	fatWidth := fs.Int("fat-width", 0, "force FAT width: 12, 16, or 32 (0: auto)")
	sectorSize := fs.Uint16("sector-size", 512, "bytes per sector")
	numFATs := fs.Uint8("num-fats", 2, "number of FAT copies")
	reservedSectors := fs.Uint16("reserved-sectors", 0, "reserved sectors before the first FAT (0: auto)")
	sectorsPerTrack := fs.Uint16("sectors-per-track", 63, "CHS geometry: sectors per track")
	numHeads := fs.Uint16("num-heads", 255, "CHS geometry: number of heads")
	mediaDesc := fs.String("media-desc", "", "media descriptor byte, as hex (default: F0 unpartitioned, F8 partitioned)")
	partitioned := fs.Bool("partitioned", false, "write a whole-disk image: an MBR with one partition holding the volume")
	label := fs.String("label", "", "volume label, up to 11 ASCII characters")
	oemName := fs.String("oem-name", "", "8-byte OEM name field in the boot sector")
	serial := fs.String("serial", "", "volume serial number as HHHH-HHHH (default: derived from the current time)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: genfatimage [flags] host[:image] [host[:image] ...]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := &fat.Options{
		Output:      *output,
		Verbose:     *verbose,
		Preset:      fat.Preset(*preset),
		VolumeSize:  *volumeSize,
		FreeSpace:   *freeSpace,
		Partitioned: *partitioned,
		Label:       *label,
		OEMName:     *oemName,
		Serial:      *serial,
	}
	if fs.Changed("cluster-size") && *clusterSize != 0 {
		opts.ClusterSize = clusterSize
	}
	if fs.Changed("fat-width") && *fatWidth != 0 {
		opts.FATWidthForced = fatWidth
	}
	if fs.Changed("sector-size") {
		opts.SectorSize = sectorSize
	}
	if fs.Changed("num-fats") {
		opts.NumFATs = numFATs
	}
	if fs.Changed("reserved-sectors") {
		opts.ReservedSectors = reservedSectors
	}
	if fs.Changed("sectors-per-track") {
		opts.SectorsPerTrack = sectorsPerTrack
	}
	if fs.Changed("num-heads") {
		opts.NumHeads = numHeads
	}
	if fs.Changed("media-desc") {
		opts.MediaDesc = mediaDesc
	}

	mappings := parseMappings(fs.Args())

	r, err := opts.Resolve()
	if err != nil {
		return err
	}

	tree := fat.NewTree()
	now := time.Now()
	w := hostwalk.New(afero.NewOsFs())
	if err := w.Walk(mappings, tree, now); err != nil {
		return err
	}
	if err := fat.CheckHasContent(r, tree); err != nil {
		return err
	}

	layout, err := fat.Solve(tree, r)
	if err != nil {
		return err
	}

	out, err := os.Create(r.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	counter := &progress.Writer{}
	if err := fat.Write(out, counter, w, tree, layout, r); err != nil {
		return err
	}

	if r.Verbose {
		summary := progress.Summary{
			BytesWritten: counter.Count(),
			ClusterCount: layout.ClusterCount,
			FATWidth:     layout.FATWidth,
			Output:       r.Output,
		}
		fmt.Fprintln(os.Stderr, summary.String())
	}
	return nil
}

// parseMappings turns each "host[:image]" positional argument into a
// hostwalk.PathMapping, defaulting the image path to the root of the
// image when no ":image" suffix is given. Zero arguments is valid here —
// an image with no files at all is only rejected later, by
// fat.CheckHasContent, and only when neither --volume-size nor
// --free-space was given either.
func parseMappings(args []string) []hostwalk.PathMapping {
	mappings := make([]hostwalk.PathMapping, 0, len(args))
	for _, arg := range args {
		host, image, ok := strings.Cut(arg, ":")
		if !ok {
			image = "/"
		}
		mappings = append(mappings, hostwalk.PathMapping{HostPath: host, ImagePath: image})
	}
	return mappings
}
