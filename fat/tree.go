package fat

import (
	"strings"
	"time"
)

// Attr is the FAT directory-entry attribute bitmask, spec §3.
type Attr uint8

const (
	AttrReadOnly    Attr = 0x01
	AttrHidden      Attr = 0x02
	AttrSystem      Attr = 0x04
	AttrVolumeLabel Attr = 0x08
	AttrDirectory   Attr = 0x10
	AttrArchive     Attr = 0x20

	// attrLFN is reserved to mark LFN records on disk; it must never
	// appear as a DirEntry's Attrs value (spec §3).
	attrLFN Attr = 0x0F

	// attrFileMask is the set of bits a regular file's Attrs may carry
	// (spec §3: "attrs for a regular file is masked to {read-only,
	// hidden, system, archive}").
	attrFileMask Attr = AttrReadOnly | AttrHidden | AttrSystem | AttrArchive
)

// HostMode classifies what a host path is, as reported by the external
// host-file-reading collaborator (spec §1).
type HostMode int

const (
	HostRegular HostMode = iota
	HostDirectory
	HostSpecial
)

// HostInfo is the minimal "open, size, mtime/atime/ctime" capability spec
// §1 describes as an external collaborator. AddFile consults it instead of
// touching the host filesystem directly, so the core stays independent of
// any particular filesystem abstraction.
type HostInfo interface {
	Mode() HostMode
	Size() int64
	ModifiedTime() time.Time
	CreatedTime() time.Time
	AccessedTime() time.Time
}

// DirEntry is one file or directory in the image, spec §3.
type DirEntry struct {
	Name         string
	HostPath     string
	Attrs        Attr
	FirstCluster uint32
	FileSize     uint32

	CreatedTime  time.Time
	ModifiedTime time.Time
	AccessedTime time.Time

	Children []*DirEntry

	// dirBytes is the serialized 32-byte-record stream for this
	// directory, rebuilt from scratch by every call to buildDirectories.
	// Meaningful only when IsDir().
	dirBytes []byte

	// dirEntryOffset is the byte offset within the parent's dirBytes
	// where this entry's short-name record lives, so buildDirectories
	// can patch in the assigned first cluster after recursion (spec §9
	// "patch-up of first cluster").
	dirEntryOffset int
}

// IsDir reports whether e is a directory.
func (e *DirEntry) IsDir() bool { return e.Attrs&AttrDirectory != 0 }

// Tree is the in-memory directory tree model, spec §3/§4.4.
type Tree struct {
	root *DirEntry

	// rootDirEntries is the number of 32-byte records the root directory
	// held after the most recent buildDirectories call; the sizing
	// solver reads it via RootDirEntries (spec §4.5 step 4:
	// "tree.root_dir_entries").
	rootDirEntries int
}

// RootDirEntries returns the number of 32-byte records the root directory
// held after the most recent layout pass.
func (t *Tree) RootDirEntries() int { return t.rootDirEntries }

// NewTree returns an empty Tree with a synthetic root directory.
func NewTree() *Tree {
	return &Tree{root: &DirEntry{Attrs: AttrDirectory}}
}

// Root returns the tree's root directory entry.
func (t *Tree) Root() *DirEntry { return t.root }

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

func findChild(d *DirEntry, name string) *DirEntry {
	for _, c := range d.Children {
		if sameName(c.Name, name) {
			return c
		}
	}
	return nil
}

// findOrCreateDir returns the child directory named name under d, creating
// a synthesized one (host path empty, timestamps = now) if absent. It
// fails if a non-directory entry already occupies that name, per spec
// §4.4's path-walk rule.
func findOrCreateDir(d *DirEntry, name string, now time.Time) (*DirEntry, error) {
	if existing := findChild(d, name); existing != nil {
		if !existing.IsDir() {
			return nil, badInput(name, "path component is a file, not a directory")
		}
		return existing, nil
	}
	child := &DirEntry{
		Name:         name,
		Attrs:        AttrDirectory,
		CreatedTime:  now,
		ModifiedTime: now,
		AccessedTime: now,
	}
	d.Children = append(d.Children, child)
	return child, nil
}

func splitImagePath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func basename(hostPath string) string {
	hostPath = strings.TrimRight(hostPath, "/")
	if idx := strings.LastIndexByte(hostPath, '/'); idx >= 0 {
		return hostPath[idx+1:]
	}
	return hostPath
}

// AddFile adds one host path to the tree at inImagePath (defaulting to
// hostPath's base name), classifying and recording it per info, as spec
// §4.4 describes. now is used only for timestamping directories
// synthesized along the way.
func (t *Tree) AddFile(hostPath, inImagePath string, attrs Attr, info HostInfo, now time.Time) error {
	if inImagePath == "" {
		inImagePath = basename(hostPath)
	}
	segments := splitImagePath(inImagePath)
	if len(segments) == 0 {
		return badInput(hostPath, "image path resolves to nothing")
	}

	cur := t.root
	for _, seg := range segments[:len(segments)-1] {
		next, err := findOrCreateDir(cur, seg, now)
		if err != nil {
			return err
		}
		cur = next
	}

	name := segments[len(segments)-1]

	switch info.Mode() {
	case HostDirectory:
		dir, err := findOrCreateDir(cur, name, now)
		if err != nil {
			return err
		}
		dir.HostPath = hostPath
		dir.Attrs = AttrDirectory
		dir.CreatedTime = info.CreatedTime()
		dir.ModifiedTime = info.ModifiedTime()
		dir.AccessedTime = info.AccessedTime()
		return nil

	case HostRegular:
		if findChild(cur, name) != nil {
			return badInput(hostPath, "duplicate name %q in directory", name)
		}
		size := info.Size()
		if size < 0 || size > 0xFFFFFFFF {
			return badInput(hostPath, "file size %d does not fit in 32 bits", size)
		}
		entry := &DirEntry{
			Name:         name,
			HostPath:     hostPath,
			Attrs:        attrs & attrFileMask,
			FileSize:     uint32(size),
			CreatedTime:  info.CreatedTime(),
			ModifiedTime: info.ModifiedTime(),
			AccessedTime: info.AccessedTime(),
		}
		cur.Children = append(cur.Children, entry)
		return nil

	default:
		return badInput(hostPath, "cannot add special file")
	}
}
