// Package hostwalk is the external collaborator that feeds a host
// directory tree into the fat package: it walks an afero filesystem,
// classifies each entry, and calls fat.Tree.AddFile with the size and
// timestamps fat needs. The core package never touches the host
// filesystem itself except to stream file content during the write pass,
// which it does through the FileOpener this package also implements.
package hostwalk

import (
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/chasonr/genfatimage/fat"
)

// PathMapping is one "host:image" root the caller asked to include, e.g.
// a positional "host[:image]" command-line argument naming the host path
// to add and the path it should land at inside the image.
type PathMapping struct {
	HostPath  string
	ImagePath string
}

// FS wraps an afero.Fs so the fat package can stream file content during
// the write pass without depending on afero directly. It also implements
// fat.HostInfo lookups during Walk.
type FS struct {
	fs afero.Fs
}

// New wraps fs for walking and later opening file content. Callers
// typically pass afero.NewOsFs() in production and afero.NewMemMapFs()
// in tests.
func New(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// Open implements fat.FileOpener: it opens hostPath for sequential
// reading, satisfying writer.go's streaming copy during the write pass.
func (w *FS) Open(hostPath string) (io.ReadCloser, error) {
	f, err := w.fs.Open(hostPath)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Walk adds every file and directory reachable from each root in roots to
// tree, classifying afero's os.FileInfo as regular/directory/special and
// recovering ctime/atime through statTimes (os-specific; falls back to
// ModTime for filesystems, such as afero's in-memory one, that cannot
// report them).
func (w *FS) Walk(roots []PathMapping, tree *fat.Tree, now time.Time) error {
	for _, root := range roots {
		if err := w.walkOne(root.HostPath, root.ImagePath, tree, now); err != nil {
			return err
		}
	}
	return nil
}

func (w *FS) walkOne(hostPath, imagePath string, tree *fat.Tree, now time.Time) error {
	info, err := w.fs.Stat(hostPath)
	if err != nil {
		return err
	}

	if strings.Trim(imagePath, "/") == "" {
		// Mapped onto the image root: a directory contributes only its
		// contents, and a file lands at the root under its base name.
		if !info.IsDir() {
			if err := w.addEntry(hostPath, "", info, tree, now); err != nil {
				return err
			}
		}
	} else if err := w.addEntry(hostPath, imagePath, info, tree, now); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := afero.ReadDir(w.fs, hostPath)
	if err != nil {
		return err
	}
	for _, child := range entries {
		childHost := path.Join(hostPath, child.Name())
		childImage := path.Join(imagePath, child.Name())
		if child.IsDir() {
			if err := w.walkOne(childHost, childImage, tree, now); err != nil {
				return err
			}
			continue
		}
		if err := w.addEntry(childHost, childImage, child, tree, now); err != nil {
			return err
		}
	}
	return nil
}

func (w *FS) addEntry(hostPath, imagePath string, info os.FileInfo, tree *fat.Tree, now time.Time) error {
	created, modified, accessed := statTimes(w.fs, hostPath, info)

	mode := fat.HostRegular
	switch {
	case info.IsDir():
		mode = fat.HostDirectory
	case !info.Mode().IsRegular():
		mode = fat.HostSpecial
	}

	return tree.AddFile(hostPath, imagePath, attrsFor(info), &stat{
		mode:     mode,
		size:     info.Size(),
		created:  created,
		modified: modified,
		accessed: accessed,
	}, now)
}

// attrsFor maps host permission bits to the FAT attribute bits the tree
// cares about; a host file with no write bit for its owner becomes
// read-only in the image, matching how real FAT-building tools treat a
// locked-down source tree.
func attrsFor(info os.FileInfo) fat.Attr {
	if info.IsDir() {
		return fat.AttrDirectory
	}
	var attrs fat.Attr
	if info.Mode().Perm()&0200 == 0 {
		attrs |= fat.AttrReadOnly
	}
	if strings.HasPrefix(path.Base(info.Name()), ".") {
		attrs |= fat.AttrHidden
	}
	return attrs
}

type stat struct {
	mode     fat.HostMode
	size     int64
	created  time.Time
	modified time.Time
	accessed time.Time
}

func (s *stat) Mode() fat.HostMode      { return s.mode }
func (s *stat) Size() int64             { return s.size }
func (s *stat) CreatedTime() time.Time  { return s.created }
func (s *stat) ModifiedTime() time.Time { return s.modified }
func (s *stat) AccessedTime() time.Time { return s.accessed }
