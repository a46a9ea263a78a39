package fat_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/chasonr/genfatimage/fat"
)

type stubHostInfo struct {
	mode         fat.HostMode
	size         int64
	created      time.Time
	modified     time.Time
	accessed     time.Time
}

func (s stubHostInfo) Mode() fat.HostMode          { return s.mode }
func (s stubHostInfo) Size() int64                 { return s.size }
func (s stubHostInfo) CreatedTime() time.Time      { return s.created }
func (s stubHostInfo) ModifiedTime() time.Time     { return s.modified }
func (s stubHostInfo) AccessedTime() time.Time     { return s.accessed }

func regularFile(size int64, when time.Time) stubHostInfo {
	return stubHostInfo{mode: fat.HostRegular, size: size, created: when, modified: when, accessed: when}
}

func TestAddFileCreatesIntermediateDirectories(t *testing.T) {
	t.Parallel()

	tree := fat.NewTree()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := tree.AddFile("/host/resolv.conf", "etc/resolv.conf", fat.AttrArchive, regularFile(19, now), now); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	root := tree.Root()
	if got, want := childNames(root), []string{"etc"}; !cmp.Equal(got, want) {
		t.Fatalf("root children = %v, want %v\ndiff: %s", got, want, cmp.Diff(want, got))
	}
	etc := root.Children[0]
	if !etc.IsDir() {
		t.Fatalf("etc entry is not a directory: %+v", etc)
	}
	if got, want := childNames(etc), []string{"resolv.conf"}; !cmp.Equal(got, want) {
		t.Fatalf("etc children = %v, want %v\ndiff: %s", got, want, cmp.Diff(want, got))
	}
}

func TestAddFileDuplicateNameFails(t *testing.T) {
	t.Parallel()

	tree := fat.NewTree()
	now := time.Now()
	if err := tree.AddFile("/host/a.txt", "a.txt", 0, regularFile(1, now), now); err != nil {
		t.Fatalf("first AddFile: %v", err)
	}
	if err := tree.AddFile("/host/b.txt", "a.txt", 0, regularFile(2, now), now); err == nil {
		t.Fatal("AddFile with a duplicate image-path name succeeded, want an error")
	}
}

func TestAddFilePathComponentIsFileFails(t *testing.T) {
	t.Parallel()

	tree := fat.NewTree()
	now := time.Now()
	if err := tree.AddFile("/host/a", "a", 0, regularFile(1, now), now); err != nil {
		t.Fatalf("first AddFile: %v", err)
	}
	if err := tree.AddFile("/host/b", "a/b", 0, regularFile(1, now), now); err == nil {
		t.Fatal("AddFile treating a file as a directory component succeeded, want an error")
	}
}

func TestAddFileSpecialFails(t *testing.T) {
	t.Parallel()

	tree := fat.NewTree()
	now := time.Now()
	special := stubHostInfo{mode: fat.HostSpecial, created: now, modified: now, accessed: now}
	if err := tree.AddFile("/dev/null", "null", 0, special, now); err == nil {
		t.Fatal("AddFile accepted a special file, want an error")
	}
}

func TestAddFileOversizeFails(t *testing.T) {
	t.Parallel()

	tree := fat.NewTree()
	now := time.Now()
	if err := tree.AddFile("/host/huge.bin", "huge.bin", 0, regularFile(1<<33, now), now); err == nil {
		t.Fatal("AddFile accepted a file larger than 32 bits, want an error")
	}
}

func TestAddFileDefaultsImagePathToBaseName(t *testing.T) {
	t.Parallel()

	tree := fat.NewTree()
	now := time.Now()
	if err := tree.AddFile("/some/host/path/file.txt", "", 0, regularFile(4, now), now); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	root := tree.Root()
	if got, want := childNames(root), []string{"file.txt"}; !cmp.Equal(got, want) {
		t.Fatalf("root children = %v, want %v\ndiff: %s", got, want, cmp.Diff(want, got))
	}
}

func childNames(d *fat.DirEntry) []string {
	names := make([]string, len(d.Children))
	for i, c := range d.Children {
		names[i] = c.Name
	}
	return names
}
