// Package fat builds byte-exact FAT12, FAT16, and FAT32 filesystem
// images from an in-memory directory tree: 8.3 short names with long-file-name
// records where needed, an iterative sizing solver that picks a
// self-consistent FAT width and cluster size, and a writer that lays down
// the boot sector, FATs, root directory, and file data.
//
// The host filesystem is never touched directly except when streaming a
// file's content during the write pass; everything else — what files
// exist, their sizes, and their timestamps — is supplied by the caller
// through AddFile.
package fat
