package project

import (
	"io/fs"
	"path/filepath"
)

// TreeEntry is one allowed file in a project snapshot.
type TreeEntry struct {
	Path string `json:"path"`
}

// Snapshot lists the regular files under root that IsAllowed accepts and
// IsReserved does not, as slash-separated paths in lexical order. Symlinks
// are neither followed nor listed, and tool directories are not descended into.
func Snapshot(root string) ([]TreeEntry, error) {
	entries := []TreeEntry{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			// Unreadable subtrees are left out of the snapshot.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != root && toolDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if IsAllowed(rel) && !IsReserved(rel) {
			entries = append(entries, TreeEntry{Path: rel})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
