package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/ideaforge/internal/changeset"
	"github.com/hpungsan/ideaforge/internal/fsutil"
)

// Skipped describes a change-set entry that had no effect.
type Skipped struct {
	Index  int    `json:"index"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Apply applies changes under root in order and returns the operations that
// took effect. Bad entries are skipped, never raised; see ApplyDetailed.
func Apply(root string, changes []changeset.ChangeRequest) []AppliedChange {
	applied, _ := ApplyDetailed(root, changes)
	return applied
}

// ApplyDetailed is Apply plus the reason each skipped entry was dropped.
//
// create/update write the full content (creating parent directories); delete
// removes an existing regular file. Entries with unknown actions, paths that
// fail IsAllowed or hit IsReserved, write actions without string content, or
// targets reached through a symlinked directory are skipped. Duplicate paths
// are applied in order, so the last write wins.
func ApplyDetailed(root string, changes []changeset.ChangeRequest) ([]AppliedChange, []Skipped) {
	applied := []AppliedChange{}
	var skipped []Skipped
	for i, change := range changes {
		if reason := applyOne(root, change); reason != "" {
			skipped = append(skipped, Skipped{Index: i, Path: change.Path, Reason: reason})
			continue
		}
		applied = append(applied, AppliedChange{Path: Clean(change.Path), Action: change.Action})
	}
	return applied, skipped
}

// applyOne performs a single change and returns "" on success or the reason it
// was skipped.
func applyOne(root string, change changeset.ChangeRequest) string {
	if !change.Action.Valid() {
		return fmt.Sprintf("unknown action %q", change.Action)
	}
	if !IsAllowed(change.Path) {
		return "path not allowed"
	}
	if IsReserved(change.Path) {
		return "path reserved"
	}
	rel := Clean(change.Path)
	if err := fsutil.SymlinkFree(root, rel); err != nil {
		return fmt.Sprintf("unsafe parent: %v", err)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))

	if change.Action.Writes() {
		if change.Content == nil {
			return "missing content"
		}
		if err := fsutil.WriteFileAtomic(target, []byte(*change.Content), 0644); err != nil {
			return fmt.Sprintf("write failed: %v", err)
		}
		return ""
	}

	info, err := os.Lstat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "not a regular file"
	}
	if err := os.Remove(target); err != nil {
		return "remove failed"
	}
	return ""
}
