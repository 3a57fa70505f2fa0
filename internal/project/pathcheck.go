package project

import (
	"path"
	"strings"
)

// allowedExtensions lists the code and config file types a change-set may touch.
var allowedExtensions = map[string]bool{
	".py": true, ".pyi": true,
	".js": true, ".mjs": true, ".cjs": true, ".jsx": true,
	".ts": true, ".tsx": true,
	".go": true, ".mod": true, ".sum": true,
	".rs": true, ".java": true, ".kt": true, ".swift": true,
	".rb": true, ".php": true, ".cs": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true,
	".html": true, ".htm": true, ".css": true, ".scss": true,
	".vue": true, ".svelte": true,
	".sql": true, ".graphql": true, ".proto": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".ini": true, ".cfg": true, ".conf": true,
	".md": true, ".txt": true, ".csv": true,
}

// allowedBasenames lists extensionless build/config files that may be touched.
var allowedBasenames = map[string]bool{
	"Dockerfile":  true,
	"Makefile":    true,
	"Procfile":    true,
	"Gemfile":     true,
	"Rakefile":    true,
	"Jenkinsfile": true,
	"LICENSE":     true,
}

// toolDirs hold VCS metadata, dependency installs and interpreter caches.
// Nothing inside them is listed or writable.
var toolDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".venv":        true,
	"venv":         true,
	"node_modules": true,
	"__pycache__":  true,
}

// proposalDirPrefix marks the per-day folders written by the proposal phase.
const proposalDirPrefix = "iteration_"

// splitRelative parses p as a slash-separated relative path and returns its
// segments with empty and "." segments dropped. It reports false for empty
// input, NUL bytes, backslashes, absolute paths, and ".." segments.
func splitRelative(p string) ([]string, bool) {
	if p == "" || strings.ContainsRune(p, 0) || strings.Contains(p, `\`) {
		return nil, false
	}
	if strings.HasPrefix(p, "/") {
		return nil, false
	}
	var segments []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return nil, false
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return nil, false
	}
	return segments, true
}

// extension returns the lowercased extension of a file name. Dotfiles such as
// ".env" have no extension.
func extension(name string) string {
	if strings.HasPrefix(name, ".") && strings.Count(name, ".") == 1 {
		return ""
	}
	return strings.ToLower(path.Ext(name))
}

// IsAllowed reports whether p is a project-relative path confined to the
// project root whose final component is an allowed code/config file.
func IsAllowed(p string) bool {
	segments, ok := splitRelative(p)
	if !ok {
		return false
	}
	name := segments[len(segments)-1]
	if allowedExtensions[extension(name)] {
		return true
	}
	return allowedBasenames[name]
}

// IsReserved reports whether p names a file the pipeline itself owns (the
// root state document or anything inside a proposal folder) or lies under one
// of the tool directories. Reserved paths are neither listed nor writable by
// change-sets.
func IsReserved(p string) bool {
	segments, ok := splitRelative(p)
	if !ok {
		return false
	}
	if len(segments) == 1 && segments[0] == StateFile {
		return true
	}
	if len(segments) > 1 && strings.HasPrefix(segments[0], proposalDirPrefix) {
		return true
	}
	for _, dir := range segments[:len(segments)-1] {
		if toolDirs[dir] {
			return true
		}
	}
	return false
}

// Clean returns the canonical slash form of an allowed relative path
// ("./a//b.py" -> "a/b.py"). It returns "" for paths splitRelative rejects.
func Clean(p string) string {
	segments, ok := splitRelative(p)
	if !ok {
		return ""
	}
	return strings.Join(segments, "/")
}
