package project

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/fsutil"
)

// Store persists one Document per project.
type Store interface {
	// Dir returns the project's directory, the containment root for its changes.
	Dir(slug string) string

	// Load returns the project's document. Missing documents are NOT_FOUND,
	// unparsable ones MALFORMED_STATE; callers treat both as absent.
	Load(slug string) (*Document, error)

	// Bootstrap creates the project directory and, when no document exists,
	// writes an initial one. It reports whether a document was created.
	Bootstrap(slug, idea, createdDate string) (bool, error)

	// Save serialises doc fully and replaces the stored document.
	Save(doc *Document) error

	// List returns the names of existing project directories.
	List() ([]string, error)
}

// FileStore keeps documents at <root>/<slug>/state.json.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore rooted at the projects directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the projects directory.
func (s *FileStore) Root() string {
	return s.root
}

// Dir returns the directory of the project named slug.
func (s *FileStore) Dir(slug string) string {
	return filepath.Join(s.root, slug)
}

func (s *FileStore) statePath(slug string) string {
	return filepath.Join(s.Dir(slug), StateFile)
}

// Load reads and parses the project's state document. The directory name is
// authoritative: a document whose slug field names another project (a copied
// folder, a hand edit) is returned with Slug set to slug.
func (s *FileStore) Load(slug string) (*Document, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	path := s.statePath(slug)
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(fmt.Errorf("read state: %w", err))
	}

	var doc *Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewMalformedState(path, err)
	}
	if doc == nil {
		return nil, errors.NewMalformedState(path, fmt.Errorf("document is null"))
	}
	doc.Slug = slug
	if doc.Iterations == nil {
		doc.Iterations = []IterationRecord{}
	}
	return doc, nil
}

// Bootstrap creates the project directory and an initial document if absent.
// Calling it again for an existing project is a no-op.
func (s *FileStore) Bootstrap(slug, idea, createdDate string) (bool, error) {
	if err := ValidateSlug(slug); err != nil {
		return false, err
	}
	if err := os.MkdirAll(s.Dir(slug), 0755); err != nil {
		return false, errors.NewInternal(fmt.Errorf("create project directory: %w", err))
	}
	if _, err := os.Lstat(s.statePath(slug)); err == nil {
		return false, nil
	} else if !stderrors.Is(err, os.ErrNotExist) {
		return false, errors.NewInternal(fmt.Errorf("stat state: %w", err))
	}
	if err := s.Save(NewDocument(slug, idea, createdDate)); err != nil {
		return false, err
	}
	return true, nil
}

// Save encodes doc in memory first; the file is only replaced once encoding
// has succeeded, and the replacement itself is a rename.
func (s *FileStore) Save(doc *Document) error {
	if doc == nil {
		return errors.NewInvalidRequest("document is required")
	}
	if err := ValidateSlug(doc.Slug); err != nil {
		return err
	}
	if doc.Iterations == nil {
		doc.Iterations = []IterationRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.NewInternal(fmt.Errorf("encode state: %w", err))
	}
	if err := fsutil.WriteFileAtomic(s.statePath(doc.Slug), buf.Bytes(), 0644); err != nil {
		return errors.NewInternal(fmt.Errorf("write state: %w", err))
	}
	return nil
}

// List returns the project directory names under the root, skipping hidden
// entries. A missing root yields an empty list.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, errors.NewInternal(fmt.Errorf("list projects: %w", err))
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ValidateSlug rejects identifiers that would not name a single directory
// directly under the projects root.
func ValidateSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." ||
		strings.ContainsAny(slug, `/\`) || strings.ContainsRune(slug, 0) {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid project slug %q", slug))
	}
	return nil
}
