package idea

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/hpungsan/ideaforge/internal/fsutil"
)

// Store loads and saves the full idea list. Load returns a snapshot the
// caller owns; Save replaces the persisted list with the given one.
type Store interface {
	Load() ([]Record, error)
	Save(records []Record) error
}

// FileStore persists ideas as a pretty-printed JSON array.
type FileStore struct {
	path   string
	logger logrus.FieldLogger
}

// NewFileStore returns a FileStore for path. A nil logger discards warnings.
func NewFileStore(path string, logger logrus.FieldLogger) *FileStore {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the store file path.
func (s *FileStore) Path() string {
	return s.path
}

// BackupPath returns the sibling file that receives corrupt store content,
// e.g. ideas.json -> ideas.bak.json.
func (s *FileStore) BackupPath() string {
	ext := filepath.Ext(s.path)
	return strings.TrimSuffix(s.path, ext) + ".bak" + ext
}

// Load reads the store. A missing file is an empty store. Content whose top
// level is not a JSON array is copied to BackupPath and treated as empty.
// Inside the array, entries are read field by field: a field of the wrong type
// is ignored, and an entry that is not an object is dropped after the original
// bytes have been backed up, so one bad entry never discards the others.
func (s *FileStore) Load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read idea store: %w", err)
	}

	if !gjson.ValidBytes(data) {
		s.preserveCorrupt(data, errors.New("invalid JSON"), "idea store corrupt")
		return []Record{}, nil
	}
	top := gjson.ParseBytes(data)
	if top.Type == gjson.Null {
		return []Record{}, nil
	}
	if !top.IsArray() {
		s.preserveCorrupt(data, errors.New("top level is not an array"), "idea store corrupt")
		return []Record{}, nil
	}

	records := []Record{}
	dropped := 0
	for _, item := range top.Array() {
		if !item.IsObject() {
			dropped++
			continue
		}
		records = append(records, readRecord(item))
	}
	if dropped > 0 {
		s.preserveCorrupt(data, fmt.Errorf("%d entries are not objects", dropped), "idea store has unreadable entries")
	}
	return records, nil
}

// readRecord copies the string-typed fields of one stored entry.
func readRecord(item gjson.Result) Record {
	str := func(key string) string {
		if v := item.Get(key); v.Type == gjson.String {
			return v.Str
		}
		return ""
	}
	return Record{
		Date:        str("date"),
		Idea:        str("idea"),
		ProjectSlug: str("project_slug"),
		Status:      Status(str("status")),
	}
}

// preserveCorrupt copies store bytes aside before they are rewritten without
// the unreadable parts. Failures are logged only.
func (s *FileStore) preserveCorrupt(data []byte, cause error, msg string) {
	backup := s.BackupPath()
	entry := s.logger.WithFields(logrus.Fields{"path": s.path, "backup": backup})
	if cause != nil {
		entry = entry.WithError(cause)
	}
	if err := fsutil.WriteFileAtomic(backup, data, 0644); err != nil {
		entry.WithField("backup_error", err.Error()).Warn(msg + "; backup failed")
		return
	}
	entry.Warn(msg + "; preserved backup")
}

// Save rewrites the whole store: 2-space indent, UTF-8, trailing newline.
func (s *FileStore) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode idea store: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write idea store: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu      sync.Mutex
	records []Record
	saves   int
}

// NewMemStore returns a MemStore seeded with records.
func NewMemStore(records ...Record) *MemStore {
	return &MemStore{records: append([]Record(nil), records...)}
}

// Load returns a copy of the stored records.
func (m *MemStore) Load() ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record{}, m.records...), nil
}

// Save replaces the stored records with a copy of records.
func (m *MemStore) Save(records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]Record(nil), records...)
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
