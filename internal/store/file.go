package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/seantiz/errand/internal/model"
)

// recordExt is the file extension of persisted job records.
const recordExt = ".json"

// Compile-time interface satisfaction check.
var _ Durable = (*FileStore)(nil)

// FileStore keeps one indented JSON document per request ID.
//
// Directory layout:
//
//	<dir>/<request_id>.json
//
// Writes go to a temp file in the same directory and are renamed into place.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("result directory is empty")
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result dir: %w", err)
	}
	return &FileStore{fs: fsys, dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file holding the record for requestID.
func (s *FileStore) Path(requestID string) string {
	return filepath.Join(s.dir, requestID+recordExt)
}

// Write atomically replaces the record file for rec.RequestID.
func (s *FileStore) Write(_ context.Context, rec *model.JobRecord) error {
	if rec == nil {
		return errors.New("job record is nil")
	}
	if err := checkID(rec.RequestID); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, rec.RequestID+recordExt+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = s.fs.Remove(tmpName) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp record: %w", err)
	}

	if err := s.fs.Rename(tmpName, s.Path(rec.RequestID)); err != nil {
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// Read loads the record for requestID.
func (s *FileStore) Read(_ context.Context, requestID string) (*model.JobRecord, error) {
	if err := checkID(requestID); err != nil {
		return nil, err
	}

	b, err := afero.ReadFile(s.fs, s.Path(requestID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, fmt.Errorf("record file %s is empty", s.Path(requestID))
	}

	var rec model.JobRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &rec, nil
}

// Close is a no-op; the file store holds no open handles.
func (s *FileStore) Close() error {
	return nil
}
