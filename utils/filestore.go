package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the store limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidPath is returned for stored paths escaping the root.
	ErrInvalidPath = errors.New("invalid stored path")
)

// StoredFile describes a file written to the store. Path is relative to the root.
type StoredFile struct {
	StoredFilename string
	StoredPath     string
	Size           int64
}

// LocalFileStore keeps uploads on local disk under root/yyyy/mm/dd/<uuid><ext>.
type LocalFileStore struct {
	root    string
	maxSize int64
	now     func() time.Time
}

// NewLocalFileStore creates the root directory if missing.
func NewLocalFileStore(root string, maxSize int64) (*LocalFileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalFileStore{root: root, maxSize: maxSize, now: time.Now}, nil
}

// Save copies r to a new file named after a uuid, keeping the original extension.
func (s *LocalFileStore) Save(ctx context.Context, originalName string, r io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 16 {
		ext = ""
	}
	dir := s.now().Format("2006/01/02")
	if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
		return StoredFile{}, err
	}
	name := uuid.NewString() + ext
	rel := filepath.ToSlash(filepath.Join(dir, name))
	full := filepath.Join(s.root, dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return StoredFile{}, err
	}
	src := r
	if s.maxSize > 0 {
		// one extra byte tells "exactly max" apart from "over max"
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, s.maxSize)
	}
	if err != nil {
		_ = os.Remove(full)
		return StoredFile{}, err
	}
	return StoredFile{StoredFilename: name, StoredPath: rel, Size: n}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalFileStore) Delete(_ context.Context, storedPath string) error {
	full, err := s.Path(storedPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path resolves a stored path to an absolute file path inside the root.
func (s *LocalFileStore) Path(storedPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(storedPath))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, clean), nil
}
