// Package storage keeps ticket attachments on the local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
)

// ErrNotFound is returned for unknown or malformed references.
var ErrNotFound = errors.New("storage: attachment not found")

// Attachments stores uploaded files under opaque references.
type Attachments interface {
	Put(ctx context.Context, ownerID uuid.UUID, data []byte, info lifecycle.AttachmentInfo) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, ref string) error
}

// File is an opened attachment. The caller closes Body.
type File struct {
	Body        io.ReadCloser
	ContentType string
}

var contentTypes = map[string]string{
	".jpg": "image/jpeg",
	".png": "image/png",
}

// FileStore writes each attachment to <root>/<owner>/<uuid><ext>.
type FileStore struct {
	root string
}

var _ Attachments = (*FileStore)(nil)

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Put(ctx context.Context, ownerID uuid.UUID, data []byte, info lifecycle.AttachmentInfo) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, ok := contentTypes[info.Extension]; !ok {
		return "", fmt.Errorf("unsupported attachment extension %q", info.Extension)
	}

	ref := path.Join(ownerID.String(), uuid.NewString()+info.Extension)
	full := s.resolve(ref)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create owner dir: %w", err)
	}
	if err := atomic.WriteFile(full, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	// atomic.WriteFile leaves new files with the temp file's mode.
	if err := os.Chmod(full, 0o640); err != nil {
		return "", fmt.Errorf("chmod attachment: %w", err)
	}
	return ref, nil
}

func (s *FileStore) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if !validRef(ref) {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(s.resolve(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("open attachment: %w", err)
	}
	return f, contentTypes[path.Ext(ref)], nil
}

func (s *FileStore) Remove(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return ErrNotFound
	}
	err := os.Remove(s.resolve(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

func (s *FileStore) resolve(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

// validRef accepts only "<uuid>/<name><ext>" with a known extension.
func validRef(ref string) bool {
	owner, name, ok := strings.Cut(ref, "/")
	if !ok || strings.Contains(name, "/") || name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if _, err := uuid.Parse(owner); err != nil {
		return false
	}
	_, known := contentTypes[path.Ext(name)]
	return known
}
