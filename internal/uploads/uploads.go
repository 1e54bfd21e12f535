package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/CTFPlatform/internal/models"
)

var (
	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("uploads: file too large")
	// ErrInvalidName is returned for stored names that escape the upload directory.
	ErrInvalidName = errors.New("uploads: invalid file name")
)

// Storage keeps challenge attachments on the local filesystem.
type Storage struct {
	dir     string
	maxSize int64
	nowFn   func() time.Time
}

// NewStorage constructs a Storage rooted at dir, creating it if needed.
func NewStorage(dir string, maxSize int64) (*Storage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("uploads: empty directory")
	}
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("uploads: create dir: %w", errMkdir)
	}
	return &Storage{dir: dir, maxSize: maxSize, nowFn: time.Now}, nil
}

// Dir returns the storage root.
func (s *Storage) Dir() string { return s.dir }

// MaxSize returns the upload size limit in bytes.
func (s *Storage) MaxSize() int64 { return s.maxSize }

// Save stores an uploaded file under a unique name and returns its metadata.
func (s *Storage) Save(header *multipart.FileHeader) (*models.ChallengeFile, error) {
	if header == nil {
		return nil, errors.New("uploads: nil file")
	}
	if s.maxSize > 0 && header.Size > s.maxSize {
		return nil, ErrTooLarge
	}
	src, errOpen := header.Open()
	if errOpen != nil {
		return nil, fmt.Errorf("uploads: open upload: %w", errOpen)
	}
	defer src.Close()

	original := filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	name := fmt.Sprintf("%d-%s%s", s.nowFn().UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(original)))
	target := filepath.Join(s.dir, name)

	dst, errCreate := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errCreate != nil {
		return nil, fmt.Errorf("uploads: create file: %w", errCreate)
	}
	reader := io.Reader(src)
	if s.maxSize > 0 {
		reader = io.LimitReader(src, s.maxSize+1)
	}
	written, errCopy := io.Copy(dst, reader)
	errClose := dst.Close()
	if errCopy == nil && s.maxSize > 0 && written > s.maxSize {
		errCopy = ErrTooLarge
	}
	if errCopy == nil {
		errCopy = errClose
	}
	if errCopy != nil {
		_ = os.Remove(target)
		if errors.Is(errCopy, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("uploads: write file: %w", errCopy)
	}

	return &models.ChallengeFile{
		Filename:     name,
		OriginalName: original,
		Size:         written,
	}, nil
}

// Path resolves a stored name to a path inside the storage root.
func (s *Storage) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Remove deletes a stored file; missing files are not an error.
func (s *Storage) Remove(name string) error {
	path, errPath := s.Path(name)
	if errPath != nil {
		return errPath
	}
	if errRemove := os.Remove(path); errRemove != nil && !errors.Is(errRemove, os.ErrNotExist) {
		return fmt.Errorf("uploads: remove file: %w", errRemove)
	}
	return nil
}
