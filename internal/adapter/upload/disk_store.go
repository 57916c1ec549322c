package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/networth-backend/internal/domain"
)

// PublicPrefix is the URL path under which uploaded files are served
const PublicPrefix = "/uploads"

// DefaultMaxBytes is the size limit applied when none is configured
const DefaultMaxBytes int64 = 5 << 20

// AllowedExtensions lists the accepted logo image types
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// DiskStore implements domain.AssetStore on a local directory
type DiskStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

// NewDiskStore creates an asset store writing into dir. maxBytes <= 0 means DefaultMaxBytes.
func NewDiskStore(dir string, maxBytes int64) *DiskStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &DiskStore{
		dir:      dir,
		maxBytes: maxBytes,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Dir returns the directory files are written to
func (s *DiskStore) Dir() string {
	return s.dir
}

// Upload stores content as <unix-millis>-<uuid><ext> and returns its public path
func (s *DiskStore) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.UploadError{Reason: "request cancelled", Err: err}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(AllowedExtensions, ext) {
		return "", &domain.UploadError{Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &domain.UploadError{Reason: "failed to create upload directory", Err: err}
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), s.newID(), ext)
	target := filepath.Join(s.dir, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", &domain.UploadError{Reason: "failed to create file", Err: err}
	}

	n, err := io.Copy(f, io.LimitReader(content, s.maxBytes+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		os.Remove(target)
		return "", &domain.UploadError{Reason: "failed to write file", Err: err}
	case closeErr != nil:
		os.Remove(target)
		return "", &domain.UploadError{Reason: "failed to write file", Err: closeErr}
	case n > s.maxBytes:
		os.Remove(target)
		return "", &domain.UploadError{Reason: fmt.Sprintf("file exceeds %d bytes", s.maxBytes)}
	case n == 0:
		os.Remove(target)
		return "", &domain.UploadError{Reason: "file is empty"}
	}

	return path.Join(PublicPrefix, name), nil
}
