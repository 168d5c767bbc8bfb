package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/apperr"
	"storefront/internal/logger"
)

const maxImageSize = 5 << 20

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// UploadStore keeps uploaded images under root/uploads. Stored paths are
// relative to root and served from the public static mount.
type UploadStore struct {
	root string
	log  logger.Logger
}

func NewUploadStore(root string, log logger.Logger) *UploadStore {
	return &UploadStore{root: filepath.Clean(root), log: log}
}

// SaveImage validates and writes an image into uploads/<kind>/ and returns the
// slash separated relative path.
func (s *UploadStore) SaveImage(file *multipart.FileHeader, kind string) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", apperr.Validation("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", apperr.Validation(fmt.Sprintf("unsupported image type: %s", extension))
	}
	if file.Size > maxImageSize {
		return "", apperr.Validation("image file too large (max 5MB)")
	}

	dir := filepath.Join(s.root, "uploads", kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Internal(fmt.Errorf("create upload dir: %w", err))
	}

	filename := uuid.NewString() + extension
	fullPath := filepath.Join(dir, filename)

	in, err := file.Open()
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("open upload: %w", err))
	}
	defer in.Close()

	out, err := os.Create(fullPath)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("create upload: %w", err))
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(fullPath)
		return "", apperr.Internal(fmt.Errorf("write upload: %w", err))
	}

	s.log.Debug("image stored", logger.String("path", fullPath), logger.Int64("size", file.Size))
	return path.Join("uploads", kind, filename), nil
}

// Delete removes a previously stored upload. Paths outside uploads/ are
// refused; a missing file is not an error.
func (s *UploadStore) Delete(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	cleanRel := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(trimmed, "/")), "/")
	if !strings.HasPrefix(cleanRel, "uploads/") {
		return fmt.Errorf("refusing to delete non-upload path: %s", relPath)
	}

	target := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(cleanRel)))
	if !strings.HasPrefix(target, s.root+string(os.PathSeparator)) {
		return fmt.Errorf("refusing to delete path outside upload root: %s", relPath)
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// discard deletes an upload and only logs failures.
func (s *UploadStore) discard(relPath string) {
	if err := s.Delete(relPath); err != nil {
		s.log.Warn("upload delete failed", logger.String("path", relPath), logger.Error(err))
	}
}
