package storage

import (
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
)

// LocalStorage writes files under root; they are served from
// <baseURL>/uploads/<publicId>.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written to.
func (s *LocalStorage) Root() string { return s.root }

func (s *LocalStorage) Store(ctx context.Context, f File, folder string) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}
	folder = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(folder)), "/")
	dir := filepath.Join(s.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create folder: %w", err)
	}

	name := uniqueName(f.Name)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return StoredFile{}, err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, f.Data); err != nil {
		_ = os.Remove(dst.Name())
		return StoredFile{}, fmt.Errorf("write %s: %w", name, err)
	}

	publicID := path.Join(folder, name)
	return StoredFile{
		URL:      s.baseURL + "/uploads/" + publicID,
		PublicID: publicID,
	}, nil
}

func (s *LocalStorage) Delete(ctx context.Context, publicID string) (DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return DeleteResult{}, err
	}
	p := filepath.Join(s.root, filepath.Clean("/"+publicID))
	err := os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return DeleteResult{Result: ResultNotFound, Deleted: publicID}, nil
	}
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Result: ResultOK, Deleted: publicID}, nil
}

// uniqueName keeps the original base name and extension and inserts a
// random suffix.
func uniqueName(original string) string {
	base := filepath.Base(original)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, stem)
	if stem == "" || stem == "_" {
		stem = "image"
	}
	return fmt.Sprintf("%s-%s%s", stem, uuid.NewString(), ext)
}
