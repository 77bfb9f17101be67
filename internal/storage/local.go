package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes assets to <root>/<projectID>/<category>/<filename>.
type LocalStore struct {
	root       string
	downloader Downloader
}

func NewLocalStore(root string, d Downloader) *LocalStore {
	return &LocalStore{root: filepath.Clean(root), downloader: d}
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error) {
	key, err := objectKey(projectID, category, filename)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("create asset directory: %w", err)
	}

	// Write then rename so readers never see a partial file.
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write asset: %w", err)
	}
	return dest, nil
}

// Open reads a stored asset. Remote URLs go through the downloader; local
// paths must resolve inside the assets root.
func (s *LocalStore) Open(ctx context.Context, location string) ([]byte, error) {
	if isRemote(location) {
		if s.downloader == nil {
			return nil, fmt.Errorf("%w: remote asset without downloader", ErrInvalidPath)
		}
		return s.downloader.Download(ctx, location)
	}
	p, err := s.Resolve(location)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// Resolve cleans location and checks it lies within the assets root.
func (s *LocalStore) Resolve(location string) (string, error) {
	if location == "" {
		return "", ErrInvalidPath
	}
	p := location
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the assets directory", ErrInvalidPath, location)
	}
	return p, nil
}
