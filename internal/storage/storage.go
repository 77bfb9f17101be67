// Package storage persists generated assets, either under the local assets
// directory or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Asset categories, one directory per kind of generated file.
const (
	CategoryCharacters = "characters"
	CategoryScenes     = "scenes"
	CategoryShots      = "shots"
	CategoryVideos     = "videos"
)

var ErrInvalidPath = errors.New("invalid asset path")

// Store saves generated bytes and returns the path or URL they can be read
// back from.
type Store interface {
	Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error)
	Open(ctx context.Context, location string) ([]byte, error)
}

// Downloader reads remote assets.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// objectKey builds "<projectID>/<category>/<filename>", refusing components
// that could escape their directory.
func objectKey(projectID, category, filename string) (string, error) {
	for _, part := range []string{projectID, category, filename} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, part)
		}
	}
	return path.Join(projectID, category, filename), nil
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// ContentType guesses a MIME type from a filename extension.
func ContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
