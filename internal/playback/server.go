// Package playback streams stored assets to the UI with byte-range support so
// generated videos can be scrubbed.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/frameforge/frameforge-agent/internal/storage"
)

// Resolver maps a stored asset location to a file inside the assets root.
type Resolver interface {
	Resolve(location string) (string, error)
}

type Server struct {
	assets Resolver
	logger *slog.Logger
}

func NewServer(assets Resolver, logger *slog.Logger) *Server {
	return &Server{assets: assets, logger: logger}
}

// ServeAsset writes the asset at location. Locations outside the assets root
// are refused.
func (s *Server) ServeAsset(w http.ResponseWriter, r *http.Request, location string) error {
	path, err := s.assets.Resolve(location)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPath) {
			http.Error(w, "path outside assets root", http.StatusForbidden)
			return nil
		}
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open asset: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat asset: %w", err)
	}
	if stat.IsDir() {
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	}
	size := stat.Size()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", storage.ContentType(path))
	h.Set("Cache-Control", "no-cache")

	rng, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		// Malformed ranges are ignored and the whole asset is sent.
		rng = nil
	case err != nil:
		return err
	}

	if rng == nil {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, file)
		}
		return nil
	}

	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	h.Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
	h.Set("Content-Range", rng.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		io.CopyN(w, file, rng.Length())
	}
	return nil
}
