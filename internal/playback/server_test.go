package playback

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/storage"
)

func setupAssets(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "p1", "videos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "s1.mp4"), []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewServer(storage.NewLocalStore(root, nil), logging.Discard()), root
}

func serve(t *testing.T, s *Server, location, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/assets/file", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	if err := s.ServeAsset(rec, req, location); err != nil {
		t.Fatalf("ServeAsset() error = %v", err)
	}
	return rec
}

func TestServeAsset_Full(t *testing.T) {
	s, root := setupAssets(t)
	rec := serve(t, s, filepath.Join(root, "p1", "videos", "s1.mp4"), "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "0123456789" {
		t.Errorf("body = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
}

func TestServeAsset_RelativeLocationAndRange(t *testing.T) {
	s, _ := setupAssets(t)
	rec := serve(t, s, "p1/videos/s1.mp4", "bytes=2-5")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Body.String(); got != "2345" {
		t.Errorf("body = %q, want 2345", got)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q, want 4", got)
	}
}

func TestServeAsset_Unsatisfiable(t *testing.T) {
	s, _ := setupAssets(t)
	rec := serve(t, s, "p1/videos/s1.mp4", "bytes=20-")

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeAsset_OutsideRoot(t *testing.T) {
	s, _ := setupAssets(t)
	outside := filepath.Join(t.TempDir(), "secret.txt")
	os.WriteFile(outside, []byte("s"), 0o644)

	for _, loc := range []string{outside, "../secret.txt"} {
		if rec := serve(t, s, loc, ""); rec.Code != http.StatusForbidden {
			t.Errorf("ServeAsset(%q) status = %d, want 403", loc, rec.Code)
		}
	}
}

func TestServeAsset_Missing(t *testing.T) {
	s, _ := setupAssets(t)
	for _, loc := range []string{"p1/videos/none.mp4", "p1/videos"} {
		if rec := serve(t, s, loc, ""); rec.Code != http.StatusNotFound {
			t.Errorf("ServeAsset(%q) status = %d, want 404", loc, rec.Code)
		}
	}
}
