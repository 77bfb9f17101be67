package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/frameforge/frameforge-agent/internal/batch"
	"github.com/frameforge/frameforge-agent/internal/config"
	"github.com/frameforge/frameforge-agent/internal/db"
	"github.com/frameforge/frameforge-agent/internal/events"
	"github.com/frameforge/frameforge-agent/internal/export"
	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/playback"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/render"
	"github.com/frameforge/frameforge-agent/internal/storage"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

const testToken = "test-token-0123456789"

// holdRunner keeps image tasks rendering until the queue shuts down and
// fails video tasks immediately.
type holdRunner struct{}

func (holdRunner) Run(ctx context.Context, task *studio.RenderTask, progress provider.ProgressFunc) error {
	if task.Type == studio.ArtifactVideo {
		return errors.New("video provider unavailable")
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeGenerator struct {
	repo studio.Repository
	err  error

	mu    sync.Mutex
	calls []string
}

func (f *fakeGenerator) record(kind, id string) error {
	f.mu.Lock()
	f.calls = append(f.calls, kind+":"+id)
	f.mu.Unlock()
	return f.err
}

func (f *fakeGenerator) CharacterAvatar(ctx context.Context, id string, _ provider.ProgressFunc) error {
	c, err := f.repo.GetCharacter(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("character %s: %w", id, studio.ErrNotFound)
	}
	if err := f.record("avatar", id); err != nil {
		return err
	}
	return f.repo.SetCharacterAvatar(ctx, id, "p/characters/avatar.png")
}

func (f *fakeGenerator) CharacterAppearance(ctx context.Context, id string, _ provider.ProgressFunc) error {
	if err := f.record("appearance", id); err != nil {
		return err
	}
	return f.repo.SetCharacterAppearance(ctx, id, "tall, silver hair")
}

func (f *fakeGenerator) CharacterThreeView(ctx context.Context, id string, _ provider.ProgressFunc) error {
	return f.record("three-view", id)
}

func (f *fakeGenerator) SceneImage(ctx context.Context, id string, _ provider.ProgressFunc) error {
	if err := f.record("scene", id); err != nil {
		return err
	}
	return f.repo.SetSceneImage(ctx, id, "p/scenes/scene.png")
}

func (f *fakeGenerator) ShotImage(ctx context.Context, id string, _ provider.ProgressFunc) error {
	return f.record("shot", id)
}

// testConfig supplies provider defaults only.
type testConfig struct {
	config.Config
}

func (testConfig) ProviderDefaults(artifact string) config.ProviderDefaults {
	if artifact == provider.ArtifactImage {
		return config.ProviderDefaults{Kind: provider.KindOpenAI, APIKey: "sk-default-secret-key"}
	}
	return config.ProviderDefaults{}
}

type testEnv struct {
	handler   http.Handler
	repo      studio.Repository
	studio    *studio.Service
	gen       *fakeGenerator
	assetsDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := logging.Discard()
	repo := studio.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), AuthTokenKey, testToken); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	queue := render.New(repo, holdRunner{}, events.Nop{}, 2, logger)
	if err := queue.Start(ctx); err != nil {
		t.Fatalf("queue.Start() error = %v", err)
	}
	t.Cleanup(func() {
		cancel()
		queue.Wait()
	})

	assetsDir := t.TempDir()
	gen := &fakeGenerator{repo: repo}
	studioSvc := studio.NewService(repo, logger)

	cfg := ServerConfig{
		Version:     "test",
		Repository:  repo,
		Studio:      studioSvc,
		Queue:       queue,
		Batch:       batch.NewService(repo, gen, events.Nop{}, logger),
		Generator:   gen,
		Credentials: studio.NewCredentialStore(repo, testConfig{}),
		Exporter:    export.NewExporter(repo, assetsDir, logger),
		Playback:    playback.NewServer(storage.NewLocalStore(assetsDir, nil), logger),
		Events: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("events"))
		}),
		Logger:    logger,
		StartTime: time.Now(),
	}
	return &testEnv{handler: NewRouter(cfg), repo: repo, studio: studioSvc, gen: gen, assetsDir: assetsDir}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWith(t, method, path, body, "Bearer "+testToken)
}

func (e *testEnv) doWith(t *testing.T, method, path string, body any, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	decodeInto(t, rr, &e)
	return e.Code
}

func (e *testEnv) createProject(t *testing.T, name string) *studio.Project {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/projects", ProjectRequest{Name: name})
	expectStatus(t, rr, http.StatusCreated)
	var p studio.Project
	decodeInto(t, rr, &p)
	return &p
}

func (e *testEnv) createShot(t *testing.T, projectID, description string) *studio.Shot {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/projects/"+projectID+"/shots", ShotRequest{Description: description})
	expectStatus(t, rr, http.StatusCreated)
	var sh studio.Shot
	decodeInto(t, rr, &sh)
	return &sh
}
