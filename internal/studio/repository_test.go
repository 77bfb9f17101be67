package studio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/frameforge/frameforge-agent/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, *SQLiteRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, NewRepository(database.Conn())
}

func createTestProject(t *testing.T, repo Repository) *Project {
	t.Helper()
	now := time.Now()
	p := &Project{ID: NewID(), Name: "Pilot", Style: "cinematic", AspectRatio: DefaultAspectRatio, CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p
}

func createTestTask(t *testing.T, repo Repository, projectID string, created time.Time) *RenderTask {
	t.Helper()
	task := &RenderTask{
		ID:        NewID(),
		ProjectID: projectID,
		ShotID:    NewID(),
		Type:      ArtifactImage,
		Status:    TaskStatusQueued,
		CreatedAt: created,
	}
	if err := repo.CreateRenderTask(context.Background(), task); err != nil {
		t.Fatalf("CreateRenderTask() error = %v", err)
	}
	return task
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestRepository_GetMissingReturnsNil(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	p, err := repo.GetProject(ctx, "nope")
	if err != nil || p != nil {
		t.Errorf("GetProject() = %v, %v; want nil, nil", p, err)
	}
	task, err := repo.GetRenderTask(ctx, "nope")
	if err != nil || task != nil {
		t.Errorf("GetRenderTask() = %v, %v; want nil, nil", task, err)
	}
}

func TestRepository_ShotRoundTrip(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	p := createTestProject(t, repo)

	now := time.Now()
	sh := &Shot{
		ID:           NewID(),
		ProjectID:    p.ID,
		Sequence:     1,
		Description:  "hero enters",
		CameraType:   "wide",
		DurationMs:   4500,
		CharacterIDs: []string{"c1", "c2"},
		Status:       ShotStatusEmpty,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateShot(ctx, sh); err != nil {
		t.Fatalf("CreateShot() error = %v", err)
	}

	got, err := repo.GetShot(ctx, sh.ID)
	if err != nil {
		t.Fatalf("GetShot() error = %v", err)
	}
	if got.Description != "hero enters" || got.DurationMs != 4500 || got.CameraType != "wide" {
		t.Errorf("GetShot() = %+v", got)
	}
	if len(got.CharacterIDs) != 2 || got.CharacterIDs[1] != "c2" {
		t.Errorf("CharacterIDs = %v, want [c1 c2]", got.CharacterIDs)
	}

	if err := repo.SetShotImage(ctx, sh.ID, "/assets/p/shots/a.png"); err != nil {
		t.Fatalf("SetShotImage() error = %v", err)
	}
	if err := repo.SetShotStatus(ctx, sh.ID, ShotStatusReady); err != nil {
		t.Fatalf("SetShotStatus() error = %v", err)
	}
	got, _ = repo.GetShot(ctx, sh.ID)
	if got.ImagePath != "/assets/p/shots/a.png" || got.Status != ShotStatusReady {
		t.Errorf("after setters: image=%q status=%q", got.ImagePath, got.Status)
	}

	next, err := repo.NextShotSequence(ctx, p.ID)
	if err != nil {
		t.Fatalf("NextShotSequence() error = %v", err)
	}
	if next != 2 {
		t.Errorf("NextShotSequence() = %d, want 2", next)
	}
}

func TestRepository_DeleteProjectCascades(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	p := createTestProject(t, repo)

	now := time.Now()
	c := &Character{ID: NewID(), ProjectID: p.ID, Name: "Ava", CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateCharacter(ctx, c); err != nil {
		t.Fatalf("CreateCharacter() error = %v", err)
	}
	if err := repo.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	got, err := repo.GetCharacter(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCharacter() error = %v", err)
	}
	if got != nil {
		t.Error("character should be deleted with its project")
	}
}

func TestRepository_ListRenderTasksByStatus_StorageOrder(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	base := time.Now()
	t3 := createTestTask(t, repo, "p1", base.Add(2*time.Second))
	t1 := createTestTask(t, repo, "p1", base)
	t2 := createTestTask(t, repo, "p1", base.Add(time.Second))

	tasks, err := repo.ListRenderTasksByStatus(ctx, TaskStatusQueued, 10)
	if err != nil {
		t.Fatalf("ListRenderTasksByStatus() error = %v", err)
	}
	want := []string{t1.ID, t2.ID, t3.ID}
	if len(tasks) != len(want) {
		t.Fatalf("len = %d, want %d", len(tasks), len(want))
	}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Errorf("tasks[%d] = %s, want %s", i, tasks[i].ID, id)
		}
	}

	limited, _ := repo.ListRenderTasksByStatus(ctx, TaskStatusQueued, 2)
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d rows", len(limited))
	}
}

func TestRepository_UpdateRenderTask_Stamps(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	task := createTestTask(t, repo, "p1", time.Now())

	ok, err := repo.UpdateRenderTask(ctx, task.ID, TaskPatch{Status: strPtr(TaskStatusRendering)})
	if err != nil || !ok {
		t.Fatalf("UpdateRenderTask(rendering) = %v, %v", ok, err)
	}
	got, _ := repo.GetRenderTask(ctx, task.ID)
	if got.StartedAt == nil {
		t.Fatal("started_at should be stamped on rendering")
	}
	started := *got.StartedAt

	if _, err := repo.UpdateRenderTask(ctx, task.ID, TaskPatch{Progress: intPtr(40)}); err != nil {
		t.Fatalf("UpdateRenderTask(progress) error = %v", err)
	}
	got, _ = repo.GetRenderTask(ctx, task.ID)
	if got.Progress != 40 || got.Status != TaskStatusRendering {
		t.Errorf("progress patch: status=%s progress=%d", got.Status, got.Progress)
	}
	if !got.StartedAt.Equal(started) {
		t.Error("started_at must not move on later updates")
	}
	if got.CompletedAt != nil {
		t.Error("completed_at must be empty before a terminal status")
	}

	ok, err = repo.UpdateRenderTask(ctx, task.ID, TaskPatch{Status: strPtr(TaskStatusCompleted), Progress: intPtr(100)})
	if err != nil || !ok {
		t.Fatalf("UpdateRenderTask(completed) = %v, %v", ok, err)
	}
	got, _ = repo.GetRenderTask(ctx, task.ID)
	if got.CompletedAt == nil {
		t.Error("completed_at should be stamped on completion")
	}
}

func TestRepository_UpdateRenderTask_TerminalIsFinal(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	task := createTestTask(t, repo, "p1", time.Now())

	if _, err := repo.UpdateRenderTask(ctx, task.ID, TaskPatch{Status: strPtr(TaskStatusError), ErrorMessage: strPtr("boom")}); err != nil {
		t.Fatalf("UpdateRenderTask(error) error = %v", err)
	}

	ok, err := repo.UpdateRenderTask(ctx, task.ID, TaskPatch{Status: strPtr(TaskStatusCompleted), Progress: intPtr(100)})
	if err != nil {
		t.Fatalf("UpdateRenderTask() error = %v", err)
	}
	if ok {
		t.Error("update of a terminal task should report no change")
	}
	got, _ := repo.GetRenderTask(ctx, task.ID)
	if got.Status != TaskStatusError || got.ErrorMessage != "boom" {
		t.Errorf("terminal row changed: status=%s msg=%q", got.Status, got.ErrorMessage)
	}
}

func TestRepository_ProviderSettingUpsert(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	s := &ProviderSetting{Artifact: "image", Kind: "relay", BaseURL: "https://relay.example.com/v1", APIKey: "k1", UpdatedAt: time.Now()}
	if err := repo.UpsertProviderSetting(ctx, s); err != nil {
		t.Fatalf("UpsertProviderSetting() error = %v", err)
	}
	s.Kind = "openai"
	s.BaseURL = ""
	if err := repo.UpsertProviderSetting(ctx, s); err != nil {
		t.Fatalf("UpsertProviderSetting() error = %v", err)
	}

	got, err := repo.GetProviderSetting(ctx, "image")
	if err != nil {
		t.Fatalf("GetProviderSetting() error = %v", err)
	}
	if got.Kind != "openai" || got.BaseURL != "" || got.APIKey != "k1" {
		t.Errorf("GetProviderSetting() = %+v", got)
	}
}

func TestRepository_Config(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	v, err := repo.GetConfig(ctx, "auth_token")
	if err != nil || v != "" {
		t.Fatalf("GetConfig(missing) = %q, %v", v, err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "abc"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "auth_token", "def"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	v, _ = repo.GetConfig(ctx, "auth_token")
	if v != "def" {
		t.Errorf("GetConfig() = %q, want def", v)
	}
}
