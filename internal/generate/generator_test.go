package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameforge/frameforge-agent/internal/db"
	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/storage"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000IHDR-frame")

type fakeImage struct {
	mu        sync.Mutex
	requests  []provider.ImageRequest
	reference bool
	out       provider.Output
	err       error
	block     bool
}

func (f *fakeImage) GenerateImage(ctx context.Context, req provider.ImageRequest) (provider.Output, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return provider.InlineAsset{Data: pngBytes, MIMEType: "image/png"}, nil
}

func (f *fakeImage) SupportsReference() bool { return f.reference }

type fakeText struct {
	req provider.TextRequest
	out provider.Output
}

func (f *fakeText) GenerateText(ctx context.Context, req provider.TextRequest) (provider.Output, error) {
	f.req = req
	return f.out, nil
}

type fakeVideo struct {
	req provider.VideoRequest
}

func (f *fakeVideo) GenerateVideo(ctx context.Context, req provider.VideoRequest, progress provider.ProgressFunc) (provider.Output, error) {
	f.req = req
	progress(50)
	return provider.RemoteAsset{URL: "https://cdn.example.com/task/out.mp4"}, nil
}

type fakeProviders struct {
	text  *fakeText
	image *fakeImage
	video *fakeVideo
}

func (f *fakeProviders) Text(ctx context.Context) (provider.TextGenerator, error) {
	if f.text == nil {
		return nil, errors.New("no text provider configured")
	}
	return f.text, nil
}

func (f *fakeProviders) Image(ctx context.Context) (provider.ImageGenerator, error) {
	if f.image == nil {
		return nil, errors.New("no image provider configured")
	}
	return f.image, nil
}

func (f *fakeProviders) Video(ctx context.Context) (provider.VideoGenerator, error) {
	if f.video == nil {
		return nil, errors.New("no video provider configured")
	}
	return f.video, nil
}

type fakeDownloader struct {
	urls []string
}

func (f *fakeDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return []byte("....ftypmp42video"), nil
}

type fixture struct {
	repo      *studio.SQLiteRepository
	svc       *studio.Service
	store     *storage.LocalStore
	providers *fakeProviders
	download  *fakeDownloader
	gen       *Generator
	project   *studio.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	repo := studio.NewRepository(database.Conn())
	svc := studio.NewService(repo, nil)
	d := &fakeDownloader{}
	store := storage.NewLocalStore(t.TempDir(), d)
	providers := &fakeProviders{image: &fakeImage{}, text: &fakeText{}, video: &fakeVideo{}}

	p, err := svc.CreateProject(context.Background(), &studio.Project{Name: "Pilot", Style: "cinematic"})
	require.NoError(t, err)

	return &fixture{
		repo:      repo,
		svc:       svc,
		store:     store,
		providers: providers,
		download:  d,
		gen:       New(repo, providers, store, d, logging.Discard()),
		project:   p,
	}
}

func (f *fixture) shot(t *testing.T, sh *studio.Shot) *studio.Shot {
	t.Helper()
	sh.ProjectID = f.project.ID
	created, err := f.svc.CreateShot(context.Background(), sh)
	require.NoError(t, err)
	return created
}

func (f *fixture) character(t *testing.T, c *studio.Character) *studio.Character {
	t.Helper()
	c.ProjectID = f.project.ID
	created, err := f.svc.CreateCharacter(context.Background(), c)
	require.NoError(t, err)
	return created
}

type progressLog struct {
	mu     sync.Mutex
	values []int
}

func (p *progressLog) report(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, v)
}

func TestShotImage_StoresFrameAndMarksReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hero := f.character(t, &studio.Character{Name: "Mara", Appearance: "red coat"})
	sh := f.shot(t, &studio.Shot{Description: "Mara looks over the harbor", CharacterIDs: []string{hero.ID}})

	var progress progressLog
	require.NoError(t, f.gen.ShotImage(ctx, sh.ID, progress.report))

	got, err := f.repo.GetShot(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, studio.ShotStatusReady, got.Status)
	assert.Equal(t, filepath.Join(f.store.Root(), f.project.ID, storage.CategoryShots), filepath.Dir(got.ImagePath))
	assert.True(t, strings.HasSuffix(got.ImagePath, ".png"), got.ImagePath)

	data, err := os.ReadFile(got.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	assert.Equal(t, []int{ProgressLoaded, ProgressRequested, ProgressReceived, ProgressDone}, progress.values)

	require.Len(t, f.providers.image.requests, 1)
	req := f.providers.image.requests[0]
	assert.True(t, strings.HasPrefix(req.Prompt, "cinematic film still"), req.Prompt)
	assert.Contains(t, req.Prompt, "Mara (red coat)")
	assert.Equal(t, studio.DefaultAspectRatio, req.AspectRatio)
	assert.Empty(t, req.References, "provider without reference support")
}

func TestShotImage_PassesCharacterReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.providers.image.reference = true

	avatar, err := f.store.Save(ctx, f.project.ID, storage.CategoryCharacters, "mara.png", pngBytes)
	require.NoError(t, err)
	hero := f.character(t, &studio.Character{Name: "Mara"})
	require.NoError(t, f.repo.SetCharacterAvatar(ctx, hero.ID, avatar))
	ghost := f.character(t, &studio.Character{Name: "Ghost"})
	require.NoError(t, f.repo.SetCharacterAvatar(ctx, ghost.ID, filepath.Join(f.store.Root(), "missing.png")))

	sh := f.shot(t, &studio.Shot{CharacterIDs: []string{hero.ID, ghost.ID, "deleted"}})
	require.NoError(t, f.gen.ShotImage(ctx, sh.ID, nil))

	req := f.providers.image.requests[0]
	require.Len(t, req.References, 1, "unreadable references are skipped")
	assert.Equal(t, pngBytes, req.References[0].Data)
	assert.Equal(t, "image/png", req.References[0].MIMEType)
}

func TestShotImage_ProviderFailureMarksError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.providers.image.err = &provider.APIError{Provider: "openai", StatusCode: 429, Message: "insufficient_quota"}
	sh := f.shot(t, &studio.Shot{Description: "x"})

	err := f.gen.ShotImage(ctx, sh.ID, nil)
	var apiErr *provider.APIError
	require.ErrorAs(t, err, &apiErr)

	got, _ := f.repo.GetShot(ctx, sh.ID)
	assert.Equal(t, studio.ShotStatusError, got.Status)
	assert.Empty(t, got.ImagePath)
}

func TestShotImage_CancelRestoresStatus(t *testing.T) {
	f := newFixture(t)
	f.providers.image.block = true
	sh := f.shot(t, &studio.Shot{Description: "x"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.gen.ShotImage(ctx, sh.ID, nil) }()

	require.Eventually(t, func() bool {
		got, _ := f.repo.GetShot(context.Background(), sh.ID)
		return got.Status == studio.ShotStatusGenerating
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("generation did not stop after cancel")
	}

	got, _ := f.repo.GetShot(context.Background(), sh.ID)
	assert.Equal(t, studio.ShotStatusEmpty, got.Status)
}

func TestShotImage_TextOutputIsRejected(t *testing.T) {
	f := newFixture(t)
	f.providers.image.out = provider.Text{Content: "sorry"}
	sh := f.shot(t, &studio.Shot{})

	err := f.gen.ShotImage(context.Background(), sh.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset was expected")
}

func TestShotImage_MissingShot(t *testing.T) {
	f := newFixture(t)
	err := f.gen.ShotImage(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, studio.ErrNotFound)
}

func TestShotVideo_RequiresImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh := f.shot(t, &studio.Shot{})

	err := f.gen.ShotVideo(ctx, sh.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image to animate")

	got, _ := f.repo.GetShot(ctx, sh.ID)
	assert.Equal(t, studio.ShotStatusError, got.Status)
}

func TestShotVideo_AnimatesStoredFrame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh := f.shot(t, &studio.Shot{Description: "waves crash", DurationMs: 4500})
	frame, err := f.store.Save(ctx, f.project.ID, storage.CategoryShots, "frame.png", pngBytes)
	require.NoError(t, err)
	require.NoError(t, f.repo.SetShotImage(ctx, sh.ID, frame))

	var progress progressLog
	require.NoError(t, f.gen.ShotVideo(ctx, sh.ID, progress.report))

	req := f.providers.video.req
	assert.Equal(t, pngBytes, req.FirstFrame.Data)
	assert.Empty(t, req.FirstFrameURL)
	assert.Equal(t, 5, req.DurationS)
	assert.True(t, strings.HasPrefix(req.Prompt, "cinematic film shot"), req.Prompt)

	assert.Equal(t, []string{"https://cdn.example.com/task/out.mp4"}, f.download.urls)
	assert.Equal(t, []int{ProgressLoaded, ProgressRequested, 50, ProgressReceived, ProgressDone}, progress.values)

	got, _ := f.repo.GetShot(ctx, sh.ID)
	assert.Equal(t, studio.ShotStatusReady, got.Status)
	assert.True(t, strings.HasSuffix(got.VideoPath, ".mp4"), got.VideoPath)
	assert.Equal(t, storage.CategoryVideos, filepath.Base(filepath.Dir(got.VideoPath)))
}

func TestShotVideo_RemoteFramePassedByURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh := f.shot(t, &studio.Shot{})
	require.NoError(t, f.repo.SetShotImage(ctx, sh.ID, "https://cdn.example.com/frame.png"))

	require.NoError(t, f.gen.ShotVideo(ctx, sh.ID, nil))
	assert.Equal(t, "https://cdn.example.com/frame.png", f.providers.video.req.FirstFrameURL)
	assert.Empty(t, f.providers.video.req.FirstFrame.Data)
}

func TestRun_DispatchesByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sh := f.shot(t, &studio.Shot{})

	err := f.gen.Run(ctx, &studio.RenderTask{ID: "t1", ShotID: sh.ID, Type: studio.ArtifactImage}, nil)
	require.NoError(t, err)
	assert.Len(t, f.providers.image.requests, 1)

	err = f.gen.Run(ctx, &studio.RenderTask{ID: "t2", ShotID: sh.ID, Type: "audio"}, nil)
	assert.ErrorContains(t, err, `unknown render task type "audio"`)

	err = f.gen.Run(ctx, &studio.RenderTask{ID: "t3", Type: studio.ArtifactImage}, nil)
	assert.ErrorContains(t, err, "has no shot")
}

func TestSceneImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sc, err := f.svc.CreateScene(ctx, &studio.Scene{ProjectID: f.project.ID, Name: "Dock", Location: "harbor", TimeOfDay: "dusk"})
	require.NoError(t, err)

	require.NoError(t, f.gen.SceneImage(ctx, sc.ID, nil))

	got, _ := f.repo.GetScene(ctx, sc.ID)
	assert.NotEmpty(t, got.ImagePath)
	assert.Contains(t, f.providers.image.requests[0].Prompt, "harbor, dusk")
	assert.Contains(t, f.providers.image.requests[0].Prompt, "no people")
}

func TestCharacterAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.character(t, &studio.Character{Name: "Mara", Description: "a sailor"})

	require.NoError(t, f.gen.CharacterAvatar(ctx, c.ID, nil))

	got, _ := f.repo.GetCharacter(ctx, c.ID)
	assert.NotEmpty(t, got.AvatarPath)
	req := f.providers.image.requests[0]
	assert.Equal(t, "1:1", req.AspectRatio)
	assert.Contains(t, req.Prompt, "cinematic portrait of Mara, a sailor")
}

func TestCharacterThreeView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.character(t, &studio.Character{Name: "Mara"})

	var progress progressLog
	require.NoError(t, f.gen.CharacterThreeView(ctx, c.ID, progress.report))

	got, _ := f.repo.GetCharacter(ctx, c.ID)
	assert.NotEmpty(t, got.FrontPath)
	assert.NotEmpty(t, got.SidePath)
	assert.NotEmpty(t, got.BackPath)
	assert.NotEqual(t, got.FrontPath, got.BackPath)

	require.Len(t, f.providers.image.requests, 3)
	assert.Contains(t, f.providers.image.requests[1].Prompt, "side view")
	assert.Equal(t, []int{10, 20, 40, 60, 80, 100}, progress.values)
}

func TestCharacterAppearance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.providers.text.out = provider.Text{Content: "tall, weathered, red wool coat"}
	c := f.character(t, &studio.Character{Name: "Mara", Description: "a sailor"})

	require.NoError(t, f.gen.CharacterAppearance(ctx, c.ID, nil))

	got, _ := f.repo.GetCharacter(ctx, c.ID)
	assert.Equal(t, "tall, weathered, red wool coat", got.Appearance)
	assert.Contains(t, f.providers.text.req.Prompt, "Name: Mara")
	assert.NotEmpty(t, f.providers.text.req.System)
}

func TestCharacterAvatar_NoProvider(t *testing.T) {
	f := newFixture(t)
	f.providers.image = nil
	c := f.character(t, &studio.Character{Name: "Mara"})

	err := f.gen.CharacterAvatar(context.Background(), c.ID, nil)
	assert.ErrorContains(t, err, "no image provider configured")
}
