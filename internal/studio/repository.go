package studio

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id string) error

	CreateCharacter(ctx context.Context, c *Character) error
	GetCharacter(ctx context.Context, id string) (*Character, error)
	ListCharacters(ctx context.Context, projectID string) ([]*Character, error)
	UpdateCharacter(ctx context.Context, c *Character) error
	DeleteCharacter(ctx context.Context, id string) error
	SetCharacterAppearance(ctx context.Context, id, appearance string) error
	SetCharacterAvatar(ctx context.Context, id, path string) error
	SetCharacterViews(ctx context.Context, id, front, side, back string) error

	CreateScene(ctx context.Context, s *Scene) error
	GetScene(ctx context.Context, id string) (*Scene, error)
	ListScenes(ctx context.Context, projectID string) ([]*Scene, error)
	UpdateScene(ctx context.Context, s *Scene) error
	DeleteScene(ctx context.Context, id string) error
	SetSceneImage(ctx context.Context, id, path string) error

	CreateShot(ctx context.Context, s *Shot) error
	GetShot(ctx context.Context, id string) (*Shot, error)
	ListShots(ctx context.Context, projectID string) ([]*Shot, error)
	UpdateShot(ctx context.Context, s *Shot) error
	DeleteShot(ctx context.Context, id string) error
	SetShotImage(ctx context.Context, id, path string) error
	SetShotVideo(ctx context.Context, id, path string) error
	SetShotStatus(ctx context.Context, id, status string) error
	NextShotSequence(ctx context.Context, projectID string) (int, error)

	CreateRenderTask(ctx context.Context, t *RenderTask) error
	GetRenderTask(ctx context.Context, id string) (*RenderTask, error)
	ListRenderTasks(ctx context.Context, projectID string, limit int) ([]*RenderTask, error)
	ListRenderTasksByStatus(ctx context.Context, status string, limit int) ([]*RenderTask, error)
	UpdateRenderTask(ctx context.Context, id string, patch TaskPatch) (bool, error)
	DeleteRenderTask(ctx context.Context, id string) error
	CountRenderTasks(ctx context.Context, status string) (int, error)

	GetProviderSetting(ctx context.Context, artifact string) (*ProviderSetting, error)
	UpsertProviderSetting(ctx context.Context, s *ProviderSetting) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Projects

const projectColumns = `id, name, description, style, aspect_ratio, created_at, updated_at`

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, nullString(p.Description), p.Style, p.AspectRatio, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	v, err := scanProject(row)
	return nilIfNoRows(v, err)
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, style = ?, aspect_ratio = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, nullString(p.Description), p.Style, p.AspectRatio, formatTime(p.UpdatedAt), p.ID)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var description sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(&p.ID, &p.Name, &description, &p.Style, &p.AspectRatio, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// Characters

const characterColumns = `id, project_id, name, description, appearance, avatar_path, front_path, side_path, back_path, created_at, updated_at`

func (r *SQLiteRepository) CreateCharacter(ctx context.Context, c *Character) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ProjectID, c.Name, nullString(c.Description), nullString(c.Appearance),
		nullString(c.AvatarPath), nullString(c.FrontPath), nullString(c.SidePath), nullString(c.BackPath),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetCharacter(ctx context.Context, id string) (*Character, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = ?`, id)
	v, err := scanCharacter(row)
	return nilIfNoRows(v, err)
}

func (r *SQLiteRepository) ListCharacters(ctx context.Context, projectID string) ([]*Character, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+characterColumns+` FROM characters WHERE project_id = ? ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var characters []*Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		characters = append(characters, c)
	}
	return characters, rows.Err()
}

func (r *SQLiteRepository) UpdateCharacter(ctx context.Context, c *Character) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE characters SET name = ?, description = ?, appearance = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, nullString(c.Description), nullString(c.Appearance), formatTime(c.UpdatedAt), c.ID)
	return err
}

func (r *SQLiteRepository) DeleteCharacter(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM characters WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) SetCharacterAppearance(ctx context.Context, id, appearance string) error {
	return r.touch(ctx, "UPDATE characters SET appearance = ?, updated_at = ? WHERE id = ?", appearance, id)
}

func (r *SQLiteRepository) SetCharacterAvatar(ctx context.Context, id, path string) error {
	return r.touch(ctx, "UPDATE characters SET avatar_path = ?, updated_at = ? WHERE id = ?", path, id)
}

func (r *SQLiteRepository) SetCharacterViews(ctx context.Context, id, front, side, back string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE characters SET front_path = ?, side_path = ?, back_path = ?, updated_at = ? WHERE id = ?
	`, front, side, back, formatTime(time.Now()), id)
	return err
}

func scanCharacter(s scanner) (*Character, error) {
	var c Character
	var description, appearance, avatar, front, side, back sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(&c.ID, &c.ProjectID, &c.Name, &description, &appearance,
		&avatar, &front, &side, &back, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Appearance = appearance.String
	c.AvatarPath = avatar.String
	c.FrontPath = front.String
	c.SidePath = side.String
	c.BackPath = back.String
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

// Scenes

const sceneColumns = `id, project_id, name, location, time_of_day, props, description, image_path, created_at, updated_at`

func (r *SQLiteRepository) CreateScene(ctx context.Context, s *Scene) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scenes (`+sceneColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProjectID, s.Name, nullString(s.Location), nullString(s.TimeOfDay), nullString(s.Props),
		nullString(s.Description), nullString(s.ImagePath), formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetScene(ctx context.Context, id string) (*Scene, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE id = ?`, id)
	v, err := scanScene(row)
	return nilIfNoRows(v, err)
}

func (r *SQLiteRepository) ListScenes(ctx context.Context, projectID string) ([]*Scene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sceneColumns+` FROM scenes WHERE project_id = ? ORDER BY created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		s, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, s)
	}
	return scenes, rows.Err()
}

func (r *SQLiteRepository) UpdateScene(ctx context.Context, s *Scene) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scenes SET name = ?, location = ?, time_of_day = ?, props = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, s.Name, nullString(s.Location), nullString(s.TimeOfDay), nullString(s.Props),
		nullString(s.Description), formatTime(s.UpdatedAt), s.ID)
	return err
}

func (r *SQLiteRepository) DeleteScene(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM scenes WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) SetSceneImage(ctx context.Context, id, path string) error {
	return r.touch(ctx, "UPDATE scenes SET image_path = ?, updated_at = ? WHERE id = ?", path, id)
}

func scanScene(s scanner) (*Scene, error) {
	var sc Scene
	var location, timeOfDay, props, description, image sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(&sc.ID, &sc.ProjectID, &sc.Name, &location, &timeOfDay, &props,
		&description, &image, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sc.Location = location.String
	sc.TimeOfDay = timeOfDay.String
	sc.Props = props.String
	sc.Description = description.String
	sc.ImagePath = image.String
	sc.CreatedAt = parseTime(createdAt)
	sc.UpdatedAt = parseTime(updatedAt)
	return &sc, nil
}

// Shots

const shotColumns = `id, project_id, scene_id, sequence, description, dialogue, action, camera_type, mood,
	duration_ms, character_ids, image_path, video_path, status, created_at, updated_at`

func (r *SQLiteRepository) CreateShot(ctx context.Context, s *Shot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shots (`+shotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProjectID, nullString(s.SceneID), s.Sequence, nullString(s.Description), nullString(s.Dialogue),
		nullString(s.Action), nullString(s.CameraType), nullString(s.Mood), s.DurationMs, encodeIDs(s.CharacterIDs),
		nullString(s.ImagePath), nullString(s.VideoPath), s.Status, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetShot(ctx context.Context, id string) (*Shot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shotColumns+` FROM shots WHERE id = ?`, id)
	v, err := scanShot(row)
	return nilIfNoRows(v, err)
}

func (r *SQLiteRepository) ListShots(ctx context.Context, projectID string) ([]*Shot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+shotColumns+` FROM shots WHERE project_id = ? ORDER BY sequence, created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shots []*Shot
	for rows.Next() {
		s, err := scanShot(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, s)
	}
	return shots, rows.Err()
}

func (r *SQLiteRepository) UpdateShot(ctx context.Context, s *Shot) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE shots SET scene_id = ?, sequence = ?, description = ?, dialogue = ?, action = ?,
			camera_type = ?, mood = ?, duration_ms = ?, character_ids = ?, updated_at = ?
		WHERE id = ?
	`, nullString(s.SceneID), s.Sequence, nullString(s.Description), nullString(s.Dialogue), nullString(s.Action),
		nullString(s.CameraType), nullString(s.Mood), s.DurationMs, encodeIDs(s.CharacterIDs), formatTime(s.UpdatedAt), s.ID)
	return err
}

func (r *SQLiteRepository) DeleteShot(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM shots WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) SetShotImage(ctx context.Context, id, path string) error {
	return r.touch(ctx, "UPDATE shots SET image_path = ?, updated_at = ? WHERE id = ?", path, id)
}

func (r *SQLiteRepository) SetShotVideo(ctx context.Context, id, path string) error {
	return r.touch(ctx, "UPDATE shots SET video_path = ?, updated_at = ? WHERE id = ?", path, id)
}

func (r *SQLiteRepository) SetShotStatus(ctx context.Context, id, status string) error {
	return r.touch(ctx, "UPDATE shots SET status = ?, updated_at = ? WHERE id = ?", status, id)
}

func (r *SQLiteRepository) NextShotSequence(ctx context.Context, projectID string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence), 0) + 1 FROM shots WHERE project_id = ?", projectID).Scan(&next)
	return next, err
}

func scanShot(s scanner) (*Shot, error) {
	var sh Shot
	var sceneID, description, dialogue, action, camera, mood, image, video sql.NullString
	var characterIDs, createdAt, updatedAt string
	if err := s.Scan(&sh.ID, &sh.ProjectID, &sceneID, &sh.Sequence, &description, &dialogue, &action,
		&camera, &mood, &sh.DurationMs, &characterIDs, &image, &video, &sh.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sh.SceneID = sceneID.String
	sh.Description = description.String
	sh.Dialogue = dialogue.String
	sh.Action = action.String
	sh.CameraType = camera.String
	sh.Mood = mood.String
	sh.CharacterIDs = decodeIDs(characterIDs)
	sh.ImagePath = image.String
	sh.VideoPath = video.String
	sh.CreatedAt = parseTime(createdAt)
	sh.UpdatedAt = parseTime(updatedAt)
	return &sh, nil
}

// Render tasks

const taskColumns = `id, project_id, shot_id, type, status, progress, error_message, started_at, completed_at, created_at`

func (r *SQLiteRepository) CreateRenderTask(ctx context.Context, t *RenderTask) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO render_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProjectID, nullString(t.ShotID), t.Type, t.Status, t.Progress, nullString(t.ErrorMessage),
		nullTime(t.StartedAt), nullTime(t.CompletedAt), formatTime(t.CreatedAt))
	return err
}

func (r *SQLiteRepository) GetRenderTask(ctx context.Context, id string) (*RenderTask, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM render_tasks WHERE id = ?`, id)
	v, err := scanTask(row)
	return nilIfNoRows(v, err)
}

func (r *SQLiteRepository) ListRenderTasks(ctx context.Context, projectID string, limit int) ([]*RenderTask, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM render_tasks
		WHERE project_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListRenderTasksByStatus returns tasks in storage order, oldest first.
func (r *SQLiteRepository) ListRenderTasksByStatus(ctx context.Context, status string, limit int) ([]*RenderTask, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM render_tasks
		WHERE status = ? ORDER BY created_at ASC, rowid ASC LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// UpdateRenderTask applies patch unless the task is already completed or
// errored. It reports whether a row was changed. started_at is stamped on the
// first move to rendering and completed_at on every move to a terminal status.
func (r *SQLiteRepository) UpdateRenderTask(ctx context.Context, id string, patch TaskPatch) (bool, error) {
	now := formatTime(time.Now())
	var status sql.NullString
	if patch.Status != nil {
		status = sql.NullString{String: *patch.Status, Valid: true}
	}
	var progress sql.NullInt64
	if patch.Progress != nil {
		progress = sql.NullInt64{Int64: int64(*patch.Progress), Valid: true}
	}
	var errMsg sql.NullString
	if patch.ErrorMessage != nil {
		errMsg = sql.NullString{String: *patch.ErrorMessage, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE render_tasks SET
			status = COALESCE(?1, status),
			progress = COALESCE(?2, progress),
			error_message = COALESCE(?3, error_message),
			started_at = CASE WHEN ?1 = 'rendering' AND started_at IS NULL THEN ?4 ELSE started_at END,
			completed_at = CASE WHEN ?1 IN ('completed', 'error') THEN ?4 ELSE completed_at END
		WHERE id = ?5 AND status NOT IN ('completed', 'error')
	`, status, progress, errMsg, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepository) DeleteRenderTask(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM render_tasks WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CountRenderTasks(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM render_tasks WHERE status = ?", status).Scan(&count)
	return count, err
}

func scanTask(s scanner) (*RenderTask, error) {
	var t RenderTask
	var shotID, errMsg, startedAt, completedAt sql.NullString
	var createdAt string
	if err := s.Scan(&t.ID, &t.ProjectID, &shotID, &t.Type, &t.Status, &t.Progress, &errMsg,
		&startedAt, &completedAt, &createdAt); err != nil {
		return nil, err
	}
	t.ShotID = shotID.String
	t.ErrorMessage = errMsg.String
	t.StartedAt = parseNullTime(startedAt)
	t.CompletedAt = parseNullTime(completedAt)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func scanTasks(rows *sql.Rows) ([]*RenderTask, error) {
	var tasks []*RenderTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Provider settings

func (r *SQLiteRepository) GetProviderSetting(ctx context.Context, artifact string) (*ProviderSetting, error) {
	var s ProviderSetting
	var baseURL, apiKey, model sql.NullString
	var updatedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT artifact, kind, base_url, api_key, model, updated_at FROM provider_settings WHERE artifact = ?
	`, artifact).Scan(&s.Artifact, &s.Kind, &baseURL, &apiKey, &model, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.BaseURL = baseURL.String
	s.APIKey = apiKey.String
	s.Model = model.String
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func (r *SQLiteRepository) UpsertProviderSetting(ctx context.Context, s *ProviderSetting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO provider_settings (artifact, kind, base_url, api_key, model, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(artifact) DO UPDATE SET
			kind = excluded.kind,
			base_url = excluded.base_url,
			api_key = excluded.api_key,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, s.Artifact, s.Kind, nullString(s.BaseURL), nullString(s.APIKey), nullString(s.Model), formatTime(s.UpdatedAt))
	return err
}

// Config

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// touch runs a single-value setter that also bumps updated_at.
func (r *SQLiteRepository) touch(ctx context.Context, query, value, id string) error {
	_, err := r.db.ExecContext(ctx, query, nullString(value), formatTime(time.Now()), id)
	return err
}

func nilIfNoRows[T any](v *T, err error) (*T, error) {
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by sqlite's datetime('now')
		t, _ = time.Parse("2006-01-02 15:04:05", s)
	}
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func decodeIDs(s string) []string {
	ids := []string{}
	if strings.TrimSpace(s) == "" {
		return ids
	}
	_ = json.Unmarshal([]byte(s), &ids)
	return ids
}
