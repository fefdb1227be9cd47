package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"story-server/internal/models"
)

var _ StorySceneRepository = (*pgStorySceneRepository)(nil)

type pgStorySceneRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStorySceneRepository создает репозиторий сцен историй.
func NewPgStorySceneRepository(db DBTX, logger *zap.Logger) StorySceneRepository {
	return &pgStorySceneRepository{
		db:     db,
		logger: logger.Named("PgStorySceneRepo"),
	}
}

const sceneColumns = `id, story_id, scene_number, scene_text, image_prompt, image_path, created_at, updated_at`

const createSceneQuery = `
INSERT INTO story_scenes (id, story_id, scene_number, scene_text, image_prompt, image_path, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

const upsertSceneQuery = `
INSERT INTO story_scenes (id, story_id, scene_number, scene_text, image_prompt, image_path, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (story_id, scene_number) DO UPDATE SET
	scene_text = EXCLUDED.scene_text,
	image_prompt = COALESCE(EXCLUDED.image_prompt, story_scenes.image_prompt),
	image_path = COALESCE(EXCLUDED.image_path, story_scenes.image_path),
	updated_at = EXCLUDED.updated_at
RETURNING ` + sceneColumns

const getSceneByIDQuery = `
SELECT ` + sceneColumns + `
FROM story_scenes
WHERE id = $1`

const getSceneByStoryAndNumberQuery = `
SELECT ` + sceneColumns + `
FROM story_scenes
WHERE story_id = $1 AND scene_number = $2`

const listScenesByStoryQuery = `
SELECT ` + sceneColumns + `
FROM story_scenes
WHERE story_id = $1
ORDER BY scene_number ASC`

// Create inserts a scene. Fails on a duplicate (story_id, scene_number) pair.
func (r *pgStorySceneRepository) Create(ctx context.Context, scene *models.StoryScene) error {
	r.prepare(scene)
	_, err := r.db.Exec(ctx, createSceneQuery,
		scene.ID,
		scene.StoryID,
		scene.SceneNumber,
		scene.SceneText,
		scene.ImagePrompt,
		scene.ImagePath,
		scene.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create scene",
			zap.Error(err),
			zap.String("storyID", scene.StoryID.String()),
			zap.Int("sceneNumber", scene.SceneNumber))
		return fmt.Errorf("ошибка создания сцены: %w", err)
	}
	return nil
}

// Upsert создает сцену или обновляет существующую с тем же номером.
func (r *pgStorySceneRepository) Upsert(ctx context.Context, scene *models.StoryScene) error {
	r.prepare(scene)
	err := pgxscan.Get(ctx, r.db, scene, upsertSceneQuery,
		scene.ID,
		scene.StoryID,
		scene.SceneNumber,
		scene.SceneText,
		scene.ImagePrompt,
		scene.ImagePath,
		scene.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert scene",
			zap.Error(err),
			zap.String("storyID", scene.StoryID.String()),
			zap.Int("sceneNumber", scene.SceneNumber))
		return fmt.Errorf("ошибка сохранения сцены: %w", err)
	}
	return nil
}

func (r *pgStorySceneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoryScene, error) {
	var scene models.StoryScene
	err := pgxscan.Get(ctx, r.db, &scene, getSceneByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get scene by ID", zap.Error(err), zap.String("sceneID", id.String()))
		return nil, fmt.Errorf("ошибка получения сцены: %w", err)
	}
	return &scene, nil
}

func (r *pgStorySceneRepository) GetByStoryAndNumber(ctx context.Context, storyID uuid.UUID, sceneNumber int) (*models.StoryScene, error) {
	var scene models.StoryScene
	err := pgxscan.Get(ctx, r.db, &scene, getSceneByStoryAndNumberQuery, storyID, sceneNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get scene by number",
			zap.Error(err), zap.String("storyID", storyID.String()), zap.Int("sceneNumber", sceneNumber))
		return nil, fmt.Errorf("ошибка получения сцены: %w", err)
	}
	return &scene, nil
}

// ListByStory возвращает сцены истории в порядке возрастания номера.
func (r *pgStorySceneRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]*models.StoryScene, error) {
	var scenes []*models.StoryScene
	err := pgxscan.Select(ctx, r.db, &scenes, listScenesByStoryQuery, storyID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to list scenes", zap.Error(err), zap.String("storyID", storyID.String()))
		return nil, fmt.Errorf("ошибка получения списка сцен: %w", err)
	}
	return scenes, nil
}

func (r *pgStorySceneRepository) UpdateImage(ctx context.Context, id uuid.UUID, imagePath, imagePrompt *string) error {
	query := `UPDATE story_scenes SET image_path = $2, image_prompt = $3, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, imagePath, imagePrompt)
	if err != nil {
		r.logger.Error("Failed to update scene image", zap.Error(err), zap.String("sceneID", id.String()))
		return fmt.Errorf("ошибка обновления изображения сцены: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteByStory удаляет все сцены истории и возвращает число удаленных строк.
func (r *pgStorySceneRepository) DeleteByStory(ctx context.Context, storyID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM story_scenes WHERE story_id = $1`, storyID)
	if err != nil {
		r.logger.Error("Failed to delete story scenes", zap.Error(err), zap.String("storyID", storyID.String()))
		return 0, fmt.Errorf("ошибка удаления сцен истории: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgStorySceneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM story_scenes WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete scene", zap.Error(err), zap.String("sceneID", id.String()))
		return fmt.Errorf("ошибка удаления сцены: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStorySceneRepository) prepare(scene *models.StoryScene) {
	if scene.ID == uuid.Nil {
		scene.ID = uuid.New()
	}
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = time.Now()
	}
	scene.UpdatedAt = scene.CreatedAt
}
