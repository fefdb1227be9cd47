package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"story-server/internal/models"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий историй поверх PostgreSQL.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

const storyColumns = `id, user_id, title, prompt, system_prompt_used, story_text, template,
voice_id, audio_path, image_path, image_description, is_published, created_at, updated_at`

const createStoryQuery = `
INSERT INTO stories (id, user_id, title, prompt, template, voice_id, image_path, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

const getStoryByIDQuery = `
SELECT ` + storyColumns + `
FROM stories
WHERE id = $1`

const storySearchCondition = `user_id = $1
AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR prompt ILIKE '%' || $2 || '%' OR story_text ILIKE '%' || $2 || '%')`

const listStoriesByUserQuery = `
SELECT ` + storyColumns + `
FROM stories
WHERE ` + storySearchCondition

const countStoriesByUserQuery = `
SELECT count(*)
FROM stories
WHERE ` + storySearchCondition

// storyOrderColumns - колонки, по которым разрешена сортировка списка.
// ORDER BY не параметризуется, поэтому фрагмент собирается только из
// значений этой таблицы.
var storyOrderColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"title":      "title",
}

// storyOrderClause переводит ordering из запроса во фрагмент ORDER BY.
// Префикс '-' означает убывание, неизвестные значения дают сортировку
// по умолчанию (новые первыми).
func storyOrderClause(ordering string) string {
	desc := strings.HasPrefix(ordering, "-")
	column, ok := storyOrderColumns[strings.TrimPrefix(ordering, "-")]
	if !ok {
		return "created_at DESC"
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}

// Create inserts a new story record.
func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}
	story.UpdatedAt = story.CreatedAt
	if story.Template == "" {
		story.Template = models.TemplateAdventure
	}

	_, err := r.db.Exec(ctx, createStoryQuery,
		story.ID,
		story.UserID,
		story.Title,
		story.Prompt,
		story.Template,
		story.VoiceID,
		story.ImagePath,
		story.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", zap.Error(err), zap.String("userID", story.UserID.String()))
		return fmt.Errorf("ошибка создания истории: %w", err)
	}
	r.logger.Info("Story created", zap.String("storyID", story.ID.String()))
	return nil
}

// GetByID retrieves a story by its unique ID.
func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	err := pgxscan.Get(ctx, r.db, &story, getStoryByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story by ID", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	return &story, nil
}

// ListByUser возвращает страницу историй пользователя и общее количество.
func (r *pgStoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter StoryFilter) ([]*models.Story, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := listStoriesByUserQuery + "\nORDER BY " + storyOrderClause(filter.Ordering) + "\nLIMIT $3 OFFSET $4"

	var stories []*models.Story
	err := pgxscan.Select(ctx, r.db, &stories, query, userID, filter.Search, limit, filter.Offset)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to list stories", zap.Error(err), zap.String("userID", userID.String()))
		return nil, 0, fmt.Errorf("ошибка получения списка историй: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countStoriesByUserQuery, userID, filter.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета историй: %w", err)
	}

	return stories, total, nil
}

// UpdateText обновляет текст истории и зафиксированный системный промпт.
func (r *pgStoryRepository) UpdateText(ctx context.Context, id uuid.UUID, storyText string, systemPromptUsed *string) error {
	query := `UPDATE stories SET story_text = $2, system_prompt_used = COALESCE($3, system_prompt_used), updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "UpdateText", query, id, storyText, systemPromptUsed)
}

func (r *pgStoryRepository) UpdatePrompt(ctx context.Context, id uuid.UUID, prompt string) error {
	query := `UPDATE stories SET prompt = $2, updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "UpdatePrompt", query, id, prompt)
}

func (r *pgStoryRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	query := `UPDATE stories SET title = $2, updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "UpdateTitle", query, id, title)
}

func (r *pgStoryRepository) UpdateVoice(ctx context.Context, id uuid.UUID, voiceID *string) error {
	query := `UPDATE stories SET voice_id = $2, updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "UpdateVoice", query, id, voiceID)
}

// UpdateAudioPath обновляет ссылку на аудио-ассет. Вызывается только после
// того, как новый файл записан на диск.
func (r *pgStoryRepository) UpdateAudioPath(ctx context.Context, id uuid.UUID, audioPath *string) error {
	query := `UPDATE stories SET audio_path = $2, updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "UpdateAudioPath", query, id, audioPath)
}

func (r *pgStoryRepository) UpdateImage(ctx context.Context, id uuid.UUID, imagePath *string) error {
	query := `UPDATE stories SET image_path = $2, updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "UpdateImage", query, id, imagePath)
}

func (r *pgStoryRepository) UpdateImageDescription(ctx context.Context, id uuid.UUID, description string) error {
	query := `UPDATE stories SET image_description = $2, updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "UpdateImageDescription", query, id, description)
}

func (r *pgStoryRepository) SetPublished(ctx context.Context, id uuid.UUID, isPublished bool) error {
	query := `UPDATE stories SET is_published = $2, updated_at = now() WHERE id = $1`
	return r.execUpdate(ctx, "SetPublished", query, id, isPublished)
}

// Delete удаляет историю. Сцены, ревизии и сессии каскадируются на уровне БД.
func (r *pgStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("ошибка удаления истории: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Story deleted", zap.String("storyID", id.String()))
	return nil
}

func (r *pgStoryRepository) execUpdate(ctx context.Context, op, query string, id uuid.UUID, args ...any) error {
	allArgs := append([]any{id}, args...)
	tag, err := r.db.Exec(ctx, query, allArgs...)
	if err != nil {
		r.logger.Error("Failed to update story",
			zap.String("op", op), zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("ошибка обновления истории (%s): %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
