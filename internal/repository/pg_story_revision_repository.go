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

var _ StoryRevisionRepository = (*pgStoryRevisionRepository)(nil)

type pgStoryRevisionRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRevisionRepository создает репозиторий ревизий текста истории.
func NewPgStoryRevisionRepository(db DBTX, logger *zap.Logger) StoryRevisionRepository {
	return &pgStoryRevisionRepository{
		db:     db,
		logger: logger.Named("PgStoryRevisionRepo"),
	}
}

const createRevisionQuery = `
INSERT INTO story_revisions (id, story_id, story_text, edited_by, created_at)
VALUES ($1, $2, $3, $4, $5)`

const listRevisionsByStoryQuery = `
SELECT id, story_id, story_text, edited_by, created_at
FROM story_revisions
WHERE story_id = $1
ORDER BY created_at DESC`

// Create сохраняет снимок предыдущего текста истории.
func (r *pgStoryRevisionRepository) Create(ctx context.Context, revision *models.StoryRevision) error {
	if revision.ID == uuid.Nil {
		revision.ID = uuid.New()
	}
	if revision.CreatedAt.IsZero() {
		revision.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, createRevisionQuery,
		revision.ID,
		revision.StoryID,
		revision.StoryText,
		revision.EditedBy,
		revision.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story revision",
			zap.Error(err), zap.String("storyID", revision.StoryID.String()))
		return fmt.Errorf("ошибка создания ревизии истории: %w", err)
	}
	return nil
}

// ListByStory возвращает ревизии истории, новые первыми.
func (r *pgStoryRevisionRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]*models.StoryRevision, error) {
	var revisions []*models.StoryRevision
	err := pgxscan.Select(ctx, r.db, &revisions, listRevisionsByStoryQuery, storyID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to list story revisions",
			zap.Error(err), zap.String("storyID", storyID.String()))
		return nil, fmt.Errorf("ошибка получения ревизий истории: %w", err)
	}
	return revisions, nil
}
