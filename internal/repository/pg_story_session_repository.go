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

var _ StorySessionRepository = (*pgStorySessionRepository)(nil)

type pgStorySessionRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStorySessionRepository создает репозиторий сессий прослушивания.
func NewPgStorySessionRepository(db DBTX, logger *zap.Logger) StorySessionRepository {
	return &pgStorySessionRepository{
		db:     db,
		logger: logger.Named("PgStorySessionRepo"),
	}
}

const sessionColumns = `id, story_id, user_id, started_at, ended_at, duration_seconds, completed`

const createSessionQuery = `
INSERT INTO story_sessions (id, story_id, user_id, started_at)
VALUES ($1, $2, $3, $4)`

const getSessionByIDQuery = `
SELECT ` + sessionColumns + `
FROM story_sessions
WHERE id = $1`

// Длительность считается в SQL из started_at, присланное клиентом время
// используется только как момент завершения.
const endSessionQuery = `
UPDATE story_sessions
SET ended_at = $2,
	duration_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - started_at))::bigint),
	completed = $3
WHERE id = $1 AND ended_at IS NULL
RETURNING ` + sessionColumns

const listSessionsByUserQuery = `
SELECT ` + sessionColumns + `
FROM story_sessions
WHERE user_id = $1
ORDER BY started_at DESC
LIMIT $2 OFFSET $3`

func (r *pgStorySessionRepository) Create(ctx context.Context, session *models.StorySession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, createSessionQuery,
		session.ID,
		session.StoryID,
		session.UserID,
		session.StartedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story session",
			zap.Error(err), zap.String("storyID", session.StoryID.String()))
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

func (r *pgStorySessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StorySession, error) {
	var session models.StorySession
	err := pgxscan.Get(ctx, r.db, &session, getSessionByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get session by ID", zap.Error(err), zap.String("sessionID", id.String()))
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return &session, nil
}

// End закрывает сессию ровно один раз. Повторный вызов возвращает
// models.ErrSessionAlreadyEnded.
func (r *pgStorySessionRepository) End(ctx context.Context, id uuid.UUID, endedAt time.Time, completed bool) (*models.StorySession, error) {
	var session models.StorySession
	err := pgxscan.Get(ctx, r.db, &session, endSessionQuery, id, endedAt, completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Либо сессии нет, либо она уже закрыта. Различаем отдельным чтением.
			existing, getErr := r.GetByID(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			if existing.EndedAt != nil {
				return nil, models.ErrSessionAlreadyEnded
			}
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to end session", zap.Error(err), zap.String("sessionID", id.String()))
		return nil, fmt.Errorf("ошибка завершения сессии: %w", err)
	}
	return &session, nil
}

func (r *pgStorySessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.StorySession, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []*models.StorySession
	err := pgxscan.Select(ctx, r.db, &sessions, listSessionsByUserQuery, userID, limit, offset)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to list sessions", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("ошибка получения списка сессий: %w", err)
	}
	return sessions, nil
}
