package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-server/internal/models"
	"story-server/internal/repository"
)

// SessionService учитывает сессии прослушивания историй.
type SessionService struct {
	sessionRepo repository.StorySessionRepository
	storyRepo   repository.StoryRepository
	logger      *zap.Logger
}

// NewSessionService создает сервис сессий прослушивания.
func NewSessionService(
	sessionRepo repository.StorySessionRepository,
	storyRepo repository.StoryRepository,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		storyRepo:   storyRepo,
		logger:      logger.Named("SessionService"),
	}
}

// Start открывает сессию прослушивания истории.
func (s *SessionService) Start(ctx context.Context, userID, storyID uuid.UUID) (*models.StorySession, error) {
	if _, err := s.storyRepo.GetByID(ctx, storyID); err != nil {
		return nil, err
	}

	session := &models.StorySession{
		StoryID:   storyID,
		UserID:    userID,
		StartedAt: time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// End закрывает сессию. Длительность считается на сервере от started_at,
// присланное клиентом время используется только как момент завершения.
// Повторное закрытие возвращает models.ErrSessionAlreadyEnded.
func (s *SessionService) End(ctx context.Context, userID, sessionID uuid.UUID, endedAt time.Time, completed bool) (*models.StorySession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, models.ErrForbidden
	}

	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	if endedAt.Before(session.StartedAt) {
		endedAt = session.StartedAt
	}

	ended, err := s.sessionRepo.End(ctx, sessionID, endedAt, completed)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Listening session ended",
		zap.String("sessionID", sessionID.String()),
		zap.Bool("completed", completed))
	return ended, nil
}

// ListForUser возвращает страницу сессий пользователя, новые первыми.
func (s *SessionService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.StorySession, error) {
	return s.sessionRepo.ListByUser(ctx, userID, limit, offset)
}
