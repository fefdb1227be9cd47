package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"story-server/internal/models"
)

// DBTX объединяет pgxpool.Pool и pgx.Tx, чтобы репозитории могли
// работать как с пулом, так и внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoryFilter - параметры выборки списка историй.
type StoryFilter struct {
	Search string // Поиск по заголовку, промпту и тексту истории
	// Ordering - created_at, updated_at или title, префикс '-'
	// меняет направление. Неизвестные значения игнорируются.
	Ordering string
	Limit    int
	Offset   int
}

// StoryRepository определяет операции над историями.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filter StoryFilter) ([]*models.Story, int64, error)
	// UpdateText обновляет текст и фактический системный промпт.
	// Текст фиксируется независимо от судьбы аудио.
	UpdateText(ctx context.Context, id uuid.UUID, storyText string, systemPromptUsed *string) error
	UpdatePrompt(ctx context.Context, id uuid.UUID, prompt string) error
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error
	UpdateVoice(ctx context.Context, id uuid.UUID, voiceID *string) error
	UpdateAudioPath(ctx context.Context, id uuid.UUID, audioPath *string) error
	UpdateImage(ctx context.Context, id uuid.UUID, imagePath *string) error
	UpdateImageDescription(ctx context.Context, id uuid.UUID, description string) error
	SetPublished(ctx context.Context, id uuid.UUID, isPublished bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StoryRevisionRepository хранит неизменяемые снимки текста.
type StoryRevisionRepository interface {
	Create(ctx context.Context, revision *models.StoryRevision) error
	ListByStory(ctx context.Context, storyID uuid.UUID) ([]*models.StoryRevision, error)
}

// StorySceneRepository определяет операции над сценами истории.
type StorySceneRepository interface {
	Create(ctx context.Context, scene *models.StoryScene) error
	// Upsert вставляет сцену или обновляет существующую с тем же
	// (story_id, scene_number), не трогая остальные сцены.
	Upsert(ctx context.Context, scene *models.StoryScene) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StoryScene, error)
	GetByStoryAndNumber(ctx context.Context, storyID uuid.UUID, sceneNumber int) (*models.StoryScene, error)
	ListByStory(ctx context.Context, storyID uuid.UUID) ([]*models.StoryScene, error)
	UpdateImage(ctx context.Context, id uuid.UUID, imagePath *string, imagePrompt *string) error
	DeleteByStory(ctx context.Context, storyID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// StorySessionRepository определяет операции над сессиями прослушивания.
type StorySessionRepository interface {
	Create(ctx context.Context, session *models.StorySession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StorySession, error)
	// End закрывает сессию. Длительность пересчитывается в SQL из
	// started_at, клиентские значения не принимаются.
	End(ctx context.Context, id uuid.UUID, endedAt time.Time, completed bool) (*models.StorySession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.StorySession, error)
}

// UserStorySettingsRepository хранит настройки генерации пользователя.
type UserStorySettingsRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.UserStorySettings, error)
	Create(ctx context.Context, settings *models.UserStorySettings) error
	Update(ctx context.Context, settings *models.UserStorySettings) error
}

// PlaylistRepository определяет операции над плейлистами.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist *models.Playlist) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Playlist, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Playlist, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*models.Playlist, error)
	Update(ctx context.Context, playlist *models.Playlist) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddStory(ctx context.Context, playlistID, storyID uuid.UUID) error
	RemoveStory(ctx context.Context, playlistID, storyID uuid.UUID) error
	ListStories(ctx context.Context, playlistID uuid.UUID) ([]*models.Story, error)
}

// GenerationGuard не дает запускать две генерации одной истории одновременно.
type GenerationGuard interface {
	// Acquire захватывает блокировку генерации. Возвращает функцию
	// освобождения или models.ErrGenerationInProgress.
	Acquire(ctx context.Context, storyID uuid.UUID) (release func(), err error)
}
