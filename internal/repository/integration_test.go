package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"story-server/internal/database"
	"story-server/internal/models"
	"story-server/internal/repository"
)

// RepositoryIntegrationSuite поднимает Postgres и Redis в контейнерах
// и гоняет репозитории по настоящей схеме.
type RepositoryIntegrationSuite struct {
	suite.Suite
	pgContainer    *postgres.PostgresContainer
	redisContainer *tcredis.RedisContainer
	pool           *pgxpool.Pool
	redisClient    *goredis.Client

	stories   repository.StoryRepository
	scenes    repository.StorySceneRepository
	sessions  repository.StorySessionRepository
	settings  repository.UserStorySettingsRepository
	playlists repository.PlaylistRepository
	guard     repository.GenerationGuard
}

func TestRepositoryIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in -short mode")
	}
	suite.Run(t, new(RepositoryIntegrationSuite))
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.pgContainer = pgContainer

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(s.T(), err)
	s.pool = pool

	require.NoError(s.T(), database.ApplyMigrations(ctx, pool))

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(s.T(), err)
	s.redisContainer = redisContainer

	redisConnStr, err := redisContainer.ConnectionString(ctx)
	require.NoError(s.T(), err)
	redisOpts, err := goredis.ParseURL(redisConnStr)
	require.NoError(s.T(), err)
	s.redisClient = goredis.NewClient(redisOpts)

	logger := zap.NewNop()
	s.stories = repository.NewPgStoryRepository(pool, logger)
	s.scenes = repository.NewPgStorySceneRepository(pool, logger)
	s.sessions = repository.NewPgStorySessionRepository(pool, logger)
	s.settings = repository.NewPgSettingsRepository(pool, logger)
	s.playlists = repository.NewPgPlaylistRepository(pool, logger)
	s.guard = repository.NewRedisGenerationGuard(s.redisClient, logger)
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	ctx := context.Background()
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redisContainer != nil {
		_ = s.redisContainer.Terminate(ctx)
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(ctx)
	}
}

func (s *RepositoryIntegrationSuite) newStory(userID uuid.UUID, title string) *models.Story {
	story := &models.Story{
		UserID: userID,
		Title:  title,
		Prompt: "a brave squirrel finds a lost star",
	}
	require.NoError(s.T(), s.stories.Create(context.Background(), story))
	return story
}

func (s *RepositoryIntegrationSuite) TestStoryLifecycle() {
	ctx := context.Background()
	userID := uuid.New()

	story := s.newStory(userID, "The Lost Star")
	s.Require().NotEqual(uuid.Nil, story.ID)
	s.Require().Equal(models.TemplateAdventure, story.Template)

	fetched, err := s.stories.GetByID(ctx, story.ID)
	s.Require().NoError(err)
	s.Equal("The Lost Star", fetched.Title)
	s.False(fetched.IsPublished)

	prompt := "narration prompt"
	s.Require().NoError(s.stories.UpdateText(ctx, story.ID, "Once upon a time...", &prompt))
	s.Require().NoError(s.stories.SetPublished(ctx, story.ID, true))

	fetched, err = s.stories.GetByID(ctx, story.ID)
	s.Require().NoError(err)
	s.Equal("Once upon a time...", fetched.Text())
	s.True(fetched.IsPublished)

	s.Require().NoError(s.stories.Delete(ctx, story.ID))
	_, err = s.stories.GetByID(ctx, story.ID)
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *RepositoryIntegrationSuite) TestStorySearchAndPagination() {
	ctx := context.Background()
	userID := uuid.New()

	s.newStory(userID, "The Dragon Picnic")
	s.newStory(userID, "A Dragon In The Garden")
	s.newStory(userID, "Submarine Holiday")

	stories, total, err := s.stories.ListByUser(ctx, userID, repository.StoryFilter{Search: "dragon"})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(stories, 2)

	stories, total, err = s.stories.ListByUser(ctx, userID, repository.StoryFilter{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(stories, 1)
}

func (s *RepositoryIntegrationSuite) TestStoryTextSearchAndOrdering() {
	ctx := context.Background()
	userID := uuid.New()

	banana := s.newStory(userID, "Banana Boat")
	apple := s.newStory(userID, "Apple Pie")
	s.Require().NoError(s.stories.UpdateText(ctx, banana.ID, "Once upon a time a walrus sailed away.", nil))

	// Поиск находит историю по тексту, а не только по заголовку и промпту
	stories, total, err := s.stories.ListByUser(ctx, userID, repository.StoryFilter{Search: "walrus"})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(stories, 1)
	s.Equal(banana.ID, stories[0].ID)

	stories, _, err = s.stories.ListByUser(ctx, userID, repository.StoryFilter{Ordering: "title"})
	s.Require().NoError(err)
	s.Require().Len(stories, 2)
	s.Equal(apple.ID, stories[0].ID)

	stories, _, err = s.stories.ListByUser(ctx, userID, repository.StoryFilter{Ordering: "-title"})
	s.Require().NoError(err)
	s.Require().Len(stories, 2)
	s.Equal(banana.ID, stories[0].ID)
}

func (s *RepositoryIntegrationSuite) TestSceneUpsertKeepsImageOnNilUpdate() {
	ctx := context.Background()
	story := s.newStory(uuid.New(), "Scenes")

	imagePath := "2026/01/scene_1.png"
	scene := &models.StoryScene{
		StoryID:     story.ID,
		SceneNumber: 1,
		SceneText:   "Part one",
		ImagePath:   &imagePath,
	}
	s.Require().NoError(s.scenes.Upsert(ctx, scene))

	// Повторный upsert без изображения не должен затирать существующее
	again := &models.StoryScene{
		StoryID:     story.ID,
		SceneNumber: 1,
		SceneText:   "Part one, edited",
	}
	s.Require().NoError(s.scenes.Upsert(ctx, again))

	fetched, err := s.scenes.GetByStoryAndNumber(ctx, story.ID, 1)
	s.Require().NoError(err)
	s.Equal("Part one, edited", fetched.SceneText)
	s.Require().NotNil(fetched.ImagePath)
	s.Equal(imagePath, *fetched.ImagePath)
}

func (s *RepositoryIntegrationSuite) TestSessionEndIsIdempotent() {
	ctx := context.Background()
	userID := uuid.New()
	story := s.newStory(userID, "Session Story")

	session := &models.StorySession{
		UserID:    userID,
		StoryID:   story.ID,
		StartedAt: time.Now().Add(-90 * time.Second),
	}
	s.Require().NoError(s.sessions.Create(ctx, session))

	ended, err := s.sessions.End(ctx, session.ID, time.Now(), true)
	s.Require().NoError(err)
	s.Require().NotNil(ended.EndedAt)
	s.True(ended.Completed)
	s.Require().NotNil(ended.DurationSeconds)
	s.InDelta(90, float64(*ended.DurationSeconds), 2)

	_, err = s.sessions.End(ctx, session.ID, time.Now(), true)
	s.ErrorIs(err, models.ErrSessionAlreadyEnded)
}

func (s *RepositoryIntegrationSuite) TestSessionListIsPaged() {
	ctx := context.Background()
	userID := uuid.New()
	story := s.newStory(userID, "Paged Sessions")

	for i := 0; i < 3; i++ {
		session := &models.StorySession{
			UserID:    userID,
			StoryID:   story.ID,
			StartedAt: time.Now().Add(time.Duration(-i) * time.Minute),
		}
		s.Require().NoError(s.sessions.Create(ctx, session))
	}

	page, err := s.sessions.ListByUser(ctx, userID, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	// Новые первыми
	s.True(page[0].StartedAt.After(page[1].StartedAt))

	rest, err := s.sessions.ListByUser(ctx, userID, 2, 2)
	s.Require().NoError(err)
	s.Len(rest, 1)
}

func (s *RepositoryIntegrationSuite) TestSettingsOnePerUser() {
	ctx := context.Background()
	userID := uuid.New()

	settings := models.DefaultStorySettings(userID)
	s.Require().NoError(s.settings.Create(ctx, settings))

	duplicate := models.DefaultStorySettings(userID)
	s.Error(s.settings.Create(ctx, duplicate))

	settings.MaxWordCount = 1200
	s.Require().NoError(s.settings.Update(ctx, settings))

	fetched, err := s.settings.GetByUser(ctx, userID)
	s.Require().NoError(err)
	s.Equal(1200, fetched.MaxWordCount)
}

func (s *RepositoryIntegrationSuite) TestPlaylistStoryCount() {
	ctx := context.Background()
	userID := uuid.New()

	playlist := &models.Playlist{UserID: userID, Name: "Bedtime"}
	s.Require().NoError(s.playlists.Create(ctx, playlist))

	first := s.newStory(userID, "First")
	second := s.newStory(userID, "Second")
	s.Require().NoError(s.playlists.AddStory(ctx, playlist.ID, first.ID))
	s.Require().NoError(s.playlists.AddStory(ctx, playlist.ID, second.ID))
	// Повторное добавление игнорируется
	s.Require().NoError(s.playlists.AddStory(ctx, playlist.ID, first.ID))

	fetched, err := s.playlists.GetByID(ctx, playlist.ID)
	s.Require().NoError(err)
	s.Equal(2, fetched.StoryCount)

	stories, err := s.playlists.ListStories(ctx, playlist.ID)
	s.Require().NoError(err)
	s.Require().Len(stories, 2)
	s.Equal("First", stories[0].Title)
}

func (s *RepositoryIntegrationSuite) TestPublicPlaylistsArePaged() {
	ctx := context.Background()
	userID := uuid.New()

	for _, name := range []string{"Morning", "Evening", "Night"} {
		playlist := &models.Playlist{UserID: userID, Name: name, IsPublic: true}
		s.Require().NoError(s.playlists.Create(ctx, playlist))
	}
	hidden := &models.Playlist{UserID: userID, Name: "Hidden"}
	s.Require().NoError(s.playlists.Create(ctx, hidden))

	page, err := s.playlists.ListPublic(ctx, 2, 0)
	s.Require().NoError(err)
	s.Len(page, 2)

	rest, err := s.playlists.ListPublic(ctx, 2, 2)
	s.Require().NoError(err)
	s.Require().Len(rest, 1)
	s.NotEqual("Hidden", rest[0].Name)
}

func (s *RepositoryIntegrationSuite) TestGenerationGuardBlocksSecondAcquire() {
	ctx := context.Background()
	storyID := uuid.New()

	release, err := s.guard.Acquire(ctx, storyID)
	s.Require().NoError(err)
	s.Require().NotNil(release)

	_, err = s.guard.Acquire(ctx, storyID)
	s.ErrorIs(err, models.ErrGenerationInProgress)

	release()

	release2, err := s.guard.Acquire(ctx, storyID)
	s.Require().NoError(err)
	release2()
}
