package assets_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"story-server/internal/assets"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *assets.Store {
	t.Helper()
	return assets.NewStore(t.TempDir(), "/media", zap.NewNop())
}

func TestStore_SaveStoryAudio(t *testing.T) {
	store := newTestStore(t)
	storyID := uuid.New()

	relPath, err := store.SaveStoryAudio(storyID, []byte("mp3data"), ".mp3")
	require.NoError(t, err)

	assert.Contains(t, relPath, storyID.String())
	assert.True(t, strings.HasSuffix(relPath, ".mp3"))
	assert.Contains(t, filepath.Base(relPath), "audio_")

	data, err := os.ReadFile(store.AbsPath(relPath))
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3data"), data)
}

func TestStore_SaveSceneImage(t *testing.T) {
	store := newTestStore(t)
	storyID := uuid.New()

	relPath, err := store.SaveSceneImage(storyID, 3, []byte("png"), "png")
	require.NoError(t, err)

	assert.Contains(t, relPath, storyID.String()+"/scenes/")
	assert.Contains(t, filepath.Base(relPath), "scene_3_")
	assert.True(t, strings.HasSuffix(relPath, ".png"))
}

func TestStore_CollisionGetsUniqueName(t *testing.T) {
	store := newTestStore(t)
	storyID := uuid.New()

	first, err := store.SaveStoryAudio(storyID, []byte("a"), ".mp3")
	require.NoError(t, err)
	second, err := store.SaveStoryAudio(storyID, []byte("b"), ".mp3")
	require.NoError(t, err)

	// Повторная генерация в ту же секунду не должна затереть первый файл
	if first == second {
		t.Fatalf("expected unique paths, got %s twice", first)
	}
	data, err := os.ReadFile(store.AbsPath(first))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
}

func TestStore_DeleteAudioRefusesNonAudio(t *testing.T) {
	store := newTestStore(t)
	storyID := uuid.New()

	relPath, err := store.SaveStoryImage(storyID, []byte("img"), ".jpg")
	require.NoError(t, err)

	// Не аудио-ассет, удаление игнорируется
	require.NoError(t, store.DeleteAudio(relPath))
	_, err = os.Stat(store.AbsPath(relPath))
	assert.NoError(t, err)
}

func TestStore_SweepStaleAudio(t *testing.T) {
	store := newTestStore(t)
	storyID := uuid.New()

	old1, err := store.SaveStoryAudio(storyID, []byte("old1"), ".mp3")
	require.NoError(t, err)
	old2, err := store.SaveStoryAudio(storyID, []byte("old2"), ".wav")
	require.NoError(t, err)
	image, err := store.SaveStoryImage(storyID, []byte("img"), ".jpg")
	require.NoError(t, err)
	current, err := store.SaveStoryAudio(storyID, []byte("new"), ".mp3")
	require.NoError(t, err)

	removed := store.SweepStaleAudio(storyID, current)
	assert.Equal(t, 2, removed)

	_, err = os.Stat(store.AbsPath(old1))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.AbsPath(old2))
	assert.True(t, os.IsNotExist(err))

	// Актуальное аудио и изображение остаются на месте
	_, err = os.Stat(store.AbsPath(current))
	assert.NoError(t, err)
	_, err = os.Stat(store.AbsPath(image))
	assert.NoError(t, err)
}

func TestStore_RemoveStoryAssets(t *testing.T) {
	store := newTestStore(t)
	storyID := uuid.New()
	otherID := uuid.New()

	mine, err := store.SaveStoryAudio(storyID, []byte("a"), ".mp3")
	require.NoError(t, err)
	_, err = store.SaveSceneImage(storyID, 1, []byte("p"), ".png")
	require.NoError(t, err)
	theirs, err := store.SaveStoryAudio(otherID, []byte("b"), ".mp3")
	require.NoError(t, err)

	require.NoError(t, store.RemoveStoryAssets(storyID))

	_, err = os.Stat(store.AbsPath(mine))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.AbsPath(theirs))
	assert.NoError(t, err)
}

func TestIsAudioAsset(t *testing.T) {
	assert.True(t, assets.IsAudioAsset("2025/01/abc/audio_20250101_120000.mp3"))
	assert.True(t, assets.IsAudioAsset("audio_x.WAV"))
	assert.False(t, assets.IsAudioAsset("image_20250101_120000.jpg"))
	assert.False(t, assets.IsAudioAsset("audio_notes.txt"))
	assert.False(t, assets.IsAudioAsset("scenes/scene_1_20250101.png"))
}

func TestStore_PublicURL(t *testing.T) {
	store := assets.NewStore(t.TempDir(), "/media/", zap.NewNop())
	assert.Equal(t, "/media/2025/01/x/audio_1.mp3", store.PublicURL("2025/01/x/audio_1.mp3"))
	assert.Equal(t, "", store.PublicURL(""))
}
