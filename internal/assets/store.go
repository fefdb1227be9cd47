package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// timestampLayout используется в именах сгенерированных файлов.
const timestampLayout = "20060102_150405"

// audioExtensions - расширения, которые считаются аудио-ассетами.
// Проверка перед удалением, чтобы случайно не стереть чужие файлы
// в директории истории.
var audioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".pcm": true,
}

// Store хранит сгенерированные ассеты под MediaRoot.
// Раскладка: {год}/{месяц}/{story_id}/audio_<ts>.mp3 для аудио,
// {год}/{месяц}/{story_id}/scenes/scene_<n>_<ts>.<ext> для иллюстраций сцен.
type Store struct {
	root          string
	publicBaseURL string
	logger        *zap.Logger

	now func() time.Time
}

// NewStore создает хранилище ассетов поверх локальной файловой системы.
func NewStore(root, publicBaseURL string, logger *zap.Logger) *Store {
	return &Store{
		root:          root,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger.Named("AssetStore"),
		now:           time.Now,
	}
}

// storyDir возвращает относительную директорию истории для текущего момента.
func (s *Store) storyDir(storyID uuid.UUID) string {
	now := s.now()
	return filepath.Join(now.Format("2006"), now.Format("01"), storyID.String())
}

// SaveStoryAudio записывает аудио-дорожку истории и возвращает относительный путь.
func (s *Store) SaveStoryAudio(storyID uuid.UUID, data []byte, ext string) (string, error) {
	name := fmt.Sprintf("audio_%s%s", s.now().Format(timestampLayout), normalizeExt(ext))
	return s.write(filepath.Join(s.storyDir(storyID), name), data)
}

// SaveStoryImage записывает загруженное изображение истории.
func (s *Store) SaveStoryImage(storyID uuid.UUID, data []byte, ext string) (string, error) {
	name := fmt.Sprintf("image_%s%s", s.now().Format(timestampLayout), normalizeExt(ext))
	return s.write(filepath.Join(s.storyDir(storyID), name), data)
}

// SaveSceneImage записывает иллюстрацию сцены в поддиректорию scenes.
func (s *Store) SaveSceneImage(storyID uuid.UUID, sceneNumber int, data []byte, ext string) (string, error) {
	name := fmt.Sprintf("scene_%d_%s%s", sceneNumber, s.now().Format(timestampLayout), normalizeExt(ext))
	return s.write(filepath.Join(s.storyDir(storyID), "scenes", name), data)
}

// write сохраняет данные по относительному пути, создавая директории.
// При коллизии имени добавляется короткий суффикс, чтобы повторные
// генерации в одну секунду не затирали друг друга.
func (s *Store) write(relPath string, data []byte) (string, error) {
	absPath := filepath.Join(s.root, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	if _, err := os.Stat(absPath); err == nil {
		ext := filepath.Ext(relPath)
		base := strings.TrimSuffix(relPath, ext)
		relPath = fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
		absPath = filepath.Join(s.root, relPath)
	}

	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}

	s.logger.Debug("Asset written",
		zap.String("path", relPath),
		zap.Int("size", len(data)))

	// Относительный путь храним в UNIX-стиле независимо от ОС
	return filepath.ToSlash(relPath), nil
}

// Delete удаляет ассет по относительному пути. Отсутствие файла не ошибка.
func (s *Store) Delete(relPath string) error {
	if relPath == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset %s: %w", relPath, err)
	}
	return nil
}

// DeleteAudio удаляет старую аудио-дорожку. Файлы, не похожие на
// аудио-ассет, не трогаем.
func (s *Store) DeleteAudio(relPath string) error {
	if relPath == "" {
		return nil
	}
	if !IsAudioAsset(relPath) {
		s.logger.Warn("Refusing to delete non-audio asset", zap.String("path", relPath))
		return nil
	}
	return s.Delete(relPath)
}

// SweepStaleAudio удаляет из директорий истории все аудио-файлы, кроме
// актуального. Подчищает хвосты от прерванных или вытесненных генераций.
// Возвращает количество удаленных файлов.
func (s *Store) SweepStaleAudio(storyID uuid.UUID, keepRelPath string) int {
	removed := 0
	for _, dir := range s.storyDirs(storyID) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !IsAudioAsset(entry.Name()) {
				continue
			}
			absPath := filepath.Join(dir, entry.Name())
			rel, err := filepath.Rel(s.root, absPath)
			if err != nil {
				continue
			}
			if filepath.ToSlash(rel) == keepRelPath {
				continue
			}
			if err := os.Remove(absPath); err != nil {
				s.logger.Warn("Failed to remove stale audio file",
					zap.String("path", absPath), zap.Error(err))
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("Swept stale audio files",
			zap.String("story_id", storyID.String()), zap.Int("removed", removed))
	}
	return removed
}

// RemoveStoryAssets удаляет все директории истории (во всех месяцах).
// Вызывается при удалении истории владельцем.
func (s *Store) RemoveStoryAssets(storyID uuid.UUID) error {
	var firstErr error
	for _, dir := range s.storyDirs(storyID) {
		if err := os.RemoveAll(dir); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove story assets dir %s: %w", dir, err)
		}
	}
	return firstErr
}

// storyDirs находит все директории истории. История могла генерироваться
// в разные месяцы, поэтому ищем по всем {год}/{месяц}.
func (s *Store) storyDirs(storyID uuid.UUID) []string {
	pattern := filepath.Join(s.root, "*", "*", storyID.String())
	dirs, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	return dirs
}

// PublicURL возвращает публичный URL ассета по относительному пути.
func (s *Store) PublicURL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return s.publicBaseURL + "/" + strings.TrimPrefix(relPath, "/")
}

// AbsPath возвращает абсолютный путь ассета на диске.
func (s *Store) AbsPath(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(relPath))
}

// ReadAsset читает содержимое ассета по относительному пути.
func (s *Store) ReadAsset(relPath string) ([]byte, error) {
	data, err := os.ReadFile(s.AbsPath(relPath))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ассета %s: %w", relPath, err)
	}
	return data, nil
}

// Root возвращает корневую директорию хранилища.
func (s *Store) Root() string {
	return s.root
}

// IsAudioAsset сообщает, выглядит ли имя файла как сгенерированный аудио-ассет.
func IsAudioAsset(path string) bool {
	name := filepath.Base(filepath.FromSlash(path))
	if !strings.HasPrefix(name, "audio_") {
		return false
	}
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.ToLower(ext)
}
