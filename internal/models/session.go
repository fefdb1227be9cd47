package models

import (
	"time"

	"github.com/google/uuid"
)

// StorySession - сессия прослушивания истории.
// Создается при старте воспроизведения и закрывается ровно один раз.
type StorySession struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	StoryID   uuid.UUID  `json:"story_id" db:"story_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	// Длительность в секундах. Всегда пересчитывается на сервере из
	// started_at/ended_at, значение от клиента не принимается.
	DurationSeconds *int64 `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Completed       bool   `json:"completed" db:"completed"`
}

// RecomputeDuration пересчитывает длительность, если обе метки времени заданы.
func (s *StorySession) RecomputeDuration() {
	if s.EndedAt == nil {
		return
	}
	d := int64(s.EndedAt.Sub(s.StartedAt).Seconds())
	if d < 0 {
		d = 0
	}
	s.DurationSeconds = &d
}
