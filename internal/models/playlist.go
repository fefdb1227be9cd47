package models

import (
	"time"

	"github.com/google/uuid"
)

// Playlist - именованная коллекция историй пользователя.
// Истории упорядочены по времени создания, связь многие-ко-многим.
type Playlist struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Заполняется подзапросом при выборке, в таблице playlists не хранится.
	StoryCount int `json:"story_count" db:"story_count"`
}
