package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgeRange определяет целевой возраст слушателя.
type AgeRange string

const (
	AgeRange3to5  AgeRange = "3-5"
	AgeRange6to8  AgeRange = "6-8"
	AgeRange9to12 AgeRange = "9-12"
)

// LanguageLevel определяет сложность языка истории.
type LanguageLevel string

const (
	LanguageSimple   LanguageLevel = "simple"
	LanguageModerate LanguageLevel = "moderate"
	LanguageAdvanced LanguageLevel = "advanced"
)

// UserStorySettings - настройки генерации, общие для всех историй пользователя.
// Один к одному с пользователем, создаются лениво со значениями по умолчанию.
type UserStorySettings struct {
	ID                          uuid.UUID     `json:"id" db:"id"`
	UserID                      uuid.UUID     `json:"user_id" db:"user_id"`
	AgeRange                    AgeRange      `json:"age_range" db:"age_range"`
	GenrePreference             string        `json:"genre_preference" db:"genre_preference"` // fantasy/adventure/sci-fi/mystery/educational/mixed
	LanguageLevel               LanguageLevel `json:"language_level" db:"language_level"`
	MoralTheme                  string        `json:"moral_theme" db:"moral_theme"` // friendship/kindness/bravery/... или mixed
	IncludeDiversity            bool          `json:"include_diversity" db:"include_diversity"`
	IncludeSensoryDetails       bool          `json:"include_sensory_details" db:"include_sensory_details"`
	IncludeInteractiveQuestions bool          `json:"include_interactive_questions" db:"include_interactive_questions"`
	IncludeSoundEffects         bool          `json:"include_sound_effects" db:"include_sound_effects"`
	ExplainComplexWords         bool          `json:"explain_complex_words" db:"explain_complex_words"`
	MaxWordCount                int           `json:"max_word_count" db:"max_word_count"`
	StoryParts                  int           `json:"story_parts" db:"story_parts"` // Количество частей истории, диапазон 3-8
	CreatedAt                   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt                   time.Time     `json:"updated_at" db:"updated_at"`
}

// SystemPromptPresets собирает строки-пресеты для системного промпта
// из настроек пользователя.
func (s *UserStorySettings) SystemPromptPresets() string {
	var presets []string

	ageInfo := map[AgeRange]string{
		AgeRange3to5:  "200-300 words, basic words, short sentences",
		AgeRange6to8:  "400-500 words, introduce morals, engaging challenges",
		AgeRange9to12: "600-700 words, encourage critical thinking, deeper themes",
	}
	length, ok := ageInfo[s.AgeRange]
	if !ok {
		length = "400-500 words"
	}
	presets = append(presets, "- Length: "+length)

	genreInfo := map[string]string{
		"fantasy":     "Fantasy elements (magic, wizards, dragons)",
		"adventure":   "Adventure elements (quests, treasure, exploration)",
		"sci-fi":      "Science fiction elements (space, robots, technology)",
		"mystery":     "Mystery elements (clues, puzzles, detective work)",
		"educational": "Educational elements (facts, learning moments)",
		"mixed":       "Mix fantasy, adventure, and real-world elements",
	}
	genre, ok := genreInfo[s.GenrePreference]
	if !ok {
		genre = "Mixed"
	}
	presets = append(presets, "- Genre: "+genre)

	if s.MoralTheme != "mixed" && s.MoralTheme != "" {
		presets = append(presets, "- Moral: Always end with a positive lesson on "+s.MoralTheme)
	} else {
		presets = append(presets, "- Moral: Always end with a positive lesson on empathy, teamwork, or growth")
	}

	if s.IncludeDiversity {
		presets = append(presets, "- Diversity: Include diverse characters from different backgrounds and abilities")
	}
	if s.IncludeSensoryDetails {
		presets = append(presets, "- Engagement: Add sensory details (sights, sounds) to make stories vivid")
	}
	if s.IncludeInteractiveQuestions {
		presets = append(presets, "- Engagement: Add questions mid-story to pause for user input")
	}

	languageInfo := map[LanguageLevel]string{
		LanguageSimple:   "Use simple words; explain any complex ones",
		LanguageModerate: "Use moderate vocabulary; explain complex terms",
		LanguageAdvanced: "Use rich vocabulary; provide context for complex terms",
	}
	language, ok := languageInfo[s.LanguageLevel]
	if !ok {
		language = "Moderate"
	}
	presets = append(presets, "- Language Level: "+language)

	if s.IncludeSoundEffects {
		presets = append(presets, "- Style: Include sound effects (e.g., 'Whoosh!', 'Bang!') for excitement")
	}

	if s.MaxWordCount > 0 {
		presets = append(presets, fmt.Sprintf("- Hard Limit: Keep the story under %d words total", s.MaxWordCount))
	}
	if s.StoryParts > 0 {
		presets = append(presets, fmt.Sprintf("- Structure: Split the story into exactly %d numbered parts", s.StoryParts))
	}

	return strings.Join(presets, "\n")
}

// DefaultStorySettings возвращает настройки по умолчанию для нового пользователя.
func DefaultStorySettings(userID uuid.UUID) *UserStorySettings {
	return &UserStorySettings{
		UserID:                      userID,
		AgeRange:                    AgeRange6to8,
		GenrePreference:             "mixed",
		LanguageLevel:               LanguageModerate,
		MoralTheme:                  "mixed",
		IncludeDiversity:            true,
		IncludeSensoryDetails:       true,
		IncludeInteractiveQuestions: true,
		IncludeSoundEffects:         true,
		ExplainComplexWords:         true,
		MaxWordCount:                800,
		StoryParts:                  5,
	}
}
