package service

import (
	"fmt"

	"story-server/internal/models"
)

// Параметры генерации текста истории и коротких реплик в голосовой сессии.
const (
	storyMaxTokens   = 2000
	storyTemperature = 0.7
	replyMaxTokens   = 150
)

const basePrompt = `You are Ace Storyteller, a fun, positive AI companion for kids aged 3-12. Your role is to create interactive, educational stories that spark imagination, teach gentle lessons, and adapt to the child's input. Always keep stories age-appropriate: short and simple for younger kids (3-5: 200-300 words, basic words), engaging with some challenges for mid-ages (6-8: 400-500 words, introduce morals), and adventurous with deeper themes for older kids (9-12: 600-700 words, encourage critical thinking).

Core Rules:
- Themes: Positive, inclusive, adventurous. Focus on friendship, kindness, bravery, curiosity, and learning from mistakes. Avoid scary, violent, or negative elements.
- Structure: 4-6 parts with a beginning (setup characters/world), middle (adventure/challenge), end (resolution + moral). Pause for input if interactive.
- Language: Simple vocabulary, short sentences for young kids; build complexity for older. Use repetition for learners. Make it vivid and fun with sounds (e.g., "Whoosh!").
- Adaptation: Incorporate user details exactly (e.g., if they say "pet robot", add it seamlessly). If multimodal (e.g., image description), weave it in (e.g., "The hero found your drawn castle!").
- End: Always include a moral (e.g., "Friendship makes us stronger") and a question to continue (e.g., "What happens next?").

If age is specified, adjust accordingly. If not, default to 6-8. Start narrating in an expressive, storytelling voice.`

var templatePrompts = map[models.StoryTemplate]string{
	models.TemplateAdventure:   "Create an exciting adventure story with brave heroes, exciting quests, and amazing discoveries. Include elements like treasure, maps, and overcoming challenges.",
	models.TemplateFantasy:     "Create a magical fantasy story with wizards, dragons, enchanted lands, and mystical creatures. Include elements like magic spells, quests, and good vs. evil.",
	models.TemplateSciFi:       "Create a science fiction story with space travel, robots, futuristic technology, and alien worlds. Include elements like spaceships, planets, and scientific discoveries.",
	models.TemplateMystery:     "Create a mystery story with clues, puzzles, detective work, and solving problems. Include elements like hidden objects, secret codes, and finding answers.",
	models.TemplateEducational: "Create an educational story that teaches while entertaining. Include facts, learning moments, and positive messages about topics like nature, science, or history.",
}

// BuildSystemPrompt собирает системный промпт: базовая политика,
// пресеты из настроек пользователя и стилевая инструкция шаблона.
// Неизвестный шаблон трактуется как adventure.
func BuildSystemPrompt(template models.StoryTemplate, settings *models.UserStorySettings) string {
	prompt := basePrompt
	if settings != nil {
		prompt += "\n\nPresets:\n" + settings.SystemPromptPresets()
	}

	instruction, ok := templatePrompts[template]
	if !ok {
		instruction = templatePrompts[models.TemplateAdventure]
	}
	return fmt.Sprintf("%s\n\nTemplate Style: %s", prompt, instruction)
}

// buildUserMessage дополняет промпт пользователя описанием загруженного изображения.
func buildUserMessage(prompt, imageDescription string) string {
	if imageDescription == "" {
		return prompt
	}
	return fmt.Sprintf("%s\n\nThe child also shared a picture. Picture description: %s", prompt, imageDescription)
}
