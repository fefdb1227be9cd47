package ai

// Voice описывает доступный голос синтеза речи.
type Voice struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	LanguageCode string `json:"language_code"`
}

// availableVoices - каталог голосов OpenAI TTS. Все голоса мультиязычные,
// language_code указывает основной язык озвучки.
var availableVoices = []Voice{
	{ID: "alloy", Name: "Alloy", Gender: "neutral", LanguageCode: "en-US"},
	{ID: "echo", Name: "Echo", Gender: "male", LanguageCode: "en-US"},
	{ID: "fable", Name: "Fable", Gender: "neutral", LanguageCode: "en-GB"},
	{ID: "onyx", Name: "Onyx", Gender: "male", LanguageCode: "en-US"},
	{ID: "nova", Name: "Nova", Gender: "female", LanguageCode: "en-US"},
	{ID: "shimmer", Name: "Shimmer", Gender: "female", LanguageCode: "en-US"},
}

// AvailableVoices возвращает каталог голосов, опционально фильтруя по языку.
func AvailableVoices(languageCode string) []Voice {
	if languageCode == "" {
		out := make([]Voice, len(availableVoices))
		copy(out, availableVoices)
		return out
	}
	var out []Voice
	for _, v := range availableVoices {
		if v.LanguageCode == languageCode {
			out = append(out, v)
		}
	}
	return out
}

// IsKnownVoice проверяет, существует ли голос с указанным ID.
func IsKnownVoice(voiceID string) bool {
	for _, v := range availableVoices {
		if v.ID == voiceID {
			return true
		}
	}
	return false
}
