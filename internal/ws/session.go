package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"story-server/internal/ai"
	"story-server/internal/models"
	"story-server/internal/schemas"
)

// Коды закрытия голосовой сессии.
const (
	CloseUnauthorized = 4001
	CloseForbidden    = 4003
	CloseNotFound     = 4004
)

// Типы входящих сообщений.
const (
	msgAudioInput     = "audio_input"
	msgTextInput      = "text_input"
	msgStartNarration = "start_narration"
	msgStopNarration  = "stop_narration"
)

// Типы исходящих сообщений.
const (
	msgConnectionEstablished = "connection_established"
	msgProcessing            = "processing"
	msgAudioOutput           = "audio_output"
	msgTextOutput            = "text_output"
	msgNarrationStarted      = "narration_started"
	msgNarrationText         = "narration_text"
	msgNarrationComplete     = "narration_complete"
	msgNarrationStopped      = "narration_stopped"
	msgError                 = "error"
)

// Пауза между сегментами наррации, чтобы клиентский буфер успевал
// освобождаться.
const narrationChunkDelay = 100 * time.Millisecond

// fallbackReply отправляется, если генератор текста недоступен.
const fallbackReply = "I heard you! How can I help you with the story?"

// Conn - минимальный контракт WebSocket-соединения, нужный сессии.
// Ему удовлетворяет *websocket.Conn.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type inboundMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"` // base64 PCM от клиента
	Text  string `json:"text,omitempty"`
}

type outboundMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message,omitempty"`
	Text        string `json:"text,omitempty"`
	Audio       string `json:"audio,omitempty"`
	SampleRate  int    `json:"sample_rate,omitempty"`
	SceneNumber int    `json:"scene_number,omitempty"`
	StoryID     string `json:"story_id,omitempty"`
}

// Session - голосовая сессия одного клиента по одной истории.
// Цикл чтения только диспетчеризует сообщения; блокирующие вызовы
// провайдеров выполняет отдельный воркер, чтобы медленный синтез
// не останавливал прием сообщений.
type Session struct {
	story  *models.Story
	conn   Conn
	text   ai.TextGenerator
	speech ai.SpeechSynthesizer
	logger zerolog.Logger

	writeMu   sync.Mutex
	jobs      chan inboundMessage
	narrating atomic.Bool
	stopped   atomic.Bool
}

// NewSession создает голосовую сессию поверх установленного соединения.
func NewSession(story *models.Story, conn Conn, text ai.TextGenerator, speech ai.SpeechSynthesizer, logger zerolog.Logger) *Session {
	return &Session{
		story:  story,
		conn:   conn,
		text:   text,
		speech: speech,
		logger: logger.With().
			Str("component", "VoiceSession").
			Str("storyID", story.ID.String()).
			Logger(),
		jobs: make(chan inboundMessage, 16),
	}
}

// Run обслуживает сессию до разрыва соединения или отмены контекста.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.worker(ctx)
	}()

	s.sendJSON(outboundMessage{
		Type:    msgConnectionEstablished,
		Message: "Voice session started",
		StoryID: s.story.ID.String(),
	})

	s.readLoop()

	s.stopped.Store(true)
	close(s.jobs)
	cancel()
	wg.Wait()

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Error closing connection")
	}
	s.logger.Info().Msg("Voice session ended")
}

func (s *Session) readLoop() {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.dispatch(data)
	}
}

// dispatch разбирает входящее сообщение и ставит его в очередь воркера.
// stop_narration обрабатывается немедленно: он не должен ждать в очереди
// позади идущей наррации.
func (s *Session) dispatch(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError("Invalid JSON format")
		return
	}

	switch msg.Type {
	case msgStopNarration:
		s.narrating.Store(false)
		s.sendJSON(outboundMessage{Type: msgNarrationStopped, Message: "Narration stopped"})
	case msgAudioInput, msgTextInput, msgStartNarration:
		select {
		case s.jobs <- msg:
		default:
			s.sendError("Session is busy, try again")
		}
	default:
		s.sendError(fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (s *Session) worker(ctx context.Context) {
	for msg := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		switch msg.Type {
		case msgAudioInput:
			s.handleAudioInput(ctx, msg)
		case msgTextInput:
			s.handleTextInput(ctx, msg)
		case msgStartNarration:
			s.handleStartNarration(ctx)
		}
	}
}

// handleAudioInput отвечает короткой репликой на голосовое сообщение.
// Содержимое аудио не транскрибируется: рассказчик реагирует на сам
// факт голосового обращения в контексте истории.
func (s *Session) handleAudioInput(ctx context.Context, msg inboundMessage) {
	if msg.Audio == "" {
		s.sendError("No audio data provided")
		return
	}
	if _, err := base64.StdEncoding.DecodeString(msg.Audio); err != nil {
		s.sendError("Invalid audio encoding")
		return
	}

	s.sendJSON(outboundMessage{Type: msgProcessing, Message: "Processing your voice input..."})
	s.respondInCharacter(ctx, "The user has sent you a voice message. Respond naturally as if you heard them speak.")
}

func (s *Session) handleTextInput(ctx context.Context, msg inboundMessage) {
	if strings.TrimSpace(msg.Text) == "" {
		s.sendError("No text provided")
		return
	}

	s.sendJSON(outboundMessage{Type: msgProcessing, Message: "Processing your message..."})
	s.respondInCharacter(ctx, fmt.Sprintf("The user says: %q. Respond naturally.", msg.Text))
}

// respondInCharacter генерирует короткий ответ рассказчика и озвучивает
// его. При провале синтеза деградирует до текстового ответа.
func (s *Session) respondInCharacter(ctx context.Context, userMessage string) {
	systemPrompt := s.buildReplyPrompt()

	maxTokens := 150
	reply, _, err := s.text.GenerateText(ctx, systemPrompt, userMessage, ai.GenerationParams{
		MaxTokens: &maxTokens,
	})
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			s.logger.Error().Err(err).Msg("Reply generation failed")
		}
		reply = fallbackReply
	}

	pcm, err := s.speech.Synthesize(ctx, reply, s.story.ResolveVoice())
	if err != nil || len(pcm) == 0 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("Reply synthesis failed, sending text only")
		}
		s.sendJSON(outboundMessage{Type: msgTextOutput, Text: reply})
		return
	}

	s.sendJSON(outboundMessage{
		Type:       msgAudioOutput,
		Audio:      base64.StdEncoding.EncodeToString(pcm),
		SampleRate: s.speech.SampleRate(),
		Text:       reply,
	})
}

// handleStartNarration читает историю по сегментам: бинарный кадр с
// аудио, затем текстовый кадр с тем же фрагментом для субтитров.
// Остановка кооперативная: флаг проверяется между сегментами.
func (s *Session) handleStartNarration(ctx context.Context) {
	if strings.TrimSpace(s.story.Text()) == "" {
		s.sendError("Story has no content to narrate")
		return
	}

	parts := schemas.ParseStoryParts(s.story.Text())
	if len(parts) == 0 {
		s.sendError("Story has no content to narrate")
		return
	}

	s.narrating.Store(true)
	defer s.narrating.Store(false)

	s.sendJSON(outboundMessage{Type: msgNarrationStarted, Message: "Starting story narration..."})

	voiceID := s.story.ResolveVoice()
	for _, part := range parts {
		if ctx.Err() != nil || s.stopped.Load() || !s.narrating.Load() {
			return
		}
		text := strings.TrimSpace(part.Text)
		if text == "" {
			continue
		}

		pcm, err := s.speech.Synthesize(ctx, text, voiceID)
		if err != nil {
			s.logger.Error().Err(err).Int("sceneNumber", part.Number).Msg("Narration synthesis failed, skipping segment")
			continue
		}

		s.sendBinary(pcm)
		s.sendJSON(outboundMessage{
			Type:        msgNarrationText,
			Text:        text,
			SceneNumber: part.Number,
		})

		time.Sleep(narrationChunkDelay)
	}

	if s.narrating.Load() && !s.stopped.Load() {
		s.sendJSON(outboundMessage{Type: msgNarrationComplete, Message: "Story narration completed"})
	}
}

func (s *Session) buildReplyPrompt() string {
	var b strings.Builder
	b.WriteString("You are a storyteller narrating this story: ")
	b.WriteString(s.story.Title)
	b.WriteString(". Respond to questions about the story naturally. ")
	b.WriteString("Keep your response brief (1-2 sentences) and engaging.")

	if text := s.story.Text(); text != "" {
		excerpt := text
		if runes := []rune(excerpt); len(runes) > 500 {
			excerpt = string(runes[:500]) + "..."
		}
		b.WriteString("\n\nStory content: ")
		b.WriteString(excerpt)
	}
	return b.String()
}

func (s *Session) sendJSON(msg outboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal outbound message")
		return
	}
	s.write(websocket.TextMessage, data)
}

func (s *Session) sendBinary(data []byte) {
	s.write(websocket.BinaryMessage, data)
}

func (s *Session) sendError(message string) {
	s.sendJSON(outboundMessage{Type: msgError, Message: message})
}

func (s *Session) write(messageType int, data []byte) {
	if s.stopped.Load() {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		s.logger.Debug().Err(err).Msg("Write failed")
	}
}
