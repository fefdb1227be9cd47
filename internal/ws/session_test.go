package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"story-server/internal/ai"
	aimocks "story-server/internal/ai/mocks"
	"story-server/internal/models"
)

type recordedFrame struct {
	messageType int
	data        []byte
}

// fakeConn проигрывает заранее заданные входящие сообщения и
// записывает все исходящие кадры.
type fakeConn struct {
	mu       sync.Mutex
	inbound  []string
	pos      int
	frames   []recordedFrame
	closed   bool
	readGate chan struct{} // закрывается, чтобы отпустить финальный Read
}

func newFakeConn(inbound ...string) *fakeConn {
	return &fakeConn{inbound: inbound, readGate: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	if c.pos < len(c.inbound) {
		msg := c.inbound[c.pos]
		c.pos++
		c.mu.Unlock()
		return websocket.TextMessage, []byte(msg), nil
	}
	c.mu.Unlock()
	// Держим соединение "открытым", пока тест не закончит проверку,
	// иначе Run завершится раньше, чем воркер обработает очередь.
	<-c.readGate
	return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, recordedFrame{messageType: messageType, data: buf})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) textFrames(t *testing.T) []outboundMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []outboundMessage
	for _, frame := range c.frames {
		if frame.messageType != websocket.TextMessage {
			continue
		}
		var msg outboundMessage
		require.NoError(t, json.Unmarshal(frame.data, &msg))
		out = append(out, msg)
	}
	return out
}

func (c *fakeConn) binaryFrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, frame := range c.frames {
		if frame.messageType == websocket.BinaryMessage {
			n++
		}
	}
	return n
}

func strPtr(s string) *string { return &s }

func runSession(t *testing.T, conn *fakeConn, story *models.Story, text *aimocks.TextGenerator, speech *aimocks.SpeechSynthesizer) {
	t.Helper()
	session := NewSession(story, conn, text, speech, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		session.Run(context.Background())
		close(done)
	}()

	// Ждем, пока воркер обработает очередь: поток кадров должен затихнуть
	// (пауза между сегментами наррации 100мс, берем запас).
	require.Eventually(t, func() bool {
		return len(conn.textFrames(t)) > 0
	}, 2*time.Second, 10*time.Millisecond)
	lastCount := -1
	for i := 0; i < 50; i++ {
		count := len(conn.textFrames(t)) + conn.binaryFrameCount()
		if count == lastCount {
			break
		}
		lastCount = count
		time.Sleep(300 * time.Millisecond)
	}
	close(conn.readGate)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func TestSession_UnknownMessageTypeStaysOpen(t *testing.T) {
	story := &models.Story{ID: uuid.New(), Title: "Test", StoryText: strPtr("Once upon a time.")}
	text := new(aimocks.TextGenerator)
	speech := new(aimocks.SpeechSynthesizer)

	text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("A reply.", ai.UsageInfo{}, nil)
	speech.On("Synthesize", mock.Anything, "A reply.", mock.Anything).
		Return(nil, errors.New("no audio"))

	conn := newFakeConn(
		`{"type":"foo"}`,
		`{"type":"text_input","text":"hello"}`,
	)
	runSession(t, conn, story, text, speech)

	frames := conn.textFrames(t)
	var sawUnknownError, sawTextOutput bool
	for _, frame := range frames {
		if frame.Type == msgError && frame.Message == "Unknown message type: foo" {
			sawUnknownError = true
		}
		if frame.Type == msgTextOutput {
			sawTextOutput = true
		}
	}
	assert.True(t, sawUnknownError, "неизвестный тип дает кадр ошибки")
	assert.True(t, sawTextOutput, "сессия продолжает обрабатывать сообщения после ошибки")
}

func TestSession_TextInputDegradesToTextOnSynthesisFailure(t *testing.T) {
	story := &models.Story{ID: uuid.New(), Title: "Fox", StoryText: strPtr("A fox story.")}
	text := new(aimocks.TextGenerator)
	speech := new(aimocks.SpeechSynthesizer)

	text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("The fox says hi!", ai.UsageInfo{}, nil)
	speech.On("Synthesize", mock.Anything, "The fox says hi!", mock.Anything).
		Return(nil, errors.New("tts down"))

	conn := newFakeConn(`{"type":"text_input","text":"what does the fox say?"}`)
	runSession(t, conn, story, text, speech)

	frames := conn.textFrames(t)
	var output *outboundMessage
	for i := range frames {
		if frames[i].Type == msgTextOutput {
			output = &frames[i]
		}
	}
	require.NotNil(t, output, "при провале синтеза ответ приходит текстом")
	assert.Equal(t, "The fox says hi!", output.Text)
	assert.Equal(t, 0, conn.binaryFrameCount())
}

func TestSession_NarrationEmitsAudioThenCaptionPerPart(t *testing.T) {
	story := &models.Story{
		ID:        uuid.New(),
		Title:     "Two parts",
		StoryText: strPtr("### Part 1\nHello\n### Part 2\nWorld"),
	}
	text := new(aimocks.TextGenerator)
	speech := new(aimocks.SpeechSynthesizer)

	speech.On("Synthesize", mock.Anything, "Hello", mock.Anything).Return([]byte{1, 2}, nil)
	speech.On("Synthesize", mock.Anything, "World", mock.Anything).Return([]byte{3, 4}, nil)

	conn := newFakeConn(`{"type":"start_narration"}`)
	runSession(t, conn, story, text, speech)

	assert.Equal(t, 2, conn.binaryFrameCount())

	frames := conn.textFrames(t)
	var captions []outboundMessage
	var sawComplete bool
	for _, frame := range frames {
		switch frame.Type {
		case msgNarrationText:
			captions = append(captions, frame)
		case msgNarrationComplete:
			sawComplete = true
		}
	}
	require.Len(t, captions, 2)
	assert.Equal(t, "Hello", captions[0].Text)
	assert.Equal(t, 1, captions[0].SceneNumber)
	assert.Equal(t, "World", captions[1].Text)
	assert.Equal(t, 2, captions[1].SceneNumber)
	assert.True(t, sawComplete)
}

func TestSession_NarrationSkipsFailedSegment(t *testing.T) {
	story := &models.Story{
		ID:        uuid.New(),
		Title:     "Partial",
		StoryText: strPtr("### Part 1\nHello\n### Part 2\nWorld"),
	}
	text := new(aimocks.TextGenerator)
	speech := new(aimocks.SpeechSynthesizer)

	speech.On("Synthesize", mock.Anything, "Hello", mock.Anything).Return(nil, errors.New("boom"))
	speech.On("Synthesize", mock.Anything, "World", mock.Anything).Return([]byte{3, 4}, nil)

	conn := newFakeConn(`{"type":"start_narration"}`)
	runSession(t, conn, story, text, speech)

	assert.Equal(t, 1, conn.binaryFrameCount())

	var captions int
	for _, frame := range conn.textFrames(t) {
		if frame.Type == msgNarrationText {
			captions++
		}
	}
	assert.Equal(t, 1, captions)
}

func TestSession_StopNarrationAcknowledged(t *testing.T) {
	story := &models.Story{ID: uuid.New(), Title: "T", StoryText: strPtr("text")}
	text := new(aimocks.TextGenerator)
	speech := new(aimocks.SpeechSynthesizer)

	conn := newFakeConn(`{"type":"stop_narration"}`)
	runSession(t, conn, story, text, speech)

	frames := conn.textFrames(t)
	var sawStopped bool
	for _, frame := range frames {
		if frame.Type == msgNarrationStopped {
			sawStopped = true
		}
	}
	assert.True(t, sawStopped)
	assert.True(t, conn.closed)
}

func TestSession_ReplyPromptExcerptKeepsRunesIntact(t *testing.T) {
	// Длинный кириллический текст: выдержка режется по рунам,
	// иначе в промпт попал бы битый UTF-8.
	longText := strings.Repeat("Жила-была лиса в большом тёмном лесу. ", 40)
	story := &models.Story{ID: uuid.New(), Title: "Лиса", StoryText: strPtr(longText)}
	session := NewSession(story, newFakeConn(), new(aimocks.TextGenerator), new(aimocks.SpeechSynthesizer), zerolog.Nop())

	prompt := session.buildReplyPrompt()

	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, "Жила-была лиса")
}
