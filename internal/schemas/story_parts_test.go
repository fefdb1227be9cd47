package schemas_test

import (
	"strings"
	"testing"

	"story-server/internal/schemas"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoryParts_EmptyInput(t *testing.T) {
	assert.Empty(t, schemas.ParseStoryParts(""))
	assert.Empty(t, schemas.ParseStoryParts("   \n\t  "))
}

func TestParseStoryParts_MarkdownHeaders(t *testing.T) {
	text := "### Scene 1\nHello\n### Scene 2\nWorld"
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 2)
	assert.Equal(t, 1, parts[0].Number)
	assert.Equal(t, "Hello", parts[0].Text)
	assert.Equal(t, 2, parts[1].Number)
	assert.Equal(t, "World", parts[1].Text)
}

func TestParseStoryParts_MarkdownHeadersVariants(t *testing.T) {
	text := "## part 2\nSecond part here.\n###### CHAPTER 1\nFirst chapter here."
	parts := schemas.ParseStoryParts(text)

	// Сегменты сортируются по номеру независимо от порядка в тексте
	require.Len(t, parts, 2)
	assert.Equal(t, 1, parts[0].Number)
	assert.Equal(t, "First chapter here.", parts[0].Text)
	assert.Equal(t, 2, parts[1].Number)
	assert.Equal(t, "Second part here.", parts[1].Text)
}

func TestParseStoryParts_MarkdownEmptySegmentsDropped(t *testing.T) {
	text := "### Part 1\n   \n### Part 2\nActual content."
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 1)
	assert.Equal(t, 2, parts[0].Number)
	assert.Equal(t, "Actual content.", parts[0].Text)
}

func TestParseStoryParts_InlineMarkers(t *testing.T) {
	text := "Part 1: Once upon a time there was a robot.\nPart 2. The robot learned to paint.\nPart 3: The end."
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 3)
	assert.Equal(t, 1, parts[0].Number)
	assert.Equal(t, "Once upon a time there was a robot.", parts[0].Text)
	assert.Equal(t, 2, parts[1].Number)
	assert.Equal(t, "The robot learned to paint.", parts[1].Text)
	assert.Equal(t, 3, parts[2].Number)
	assert.Equal(t, "The end.", parts[2].Text)
}

func TestParseStoryParts_SceneAndChapterKeywords(t *testing.T) {
	text := "Scene 1: A dragon woke up.\nChapter 2: It flew away over the mountains."
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 2)
	assert.Equal(t, "A dragon woke up.", parts[0].Text)
	assert.Equal(t, "It flew away over the mountains.", parts[1].Text)
}

func TestParseStoryParts_NumberedSections(t *testing.T) {
	long1 := "The little fox set out on a journey across the wide green valley to find her friends."
	long2 := "Along the way she met a wise old owl who taught her the names of all the stars above."
	text := "1. " + long1 + "\n2. " + long2
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 2)
	assert.Equal(t, 1, parts[0].Number)
	assert.Equal(t, long1, parts[0].Text)
	assert.Equal(t, 2, parts[1].Number)
	assert.Equal(t, long2, parts[1].Text)
}

func TestParseStoryParts_NumberedShortSegmentsDiscarded(t *testing.T) {
	// Короткие нумерованные сегменты считаются ложными срабатываниями,
	// поэтому текст целиком уходит в fallback
	text := "1. short\n2. also short"
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 1)
	assert.Equal(t, 1, parts[0].Number)
	assert.Equal(t, strings.TrimSpace(text), parts[0].Text)
}

func TestParseStoryParts_FallbackWholeText(t *testing.T) {
	text := "  Once upon a time, a small robot dreamed of colors.  "
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 1)
	assert.Equal(t, 1, parts[0].Number)
	assert.Equal(t, "Once upon a time, a small robot dreamed of colors.", parts[0].Text)
}

func TestParseStoryParts_MarkdownTakesPriority(t *testing.T) {
	// Inline-маркеры внутри сегментов не должны ломать разбиение по заголовкам
	text := "### Part 1\nPart 2: this is still part one text.\n### Part 2\nReal second part."
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 2)
	assert.Equal(t, "Part 2: this is still part one text.", parts[0].Text)
	assert.Equal(t, "Real second part.", parts[1].Text)
}

func TestParseStoryParts_OutOfOrderHeadersSorted(t *testing.T) {
	text := "### Part 3\nThird.\n### Part 1\nFirst.\n### Part 2\nSecond."
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 3)
	for i, p := range parts {
		assert.Equal(t, i+1, p.Number)
	}
	assert.Equal(t, "First.", parts[0].Text)
	assert.Equal(t, "Second.", parts[1].Text)
	assert.Equal(t, "Third.", parts[2].Text)
}

func TestParseStoryParts_MultilineSegments(t *testing.T) {
	text := "### Scene 1\nLine one.\nLine two.\n\nLine three.\n### Scene 2\nOther."
	parts := schemas.ParseStoryParts(text)

	require.Len(t, parts, 2)
	assert.Equal(t, "Line one.\nLine two.\n\nLine three.", parts[0].Text)
}
