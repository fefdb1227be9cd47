package schemas

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ScenePart is one ordered narrative segment extracted from generated story text.
type ScenePart struct {
	Number int
	Text   string
}

// minNumberedSectionLen guards the numbered-list strategy against stray
// numerals: segments shorter than this are discarded as false positives.
const minNumberedSectionLen = 50

var (
	// Markdown headers like "### Part 5", "## Scene 2". Matched per line.
	markdownHeaderRe = regexp.MustCompile(`(?i)^#{1,6}\s+(?:Part|Chapter|Scene)\s+(\d+)\s*$`)
	// Inline markers like "Part 1:", "Chapter 2.", "Scene 3:".
	inlineMarkerRe = regexp.MustCompile(`(?im)^(?:Part|Chapter|Scene)\s+(\d+)[:.]`)
	// Bare numbered sections like "1.", "2:".
	numberedSectionRe = regexp.MustCompile(`(?m)^(\d+)[:.]\s+`)
)

// ParseStoryParts splits generated story text into ordered scene segments.
// Strategies are tried in order, the first one that yields segments wins:
// markdown headers, inline Part/Chapter/Scene markers, numbered sections.
// Text without any recognizable markers becomes a single segment numbered 1.
// Empty or whitespace-only input yields an empty slice.
func ParseStoryParts(storyText string) []ScenePart {
	if strings.TrimSpace(storyText) == "" {
		return nil
	}

	parts := parseMarkdownHeaders(storyText)
	if len(parts) == 0 {
		parts = parseByMarkers(storyText, inlineMarkerRe, 0)
	}
	if len(parts) == 0 {
		parts = parseByMarkers(storyText, numberedSectionRe, minNumberedSectionLen)
	}
	if len(parts) == 0 {
		parts = []ScenePart{{Number: 1, Text: strings.TrimSpace(storyText)}}
	}

	// Стратегии могут вернуть сегменты не по порядку, если исходный текст
	// оформлен небрежно. Итог всегда отсортирован по номеру.
	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].Number < parts[j].Number
	})
	return parts
}

// parseMarkdownHeaders splits the text line by line on markdown headers.
// A segment's number comes from its header, whitespace-only segments are dropped.
func parseMarkdownHeaders(storyText string) []ScenePart {
	lines := strings.Split(storyText, "\n")

	var parts []ScenePart
	currentNumber := -1
	var currentText []string

	flush := func() {
		if currentNumber < 0 {
			return
		}
		partText := strings.TrimSpace(strings.Join(currentText, "\n"))
		if partText != "" {
			parts = append(parts, ScenePart{Number: currentNumber, Text: partText})
		}
	}

	for _, line := range lines {
		m := markdownHeaderRe.FindStringSubmatch(strings.TrimSpace(line))
		if m != nil {
			flush()
			num, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			currentNumber = num
			currentText = currentText[:0]
			continue
		}
		if currentNumber >= 0 {
			currentText = append(currentText, line)
		}
	}
	flush()

	return parts
}

// parseByMarkers splits the text at every marker match. Each segment spans
// from the end of its marker to the start of the next one (or end of text).
// Segments shorter than minLen are discarded.
func parseByMarkers(storyText string, re *regexp.Regexp, minLen int) []ScenePart {
	matches := re.FindAllStringSubmatchIndex(storyText, -1)
	if len(matches) == 0 {
		return nil
	}

	var parts []ScenePart
	for i, m := range matches {
		num, err := strconv.Atoi(storyText[m[2]:m[3]])
		if err != nil {
			continue
		}

		segEnd := len(storyText)
		if i+1 < len(matches) {
			segEnd = matches[i+1][0]
		}
		partText := strings.TrimSpace(storyText[m[1]:segEnd])
		if partText == "" {
			continue
		}
		if minLen > 0 && len(partText) <= minLen {
			continue
		}
		parts = append(parts, ScenePart{Number: num, Text: partText})
	}
	return parts
}
