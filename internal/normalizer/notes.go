package normalizer

import (
	"errors"
	"flashgen/internal/domain"
	"strings"
)

var errEmptyNotes = errors.New("model returned no notes text")

// NotesFrom turns a raw completion into a markdown notes document. Reasoning
// blocks, an enclosing fence, control characters other than tab and newline,
// and angle brackets are removed; the result is cut to MaxNotesLength.
func NotesFrom(raw string) (string, error) {
	text := StripFence(stripThinkBlocks(raw))
	text = stripControlChars(text)
	text = strings.NewReplacer("<", "", ">", "").Replace(text)
	text = truncateRunes(strings.TrimSpace(text), domain.MaxNotesLength)
	if text == "" {
		return "", domain.NewMalformedResponseError(errEmptyNotes)
	}
	return text, nil
}
