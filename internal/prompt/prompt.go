// Package prompt builds the model prompts for each output kind.
package prompt

import (
	"fmt"
	"strings"

	"flashgen/internal/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var levelGuidance = map[domain.DifficultyLevel]string{
	domain.LevelBeginner: "Use plain language and everyday examples. Focus on the most important " +
		"ideas and define every technical word you use.",
	domain.LevelIntermediate: "Assume the reader knows the basics of the subject. Cover the main concepts " +
		"and how they relate to each other.",
	domain.LevelAdvanced: "Assume solid prior knowledge. Cover nuances, edge cases, and the reasoning " +
		"behind the concepts, using precise terminology.",
	domain.LevelExpert: "Write for a specialist audience. Use precise technical terminology, discuss " +
		"mechanisms, trade-offs and theoretical foundations, and never simplify. Each definition must " +
		"be longer than 150 characters.",
}

const flashcardsTemplate = `You are an expert educator creating study flashcards.
Create exactly %d flashcards from the content below.

Difficulty: %s. %s
Write every term and definition in %s.

Respond with ONLY a JSON array, no explanations and no markdown. Each element must have this shape:
{"term": "concise term or question", "definition": "clear, accurate definition or answer"}

Content:
%s`

const quizTemplate = `You are an expert educator writing a multiple choice quiz.
Create exactly %d questions from the content below.

Difficulty: %s. %s
Write every question, option and explanation in %s.

Respond with ONLY a JSON array, no explanations and no markdown. Each element must have this shape:
{"question": "question text", "options": ["A", "B", "C", "D"], "correctAnswerIndex": 0, "explanation": "why the answer is correct"}

Rules:
1. Exactly 4 options per question, only one of them correct
2. correctAnswerIndex is the zero-based index of the correct option
3. Options must be plausible and must not overlap

Content:
%s`

const notesTemplate = `You are an expert educator writing structured study notes.
Summarize the content below as markdown notes with about %d sections.

Difficulty: %s. %s
Write the notes in %s.

Use headings for sections and bullet points for key facts. Respond with the markdown only.

Content:
%s`

const expertRetryAmendment = `

IMPORTANT: A previous answer was too simple. This time every flashcard MUST be expert level:
- Do not use words such as "basic", "simple", "easy" or "introduction to".
- Every definition must be longer than 150 characters.
- Every card must use at least two precise technical terms (for example: mechanism, algorithm,
  complexity, trade-off, framework, methodology, theoretical, empirical).`

// Build returns the prompt for req. ItemCount doubles as the number of
// sections for notes.
func Build(req domain.GenerationRequest) string {
	level := req.Level
	if _, ok := levelGuidance[level]; !ok {
		level = domain.LevelIntermediate
	}
	lang := LanguageName(req.Language)

	switch req.Kind {
	case domain.KindQuiz:
		return fmt.Sprintf(quizTemplate, req.ItemCount, level, levelGuidance[level], lang, req.Content)
	case domain.KindNotes:
		sections := req.ItemCount
		if sections <= 0 {
			sections = domain.DefaultNotesSections
		}
		return fmt.Sprintf(notesTemplate, sections, level, levelGuidance[level], lang, req.Content)
	default:
		return fmt.Sprintf(flashcardsTemplate, req.ItemCount, level, levelGuidance[level], lang, req.Content)
	}
}

// BuildExpertRetry returns the prompt for the single regeneration made when
// expert flashcards fall short of the expert policy.
func BuildExpertRetry(req domain.GenerationRequest) string {
	return Build(req) + expertRetryAmendment
}

// LanguageName returns the English name of a language code, e.g. "es" ->
// "Spanish". Unknown codes fall back to English.
func LanguageName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil || code == "" {
		return "English"
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return "English"
	}
	return name
}
