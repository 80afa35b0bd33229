package domain

import "context"

// OutputKind selects what the model is asked to produce.
type OutputKind string

const (
	KindFlashcards OutputKind = "flashcards"
	KindNotes      OutputKind = "notes"
	KindQuiz       OutputKind = "quiz"
)

// DifficultyLevel is the requested depth of the generated material.
type DifficultyLevel string

const (
	LevelBeginner     DifficultyLevel = "beginner"
	LevelIntermediate DifficultyLevel = "intermediate"
	LevelAdvanced     DifficultyLevel = "advanced"
	LevelExpert       DifficultyLevel = "expert"
)

// Levels lists every accepted difficulty level in ascending order.
var Levels = []DifficultyLevel{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}

// SupportedLanguages are the output language codes accepted at the boundary.
var SupportedLanguages = []string{"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh", "ar", "hi"}

// Boundary limits for a GenerationRequest.
const (
	MinContentLength = 3
	MaxContentLength = 50000
	MinItemCount     = 5
	MaxItemCount     = 20

	DefaultNotesSections = 10
)

// Sanitization limits applied to accepted items.
const (
	MaxTermLength       = 500
	MaxDefinitionLength = 2000
	MaxNotesLength      = 20000
	QuizOptionCount     = 4
)

// GenerationRequest is a request that already passed boundary validation.
type GenerationRequest struct {
	Content   string
	Language  string
	ItemCount int
	Level     DifficultyLevel
	Kind      OutputKind
}

// Flashcard is a single term/definition pair.
type Flashcard struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// QuizQuestion is a four-option multiple choice question.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// ItemSet is the validated output of one generation. Exactly one of the
// slices is populated, matching Kind.
type ItemSet struct {
	Kind       OutputKind
	Flashcards []Flashcard
	Questions  []QuizQuestion
}

// Len returns the number of items in the set.
func (s *ItemSet) Len() int {
	if s == nil {
		return 0
	}
	if s.Kind == KindQuiz {
		return len(s.Questions)
	}
	return len(s.Flashcards)
}

// GenerationResult is what a successful generation delivers to the caller.
type GenerationResult struct {
	Items *ItemSet
	Notes string
	// Regenerated is true when the expert policy triggered a second model call
	// and its output was returned.
	Regenerated bool
}

// GenerationParams are the per-call knobs passed to the model provider.
type GenerationParams struct {
	Temperature float64
	MaxTokens   int
}

// CompletionClient is the port to a text-completion model provider.
type CompletionClient interface {
	// Complete sends prompt to the provider and returns the raw completion text.
	// Failures are reported as ProviderUnavailable domain errors.
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// GenerationService generates study material from user content.
type GenerationService interface {
	Generate(ctx context.Context, clientKey string, req GenerationRequest) (*GenerationResult, error)
}
