package dto

import "flashgen/internal/domain"

// GenerateRequest is the body shared by the three generation endpoints.
type GenerateRequest struct {
	Context  string `json:"context" validate:"required,notblank,min=3,max=50000" example:"Photosynthesis converts light energy into chemical energy stored in glucose."`
	Language string `json:"language" validate:"required,language" example:"en"`
	Count    int    `json:"count" validate:"min=5,max=20" example:"10"`
	Level    string `json:"level" validate:"required,level" example:"intermediate"`
}

// FlashcardResponse represents a single generated flashcard
type FlashcardResponse struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// FlashcardsResponse is returned by POST /api/generate-flashcards
type FlashcardsResponse struct {
	Flashcards []FlashcardResponse `json:"flashcards"`
}

// QuizQuestionResponse represents a single multiple choice question
type QuizQuestionResponse struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// QuizResponse is returned by POST /api/generate-quiz
type QuizResponse struct {
	Questions []QuizQuestionResponse `json:"questions"`
}

// NotesResponse is returned by POST /api/generate-notes
type NotesResponse struct {
	Notes string `json:"notes"`
}

// ExtractTextResponse is returned by POST /api/extract-text
type ExtractTextResponse struct {
	Text       string `json:"text"`
	Characters int    `json:"characters"`
	Truncated  bool   `json:"truncated"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis"`
}

// NewFlashcardsResponse maps validated flashcards to the response body.
func NewFlashcardsResponse(cards []domain.Flashcard) FlashcardsResponse {
	out := make([]FlashcardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, FlashcardResponse{Term: card.Term, Definition: card.Definition})
	}
	return FlashcardsResponse{Flashcards: out}
}

// NewQuizResponse maps validated questions to the response body.
func NewQuizResponse(questions []domain.QuizQuestion) QuizResponse {
	out := make([]QuizQuestionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, QuizQuestionResponse{
			Question:           q.Question,
			Options:            q.Options,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			Explanation:        q.Explanation,
		})
	}
	return QuizResponse{Questions: out}
}
