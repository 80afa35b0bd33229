package handler

import (
	"flashgen/internal/domain"
	"flashgen/internal/dto"
	"flashgen/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GenerationHandler handles the study material generation endpoints
type GenerationHandler struct {
	service domain.GenerationService
}

// NewGenerationHandler creates a new GenerationHandler instance
func NewGenerationHandler(service domain.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		service: service,
	}
}

// GenerateFlashcards godoc
// @Summary Generate flashcards
// @Description Generates term/definition flashcards from the given text
// @Tags generation
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequest true "Source text and options"
// @Success 200 {object} dto.FlashcardsResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /generate-flashcards [post]
func (h *GenerationHandler) GenerateFlashcards(c *fiber.Ctx) error {
	result, err := h.generate(c, domain.KindFlashcards)
	if err != nil {
		return err
	}

	return c.JSON(dto.NewFlashcardsResponse(result.Items.Flashcards))
}

// GenerateQuiz godoc
// @Summary Generate a quiz
// @Description Generates four-option multiple choice questions from the given text
// @Tags generation
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequest true "Source text and options"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /generate-quiz [post]
func (h *GenerationHandler) GenerateQuiz(c *fiber.Ctx) error {
	result, err := h.generate(c, domain.KindQuiz)
	if err != nil {
		return err
	}

	return c.JSON(dto.NewQuizResponse(result.Items.Questions))
}

// GenerateNotes godoc
// @Summary Generate study notes
// @Description Generates a markdown notes document; count is the number of sections and defaults to 10
// @Tags generation
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequest true "Source text and options"
// @Success 200 {object} dto.NotesResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /generate-notes [post]
func (h *GenerationHandler) GenerateNotes(c *fiber.Ctx) error {
	result, err := h.generate(c, domain.KindNotes)
	if err != nil {
		return err
	}
	return c.JSON(dto.NotesResponse{Notes: result.Notes})
}

func (h *GenerationHandler) generate(c *fiber.Ctx, kind domain.OutputKind) (*domain.GenerationResult, error) {
	req, ok := middleware.GenerateRequestFrom(c)
	if !ok {
		return nil, domain.NewInternalError("generation route is missing request validation", nil)
	}

	return h.service.Generate(c.UserContext(), c.IP(), domain.GenerationRequest{
		Content:   req.Context,
		Language:  req.Language,
		ItemCount: req.Count,
		Level:     domain.DifficultyLevel(req.Level),
		Kind:      kind,
	})
}
