package handler

import (
	"errors"
	"io"

	"flashgen/internal/domain"
	"flashgen/internal/dto"
	"flashgen/internal/extract"
	"flashgen/internal/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	Extract(data []byte) (*extract.Result, error)
}

// ExtractHandler handles document uploads
type ExtractHandler struct {
	extractor      TextExtractor
	maxUploadBytes int64
}

func NewExtractHandler(extractor TextExtractor, maxUploadBytes int64) *ExtractHandler {
	return &ExtractHandler{
		extractor:      extractor,
		maxUploadBytes: maxUploadBytes,
	}
}

// ExtractText godoc
// @Summary Extract text from a document
// @Description Returns the plain text of an uploaded PDF, DOCX, PPTX, HTML or text file for use as generation content
// @Tags extraction
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document to extract"
// @Success 200 {object} dto.ExtractTextResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 413 {object} middleware.ErrorResponse
// @Failure 415 {object} middleware.ErrorResponse
// @Router /extract-text [post]
func (h *ExtractHandler) ExtractText(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return domain.NewInvalidRequestError("A multipart file field named \"file\" is required")
	}
	if header.Size > h.maxUploadBytes {
		return fiber.ErrRequestEntityTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return domain.NewInternalError("failed to open uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return domain.NewInternalError("failed to read uploaded file", err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return fiber.ErrRequestEntityTooLarge
	}

	result, err := h.extractor.Extract(data)
	if err != nil {
		var de *domain.DomainError
		if errors.As(err, &de) {
			de.WithContext("filename", header.Filename)
		}
		return err
	}

	logger.Get().Info("Document text extracted",
		zap.String("filename", header.Filename),
		zap.String("mime", result.MIME),
		zap.Int("characters", result.Characters),
		zap.Bool("truncated", result.Truncated),
	)

	return c.JSON(dto.ExtractTextResponse{
		Text:       result.Text,
		Characters: result.Characters,
		Truncated:  result.Truncated,
	})
}
