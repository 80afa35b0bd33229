package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"flashgen/internal/adapter/llm"
	"flashgen/internal/config"
	"flashgen/internal/domain"
	"flashgen/internal/dto"
	"flashgen/internal/extract"
	"flashgen/internal/normalizer"
	"flashgen/internal/service"
	"flashgen/internal/validation"

	"github.com/spf13/cobra"
)

type options struct {
	kind     string
	file     string
	language string
	count    int
	level    string
}

func rootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate flashcards, a quiz or notes from a document",
		Long: "Extracts the text of a PDF, DOCX, PPTX, HTML or text file and runs it through the\n" +
			"same generation pipeline as the HTTP API. The JSON response is written to stdout.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			// The global logger stays a no-op so stdout carries only the JSON document.
			client, err := llm.NewFromConfig(cmd.Context(), cfg.LLM, nil)
			if err != nil {
				return fmt.Errorf("create llm client: %w", err)
			}
			return run(cmd.Context(), cfg, client, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.kind, "kind", string(domain.KindFlashcards), "output kind: flashcards, quiz or notes")
	flags.StringVarP(&opts.file, "file", "f", "", "input document, or - for stdin")
	flags.StringVar(&opts.language, "language", "en", "output language code")
	flags.IntVar(&opts.count, "count", 10, "number of items (sections for notes)")
	flags.StringVar(&opts.level, "level", string(domain.LevelIntermediate), "difficulty: beginner, intermediate, advanced or expert")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func parseKind(s string) (domain.OutputKind, error) {
	switch k := domain.OutputKind(s); k {
	case domain.KindFlashcards, domain.KindQuiz, domain.KindNotes:
		return k, nil
	default:
		return "", fmt.Errorf("unknown --kind %q (want flashcards, quiz or notes)", s)
	}
}

func readInput(path string, stdin io.Reader, limit int64) ([]byte, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("input is larger than %d bytes", limit)
	}
	return data, nil
}

func run(ctx context.Context, cfg *config.Config, client domain.CompletionClient, opts options, stdin io.Reader, out io.Writer) error {
	kind, err := parseKind(opts.kind)
	if err != nil {
		return err
	}

	data, err := readInput(opts.file, stdin, cfg.Extract.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	doc, err := extract.New(cfg.Extract.MaxChars, extract.WithMaxXMLBytes(cfg.Extract.MaxXMLBytes)).Extract(data)
	if err != nil {
		return err
	}

	req := dto.GenerateRequest{
		Context:  doc.Text,
		Language: opts.language,
		Count:    opts.count,
		Level:    opts.level,
	}
	if errs := validation.NewValidator().ValidateStruct(&req); len(errs) > 0 {
		return errs
	}

	svc := service.NewGenerationService(client, nil, normalizer.DefaultExpertPolicy(), cfg.LLM, nil)
	result, err := svc.Generate(ctx, "", domain.GenerationRequest{
		Content:   req.Context,
		Language:  req.Language,
		ItemCount: req.Count,
		Level:     domain.DifficultyLevel(req.Level),
		Kind:      kind,
	})
	if err != nil {
		return err
	}

	var body interface{}
	switch kind {
	case domain.KindQuiz:
		body = dto.NewQuizResponse(result.Items.Questions)
	case domain.KindNotes:
		body = dto.NotesResponse{Notes: result.Notes}
	default:
		body = dto.NewFlashcardsResponse(result.Items.Flashcards)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}
