package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flashgen/internal/config"
	"flashgen/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	completion string
	prompts    []string
}

func (s *stubClient) Complete(_ context.Context, prompt string, _ domain.GenerationParams) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.completion, nil
}

func cliConfig() *config.Config {
	return &config.Config{
		LLM:     config.LLMConfig{MaxTokens: 256, DefaultTemperature: 0.5},
		Extract: config.ExtractConfig{MaxUploadBytes: 4096, MaxChars: 2000},
	}
}

func TestRun_FlashcardsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.txt")
	require.NoError(t, os.WriteFile(path, []byte("Enzymes lower activation energy."), 0o600))

	client := &stubClient{completion: `[{"term":"Enzyme","definition":"A biological catalyst."}]`}
	var out bytes.Buffer
	err := run(context.Background(), cliConfig(), client, options{
		kind: "flashcards", file: path, language: "en", count: 5, level: "beginner",
	}, nil, &out)
	require.NoError(t, err)

	assert.JSONEq(t, `{"flashcards":[{"term":"Enzyme","definition":"A biological catalyst."}]}`, out.String())
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Enzymes lower activation energy.")
}

func TestRun_NotesFromStdin(t *testing.T) {
	client := &stubClient{completion: "# Enzymes\n\n- catalysts"}
	var out bytes.Buffer
	err := run(context.Background(), cliConfig(), client, options{
		kind: "notes", file: "-", language: "fr", count: 10, level: "advanced",
	}, strings.NewReader("<p>Enzymes are catalysts.</p>"), &out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes":"# Enzymes\n\n- catalysts"}`, out.String())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name  string
		opts  options
		stdin string
	}{
		{name: "unknown kind", opts: options{kind: "poem", file: "-", language: "en", count: 5, level: "beginner"}, stdin: "text here"},
		{name: "missing file", opts: options{kind: "quiz", file: filepath.Join(os.TempDir(), "does-not-exist.txt"), language: "en", count: 5, level: "beginner"}},
		{name: "count out of range", opts: options{kind: "quiz", file: "-", language: "en", count: 50, level: "beginner"}, stdin: "Enough text to work with."},
		{name: "unsupported language", opts: options{kind: "quiz", file: "-", language: "xx", count: 5, level: "beginner"}, stdin: "Enough text to work with."},
		{name: "input too large", opts: options{kind: "quiz", file: "-", language: "en", count: 5, level: "beginner"}, stdin: strings.Repeat("a", 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{completion: "[]"}
			err := run(context.Background(), cliConfig(), client, tt.opts, strings.NewReader(tt.stdin), &bytes.Buffer{})
			require.Error(t, err)
			assert.Empty(t, client.prompts)
		})
	}
}

func TestRootCmd_RequiresFile(t *testing.T) {
	cmd := rootCmd()
	cmd.SetArgs([]string{"--kind", "quiz"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}
