package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestNormalize_ValidArrayPassesThrough(t *testing.T) {
	raw := `[{"term":"Ratio, rate","definition":"a: b, c: d"},{"term":"B","definition":"it's fine"}]`
	assert.Equal(t, raw, Normalize(raw))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "fenced block with language tag",
			raw:  "```json\n[{\"term\":\"A\",\"definition\":\"B\"}]\n```",
			want: `[{"term":"A","definition":"B"}]`,
		},
		{
			name: "fenced block without language tag",
			raw:  "Sure!\n```\n[{\"term\":\"A\",\"definition\":\"B\"}]\n```\nEnjoy.",
			want: `[{"term":"A","definition":"B"}]`,
		},
		{
			name: "unterminated fence",
			raw:  "```json\n[{\"term\":\"A\",\"definition\":\"B\"}]",
			want: `[{"term":"A","definition":"B"}]`,
		},
		{
			name: "bare array quoting a fenced snippet",
			raw:  "[{\"term\":\"Print\",\"definition\":\"Call ```go fmt.Println() ``` to print\"}]",
			want: "[{\"term\":\"Print\",\"definition\":\"Call ```go fmt.Println() ``` to print\"}]",
		},
		{
			name: "fenced array quoting a fenced snippet",
			raw:  "```json\n[{\"term\":\"Print\",\"definition\":\"Call ```go fmt.Println() ``` to print\"}]\n```",
			want: "[{\"term\":\"Print\",\"definition\":\"Call ```go fmt.Println() ``` to print\"}]",
		},
		{
			name: "surrounding prose",
			raw:  `Here are your flashcards: [{"term":"A","definition":"B"}] Hope this helps!`,
			want: `[{"term":"A","definition":"B"}]`,
		},
		{
			name: "reasoning block",
			raw:  "<think>The user wants [cards]. Let me think.</think>\n[{\"term\":\"A\",\"definition\":\"B\"}]",
			want: `[{"term":"A","definition":"B"}]`,
		},
		{
			name: "single quotes",
			raw:  `[{'term': 'A', 'definition': 'B'}]`,
			want: `[{"term": "A", "definition": "B"}]`,
		},
		{
			name: "single quoted value with apostrophe",
			raw:  `[{'term': 'don't panic', 'definition': 'Say "hi"'}]`,
			want: `[{"term": "don't panic", "definition": "Say \"hi\""}]`,
		},
		{
			name: "single quoted value with colon and comma",
			raw:  `[{'term': 'Ratio', 'definition': 'Compare parts, ratio: 3 to 1'}]`,
			want: `[{"term": "Ratio", "definition": "Compare parts, ratio: 3 to 1"}]`,
		},
		{
			name: "single quoted value with trailing comma lookalike",
			raw:  `[{'term': 'List', 'definition': 'written as [a, b,] here'}]`,
			want: `[{"term": "List", "definition": "written as [a, b,] here"}]`,
		},
		{
			name: "trailing commas and bare keys",
			raw:  `[{term: "A", definition: "B",},]`,
			want: `[{"term": "A", "definition": "B"}]`,
		},
		{
			name: "bare key lookalike inside string untouched",
			raw:  `[{term: "x, y: z", "definition": "B",}]`,
			want: `[{"term": "x, y: z", "definition": "B"}]`,
		},
		{
			name: "raw newline and tab inside string",
			raw:  "[{\"term\":\"A\",\n \"definition\":\"line1\nline2\tend\"}]",
			want: "[{\"term\":\"A\",\n \"definition\":\"line1\\nline2\\tend\"}]",
		},
		{
			name: "control characters",
			raw:  "[{\"term\":\"A\x01\x7f\",\"definition\":\"B\u0085\"},]",
			want: `[{"term":"A","definition":"B"}]`,
		},
		{
			name: "no array at all",
			raw:  "I cannot help with that.",
			want: "I cannot help with that.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_FenceIsNoOpForUnfencedInput(t *testing.T) {
	inner := `[{"term":"A","definition":"B"},{"term":"C","definition":"D"}]`
	assert.Equal(t, Normalize(inner), Normalize("```json\n"+inner+"\n```"))
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "body", StripFence("```text\nbody\n```"))
	assert.Equal(t, "a ``` b", StripFence("```\na ``` b\n```"))
	assert.Equal(t, "x ```y``` z", StripFence("  x ```y``` z  "))
	assert.Equal(t, "open", StripFence("```md\nopen"))
}

func TestRepair_ProducesValidJSON(t *testing.T) {
	inputs := []string{
		`[{'term': 'A', 'definition': 'B'},]`,
		`[{term: 'A', definition: "B"}]`,
		"[{\"term\": \"A\", \"definition\": \"multi\nline\"}]",
		"[{\"term\": \"A\x00\", \"definition\": \"B\",}]",
	}
	for _, in := range inputs {
		out := Repair(in)
		assert.Truef(t, gjson.Valid(out), "repair of %q produced invalid JSON %q", in, out)
	}
}

func TestSliceArray(t *testing.T) {
	assert.Equal(t, "[1]", SliceArray("x [1] y"))
	assert.Equal(t, "[[1],[2]]", SliceArray("a [[1],[2]] b"))
	assert.Equal(t, "] backwards [", SliceArray("] backwards ["))
	assert.Equal(t, "none", SliceArray("none"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo wörld", 5))
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
}
