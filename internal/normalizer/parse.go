package normalizer

import (
	"encoding/json"
	"errors"
	"flashgen/internal/domain"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"
)

const jsonString = `"((?:[^"\\]|\\.)*)"`

var (
	flashcardPairRe = regexp.MustCompile(`"term"\s*:\s*` + jsonString + `\s*,\s*"definition"\s*:\s*` + jsonString)
	quizItemRe      = regexp.MustCompile(
		`"question"\s*:\s*` + jsonString +
			`\s*,\s*"options"\s*:\s*\[((?:[^\]"]|"(?:[^"\\]|\\.)*")*)\]` +
			`\s*,\s*"(?:correctAnswerIndex|correctAnswer|correct_answer|answerIndex)"\s*:\s*"?(\d+)"?` +
			`(?:\s*,\s*"explanation"\s*:\s*` + jsonString + `)?`)
	quotedRe = regexp.MustCompile(jsonString)

	errNothingRecovered = errors.New("no JSON array and no item fields found in model output")
)

// Parse parses the candidate text produced by Normalize. When strict JSON
// parsing fails it falls back to scanning for item-shaped field sequences
// ("term": "...", "definition": "..." or the quiz equivalent) and rebuilds
// an array from the matches. It fails with MalformedResponse when neither
// yields anything.
func Parse(candidate string, kind domain.OutputKind) (gjson.Result, error) {
	if gjson.Valid(candidate) {
		return gjson.Parse(candidate), nil
	}

	var recovered []map[string]interface{}
	switch kind {
	case domain.KindQuiz:
		recovered = extractQuizItems(candidate)
	default:
		recovered = extractFlashcards(candidate)
	}
	if len(recovered) == 0 {
		return gjson.Result{}, domain.NewMalformedResponseError(errNothingRecovered)
	}

	b, err := json.Marshal(recovered)
	if err != nil {
		return gjson.Result{}, domain.NewMalformedResponseError(err)
	}
	return gjson.ParseBytes(b), nil
}

func extractFlashcards(text string) []map[string]interface{} {
	var items []map[string]interface{}
	for _, m := range flashcardPairRe.FindAllStringSubmatch(text, -1) {
		items = append(items, map[string]interface{}{
			"term":       unescape(m[1]),
			"definition": unescape(m[2]),
		})
	}
	return items
}

func extractQuizItems(text string) []map[string]interface{} {
	var items []map[string]interface{}
	for _, m := range quizItemRe.FindAllStringSubmatch(text, -1) {
		options := []string{}
		for _, o := range quotedRe.FindAllStringSubmatch(m[2], -1) {
			options = append(options, unescape(o[1]))
		}
		index, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		items = append(items, map[string]interface{}{
			"question":           unescape(m[1]),
			"options":            options,
			"correctAnswerIndex": index,
			"explanation":        unescape(m[4]),
		})
	}
	return items
}

// unescape decodes JSON escape sequences in a captured string body. Bodies
// with broken escapes are returned as captured.
func unescape(body string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &out); err != nil {
		return body
	}
	return out
}
