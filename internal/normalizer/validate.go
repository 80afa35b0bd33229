package normalizer

import (
	"flashgen/internal/domain"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

var (
	flashcardSchema = mustSchema(`{
		"type": "object",
		"required": ["term", "definition"],
		"properties": {
			"term":       {"type": "string", "pattern": "\\S"},
			"definition": {"type": "string", "pattern": "\\S"}
		}
	}`)

	quizQuestionSchema = mustSchema(`{
		"type": "object",
		"required": ["question", "options", "correctAnswerIndex"],
		"properties": {
			"question": {"type": "string", "pattern": "\\S"},
			"options": {
				"type": "array",
				"minItems": 4,
				"maxItems": 4,
				"items": {"type": "string", "pattern": "\\S"}
			},
			"correctAnswerIndex": {"type": "integer", "minimum": 0, "maximum": 3},
			"explanation": {"type": "string"}
		}
	}`)

	answerIndexKeys = []string{"correctAnswerIndex", "correctAnswer", "correct_answer", "answerIndex"}
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("normalizer: invalid item schema: " + err.Error())
	}
	return schema
}

// Validate filters the parsed array down to well-formed items of kind and
// returns at most itemCount of them in their original order. Every returned
// string is trimmed, cut to its length limit and free of angle brackets.
// Items whose required fields end up empty after sanitizing are dropped.
func Validate(parsed gjson.Result, kind domain.OutputKind, itemCount int) (*domain.ItemSet, error) {
	if !parsed.IsArray() {
		return nil, domain.NewNotAnArrayError()
	}

	set := &domain.ItemSet{Kind: kind}
	switch kind {
	case domain.KindFlashcards:
		parsed.ForEach(func(_, item gjson.Result) bool {
			if card, ok := flashcardFrom(item); ok {
				set.Flashcards = append(set.Flashcards, card)
			}
			return true
		})
	case domain.KindQuiz:
		parsed.ForEach(func(_, item gjson.Result) bool {
			if q, ok := quizQuestionFrom(item); ok {
				set.Questions = append(set.Questions, q)
			}
			return true
		})
	default:
		return nil, domain.NewInternalError("kind "+string(kind)+" has no item schema", nil)
	}

	if set.Len() == 0 {
		return nil, domain.NewNoValidItemsError()
	}
	if itemCount > 0 && set.Len() > itemCount {
		set.Flashcards = headFlashcards(set.Flashcards, itemCount)
		set.Questions = headQuestions(set.Questions, itemCount)
	}
	return set, nil
}

func flashcardFrom(item gjson.Result) (domain.Flashcard, bool) {
	if !item.IsObject() || !matches(flashcardSchema, gojsonschema.NewStringLoader(item.Raw)) {
		return domain.Flashcard{}, false
	}
	card := domain.Flashcard{
		Term:       Sanitize(item.Get("term").String(), domain.MaxTermLength),
		Definition: Sanitize(item.Get("definition").String(), domain.MaxDefinitionLength),
	}
	if isBlank(card.Term) || isBlank(card.Definition) {
		return domain.Flashcard{}, false
	}
	return card, true
}

func quizQuestionFrom(item gjson.Result) (domain.QuizQuestion, bool) {
	if !item.IsObject() {
		return domain.QuizQuestion{}, false
	}
	doc := canonicalQuizItem(item)
	if !matches(quizQuestionSchema, gojsonschema.NewGoLoader(doc)) {
		return domain.QuizQuestion{}, false
	}

	q := domain.QuizQuestion{
		Question:           Sanitize(item.Get("question").String(), domain.MaxTermLength),
		CorrectAnswerIndex: doc["correctAnswerIndex"].(int),
	}
	if _, ok := doc["explanation"]; ok {
		q.Explanation = Sanitize(item.Get("explanation").String(), domain.MaxDefinitionLength)
	}
	for _, opt := range item.Get("options").Array() {
		o := Sanitize(opt.String(), domain.MaxTermLength)
		if isBlank(o) {
			return domain.QuizQuestion{}, false
		}
		q.Options = append(q.Options, o)
	}
	if isBlank(q.Question) {
		return domain.QuizQuestion{}, false
	}
	return q, true
}

// canonicalQuizItem maps answer-index aliases onto correctAnswerIndex so the
// schema only has to know one spelling. Values that cannot be resolved to an
// index are kept as-is and fail the schema.
func canonicalQuizItem(item gjson.Result) map[string]interface{} {
	doc := map[string]interface{}{}
	if v := item.Get("question"); v.Exists() {
		doc["question"] = v.Value()
	}
	options := item.Get("options")
	if options.Exists() {
		doc["options"] = options.Value()
	}
	if v := item.Get("explanation"); v.Exists() && v.Type == gjson.String {
		doc["explanation"] = v.String()
	}
	for _, key := range answerIndexKeys {
		v := item.Get(key)
		if !v.Exists() {
			continue
		}
		doc["correctAnswerIndex"] = resolveAnswerIndex(v, options)
		break
	}
	return doc
}

func resolveAnswerIndex(v, options gjson.Result) interface{} {
	opts := options.Array()
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		if f != float64(int(f)) {
			return f
		}
		if n := int(f); n < 0 || n >= len(opts) {
			if i := optionIndex(opts, v.Raw); i >= 0 {
				return i
			}
			return n
		}
		return int(f)
	case gjson.String:
		s := strings.TrimSpace(v.String())
		if n, err := strconv.Atoi(s); err == nil {
			if n >= 0 && n < len(opts) {
				return n
			}
			// Options that are themselves numbers: "4" names the option
			// text, not an index past the end.
			if i := optionIndex(opts, s); i >= 0 {
				return i
			}
			return n
		}
		if len(s) == 1 {
			if c := s[0] | 0x20; c >= 'a' && c <= 'd' {
				return int(c - 'a')
			}
		}
		if i := optionIndex(opts, s); i >= 0 {
			return i
		}
		return s
	}
	return v.Value()
}

// optionIndex returns the position of the option whose text equals s, ignoring
// case and surrounding space, or -1.
func optionIndex(opts []gjson.Result, s string) int {
	for i, opt := range opts {
		if strings.EqualFold(strings.TrimSpace(opt.String()), s) {
			return i
		}
	}
	return -1
}

func matches(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) bool {
	result, err := schema.Validate(doc)
	return err == nil && result.Valid()
}

// Sanitize trims s, hard-cuts it to limit characters and removes angle
// brackets. The cut happens before the brackets are stripped.
func Sanitize(s string, limit int) string {
	s = truncateRunes(strings.TrimSpace(s), limit)
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func headFlashcards(cards []domain.Flashcard, n int) []domain.Flashcard {
	if len(cards) > n {
		return cards[:n]
	}
	return cards
}

func headQuestions(qs []domain.QuizQuestion, n int) []domain.QuizQuestion {
	if len(qs) > n {
		return qs[:n]
	}
	return qs
}
