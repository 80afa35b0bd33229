package normalizer

import (
	"flashgen/internal/domain"
	"strings"
	"unicode/utf8"
)

// Default thresholds for ExpertPolicy.
const (
	DefaultMinExpertTerms      = 2
	DefaultMinDefinitionLength = 150
)

// Word lists used by the expert policy. Matching is a lower-case substring
// test, so the lists only make sense for English output.
var (
	bannedSimpleVocabulary = []string{
		"basic",
		"simple",
		"introduction to",
		"beginner",
		"easy",
		"in simple terms",
		"for dummies",
		"overview of",
		"fundamentals of",
		"elementary",
	}

	expertVocabulary = []string{
		"algorithm",
		"asymptotic",
		"complexity",
		"invariant",
		"optimization",
		"architecture",
		"paradigm",
		"methodology",
		"framework",
		"mechanism",
		"heuristic",
		"empirical",
		"theoretical",
		"quantitative",
		"qualitative",
		"correlation",
		"derivation",
		"abstraction",
		"formalism",
		"equilibrium",
		"stochastic",
		"deterministic",
		"hypothesis",
		"synthesis",
		"implementation",
		"specification",
		"constraint",
		"trade-off",
		"scalability",
		"topology",
		"isomorphism",
		"eigenvalue",
		"kinetics",
		"thermodynamic",
		"catalysis",
		"jurisprudence",
		"epistemology",
		"ontology",
		"hermeneutic",
		"macroeconomic",
		"pathophysiology",
		"pharmacokinetics",
	}
)

// ExpertPolicy is the content-difficulty heuristic applied to expert level
// flashcards. It is a keyword check, not a semantic evaluator.
type ExpertPolicy struct {
	Banned              []string
	Vocabulary          []string
	MinExpertTerms      int
	MinDefinitionLength int
}

// DefaultExpertPolicy returns the policy with the built-in word lists.
func DefaultExpertPolicy() ExpertPolicy {
	return ExpertPolicy{
		Banned:              bannedSimpleVocabulary,
		Vocabulary:          expertVocabulary,
		MinExpertTerms:      DefaultMinExpertTerms,
		MinDefinitionLength: DefaultMinDefinitionLength,
	}
}

// AppliesTo reports whether req is subject to the expert policy.
func AppliesTo(req domain.GenerationRequest) bool {
	return req.Kind == domain.KindFlashcards && req.Level == domain.LevelExpert
}

// Satisfied reports whether every card passes the policy. An empty set is
// never satisfied.
func (p ExpertPolicy) Satisfied(cards []domain.Flashcard) bool {
	if len(cards) == 0 {
		return false
	}
	for _, card := range cards {
		if !p.Passes(card) {
			return false
		}
	}
	return true
}

// Passes checks a single card: no banned phrase anywhere in term and
// definition, at least MinExpertTerms distinct vocabulary hits and a
// definition longer than MinDefinitionLength characters.
func (p ExpertPolicy) Passes(card domain.Flashcard) bool {
	text := strings.ToLower(card.Term + " " + card.Definition)
	for _, banned := range p.Banned {
		if strings.Contains(text, banned) {
			return false
		}
	}
	if utf8.RuneCountInString(card.Definition) <= p.MinDefinitionLength {
		return false
	}

	hits := 0
	for _, word := range p.Vocabulary {
		if strings.Contains(text, word) {
			hits++
			if hits >= p.MinExpertTerms {
				return true
			}
		}
	}
	return false
}
