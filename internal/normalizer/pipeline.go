package normalizer

import "flashgen/internal/domain"

// Process runs Normalize, Parse and Validate over a raw completion.
func Process(raw string, kind domain.OutputKind, itemCount int) (*domain.ItemSet, error) {
	parsed, err := Parse(Normalize(raw), kind)
	if err != nil {
		return nil, err
	}
	return Validate(parsed, kind, itemCount)
}
