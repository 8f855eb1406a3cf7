package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NanoidGenerator draws every character independently using go-nanoid
// over the Base62 alphabet.
type NanoidGenerator struct{}

func NewNanoidGenerator() NanoidGenerator {
	return NanoidGenerator{}
}

func (NanoidGenerator) Generate(length int) (string, error) {
	const op = "shortcode.NanoidGenerator.Generate"

	if length <= 0 {
		return "", fmt.Errorf("%s: %d: %w", op, length, ErrInvalidLength)
	}

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

const (
	StrategyBase62 = "base62"
	StrategyNanoid = "nanoid"
)

// Generator produces candidate short codes of a given length.
type Generator interface {
	Generate(length int) (string, error)
}

// New returns the generator for the named strategy.
func New(strategy string) (Generator, error) {
	switch strategy {
	case "", StrategyBase62:
		return NewBase62Generator(), nil
	case StrategyNanoid:
		return NewNanoidGenerator(), nil
	default:
		return nil, fmt.Errorf("shortcode.New: unknown strategy %q", strategy)
	}
}
