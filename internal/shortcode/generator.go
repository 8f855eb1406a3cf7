package shortcode

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

var ErrInvalidLength = errors.New("short code length must be positive")

// Base62Generator builds codes from a Base62-encoded random number,
// padded or truncated to the requested length.
type Base62Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBase62Generator returns a generator seeded from the runtime's random source.
func NewBase62Generator() *Base62Generator {
	return NewSeededBase62Generator(rand.Uint64(), rand.Uint64())
}

// NewSeededBase62Generator returns a generator with deterministic output.
func NewSeededBase62Generator(seed1, seed2 uint64) *Base62Generator {
	return &Base62Generator{rnd: rand.New(rand.NewPCG(seed1, seed2))}
}

// Generate returns a code of exactly length characters from Alphabet.
//
// The leading characters come from Encode of a uniform uint64; shorter
// encodings are right-padded with uniformly drawn characters and longer
// ones keep only the leftmost length characters. Because of the
// truncation the first character is not uniformly distributed.
func (g *Base62Generator) Generate(length int) (string, error) {
	const op = "shortcode.Base62Generator.Generate"

	if length <= 0 {
		return "", fmt.Errorf("%s: %d: %w", op, length, ErrInvalidLength)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	code := Encode(g.rnd.Uint64())
	if len(code) >= length {
		return code[:length], nil
	}

	var b strings.Builder
	b.Grow(length)
	b.WriteString(code)
	for b.Len() < length {
		b.WriteByte(g.randomChar())
	}

	return b.String(), nil
}

func (g *Base62Generator) randomChar() byte {
	return Alphabet[g.rnd.IntN(len(Alphabet))]
}
