// Package shortcode generates the short codes used to address shortened URLs.
package shortcode

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the Base62 alphabet: digits, then upper-case, then lower-case letters.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const base = uint64(len(Alphabet))

// maxEncodedLen is the length of math.MaxUint64 in Base62.
const maxEncodedLen = 11

var (
	ErrInvalidCharacter = errors.New("invalid base62 character")
	ErrOverflow         = errors.New("base62 value overflows uint64")
)

// Encode returns the shortest Base62 representation of n. Encode(0) is "0".
func Encode(n uint64) string {
	if n == 0 {
		return string(Alphabet[0])
	}

	var buf [maxEncodedLen]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = Alphabet[n%base]
		n /= base
	}

	return string(buf[i:])
}

// Decode is the inverse of Encode.
func Decode(s string) (uint64, error) {
	const op = "shortcode.Decode"

	if s == "" {
		return 0, fmt.Errorf("%s: empty input: %w", op, ErrInvalidCharacter)
	}

	var n uint64
	for _, r := range s {
		idx := strings.IndexRune(Alphabet, r)
		if idx < 0 {
			return 0, fmt.Errorf("%s: %q: %w", op, r, ErrInvalidCharacter)
		}

		if n > (^uint64(0)-uint64(idx))/base {
			return 0, fmt.Errorf("%s: %w", op, ErrOverflow)
		}
		n = n*base + uint64(idx)
	}

	return n, nil
}
