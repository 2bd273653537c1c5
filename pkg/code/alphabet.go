// Package code implements the compact human-writable code format printed on
// QR labels: Crockford base32 symbols, a Luhn mod 32 check symbol, and the
// canonical NS-CODE-CHECK layout.
package code

import (
	"errors"
	"strings"
)

// Alphabet is the Crockford base32 symbol set. I, L, O and U are excluded to
// avoid visual confusion and accidental words.
const Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Base is the alphabet size.
const Base = 32

var ErrInvalidSymbol = errors.New("symbol not in alphabet")

// symbolIndex maps an already-uppercased byte to its alphabet index, or -1.
var symbolIndex [256]int

func init() {
	for i := range symbolIndex {
		symbolIndex[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		symbolIndex[Alphabet[i]] = i
	}
}

// Encode renders value in base 32, left-padded with '0' to width symbols.
// A width of 0 produces the minimal representation.
func Encode(value uint64, width int) string {
	var buf [13]byte // 13 symbols cover the full uint64 range
	i := len(buf)
	for {
		i--
		buf[i] = Alphabet[value%Base]
		value /= Base
		if value == 0 {
			break
		}
	}
	s := string(buf[i:])
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// Decode parses a string of alphabet symbols back into an integer. Input is
// case-folded to uppercase first; any character outside the alphabet yields
// ErrInvalidSymbol.
func Decode(s string) (uint64, error) {
	if s == "" {
		return 0, ErrInvalidSymbol
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		idx := indexOf(s[i])
		if idx < 0 {
			return 0, ErrInvalidSymbol
		}
		v = v*Base + uint64(idx)
	}
	return v, nil
}

// indexOf returns the alphabet index of c after case folding, or -1.
func indexOf(c byte) int {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return symbolIndex[c]
}

// IsSymbol reports whether c is a valid alphabet symbol after case folding.
func IsSymbol(c byte) bool {
	return indexOf(c) >= 0
}

// fold uppercases s and verifies every byte is an alphabet symbol.
func fold(s string) (string, error) {
	up := strings.ToUpper(s)
	for i := 0; i < len(up); i++ {
		if symbolIndex[up[i]] < 0 {
			return "", ErrInvalidSymbol
		}
	}
	return up, nil
}
