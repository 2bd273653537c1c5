package code

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

const (
	// NamespaceLen is the symbol count of a namespace prefix (32^3 = 32,768).
	NamespaceLen = 3
	// BodyLen is the symbol count of an item code (32^5 = 33,554,432 per namespace).
	BodyLen = 5
	// CheckLen is the single trailing check symbol.
	CheckLen = 1

	totalLen = NamespaceLen + BodyLen + CheckLen
)

var (
	ErrInvalidFormat   = errors.New("code does not match NS-CODE-CHECK format")
	ErrInvalidChecksum = errors.New("check symbol does not match code body")
)

// Code is a fully validated label code split into its three parts. All parts
// are uppercase alphabet symbols.
type Code struct {
	Namespace string // 3 symbols
	Body      string // 5 symbols
	Check     byte
}

// String renders the canonical NS-CODE-CHECK form, e.g. "K3D-7K3QF-X".
func (c Code) String() string {
	return fmt.Sprintf("%s-%s-%c", c.Namespace, c.Body, c.Check)
}

// Normalize turns raw scanner or keyboard input into a validated Code.
// Separators and whitespace are stripped and case is folded before the nine
// symbols are checked, so "k3d 7k3qf x" and "K3D-7K3QF-X" are the same code.
func Normalize(raw string) (Code, error) {
	var b strings.Builder
	b.Grow(totalLen)
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch ch {
		case '-', '_', ' ', '\t', '.', '/':
			continue
		}
		idx := indexOf(ch)
		if idx < 0 {
			return Code{}, ErrInvalidFormat
		}
		b.WriteByte(Alphabet[idx])
	}
	s := b.String()
	if len(s) != totalLen {
		return Code{}, ErrInvalidFormat
	}

	c := Code{
		Namespace: s[:NamespaceLen],
		Body:      s[NamespaceLen : NamespaceLen+BodyLen],
		Check:     s[totalLen-1],
	}
	if !Verify(c.Namespace+c.Body, c.Check) {
		return Code{}, ErrInvalidChecksum
	}
	return c, nil
}

// New builds a Code from a namespace prefix and body, computing the check
// symbol over their concatenation.
func New(namespace, body string) (Code, error) {
	ns, err := fold(namespace)
	if err != nil || len(ns) != NamespaceLen {
		return Code{}, ErrInvalidFormat
	}
	bd, err := fold(body)
	if err != nil || len(bd) != BodyLen {
		return Code{}, ErrInvalidFormat
	}
	check, err := Checksum(ns + bd)
	if err != nil {
		return Code{}, err
	}
	return Code{Namespace: ns, Body: bd, Check: check}, nil
}

// RandomBody returns n uniformly random alphabet symbols from crypto/rand.
func RandomBody(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = Alphabet[int(b)%Base]
	}
	return string(buf), nil
}
