// Package licensekey generates and recognizes CallTrack Pro license keys.
//
// Keys look like CTP-XXXX-XXXX-XXXX. The alphabet leaves out 0, O, 1 and I.
package licensekey

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	Prefix     = "CTP"
	Alphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	GroupSize  = 4
	GroupCount = 3
	// Length is len("CTP-XXXX-XXXX-XXXX").
	Length = len(Prefix) + GroupCount*(GroupSize+1)
)

var keyFormat = regexp.MustCompile(`^CTP(-[` + Alphabet + `]{4}){3}$`)

// Generate returns a fresh key. Uniqueness is left to the store's unique
// constraint on the key column.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(Length)
	b.WriteString(Prefix)

	alphabetSize := big.NewInt(int64(len(Alphabet)))
	for g := 0; g < GroupCount; g++ {
		b.WriteByte('-')
		for i := 0; i < GroupSize; i++ {
			n, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				return "", fmt.Errorf("read random index: %w", err)
			}
			b.WriteByte(Alphabet[n.Int64()])
		}
	}

	return b.String(), nil
}

// Valid reports whether key has the CTP-XXXX-XXXX-XXXX shape.
func Valid(key string) bool {
	return keyFormat.MatchString(key)
}

// Normalize trims surrounding whitespace and upper-cases a typed key.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
