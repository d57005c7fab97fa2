// Package certificate generates certificate codes and renders certificate images.
// Everything here is a pure function of its inputs: no database, no clock, no
// process-wide random state.
package certificate

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	CodePrefix   = "BRZ"
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixLength = 4
)

var codePattern = regexp.MustCompile(`^BRZ-[A-Z]{3}-\d{6}-\d{4,}-[0-9A-Z]{4}$`)

// RandSource supplies the random suffix. *math/rand/v2.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return mrand.Intn(n)
	}
	return int(v.Int64())
}

// CryptoSource draws suffix characters from crypto/rand.
func CryptoSource() RandSource {
	return cryptoSource{}
}

// GenerateCode builds BRZ-<PRG>-<YYYYMM>-<id, 4+ digits>-<4 base36 chars>.
// The prefix up to the id is deterministic; the suffix only makes sequential
// ids unguessable. Uniqueness across different ids comes from the id itself.
func GenerateCode(registrationID uint, programID string, at time.Time, rnd RandSource) string {
	if rnd == nil {
		rnd = CryptoSource()
	}
	suffix := make([]byte, suffixLength)
	for i := range suffix {
		suffix[i] = codeAlphabet[rnd.IntN(len(codeAlphabet))]
	}
	return fmt.Sprintf("%s-%s-%s-%04d-%s", CodePrefix, ProgramPrefix(programID), at.Format("200601"), registrationID, suffix)
}

// ProgramPrefix is the first three ASCII letters of programID, uppercased and
// padded with X.
func ProgramPrefix(programID string) string {
	var b strings.Builder
	for _, r := range programID {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 3 {
				break
			}
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return b.String()
}

// NormalizeCode trims and uppercases a user-supplied code and reports whether it
// has the shape GenerateCode produces.
func NormalizeCode(code string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	return normalized, codePattern.MatchString(normalized)
}
