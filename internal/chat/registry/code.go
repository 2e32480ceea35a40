package registry

import (
	"crypto/rand"
	"strings"
)

// Codes look like FRD-234-567: a three-letter origin prefix plus six digits.
// 0 and 1 are excluded from the alphabet so codes stay unambiguous when read
// aloud or typed.
const codeDigits = "23456789"

func prefixFor(kind Kind) string {
	if kind == KindRandom {
		return "RND"
	}
	return "FRD"
}

func generateCode(kind Kind) string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}

	var b strings.Builder
	b.WriteString(prefixFor(kind))
	for i, r := range buf {
		if i%3 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(codeDigits[int(r)%len(codeDigits)])
	}
	return b.String()
}
