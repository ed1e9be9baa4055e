package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const shortIDLength = 10

func NewID() string {
	return uuid.New().String()
}

// NewName generates a short random identifier with the given prefix.
// Used as a last-resort handle for unique slug columns when nothing
// usable can be derived from the display name.
func NewName(prefix string) string {
	buf := make([]byte, shortIDLength)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	out := make([]byte, 0, len(prefix)+shortIDLength)
	out = append(out, prefix...)
	for _, b := range buf {
		out = append(out, shortIDAlphabet[int(b)%len(shortIDAlphabet)])
	}
	return string(out)
}
