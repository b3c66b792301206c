// Package gameid generates session identifiers: UUIDv7 payloads encoded as
// 26-character Crockford base32 strings. IDs are time-ordered, URL-safe and
// unambiguous when read aloud.
package gameid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// RandSource supplies the random tail of an id. Injected in tests for
// deterministic ids; nil means crypto/rand.
type RandSource interface {
	IntN(n int) int
}

// Generator produces session ids with a configurable randomness source.
type Generator struct {
	src RandSource
}

// NewGenerator returns a generator backed by src, or by crypto/rand when src
// is nil.
func NewGenerator(src RandSource) *Generator {
	return &Generator{src: src}
}

// Generate returns a new id using the package default generator.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate returns a fresh 26-character id.
func (g *Generator) Generate() string {
	return encode(g.uuidv7())
}

func (g *Generator) uuidv7() [16]byte {
	var u [16]byte

	// 48-bit millisecond timestamp, then random tail.
	now := time.Now().UnixMilli()
	for i := 0; i < 6; i++ {
		u[i] = byte(now >> (40 - 8*i))
	}

	if g.src != nil {
		for i := 6; i < 16; i++ {
			u[i] = byte(g.src.IntN(256))
		}
	} else {
		if _, err := rand.Read(u[6:]); err != nil {
			panic("gameid: crypto/rand failed: " + err.Error())
		}
	}

	u[6] = (u[6] & 0x0f) | 0x70 // version 7
	u[8] = (u[8] & 0x3f) | 0x80 // RFC 4122 variant

	return u
}

// encode packs 128 bits into 26 base32 characters, 5 bits per character,
// most significant bits first. Two zero bits are prepended so the 130 bits
// divide evenly, which also caps the first character at '7'.
func encode(u [16]byte) string {
	var b strings.Builder
	b.Grow(26)

	var acc uint64
	nbits := 2
	for _, octet := range u {
		acc = acc<<8 | uint64(octet)
		nbits += 8
		for nbits >= 5 {
			nbits -= 5
			b.WriteByte(alphabet[(acc>>nbits)&0x1f])
		}
	}

	return b.String()
}

// Validate reports whether id is a well-formed session id.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("session id must be 26 characters, got %d", len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("session id first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if !strings.ContainsRune(alphabet, rune(id[i])) {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
