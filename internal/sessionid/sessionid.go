// Package sessionid generates time-sortable session identifiers.
//
// An ID is a UUIDv7 rendered as 26 characters of Crockford base32, so IDs
// sort lexically in creation order. That ordering is what the history
// exporter relies on when it writes transcripts.
package sessionid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/coder/quartz"
)

const (
	alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
	idLen    = 26
)

// Source supplies the random tail of an ID. *rand.Rand from math/rand/v2
// satisfies it; nil means crypto/rand.
type Source interface {
	Uint64() uint64
}

// Generator produces IDs from a clock and a random source.
type Generator struct {
	clock quartz.Clock
	src   Source
}

// NewGenerator returns a generator. A nil clock uses the real clock.
func NewGenerator(clock quartz.Clock, src Source) *Generator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Generator{clock: clock, src: src}
}

// New returns an ID using the real clock and crypto/rand.
func New() string {
	return NewGenerator(nil, nil).Next()
}

// Next returns a fresh ID.
func (g *Generator) Next() string {
	return encode(g.uuid())
}

func (g *Generator) uuid() [16]byte {
	var u [16]byte

	ms := uint64(g.clock.Now("sessionid").UnixMilli())
	// 48-bit big-endian millisecond timestamp.
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], ms)
	copy(u[:6], ts[2:])

	if g.src != nil {
		binary.BigEndian.PutUint16(u[6:8], uint16(g.src.Uint64()))
		binary.BigEndian.PutUint64(u[8:], g.src.Uint64())
	} else if _, err := rand.Read(u[6:]); err != nil {
		panic("sessionid: crypto/rand failed: " + err.Error())
	}

	u[6] = (u[6] & 0x0f) | 0x70 // version 7
	u[8] = (u[8] & 0x3f) | 0x80 // RFC 4122 variant
	return u
}

// encode renders the 128 bits as 26 base32 digits. The value is treated as
// 130 bits with two leading zero bits, so the first digit is always 0-7.
func encode(u [16]byte) string {
	var out [idLen]byte
	for i := range out {
		var v byte
		for k := 0; k < 5; k++ {
			pos := i*5 + k - 2
			v <<= 1
			if pos >= 0 {
				v |= (u[pos/8] >> (7 - pos%8)) & 1
			}
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Validate reports whether id is well formed.
func Validate(id string) error {
	if len(id) != idLen {
		return fmt.Errorf("session ID must be exactly %d characters, got %d", idLen, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("session ID first character must be 0-7, got %c", id[0])
	}
	for i, c := range id {
		if !strings.ContainsRune(alphabet, c) {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}
