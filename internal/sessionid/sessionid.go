// Package sessionid generates time-sortable identifiers for game sessions.
package sessionid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded ID
const Length = 26

// Generator creates session IDs
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a generator reading randomness from r. A nil reader
// uses crypto/rand.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// New returns a fresh session ID
func New() string {
	return NewGenerator(nil).New()
}

// New returns a UUIDv7 encoded as 26 base32 characters, so IDs sort by
// creation time.
func (g *Generator) New() string {
	var (
		id  uuid.UUID
		err error
	)
	if g.rand != nil {
		id, err = uuid.NewV7FromReader(g.rand)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("sessionid: generating uuid: " + err.Error())
	}
	return encode(id)
}

// encode writes the 128 bits as 26 five-bit groups, most significant first.
// The final group carries the last 3 bits padded with two zero bits.
func encode(data uuid.UUID) string {
	out := make([]byte, Length)
	for i := 0; i < Length; i++ {
		bit := i * 5
		b, off := bit/8, bit%8

		var v uint16
		v = uint16(data[b]) << 8
		if b+1 < len(data) {
			v |= uint16(data[b+1])
		}
		out[i] = alphabet[(v>>(11-off))&0x1f]
	}
	return string(out)
}

// Parse decodes an ID produced by New back into its UUID
func Parse(id string) (uuid.UUID, error) {
	var out uuid.UUID
	if err := Validate(id); err != nil {
		return out, err
	}

	var (
		acc  uint32
		bits uint
		n    int
	)
	for i := 0; i < len(id); i++ {
		acc = acc<<5 | uint32(strings.IndexByte(alphabet, id[i]))
		bits += 5
		if bits >= 8 {
			bits -= 8
			out[n] = byte(acc >> bits)
			n++
			acc &= 1<<bits - 1
		}
	}
	if acc != 0 {
		return uuid.UUID{}, fmt.Errorf("session ID has non-zero padding bits")
	}
	return out, nil
}

// Validate checks that id looks like something New produced
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("session ID must be exactly %d characters, got %d", Length, len(id))
	}
	for i, r := range id {
		if !strings.ContainsRune(alphabet, r) {
			return fmt.Errorf("invalid character %c at position %d", r, i)
		}
	}
	return nil
}
