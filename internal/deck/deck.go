// Package deck builds the doubled, shuffled sequence of cards a memory game
// is dealt from.
package deck

import (
	rand "math/rand/v2"

	"github.com/lox/memorymatch/internal/card"
)

// Deck is an ordered sequence of card definitions in which every name
// appears exactly twice.
type Deck []card.Definition

// Build validates defs, duplicates every definition and shuffles the result.
// defs is never modified.
func Build(defs []card.Definition, rng *rand.Rand) (Deck, error) {
	if err := card.Validate(defs); err != nil {
		return nil, err
	}

	d := make(Deck, 0, 2*len(defs))
	d = append(d, defs...)
	d = append(d, defs...)

	Shuffle(d, rng)
	return d, nil
}

// Shuffle randomizes the order of the deck in place using Fisher-Yates
func Shuffle(d Deck, rng *rand.Rand) {
	for i := len(d) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d[i], d[j] = d[j], d[i]
	}
}

// Len returns the number of tiles the deck deals
func (d Deck) Len() int {
	return len(d)
}

// Pairs returns the number of pairs in the deck
func (d Deck) Pairs() int {
	return len(d) / 2
}

// Names returns the card names in deck order
func (d Deck) Names() []string {
	names := make([]string, len(d))
	for i, def := range d {
		names[i] = def.Name
	}
	return names
}

// Counts returns how many times each name appears
func (d Deck) Counts() map[string]int {
	counts := make(map[string]int, d.Pairs())
	for _, def := range d {
		counts[def.Name]++
	}
	return counts
}
