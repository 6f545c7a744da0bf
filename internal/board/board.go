package board

import (
	"fmt"

	"go-pairs/internal/config"
)

// Card is one tile on the board. Cards are created in pairs and never change
// for the life of a game.
type Card struct {
	Position int
	Symbol   string
}

// Source is the randomness used to shuffle a board. *math/rand.Rand
// satisfies it.
type Source interface {
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// Generate takes the first pairCount symbols of the pool, duplicates them and
// shuffles the result. Positions are assigned 0..2*pairCount-1.
func Generate(pairCount int, symbols []string, src Source) ([]Card, error) {
	if pairCount < 1 {
		return nil, fmt.Errorf("%w: pair count %d must be positive", config.ErrConfiguration, pairCount)
	}
	if pairCount > len(symbols) {
		return nil, fmt.Errorf("%w: pair count %d exceeds symbol pool of %d", config.ErrConfiguration, pairCount, len(symbols))
	}

	deck := make([]string, 0, pairCount*2)
	deck = append(deck, symbols[:pairCount]...)
	deck = append(deck, symbols[:pairCount]...)

	// Fisher-Yates
	for i := len(deck) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}

	cards := make([]Card, len(deck))
	for i, symbol := range deck {
		cards[i] = Card{Position: i, Symbol: symbol}
	}
	return cards, nil
}
