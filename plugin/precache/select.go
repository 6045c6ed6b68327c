// Package precache warms the audio cache for cards that are likely to be played soon.
package precache

import (
	"github.com/hrygo/flashdeck/store"
)

// DefaultWindow is the number of upcoming cards warmed ahead of the learner.
const DefaultWindow = 5

// SelectCandidates returns the first window cards of upcoming followed by every starred
// card, in collection order, without duplicates. Unknown ids are ignored.
func SelectCandidates(cards []*store.Card, upcoming []string, window int) []*store.Card {
	if window <= 0 {
		window = DefaultWindow
	}

	byID := make(map[string]*store.Card, len(cards))
	for _, card := range cards {
		byID[card.ID] = card
	}

	seen := make(map[string]bool)
	var candidates []*store.Card
	for _, id := range upcoming {
		if len(candidates) == window {
			break
		}
		card, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		candidates = append(candidates, card)
	}
	for _, card := range cards {
		if card.Starred && !seen[card.ID] {
			seen[card.ID] = true
			candidates = append(candidates, card)
		}
	}
	return candidates
}
