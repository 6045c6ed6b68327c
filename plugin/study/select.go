package study

import (
	"time"

	"github.com/hrygo/flashdeck/plugin/review"
	"github.com/hrygo/flashdeck/store"
)

// CardFilter narrows the applicable cards further, for example with a user expression.
type CardFilter func(card *store.Card) bool

// SelectCardIDs returns the ids of the cards a mode applies to, in collection order.
func SelectCardIDs(cards []*store.Card, mode Mode, now time.Time, filter CardFilter) []string {
	ids := make([]string, 0, len(cards))
	for _, card := range cards {
		switch mode {
		case ModeStarred:
			if !card.Starred {
				continue
			}
		case ModeDue:
			if !review.IsDue(review.FromStore(card.Stats), now) {
				continue
			}
		}
		if filter != nil && !filter(card) {
			continue
		}
		ids = append(ids, card.ID)
	}
	return ids
}
