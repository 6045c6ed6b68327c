package precache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/flashdeck/store"
)

func ids(cards []*store.Card) []string {
	out := make([]string, 0, len(cards))
	for _, card := range cards {
		out = append(out, card.ID)
	}
	return out
}

func TestSelectCandidates(t *testing.T) {
	var cards []*store.Card
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		cards = append(cards, &store.Card{ID: id, Term: "term " + id})
	}
	cards[1].Starred = true // b
	cards[7].Starred = true // h

	tests := []struct {
		name     string
		upcoming []string
		window   int
		want     []string
	}{
		{
			name:     "window then starred",
			upcoming: []string{"c", "d", "e", "f", "g", "a"},
			window:   5,
			want:     []string{"c", "d", "e", "f", "g", "b", "h"},
		},
		{
			name:     "starred upcoming not repeated",
			upcoming: []string{"b", "c"},
			window:   5,
			want:     []string{"b", "c", "h"},
		},
		{
			name:     "unknown ids ignored",
			upcoming: []string{"zz", "a", "a"},
			window:   5,
			want:     []string{"a", "b", "h"},
		},
		{
			name:     "default window",
			upcoming: []string{"a", "c", "d", "e", "f", "g"},
			window:   0,
			want:     []string{"a", "c", "d", "e", "f", "b", "h"},
		},
		{
			name:     "no upcoming",
			upcoming: nil,
			window:   5,
			want:     []string{"b", "h"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(SelectCandidates(cards, tt.upcoming, tt.window)))
		})
	}
}
