package roomcode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// DefaultWords is the number of words in a generated code.
const DefaultWords = 4

var wordLists = [][]string{places, instruments, weather, colors, moods, critters}

// Generate returns a memorable room code such as "amber-harbor-cello-otter".
// Each word comes from a different list, so n is capped at the number of
// lists.
func Generate(n int) string {
	if n <= 0 {
		n = DefaultWords
	}
	if n > len(wordLists) {
		n = len(wordLists)
	}

	// Partial Fisher-Yates over the list indices picks n distinct lists.
	order := make([]int, len(wordLists))
	for i := range order {
		order[i] = i
	}
	words := make([]string, n)
	for i := 0; i < n; i++ {
		j := i + randomIndex(len(order)-i)
		order[i], order[j] = order[j], order[i]
		list := wordLists[order[i]]
		words[i] = list[randomIndex(len(list))]
	}
	return strings.Join(words, "-")
}

// randomIndex returns a cryptographically secure random index in [0, max).
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic("roomcode: read random: " + err.Error())
	}
	return int(n.Int64())
}
