package normalize

import (
	"strings"
	"unicode"
)

// titleCase capitalizes the first letter of each word, replacing the
// deprecated strings.Title for the board-slug and host-derived company
// names this package builds.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
