package subtitles

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	emojiPattern      = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}\x{24C2}-\x{1F251}]+`)
	disallowedPattern = regexp.MustCompile(`[^A-Za-z0-9\s.,?!-]`)
)

// CleanText reduces caption text to the characters the overlay renders
// reliably: ASCII letters and digits, whitespace and . , ? ! -. Accented
// letters are folded to their base letter, emoji are removed and runs of
// whitespace collapse to a single space.
func CleanText(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}
	folded = emojiPattern.ReplaceAllString(folded, "")
	folded = disallowedPattern.ReplaceAllString(folded, "")
	return strings.Join(strings.Fields(folded), " ")
}
