package transcribe

import (
	"fmt"
	"regexp"
	"strings"
)

var punctRe = regexp.MustCompile(`[.,!?;:\-]+`)

// MeaningfulText reports whether a transcription contains actual speech
// content. Punctuation-only output is rejected, as is a segment longer
// than two seconds that produced at most two words: those are almost
// always music, noise or breathing that the model hallucinated over.
func MeaningfulText(text string, durationSec float64) bool {
	stripped := punctRe.ReplaceAllString(strings.TrimSpace(text), " ")

	words := strings.Fields(stripped)
	if len(words) == 0 {
		return false
	}
	if durationSec > 2 && len(words) <= 2 {
		return false
	}
	return true
}

// foreignRanges are the script ranges rejected from the dataset: CJK,
// Kana, Hangul and Cyrillic.
var foreignRanges = [][2]rune{
	{0x3040, 0x30FF}, // Hiragana and Katakana
	{0x4E00, 0x9FFF}, // CJK Unified Ideographs
	{0xAC00, 0xD7AF}, // Hangul Syllables
	{0x0400, 0x04FF}, // Cyrillic
	{0x0500, 0x052F}, // Cyrillic Supplement
}

// ContainsForeignScript reports whether the text contains characters from
// any of the rejected script ranges.
func ContainsForeignScript(text string) bool {
	for _, r := range text {
		for _, rng := range foreignRanges {
			if r >= rng[0] && r <= rng[1] {
				return true
			}
		}
	}
	return false
}

// Accept applies the full acceptance policy to a transcription result.
// It returns false with a human-readable reason when the chunk should be
// dropped from the dataset.
func Accept(res Result, expectedLanguage string) (bool, string) {
	if !MeaningfulText(res.Text, res.DurationSec) {
		return false, "empty or meaningless text"
	}
	if res.Language == "" {
		return false, "language detection failed"
	}
	if expectedLanguage != "" && res.Language != strings.ToLower(expectedLanguage) {
		return false, fmt.Sprintf("unexpected language: %s", res.Language)
	}
	if ContainsForeignScript(res.Text) {
		return false, "contains foreign script characters"
	}
	return true, ""
}
