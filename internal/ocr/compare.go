package ocr

import (
	"strings"
	"unicode/utf8"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// DefaultBrands are the manufacturer names matched by SuggestBrand when the
// caller supplies none.
var DefaultBrands = []string{
	"JMA", "TESA", "YALE", "MCM", "LINCE", "CISA", "ERREBI", "SILCA", "KEYLINE", "EZCURRA", "IFAM", "AZBE",
}

// minBrandScore is the similarity below which no brand is suggested.
const minBrandScore = 0.6

// Comparison scores extracted text against the expected text.
type Comparison struct {
	// CER is the Levenshtein distance divided by the expected length.
	CER float64
	// WER is the word error rate.
	WER float64
	// Similarity is 1 - CER, floored at 0.
	Similarity float64
}

// Normalize upper-cases s and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Compare scores extracted against expected after normalization.
func Compare(extracted, expected string) Comparison {
	got := Normalize(extracted)
	want := Normalize(expected)

	if want == "" {
		if got == "" {
			return Comparison{Similarity: 1}
		}
		return Comparison{CER: 1, WER: 1}
	}

	cer := float64(levenshtein.Distance(got, want)) / float64(utf8.RuneCountInString(want))
	werScore, _ := wer.WER(strings.Fields(want), strings.Fields(got))

	similarity := 1 - cer
	if similarity < 0 {
		similarity = 0
	}
	return Comparison{CER: cer, WER: werScore, Similarity: similarity}
}

// SuggestBrand finds the brand closest to any token of text. It returns
// ok=false when nothing scores at least 0.6.
func SuggestBrand(text string, brands []string) (brand string, score float64, ok bool) {
	if len(brands) == 0 {
		brands = DefaultBrands
	}
	normalized := Normalize(text)
	if normalized == "" {
		return "", 0, false
	}
	tokens := strings.Fields(normalized)

	for _, b := range brands {
		candidate := Normalize(b)
		if candidate == "" {
			continue
		}
		if containsWord(normalized, candidate) {
			return b, 1, true
		}
		for _, tok := range tokens {
			if s := similarity(tok, candidate); s > score {
				brand, score = b, s
			}
		}
	}
	if score < minBrandScore {
		return "", score, false
	}
	return brand, score, true
}

func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.Distance(a, b))/float64(longest)
}

func containsWord(text, word string) bool {
	return strings.Contains(" "+text+" ", " "+word+" ")
}
