package text

import (
	"context"
	"strings"
)

// Detector is the pluggable scoring model. Input is normalized text; output
// is a score per category in [0, 1].
type Detector interface {
	Score(ctx context.Context, normalized string) (map[string]float64, error)
}

// KeywordDetector scores text by term-list hits per category. It is the
// built-in detector for development and as a cheap first pass ahead of a
// model-backed Detector; a category's score is the fraction of its terms
// present, boosted so a single hit is already significant.
type KeywordDetector struct {
	terms map[string][]string
}

// NewKeywordDetector creates a detector over per-category term lists.
// Terms are matched against normalized text, so they should be lowercase
// alphanumeric.
func NewKeywordDetector(terms map[string][]string) *KeywordDetector {
	return &KeywordDetector{terms: terms}
}

func (d *KeywordDetector) Score(_ context.Context, normalized string) (map[string]float64, error) {
	padded := " " + normalized + " "
	scores := make(map[string]float64, len(d.terms))
	for category, list := range d.terms {
		if len(list) == 0 {
			continue
		}
		hits := 0
		for _, term := range list {
			if strings.Contains(padded, " "+term+" ") {
				hits++
			}
		}
		if hits == 0 {
			scores[category] = 0
			continue
		}
		// One hit scores 0.6; full coverage saturates at 1.0.
		score := 0.6 + 0.4*float64(hits)/float64(len(list))
		if score > 1 {
			score = 1
		}
		scores[category] = score
	}
	return scores, nil
}
