// Package parser extracts a yes/no label and a confidence percentage from free
// form model text.
//
// The rule is deliberately naive: the first whole-word "yes" or "no" decides
// the label and the first number followed by "%" decides the confidence.
// Earlier runs were produced with exactly this rule, so it must not be made
// smarter without breaking reproducibility.
//
// Matching is Unicode aware: a word boundary is any rune that is not a
// letter, number or underscore, confidence digits may come from any script
// and any Unicode space may precede the "%". So "éyes" holds no label and
// "yes ٨٠%" reads as Yes at 80.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/bdougie/videojudge/internal/models"
)

var (
	labelPattern      = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(yes|no)(?:$|[^\p{L}\p{N}_])`)
	confidencePattern = regexp.MustCompile(`(\p{Nd}+(?:\.\p{Nd}+)?)[\s\p{Z}\x{1c}-\x{1f}\x{85}]*%`)
)

// Parse returns the label and confidence found in text. Missing values
// degrade to models.LabelUnknown and models.NoConfidence.
func Parse(text string) (models.Label, float64) {
	return parseLabel(text), parseConfidence(text)
}

func parseLabel(text string) models.Label {
	m := labelPattern.FindStringSubmatch(text)
	if m == nil {
		return models.LabelUnknown
	}
	if strings.EqualFold(m[1], "yes") {
		return models.LabelYes
	}
	return models.LabelNo
}

func parseConfidence(text string) float64 {
	m := confidencePattern.FindStringSubmatch(text)
	if m == nil {
		return models.NoConfidence
	}
	v, err := strconv.ParseFloat(asciiDigits(m[1]), 64)
	if err != nil {
		return models.NoConfidence
	}
	return v
}

// asciiDigits rewrites decimal digits of any script as 0-9. Every Unicode
// decimal digit run is made of whole 0-9 sequences, so a digit's value is its
// offset from the start of its run modulo 10.
func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.IsDigit(r) {
			return r
		}
		start := r
		for unicode.IsDigit(start - 1) {
			start--
		}
		return '0' + (r-start)%10
	}, s)
}
