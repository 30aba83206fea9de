// Package stats keeps running statistics over a dictation transcript.
package stats

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultConfidence is used for finalized results that carry no score.
const DefaultConfidence = 0.8

// TypingWPM is the typing speed dictation is compared against.
const TypingWPM = 40

// Aggregate holds transcript counts and the running confidence sum.
// Words and Chars are derived from the transcript; the confidence fields are
// accumulated per finalized result and cannot be recovered from text.
type Aggregate struct {
	Words           int
	Chars           int
	ConfidenceSum   float64
	ConfidenceCount int
}

// Observe records the confidence of one finalized result. When ok is false
// the engine supplied no score and DefaultConfidence is used.
func (a *Aggregate) Observe(confidence float64, ok bool) {
	if !ok {
		confidence = DefaultConfidence
	}
	a.ConfidenceSum += confidence
	a.ConfidenceCount++
}

// Recount recomputes word and character counts from the full transcript.
func (a *Aggregate) Recount(text string) {
	a.Words = WordCount(text)
	a.Chars = CharCount(text)
}

// Average returns the mean confidence in [0,1]. ok is false until at least
// one result has been observed.
func (a Aggregate) Average() (avg float64, ok bool) {
	if a.ConfidenceCount == 0 {
		return 0, false
	}
	return a.ConfidenceSum / float64(a.ConfidenceCount), true
}

// Reset clears counts and confidence.
func (a *Aggregate) Reset() {
	*a = Aggregate{}
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharCount returns the number of characters (runes) in text.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// WPM returns words per minute over elapsed, rounded. Zero elapsed yields 0.
func WPM(words int, elapsed time.Duration) int {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return int(math.Round(float64(words) / minutes))
}

// TimeSaved estimates the typing time avoided by dictating words.
func TimeSaved(words int) time.Duration {
	minutes := float64(words) / TypingWPM
	return time.Duration(minutes * float64(time.Minute))
}

// Band classifies an average confidence for display.
type Band int

const (
	BandPoor Band = iota
	BandFair
	BandGood
)

// BandFor returns the display band for an average confidence in [0,1].
func BandFor(avg float64) Band {
	switch {
	case avg >= 0.9:
		return BandGood
	case avg >= 0.7:
		return BandFair
	default:
		return BandPoor
	}
}
