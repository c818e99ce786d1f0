package simulation

import (
	"strings"

	"github.com/sourcelens/audit-cli/internal/model"
)

// evidenceWindow is the number of characters kept on each side of a match.
const evidenceWindow = 50

// matchSignal evaluates one expected signal against the content preview.
// Exact substring matches win with confidence 1.0. Otherwise, with fuzzy
// matching enabled, confidence is the fraction of the signal's words found
// anywhere in the preview.
func matchSignal(signal, preview string, fuzzy bool, threshold float64) model.SignalMatch {
	m := model.SignalMatch{Signal: signal}
	lowerPreview := strings.ToLower(preview)
	lowerSignal := strings.ToLower(signal)

	if idx := strings.Index(lowerPreview, lowerSignal); idx >= 0 {
		m.Found = true
		m.Confidence = 1.0
		m.Evidence = snippet(preview, idx, len(signal))
		return m
	}

	if !fuzzy {
		return m
	}

	words := strings.Fields(lowerSignal)
	if len(words) == 0 {
		return m
	}
	matched := 0
	firstIdx := -1
	firstLen := 0
	for _, w := range words {
		if idx := strings.Index(lowerPreview, w); idx >= 0 {
			matched++
			if firstIdx < 0 {
				firstIdx = idx
				firstLen = len(w)
			}
		}
	}
	m.Confidence = float64(matched) / float64(len(words))
	if m.Confidence >= threshold {
		m.Found = true
		m.Evidence = snippet(preview, firstIdx, firstLen)
	}
	return m
}

// snippet returns the matched text with up to evidenceWindow characters of
// surrounding context on each side.
func snippet(content string, idx, length int) string {
	start := idx - evidenceWindow
	if start < 0 {
		start = 0
	}
	end := idx + length + evidenceWindow
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}
