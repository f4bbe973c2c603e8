package classifier

import (
	"npdetector/internal/models"
	"npdetector/internal/schema"
)

// ScanText returns, for every category, the text nodes that match its
// pattern. Matches are raw and may repeat; categories without a match map
// to an empty slice.
func ScanText(texts []string, patterns schema.PatternMap) models.TextMatchBucket {
	out := make(models.TextMatchBucket, len(patterns))
	for _, p := range patterns {
		matches := []string{}
		for _, t := range texts {
			if p.Re.MatchString(t) {
				matches = append(matches, t)
			}
		}
		out[p.Name] = matches
	}
	return out
}
