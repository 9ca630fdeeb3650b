package textutil

import "math"

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return math.Min(1, dot/(a.norm*b.norm))
}

// Similarity compares two strings directly.
func Similarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}

// ScaleScore maps a similarity in [0,1] onto the integer range [lo,hi].
func ScaleScore(similarity float64, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	if math.IsNaN(similarity) || similarity <= 0 {
		return lo
	}
	if similarity >= 1 {
		return hi
	}
	return lo + int(math.Round(similarity*float64(hi-lo)))
}
