// Package matching ranks candidate contacts for manual matching.
package matching

import (
	"math"
	"sort"

	"check-review-gateway/internal/models"
)

type Bucket string

const (
	BucketHigh   Bucket = "high"
	BucketMedium Bucket = "medium"
	BucketLow    Bucket = "low"
)

const (
	HighConfidence   = 0.8
	MediumConfidence = 0.5
)

// Candidate is a contact prepared for display in the match picker.
type Candidate struct {
	models.Contact
	Bucket  Bucket `json:"bucket"`
	Percent int    `json:"percent"`
}

// Classify buckets a 0..1 confidence score.
func Classify(confidence float64) Bucket {
	switch {
	case confidence >= HighConfidence:
		return BucketHigh
	case confidence >= MediumConfidence:
		return BucketMedium
	default:
		return BucketLow
	}
}

// Percent renders a confidence score as a whole percentage.
func Percent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// Rank orders contacts by descending confidence, keeping upstream order for
// ties, and annotates each with its bucket.
func Rank(contacts []models.Contact) []Candidate {
	candidates := make([]Candidate, 0, len(contacts))
	for _, c := range contacts {
		candidates = append(candidates, Candidate{
			Contact: c,
			Bucket:  Classify(c.Confidence),
			Percent: Percent(c.Confidence),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}
