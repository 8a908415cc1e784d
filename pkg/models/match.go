package models

import "github.com/google/uuid"

// Recommended actions for fuzzy match candidates.
const (
	MatchActionUse    = "use"    // High overall score and cultural relevance
	MatchActionReview = "review" // Usable with translator review
	MatchActionReject = "reject" // Too dissimilar to reuse
)

// FuzzyMatchResult is a raw translation-memory candidate returned by the
// store: a stored entry plus its string-similarity score against the query.
type FuzzyMatchResult struct {
	Entry      *TranslationMemoryEntry `json:"entry"`
	MatchScore float64                 `json:"match_score"` // 1.0 for exact matches
}

// EnhancedMatchResult is a fully scored, explainable suggestion produced by
// the fuzzy matcher.
type EnhancedMatchResult struct {
	EntryID        uuid.UUID `json:"entry_id"`
	SourceText     string    `json:"source_text"`
	TargetText     string    `json:"target_text"`
	TargetLanguage string    `json:"target_language"`

	MatchScore        float64 `json:"match_score"`        // String-edit similarity, 0-1
	ContextSimilarity float64 `json:"context_similarity"` // File/content-type affinity, 0-1
	CulturalRelevance float64 `json:"cultural_relevance"` // Entity overlap, 0-1

	// OverallScore = match*0.4 + context*0.3 + cultural*0.3.
	OverallScore float64 `json:"overall_score"`

	RecommendedAction string   `json:"recommended_action"`
	CulturalNotes     []string `json:"cultural_notes,omitempty"`
}

// ClassifyMatchAction maps the weighted scores to a recommended action.
// Pure function of (overallScore, culturalRelevance).
func ClassifyMatchAction(overallScore, culturalRelevance float64) string {
	switch {
	case overallScore >= 0.90 && culturalRelevance >= 0.80:
		return MatchActionUse
	case overallScore >= 0.70 || culturalRelevance >= 0.70:
		return MatchActionReview
	default:
		return MatchActionReject
	}
}
