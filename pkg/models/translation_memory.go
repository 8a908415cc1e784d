package models

import (
	"time"

	"github.com/google/uuid"
)

// Cultural significance tiers for translation memory entries.
const (
	SignificanceHigh   = "high"
	SignificanceMedium = "medium"
	SignificanceLow    = "low"
)

// KEVIN significance values. KEVIN is the Bitcoin Stamps mascot and its name
// is protected: always uppercase, never translated.
const (
	KevinSignificanceNone    = "none"    // Entry does not reference KEVIN
	KevinSignificanceMention = "mention" // KEVIN appears in passing
	KevinSignificanceCentral = "central" // Entry is about KEVIN
)

// TranslationMemoryEntry is a stored (source, target) text pair.
// Memory is append-only: entries are created when a translator supplies a
// translation and updated on re-validation, never hard-deleted.
// Stored in translation_memory table.
type TranslationMemoryEntry struct {
	ID             uuid.UUID `json:"id"`
	SourceText     string    `json:"source_text"`
	SourceLanguage string    `json:"source_language"`
	TargetText     string    `json:"target_text"`
	TargetLanguage string    `json:"target_language"`

	// ContextHash is derived from the text plus surrounding context and file
	// path. (source_text, context_hash, target_language) is effectively
	// unique; duplicate detection is best-effort via this hash.
	ContextHash string `json:"context_hash"`
	FilePath    string `json:"file_path"`

	CulturalSignificance string  `json:"cultural_significance"`
	QualityScore         float64 `json:"quality_score"`   // 0-1
	FuzzyThreshold       float64 `json:"fuzzy_threshold"` // Minimum similarity for fuzzy reuse

	// EntityReferences lists cultural entity IDs detected in the source text.
	EntityReferences []string       `json:"entity_references,omitempty"`
	CulturalContext  map[string]any `json:"cultural_context,omitempty"`

	TrinityValidationPassed bool   `json:"trinity_validation_passed"`
	KevinSignificance       string `json:"kevin_significance"`
	RarePepeConnection      bool   `json:"rare_pepe_connection"`

	UsageCount     int        `json:"usage_count"`
	ValidatorNotes string     `json:"validator_notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ValidatedAt    *time.Time `json:"validated_at,omitempty"`
}

// TranslationStats aggregates per-language memory counts including the
// cultural-specific counters surfaced on the stats endpoint.
type TranslationStats struct {
	Language         string  `json:"language"`
	TotalEntries     int     `json:"total_entries"`
	AvgQualityScore  float64 `json:"avg_quality_score"`
	KevinRelated     int     `json:"kevin_related"`
	TrinityValidated int     `json:"trinity_validated"`
	MemePreserved    int     `json:"meme_preserved"`
	HighSignificance int     `json:"high_significance"`
	ValidatedEntries int     `json:"validated_entries"`
}
