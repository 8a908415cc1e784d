package models

import (
	"time"

	"github.com/google/uuid"
)

// Change type constants for detected content edits.
const (
	ChangeTypeCreated  = "created"
	ChangeTypeModified = "modified"
	ChangeTypeDeleted  = "deleted"
	ChangeTypeMoved    = "moved"
)

// Cultural priority tiers, computed from entity impact (see detector).
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Processing status constants for content changes.
const (
	ChangeStatusPending    = "pending"
	ChangeStatusProcessing = "processing"
	ChangeStatusCompleted  = "completed"
	ChangeStatusFailed     = "failed"
)

// ContentChange represents a detected file-level edit in a watched content
// directory. Stored in content_changes table. A change spawns one
// TranslationWorkflow per affected target language when RequiresRetranslation
// is set; the change itself transitions pending → processing → completed and
// remains as a processing log.
type ContentChange struct {
	ID         uuid.UUID `json:"id"`
	FilePath   string    `json:"file_path"`
	ChangeType string    `json:"change_type"`

	CommitHash string `json:"commit_hash,omitempty"`
	Branch     string `json:"branch,omitempty"`

	Summary       string `json:"summary,omitempty"`
	ContentBefore string `json:"content_before,omitempty"`
	ContentAfter  string `json:"content_after,omitempty"`
	DiffText      string `json:"diff_text,omitempty"`

	// Entity impact flags set by content analysis.
	AffectsKevin   bool `json:"affects_kevin"`
	AffectsTrinity bool `json:"affects_trinity"`
	AffectsPepe    bool `json:"affects_pepe"`

	// CulturalPriority is a deterministic function of the impact flags and
	// the significance of detected entity context windows.
	CulturalPriority string `json:"cultural_priority"`

	// TranslationPriority is a 0-100 score used to order workflows.
	TranslationPriority int `json:"translation_priority"`

	RequiresRetranslation bool     `json:"requires_retranslation"`
	AffectedLanguages     []string `json:"affected_languages,omitempty"`

	ProcessingStatus string     `json:"processing_status"`
	DetectedAt       time.Time  `json:"detected_at"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// ContentContext carries the surrounding context of a text being matched or
// validated: where it lives and what kind of content it is.
type ContentContext struct {
	FilePath    string   `json:"file_path"`
	ContentType string   `json:"content_type"` // title, paragraph, narrative, code
	EntityIDs   []string `json:"entity_ids,omitempty"`
}

// Content type classifications used by the matcher and validator.
const (
	ContentTypeTitle     = "title"
	ContentTypeParagraph = "paragraph"
	ContentTypeNarrative = "narrative"
	ContentTypeCode      = "code"
)

// TextSegment is one sentence-like unit produced by segmentation, keyed by a
// context hash for translation-memory dedup.
type TextSegment struct {
	Text        string   `json:"text"`
	ContextHash string   `json:"context_hash"`
	EntityIDs   []string `json:"entity_ids,omitempty"`
	Index       int      `json:"index"`
}

// CulturalContextWindow is a ±100 character window around an entity mention,
// tagged with the significance of the vocabulary it contains.
type CulturalContextWindow struct {
	EntityID     string `json:"entity_id"`
	Text         string `json:"text"`
	Significance string `json:"significance"` // high, medium, low
}
