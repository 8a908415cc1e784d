package models

// Violation severities. These map onto rule severities as
// critical→error, major→warning, minor→info.
const (
	ViolationCritical = "critical"
	ViolationMajor    = "major"
	ViolationMinor    = "minor"
)

// Violation type constants.
const (
	ViolationNameChanged      = "name_changed"
	ViolationReferenceRemoved = "reference_removed"
	ViolationContextLost      = "context_lost"
)

// CulturalViolation is a single preservation failure found in a translation.
// Violations are data, not errors: a bad translation never raises an
// exception, it accumulates violations.
type CulturalViolation struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	EntityID    string `json:"entity_id,omitempty"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// Enhancement suggestion priorities.
const (
	SuggestionHigh   = "high"
	SuggestionMedium = "medium"
	SuggestionLow    = "low"
)

// EnhancementSuggestion is a non-blocking improvement a translator should
// consider, such as adding cultural context the source carried implicitly.
type EnhancementSuggestion struct {
	Priority    string `json:"priority"`
	EntityID    string `json:"entity_id,omitempty"`
	Description string `json:"description"`
}

// TrinityValidation reports how well the founder trio survived translation.
type TrinityValidation struct {
	AllMembersPreserved  bool `json:"all_members_preserved"`
	ConnectionsPreserved bool `json:"connections_preserved"`
	FoundingStoryIntact  bool `json:"founding_story_intact"`
}

// KevinValidation reports how the mascot's protected aspects survived.
type KevinValidation struct {
	NamePreserved                 bool `json:"name_preserved"`
	CulturalSignificancePreserved bool `json:"cultural_significance_preserved"`
	MemeConnectionMaintained      bool `json:"meme_connection_maintained"`
	OriginHistoryIntact           bool `json:"origin_history_intact"`
}

// CulturalValidationResult is the full outcome of validating one
// (source, translation) pair.
type CulturalValidationResult struct {
	IsValid bool `json:"is_valid"` // No critical violations

	// PreservationScore is 0-100: starts at 100, critical -30, major -15,
	// minor -5, +10 narrative/title bonus, clamped.
	PreservationScore float64 `json:"preservation_score"`

	Violations  []CulturalViolation     `json:"violations,omitempty"`
	Suggestions []EnhancementSuggestion `json:"suggestions,omitempty"`

	Trinity TrinityValidation `json:"trinity_validation"`
	Kevin   KevinValidation   `json:"kevin_validation"`
}

// Preservation report health classifications.
const (
	HealthExcellent      = "excellent"
	HealthGood           = "good"
	HealthNeedsAttention = "needs_attention"
	HealthCritical       = "critical"
)

// PreservationReport aggregates validation results across many translations.
type PreservationReport struct {
	ResultCount        int      `json:"result_count"`
	AverageScore       float64  `json:"average_score"`
	CriticalViolations int      `json:"critical_violations"`
	TopSuggestions     []string `json:"top_suggestions,omitempty"`
	OverallHealth      string   `json:"overall_health"`
}
