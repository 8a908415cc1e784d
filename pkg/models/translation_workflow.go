package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Workflow Status
// ============================================================================

// WorkflowStatus represents the translation state of a workflow.
// State machine:
//
//	pending → in_progress → review → approved
//	                           ↓
//	                        rejected
//
//	review can also return to in_progress (revision requested).
type WorkflowStatus string

const (
	WorkflowStatusPending    WorkflowStatus = "pending"
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusReview     WorkflowStatus = "review"
	WorkflowStatusApproved   WorkflowStatus = "approved"
	WorkflowStatusRejected   WorkflowStatus = "rejected"
)

// ValidWorkflowStatuses contains all valid status values.
var ValidWorkflowStatuses = []WorkflowStatus{
	WorkflowStatusPending,
	WorkflowStatusInProgress,
	WorkflowStatusReview,
	WorkflowStatusApproved,
	WorkflowStatusRejected,
}

// IsValidWorkflowStatus checks if the given status is valid.
func IsValidWorkflowStatus(s WorkflowStatus) bool {
	for _, v := range ValidWorkflowStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowStatusApproved || s == WorkflowStatusRejected
}

// CanTransitionTo returns true if transitioning from this status to the
// target is valid.
func (s WorkflowStatus) CanTransitionTo(target WorkflowStatus) bool {
	switch s {
	case WorkflowStatusPending:
		return target == WorkflowStatusInProgress
	case WorkflowStatusInProgress:
		return target == WorkflowStatusReview
	case WorkflowStatusReview:
		return target == WorkflowStatusApproved ||
			target == WorkflowStatusRejected ||
			target == WorkflowStatusInProgress
	case WorkflowStatusApproved, WorkflowStatusRejected:
		return false // Terminal states
	default:
		return false
	}
}

// ============================================================================
// Workflow Priority / Cultural Review
// ============================================================================

// Workflow priority constants. Distinct from cultural priority tiers: a
// critical-priority change produces an urgent workflow.
const (
	WorkflowPriorityLow    = "low"
	WorkflowPriorityMedium = "medium"
	WorkflowPriorityHigh   = "high"
	WorkflowPriorityUrgent = "urgent"
)

// Cultural review status constants.
const (
	CulturalReviewPending       = "pending"
	CulturalReviewApproved      = "approved"
	CulturalReviewNeedsRevision = "needs_revision"
)

// WorkflowPriorityForChange maps a change's cultural priority tier to the
// workflow priority of the workflows it spawns.
func WorkflowPriorityForChange(culturalPriority string) string {
	switch culturalPriority {
	case PriorityCritical:
		return WorkflowPriorityUrgent
	case PriorityHigh:
		return WorkflowPriorityHigh
	case PriorityMedium:
		return WorkflowPriorityMedium
	default:
		return WorkflowPriorityLow
	}
}

// ============================================================================
// Workflow Model
// ============================================================================

// TranslationWorkflow is one (change, target language) unit of translation
// work. Stored in translation_workflows table.
type TranslationWorkflow struct {
	ID             uuid.UUID      `json:"id"`
	ChangeID       uuid.UUID      `json:"change_id"`
	SourceLanguage string         `json:"source_language"`
	TargetLanguage string         `json:"target_language"`
	Status         WorkflowStatus `json:"status"`
	Priority       string         `json:"priority"`

	TotalSegments      int `json:"total_segments"`
	TranslatedSegments int `json:"translated_segments"`
	ValidatedSegments  int `json:"validated_segments"`

	// ProgressPercentage is derived: validated/total * 100 when total > 0.
	ProgressPercentage float64 `json:"progress_percentage"`

	// CulturalReviewRequired is true whenever the owning change's priority
	// is high or critical.
	CulturalReviewRequired bool   `json:"cultural_review_required"`
	CulturalReviewer       string `json:"cultural_reviewer,omitempty"`
	CulturalReviewStatus   string `json:"cultural_review_status"`
	CulturalReviewNotes    string `json:"cultural_review_notes,omitempty"`

	AutoTranslationUsed bool `json:"auto_translation_used"`
	HumanReviewRequired bool `json:"human_review_required"`

	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// Progress recomputes the progress percentage from the segment counters.
// Returns 0 when there are no segments yet.
func (w *TranslationWorkflow) Progress() float64 {
	if w.TotalSegments <= 0 {
		return 0
	}
	return float64(w.ValidatedSegments) / float64(w.TotalSegments) * 100
}

// CulturalValidationItem is one row of the cultural validation queue: a
// workflow awaiting cultural review joined with its change's file context.
type CulturalValidationItem struct {
	WorkflowID       uuid.UUID      `json:"workflow_id"`
	ChangeID         uuid.UUID      `json:"change_id"`
	FilePath         string         `json:"file_path"`
	TargetLanguage   string         `json:"target_language"`
	Priority         string         `json:"priority"`
	CulturalPriority string         `json:"cultural_priority"`
	Status           WorkflowStatus `json:"status"`
	AffectsKevin     bool           `json:"affects_kevin"`
	AffectsTrinity   bool           `json:"affects_trinity"`
	CreatedAt        time.Time      `json:"created_at"`
}
