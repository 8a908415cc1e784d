package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bitcoin-stamps/translation-engine/pkg/database"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

// WorkflowRepository provides data access for translation workflows.
type WorkflowRepository interface {
	// Create inserts a workflow. Creation is idempotent on
	// (change_id, target_language): re-running workflow creation for a
	// change after a crash loads the existing row instead of duplicating.
	Create(ctx context.Context, workflow *models.TranslationWorkflow) error

	// GetByID returns a workflow by ID, or nil when absent.
	GetByID(ctx context.Context, workflowID uuid.UUID) (*models.TranslationWorkflow, error)

	// GetActive returns non-terminal workflows ordered by priority desc,
	// created-time asc.
	GetActive(ctx context.Context) ([]*models.TranslationWorkflow, error)

	// GetByChange returns all workflows spawned by a change.
	GetByChange(ctx context.Context, changeID uuid.UUID) ([]*models.TranslationWorkflow, error)

	// List returns workflows filtered by status and/or target language,
	// newest first, with limit/offset pagination. Empty filters match all.
	List(ctx context.Context, status models.WorkflowStatus, targetLanguage string, limit, offset int) ([]*models.TranslationWorkflow, error)

	// UpdateStatus sets a workflow's status. Terminal statuses stamp
	// completed_at.
	UpdateStatus(ctx context.Context, workflowID uuid.UUID, status models.WorkflowStatus) error

	// UpdateProgress sets the segment counters and recomputed progress.
	UpdateProgress(ctx context.Context, workflowID uuid.UUID, total, translated, validated int) error

	// UpdateCulturalReview records a cultural reviewer's verdict.
	UpdateCulturalReview(ctx context.Context, workflowID uuid.UUID, reviewer, status, notes string) error

	// GetCulturalValidationQueue returns workflows awaiting cultural review
	// joined with their change's file context, highest priority first.
	GetCulturalValidationQueue(ctx context.Context) ([]*models.CulturalValidationItem, error)

	// CountActive returns the number of non-terminal workflows.
	CountActive(ctx context.Context) (int, error)
}

type workflowRepository struct {
	db *database.DB
}

// NewWorkflowRepository creates a new WorkflowRepository.
func NewWorkflowRepository(db *database.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

var _ WorkflowRepository = (*workflowRepository)(nil)

const workflowColumns = `
	id, change_id, source_language, target_language, status, priority,
	total_segments, translated_segments, validated_segments, progress_percentage,
	cultural_review_required, cultural_reviewer, cultural_review_status,
	cultural_review_notes, auto_translation_used, human_review_required,
	estimated_completion, created_at, updated_at, completed_at`

func (r *workflowRepository) Create(ctx context.Context, workflow *models.TranslationWorkflow) error {
	query := `
		INSERT INTO translation_workflows (
			change_id, source_language, target_language, status, priority,
			total_segments, translated_segments, validated_segments, progress_percentage,
			cultural_review_required, cultural_reviewer, cultural_review_status,
			cultural_review_notes, auto_translation_used, human_review_required,
			estimated_completion, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		ON CONFLICT (change_id, target_language) DO NOTHING
		RETURNING id, created_at`

	now := time.Now()
	err := r.db.QueryRow(ctx, query,
		workflow.ChangeID,
		workflow.SourceLanguage,
		workflow.TargetLanguage,
		workflow.Status,
		workflow.Priority,
		workflow.TotalSegments,
		workflow.TranslatedSegments,
		workflow.ValidatedSegments,
		workflow.ProgressPercentage,
		workflow.CulturalReviewRequired,
		nullableString(workflow.CulturalReviewer),
		workflow.CulturalReviewStatus,
		nullableString(workflow.CulturalReviewNotes),
		workflow.AutoTranslationUsed,
		workflow.HumanReviewRequired,
		workflow.EstimatedCompletion,
		now,
	).Scan(&workflow.ID, &workflow.CreatedAt)
	if err == pgx.ErrNoRows {
		// Conflict: a workflow for this (change, language) already exists.
		return r.loadExisting(ctx, workflow)
	}
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	return nil
}

// loadExisting fills workflow from the row that won the conflict.
func (r *workflowRepository) loadExisting(ctx context.Context, workflow *models.TranslationWorkflow) error {
	query := `
		SELECT ` + workflowColumns + `
		FROM translation_workflows
		WHERE change_id = $1 AND target_language = $2`

	row := r.db.QueryRow(ctx, query, workflow.ChangeID, workflow.TargetLanguage)
	existing, err := scanWorkflow(row.Scan)
	if err != nil {
		return fmt.Errorf("failed to load existing workflow: %w", err)
	}
	*workflow = *existing
	return nil
}

func (r *workflowRepository) GetByID(ctx context.Context, workflowID uuid.UUID) (*models.TranslationWorkflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM translation_workflows
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, workflowID)
	workflow, err := scanWorkflow(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return workflow, nil
}

func (r *workflowRepository) GetActive(ctx context.Context) ([]*models.TranslationWorkflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM translation_workflows
		WHERE status NOT IN ('approved', 'rejected')
		ORDER BY CASE priority
			WHEN 'urgent' THEN 4
			WHEN 'high' THEN 3
			WHEN 'medium' THEN 2
			ELSE 1
		END DESC, created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active workflows: %w", err)
	}
	defer rows.Close()

	return collectWorkflows(rows)
}

func (r *workflowRepository) GetByChange(ctx context.Context, changeID uuid.UUID) ([]*models.TranslationWorkflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM translation_workflows
		WHERE change_id = $1
		ORDER BY target_language`

	rows, err := r.db.Query(ctx, query, changeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflows by change: %w", err)
	}
	defer rows.Close()

	return collectWorkflows(rows)
}

func (r *workflowRepository) List(ctx context.Context, status models.WorkflowStatus, targetLanguage string, limit, offset int) ([]*models.TranslationWorkflow, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + workflowColumns + `
		FROM translation_workflows
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR target_language = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.Query(ctx, query, string(status), targetLanguage, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	return collectWorkflows(rows)
}

func (r *workflowRepository) UpdateStatus(ctx context.Context, workflowID uuid.UUID, status models.WorkflowStatus) error {
	now := time.Now()
	query := `
		UPDATE translation_workflows
		SET status = $2,
		    updated_at = $3,
		    completed_at = CASE WHEN $2 IN ('approved', 'rejected') THEN $3 ELSE completed_at END
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, workflowID, status, now)
	if err != nil {
		return fmt.Errorf("failed to update workflow status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found")
	}
	return nil
}

func (r *workflowRepository) UpdateProgress(ctx context.Context, workflowID uuid.UUID, total, translated, validated int) error {
	progress := 0.0
	if total > 0 {
		progress = float64(validated) / float64(total) * 100
	}

	query := `
		UPDATE translation_workflows
		SET total_segments = $2,
		    translated_segments = $3,
		    validated_segments = $4,
		    progress_percentage = $5,
		    updated_at = $6
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, workflowID, total, translated, validated, progress, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update workflow progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found")
	}
	return nil
}

func (r *workflowRepository) UpdateCulturalReview(ctx context.Context, workflowID uuid.UUID, reviewer, status, notes string) error {
	query := `
		UPDATE translation_workflows
		SET cultural_reviewer = $2,
		    cultural_review_status = $3,
		    cultural_review_notes = $4,
		    updated_at = $5
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, workflowID, nullableString(reviewer), status, nullableString(notes), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update cultural review: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found")
	}
	return nil
}

func (r *workflowRepository) GetCulturalValidationQueue(ctx context.Context) ([]*models.CulturalValidationItem, error) {
	query := `
		SELECT w.id, w.change_id, c.file_path, w.target_language, w.priority,
		       c.cultural_priority, w.status, c.affects_kevin, c.affects_trinity,
		       w.created_at
		FROM translation_workflows w
		JOIN content_changes c ON c.id = w.change_id
		WHERE w.cultural_review_required
		  AND w.cultural_review_status = 'pending'
		  AND w.status NOT IN ('approved', 'rejected')
		ORDER BY CASE w.priority
			WHEN 'urgent' THEN 4
			WHEN 'high' THEN 3
			WHEN 'medium' THEN 2
			ELSE 1
		END DESC, w.created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get cultural validation queue: %w", err)
	}
	defer rows.Close()

	var items []*models.CulturalValidationItem
	for rows.Next() {
		var item models.CulturalValidationItem
		if err := rows.Scan(
			&item.WorkflowID,
			&item.ChangeID,
			&item.FilePath,
			&item.TargetLanguage,
			&item.Priority,
			&item.CulturalPriority,
			&item.Status,
			&item.AffectsKevin,
			&item.AffectsTrinity,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan validation queue item: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating validation queue: %w", err)
	}

	return items, nil
}

func (r *workflowRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM translation_workflows WHERE status NOT IN ('approved', 'rejected')`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active workflows: %w", err)
	}
	return count, nil
}

// Helper functions

func collectWorkflows(rows pgx.Rows) ([]*models.TranslationWorkflow, error) {
	var workflows []*models.TranslationWorkflow
	for rows.Next() {
		workflow, err := scanWorkflow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func scanWorkflow(scan func(dest ...any) error) (*models.TranslationWorkflow, error) {
	var w models.TranslationWorkflow
	var reviewer, notes *string

	err := scan(
		&w.ID,
		&w.ChangeID,
		&w.SourceLanguage,
		&w.TargetLanguage,
		&w.Status,
		&w.Priority,
		&w.TotalSegments,
		&w.TranslatedSegments,
		&w.ValidatedSegments,
		&w.ProgressPercentage,
		&w.CulturalReviewRequired,
		&reviewer,
		&w.CulturalReviewStatus,
		&notes,
		&w.AutoTranslationUsed,
		&w.HumanReviewRequired,
		&w.EstimatedCompletion,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if reviewer != nil {
		w.CulturalReviewer = *reviewer
	}
	if notes != nil {
		w.CulturalReviewNotes = *notes
	}

	return &w, nil
}
