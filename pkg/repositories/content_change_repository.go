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

// ContentChangeRepository provides data access for detected content changes.
type ContentChangeRepository interface {
	// Create inserts a new content change.
	Create(ctx context.Context, change *models.ContentChange) error

	// GetByID returns a single change by ID, or nil when absent.
	GetByID(ctx context.Context, changeID uuid.UUID) (*models.ContentChange, error)

	// GetPending returns changes awaiting processing, ordered by cultural
	// priority desc then detection time asc.
	GetPending(ctx context.Context) ([]*models.ContentChange, error)

	// UpdateStatus advances a change's processing status. Terminal statuses
	// also stamp processed_at.
	UpdateStatus(ctx context.Context, changeID uuid.UUID, status string) error

	// CountByStatus returns counts of changes grouped by processing status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type contentChangeRepository struct {
	db *database.DB
}

// NewContentChangeRepository creates a new ContentChangeRepository.
func NewContentChangeRepository(db *database.DB) ContentChangeRepository {
	return &contentChangeRepository{db: db}
}

var _ ContentChangeRepository = (*contentChangeRepository)(nil)

const changeColumns = `
	id, file_path, change_type, commit_hash, branch, summary,
	content_before, content_after, diff_text,
	affects_kevin, affects_trinity, affects_pepe,
	cultural_priority, translation_priority, requires_retranslation,
	affected_languages, processing_status, detected_at, processed_at`

func (r *contentChangeRepository) Create(ctx context.Context, change *models.ContentChange) error {
	query := `
		INSERT INTO content_changes (
			file_path, change_type, commit_hash, branch, summary,
			content_before, content_after, diff_text,
			affects_kevin, affects_trinity, affects_pepe,
			cultural_priority, translation_priority, requires_retranslation,
			affected_languages, processing_status, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, detected_at`

	now := time.Now()
	err := r.db.QueryRow(ctx, query,
		change.FilePath,
		change.ChangeType,
		nullableString(change.CommitHash),
		nullableString(change.Branch),
		nullableString(change.Summary),
		nullableString(change.ContentBefore),
		nullableString(change.ContentAfter),
		nullableString(change.DiffText),
		change.AffectsKevin,
		change.AffectsTrinity,
		change.AffectsPepe,
		change.CulturalPriority,
		change.TranslationPriority,
		change.RequiresRetranslation,
		change.AffectedLanguages,
		change.ProcessingStatus,
		now,
	).Scan(&change.ID, &change.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to create content change: %w", err)
	}

	return nil
}

func (r *contentChangeRepository) GetByID(ctx context.Context, changeID uuid.UUID) (*models.ContentChange, error) {
	query := `
		SELECT ` + changeColumns + `
		FROM content_changes
		WHERE id = $1`

	row := r.db.QueryRow(ctx, query, changeID)
	change, err := scanContentChange(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get content change: %w", err)
	}
	return change, nil
}

func (r *contentChangeRepository) GetPending(ctx context.Context) ([]*models.ContentChange, error) {
	query := `
		SELECT ` + changeColumns + `
		FROM content_changes
		WHERE processing_status = 'pending'
		ORDER BY CASE cultural_priority
			WHEN 'critical' THEN 4
			WHEN 'high' THEN 3
			WHEN 'medium' THEN 2
			ELSE 1
		END DESC, detected_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending changes: %w", err)
	}
	defer rows.Close()

	var changes []*models.ContentChange
	for rows.Next() {
		change, err := scanContentChange(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content change: %w", err)
		}
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content changes: %w", err)
	}

	return changes, nil
}

func (r *contentChangeRepository) UpdateStatus(ctx context.Context, changeID uuid.UUID, status string) error {
	query := `
		UPDATE content_changes
		SET processing_status = $2,
		    processed_at = CASE WHEN $2 IN ('completed', 'failed') THEN $3 ELSE processed_at END
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, changeID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update change status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("content change not found")
	}
	return nil
}

func (r *contentChangeRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT processing_status, COUNT(*) AS count
		FROM content_changes
		GROUP BY processing_status`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count content changes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return counts, nil
}

// Helper functions

func scanContentChange(scan func(dest ...any) error) (*models.ContentChange, error) {
	var c models.ContentChange
	var commitHash, branch, summary, before, after, diff *string

	err := scan(
		&c.ID,
		&c.FilePath,
		&c.ChangeType,
		&commitHash,
		&branch,
		&summary,
		&before,
		&after,
		&diff,
		&c.AffectsKevin,
		&c.AffectsTrinity,
		&c.AffectsPepe,
		&c.CulturalPriority,
		&c.TranslationPriority,
		&c.RequiresRetranslation,
		&c.AffectedLanguages,
		&c.ProcessingStatus,
		&c.DetectedAt,
		&c.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	if commitHash != nil {
		c.CommitHash = *commitHash
	}
	if branch != nil {
		c.Branch = *branch
	}
	if summary != nil {
		c.Summary = *summary
	}
	if before != nil {
		c.ContentBefore = *before
	}
	if after != nil {
		c.ContentAfter = *after
	}
	if diff != nil {
		c.DiffText = *diff
	}

	return &c, nil
}

// nullableString converts an empty string to nil for database insertion.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
