package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bitcoin-stamps/translation-engine/pkg/database"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

// fuzzyMatchLimit caps the number of candidates returned per lookup.
const fuzzyMatchLimit = 10

// TranslationMemoryRepository provides data access for translation memory.
type TranslationMemoryRepository interface {
	// AddTranslation inserts a new memory entry.
	AddTranslation(ctx context.Context, entry *models.TranslationMemoryEntry) error

	// GetByContextHash returns the entry for (hash, target language), or nil.
	GetByContextHash(ctx context.Context, contextHash, targetLanguage string) (*models.TranslationMemoryEntry, error)

	// FindFuzzyMatches returns exact matches (score 1.0) unioned with
	// trigram-similar candidates at or above threshold, ordered by score
	// desc then usage desc, capped at fuzzyMatchLimit.
	FindFuzzyMatches(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64) ([]*models.FuzzyMatchResult, error)

	// IncrementUsage bumps the usage counter for an entry.
	IncrementUsage(ctx context.Context, entryID uuid.UUID) error

	// UpdateValidation records a re-validation pass over an entry.
	UpdateValidation(ctx context.Context, entryID uuid.UUID, qualityScore float64, trinityPassed bool, notes string) error

	// GetStats returns aggregate per-language counts. An empty language
	// returns stats for all target languages.
	GetStats(ctx context.Context, language string) ([]*models.TranslationStats, error)

	// CountEntries returns the total number of memory entries.
	CountEntries(ctx context.Context) (int, error)

	// AverageQuality returns the mean quality score across all entries.
	AverageQuality(ctx context.Context) (float64, error)

	// ListRecent returns the most recently updated entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.TranslationMemoryEntry, error)
}

type translationMemoryRepository struct {
	db *database.DB
}

// NewTranslationMemoryRepository creates a new TranslationMemoryRepository.
func NewTranslationMemoryRepository(db *database.DB) TranslationMemoryRepository {
	return &translationMemoryRepository{db: db}
}

var _ TranslationMemoryRepository = (*translationMemoryRepository)(nil)

const memoryColumns = `
	id, source_text, source_language, target_text, target_language,
	context_hash, file_path, cultural_significance, quality_score,
	fuzzy_threshold, entity_references, cultural_context,
	trinity_validation_passed, kevin_significance, rare_pepe_connection,
	usage_count, validator_notes, created_at, updated_at, validated_at`

func (r *translationMemoryRepository) AddTranslation(ctx context.Context, entry *models.TranslationMemoryEntry) error {
	query := `
		INSERT INTO translation_memory (
			source_text, source_language, target_text, target_language,
			context_hash, file_path, cultural_significance, quality_score,
			fuzzy_threshold, entity_references, cultural_context,
			trinity_validation_passed, kevin_significance, rare_pepe_connection,
			usage_count, validator_notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		RETURNING id, created_at, updated_at`

	culturalContext, err := jsonbValue(entry.CulturalContext)
	if err != nil {
		return fmt.Errorf("failed to encode cultural context: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRow(ctx, query,
		entry.SourceText,
		entry.SourceLanguage,
		entry.TargetText,
		entry.TargetLanguage,
		entry.ContextHash,
		entry.FilePath,
		entry.CulturalSignificance,
		entry.QualityScore,
		entry.FuzzyThreshold,
		entry.EntityReferences,
		culturalContext,
		entry.TrinityValidationPassed,
		entry.KevinSignificance,
		entry.RarePepeConnection,
		entry.UsageCount,
		entry.ValidatorNotes,
		now,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add translation: %w", err)
	}

	return nil
}

func (r *translationMemoryRepository) GetByContextHash(ctx context.Context, contextHash, targetLanguage string) (*models.TranslationMemoryEntry, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM translation_memory
		WHERE context_hash = $1 AND target_language = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, contextHash, targetLanguage)
	entry, err := scanMemoryEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry by context hash: %w", err)
	}
	return entry, nil
}

func (r *translationMemoryRepository) FindFuzzyMatches(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64) ([]*models.FuzzyMatchResult, error) {
	// Exact matches score 1.0; fuzzy candidates are scored with pg_trgm
	// similarity and pre-filtered at the threshold.
	query := `
		SELECT ` + memoryColumns + `, 1.0::float8 AS match_score
		FROM translation_memory
		WHERE source_text = $1 AND source_language = $2 AND target_language = $3
		UNION ALL
		SELECT ` + memoryColumns + `, similarity(source_text, $1)::float8 AS match_score
		FROM translation_memory
		WHERE source_text <> $1
		  AND source_language = $2
		  AND target_language = $3
		  AND similarity(source_text, $1) >= $4
		ORDER BY match_score DESC, usage_count DESC
		LIMIT $5`

	rows, err := r.db.Query(ctx, query, sourceText, sourceLang, targetLang, threshold, fuzzyMatchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to find fuzzy matches: %w", err)
	}
	defer rows.Close()

	var results []*models.FuzzyMatchResult
	for rows.Next() {
		entry, score, err := scanMemoryEntryWithScore(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, &models.FuzzyMatchResult{Entry: entry, MatchScore: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fuzzy matches: %w", err)
	}

	return results, nil
}

func (r *translationMemoryRepository) IncrementUsage(ctx context.Context, entryID uuid.UUID) error {
	query := `
		UPDATE translation_memory
		SET usage_count = usage_count + 1, updated_at = $2
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, entryID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("translation memory entry not found")
	}
	return nil
}

func (r *translationMemoryRepository) UpdateValidation(ctx context.Context, entryID uuid.UUID, qualityScore float64, trinityPassed bool, notes string) error {
	now := time.Now()
	query := `
		UPDATE translation_memory
		SET quality_score = $2,
		    trinity_validation_passed = $3,
		    validator_notes = $4,
		    validated_at = $5,
		    updated_at = $5
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, entryID, qualityScore, trinityPassed, notes, now)
	if err != nil {
		return fmt.Errorf("failed to update validation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("translation memory entry not found")
	}
	return nil
}

func (r *translationMemoryRepository) GetStats(ctx context.Context, language string) ([]*models.TranslationStats, error) {
	query := `
		SELECT target_language,
		       COUNT(*) AS total_entries,
		       COALESCE(AVG(quality_score), 0) AS avg_quality,
		       COUNT(*) FILTER (WHERE kevin_significance <> 'none') AS kevin_related,
		       COUNT(*) FILTER (WHERE trinity_validation_passed) AS trinity_validated,
		       COUNT(*) FILTER (WHERE rare_pepe_connection) AS meme_preserved,
		       COUNT(*) FILTER (WHERE cultural_significance = 'high') AS high_significance,
		       COUNT(*) FILTER (WHERE validated_at IS NOT NULL) AS validated_entries
		FROM translation_memory
		WHERE ($1 = '' OR target_language = $1)
		GROUP BY target_language
		ORDER BY target_language`

	rows, err := r.db.Query(ctx, query, language)
	if err != nil {
		return nil, fmt.Errorf("failed to get translation stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.TranslationStats
	for rows.Next() {
		var s models.TranslationStats
		if err := rows.Scan(
			&s.Language,
			&s.TotalEntries,
			&s.AvgQualityScore,
			&s.KevinRelated,
			&s.TrinityValidated,
			&s.MemePreserved,
			&s.HighSignificance,
			&s.ValidatedEntries,
		); err != nil {
			return nil, fmt.Errorf("failed to scan translation stats: %w", err)
		}
		stats = append(stats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating translation stats: %w", err)
	}

	return stats, nil
}

func (r *translationMemoryRepository) CountEntries(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM translation_memory`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memory entries: %w", err)
	}
	return count, nil
}

func (r *translationMemoryRepository) AverageQuality(ctx context.Context) (float64, error) {
	var avg float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(AVG(quality_score), 0) FROM translation_memory`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to compute average quality: %w", err)
	}
	return avg, nil
}

func (r *translationMemoryRepository) ListRecent(ctx context.Context, limit int) ([]*models.TranslationMemoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + memoryColumns + `
		FROM translation_memory
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.TranslationMemoryEntry
	for rows.Next() {
		entry, err := scanMemoryEntryFromRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memory entries: %w", err)
	}

	return entries, nil
}

// Helper functions

func scanMemoryFields(scan func(dest ...any) error, extra ...any) (*models.TranslationMemoryEntry, error) {
	var e models.TranslationMemoryEntry
	var culturalContext []byte
	var validatorNotes *string

	dest := []any{
		&e.ID,
		&e.SourceText,
		&e.SourceLanguage,
		&e.TargetText,
		&e.TargetLanguage,
		&e.ContextHash,
		&e.FilePath,
		&e.CulturalSignificance,
		&e.QualityScore,
		&e.FuzzyThreshold,
		&e.EntityReferences,
		&culturalContext,
		&e.TrinityValidationPassed,
		&e.KevinSignificance,
		&e.RarePepeConnection,
		&e.UsageCount,
		&validatorNotes,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.ValidatedAt,
	}
	dest = append(dest, extra...)

	if err := scan(dest...); err != nil {
		return nil, err
	}

	if validatorNotes != nil {
		e.ValidatorNotes = *validatorNotes
	}
	if len(culturalContext) > 0 && string(culturalContext) != "null" {
		if err := json.Unmarshal(culturalContext, &e.CulturalContext); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cultural_context: %w", err)
		}
	}

	return &e, nil
}

func scanMemoryEntry(row pgx.Row) (*models.TranslationMemoryEntry, error) {
	entry, err := scanMemoryFields(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan memory entry: %w", err)
	}
	return entry, nil
}

func scanMemoryEntryFromRows(rows pgx.Rows) (*models.TranslationMemoryEntry, error) {
	entry, err := scanMemoryFields(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan memory entry: %w", err)
	}
	return entry, nil
}

func scanMemoryEntryWithScore(rows pgx.Rows) (*models.TranslationMemoryEntry, float64, error) {
	var score float64
	entry, err := scanMemoryFields(rows.Scan, &score)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan fuzzy match: %w", err)
	}
	return entry, score, nil
}

// jsonbValue converts a map to JSONB bytes for database insertion.
func jsonbValue(v map[string]any) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}
