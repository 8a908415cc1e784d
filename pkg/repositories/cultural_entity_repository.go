package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bitcoin-stamps/translation-engine/pkg/database"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

// CulturalEntityRepository provides data access for protected cultural
// entities.
type CulturalEntityRepository interface {
	// Get returns an entity by its well-known ID, or nil when absent.
	Get(ctx context.Context, entityID string) (*models.CulturalEntity, error)

	// List returns all entities ordered by ID.
	List(ctx context.Context) ([]*models.CulturalEntity, error)

	// Upsert inserts or replaces an entity's definition. Mention counters
	// survive re-seeding.
	Upsert(ctx context.Context, entity *models.CulturalEntity) error

	// IncrementMentionCount atomically bumps the mention counter and stamps
	// last_mentioned_at.
	IncrementMentionCount(ctx context.Context, entityID string, delta int) error
}

type culturalEntityRepository struct {
	db *database.DB
}

// NewCulturalEntityRepository creates a new CulturalEntityRepository.
func NewCulturalEntityRepository(db *database.DB) CulturalEntityRepository {
	return &culturalEntityRepository{db: db}
}

var _ CulturalEntityRepository = (*culturalEntityRepository)(nil)

const entityColumns = `
	entity_id, name, entity_type, cultural_significance, preserve_name,
	requires_context, translation_guidelines, aliases, key_phrases,
	mention_count, last_mentioned_at, trinity_member, meme_connection,
	founding_story`

func (r *culturalEntityRepository) Get(ctx context.Context, entityID string) (*models.CulturalEntity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM cultural_entities
		WHERE entity_id = $1`

	row := r.db.QueryRow(ctx, query, entityID)
	entity, err := scanCulturalEntity(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cultural entity: %w", err)
	}
	return entity, nil
}

func (r *culturalEntityRepository) List(ctx context.Context) ([]*models.CulturalEntity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM cultural_entities
		ORDER BY entity_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cultural entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.CulturalEntity
	for rows.Next() {
		entity, err := scanCulturalEntity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cultural entity: %w", err)
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cultural entities: %w", err)
	}

	return entities, nil
}

func (r *culturalEntityRepository) Upsert(ctx context.Context, entity *models.CulturalEntity) error {
	query := `
		INSERT INTO cultural_entities (
			entity_id, name, entity_type, cultural_significance, preserve_name,
			requires_context, translation_guidelines, aliases, key_phrases,
			trinity_member, meme_connection, founding_story
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (entity_id) DO UPDATE SET
			name = EXCLUDED.name,
			entity_type = EXCLUDED.entity_type,
			cultural_significance = EXCLUDED.cultural_significance,
			preserve_name = EXCLUDED.preserve_name,
			requires_context = EXCLUDED.requires_context,
			translation_guidelines = EXCLUDED.translation_guidelines,
			aliases = EXCLUDED.aliases,
			key_phrases = EXCLUDED.key_phrases,
			trinity_member = EXCLUDED.trinity_member,
			meme_connection = EXCLUDED.meme_connection,
			founding_story = EXCLUDED.founding_story`

	_, err := r.db.Exec(ctx, query,
		entity.EntityID,
		entity.Name,
		entity.EntityType,
		entity.CulturalSignificance,
		entity.PreserveName,
		entity.RequiresContext,
		nullableString(entity.TranslationGuidelines),
		entity.Aliases,
		entity.KeyPhrases,
		entity.TrinityMember,
		entity.MemeConnection,
		entity.FoundingStory,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cultural entity %s: %w", entity.EntityID, err)
	}
	return nil
}

func (r *culturalEntityRepository) IncrementMentionCount(ctx context.Context, entityID string, delta int) error {
	query := `
		UPDATE cultural_entities
		SET mention_count = mention_count + $2,
		    last_mentioned_at = $3
		WHERE entity_id = $1`

	result, err := r.db.Exec(ctx, query, entityID, delta, time.Now())
	if err != nil {
		return fmt.Errorf("failed to increment mention count for %s: %w", entityID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("cultural entity not found: %s", entityID)
	}
	return nil
}

func scanCulturalEntity(scan func(dest ...any) error) (*models.CulturalEntity, error) {
	var e models.CulturalEntity
	var guidelines *string

	err := scan(
		&e.EntityID,
		&e.Name,
		&e.EntityType,
		&e.CulturalSignificance,
		&e.PreserveName,
		&e.RequiresContext,
		&guidelines,
		&e.Aliases,
		&e.KeyPhrases,
		&e.MentionCount,
		&e.LastMentionedAt,
		&e.TrinityMember,
		&e.MemeConnection,
		&e.FoundingStory,
	)
	if err != nil {
		return nil, err
	}

	if guidelines != nil {
		e.TranslationGuidelines = *guidelines
	}

	return &e, nil
}
