package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bitcoin-stamps/translation-engine/pkg/database"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

// ValidationRuleRepository provides data access for validation rules.
type ValidationRuleRepository interface {
	// GetActive returns active rules applicable to the given target
	// language, ordered by rule name. Language filtering includes rules
	// with no language restriction. An empty language returns every
	// active rule regardless of scope.
	GetActive(ctx context.Context, language string) ([]*models.ValidationRule, error)

	// GetByName returns a rule by its unique name, or nil when absent.
	GetByName(ctx context.Context, ruleName string) (*models.ValidationRule, error)

	// Upsert inserts or replaces a rule keyed by rule_name.
	Upsert(ctx context.Context, rule *models.ValidationRule) error

	// SetActive toggles a rule on or off.
	SetActive(ctx context.Context, ruleName string, active bool) error
}

type validationRuleRepository struct {
	db *database.DB
}

// NewValidationRuleRepository creates a new ValidationRuleRepository.
func NewValidationRuleRepository(db *database.DB) ValidationRuleRepository {
	return &validationRuleRepository{db: db}
}

var _ ValidationRuleRepository = (*validationRuleRepository)(nil)

const ruleColumns = `
	id, rule_name, rule_type, source_pattern, target_pattern,
	validation_function, languages, severity, message_template,
	protects_entity, cultural_rationale, active`

func (r *validationRuleRepository) GetActive(ctx context.Context, language string) ([]*models.ValidationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM validation_rules
		WHERE active
		  AND ($1 = '' OR languages = '{}' OR $1 = ANY(languages))
		ORDER BY rule_name`

	rows, err := r.db.Query(ctx, query, language)
	if err != nil {
		return nil, fmt.Errorf("failed to get active validation rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.ValidationRule
	for rows.Next() {
		rule, err := scanValidationRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan validation rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating validation rules: %w", err)
	}

	return rules, nil
}

func (r *validationRuleRepository) GetByName(ctx context.Context, ruleName string) (*models.ValidationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM validation_rules
		WHERE rule_name = $1`

	row := r.db.QueryRow(ctx, query, ruleName)
	rule, err := scanValidationRule(row.Scan)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get validation rule: %w", err)
	}
	return rule, nil
}

func (r *validationRuleRepository) Upsert(ctx context.Context, rule *models.ValidationRule) error {
	query := `
		INSERT INTO validation_rules (
			rule_name, rule_type, source_pattern, target_pattern,
			validation_function, languages, severity, message_template,
			protects_entity, cultural_rationale, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (rule_name) DO UPDATE SET
			rule_type = EXCLUDED.rule_type,
			source_pattern = EXCLUDED.source_pattern,
			target_pattern = EXCLUDED.target_pattern,
			validation_function = EXCLUDED.validation_function,
			languages = EXCLUDED.languages,
			severity = EXCLUDED.severity,
			message_template = EXCLUDED.message_template,
			protects_entity = EXCLUDED.protects_entity,
			cultural_rationale = EXCLUDED.cultural_rationale,
			active = EXCLUDED.active
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		rule.RuleName,
		rule.RuleType,
		rule.SourcePattern,
		nullableString(rule.TargetPattern),
		rule.ValidationFunction,
		rule.Languages,
		rule.Severity,
		rule.MessageTemplate,
		nullableString(rule.ProtectsEntity),
		nullableString(rule.CulturalRationale),
		rule.Active,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert validation rule %s: %w", rule.RuleName, err)
	}
	return nil
}

func (r *validationRuleRepository) SetActive(ctx context.Context, ruleName string, active bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE validation_rules SET active = $2 WHERE rule_name = $1`,
		ruleName, active,
	)
	if err != nil {
		return fmt.Errorf("failed to update validation rule %s: %w", ruleName, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("validation rule not found: %s", ruleName)
	}
	return nil
}

func scanValidationRule(scan func(dest ...any) error) (*models.ValidationRule, error) {
	var rule models.ValidationRule
	var targetPattern, protectsEntity, rationale *string

	err := scan(
		&rule.ID,
		&rule.RuleName,
		&rule.RuleType,
		&rule.SourcePattern,
		&targetPattern,
		&rule.ValidationFunction,
		&rule.Languages,
		&rule.Severity,
		&rule.MessageTemplate,
		&protectsEntity,
		&rationale,
		&rule.Active,
	)
	if err != nil {
		return nil, err
	}

	if targetPattern != nil {
		rule.TargetPattern = *targetPattern
	}
	if protectsEntity != nil {
		rule.ProtectsEntity = *protectsEntity
	}
	if rationale != nil {
		rule.CulturalRationale = *rationale
	}

	return &rule, nil
}
