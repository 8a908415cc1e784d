//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/testhelpers"
)

func newMemoryEntry(sourceText, targetLang, contextHash string) *models.TranslationMemoryEntry {
	return &models.TranslationMemoryEntry{
		SourceText:           sourceText,
		SourceLanguage:       "en",
		TargetText:           "übersetzter Text",
		TargetLanguage:       targetLang,
		ContextHash:          contextHash,
		FilePath:             "docs/en/guide/intro.md",
		CulturalSignificance: models.SignificanceLow,
		QualityScore:         0.8,
		FuzzyThreshold:       0.70,
		KevinSignificance:    models.KevinSignificanceNone,
	}
}

func newChange(t *testing.T, repo ContentChangeRepository, filePath string) *models.ContentChange {
	t.Helper()
	change := &models.ContentChange{
		FilePath:              filePath,
		ChangeType:            models.ChangeTypeModified,
		CulturalPriority:      models.PriorityHigh,
		TranslationPriority:   80,
		RequiresRetranslation: true,
		AffectedLanguages:     []string{"de", "fr"},
		ProcessingStatus:      models.ChangeStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), change))
	return change
}

func TestTranslationMemoryRoundTrip(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "translation_memory")
	repo := NewTranslationMemoryRepository(tdb.DB)
	ctx := context.Background()

	entry := newMemoryEntry("KEVIN is the first SRC-20 token", "de", "hash-roundtrip-1")
	entry.EntityReferences = []string{"kevin", "src20"}
	entry.CulturalContext = map[string]any{"content_type": models.ContentTypeNarrative}
	require.NoError(t, repo.AddTranslation(ctx, entry))
	require.NotEqual(t, uuid.Nil, entry.ID)

	got, err := repo.GetByContextHash(ctx, "hash-roundtrip-1", "de")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.SourceText, got.SourceText)
	assert.Equal(t, []string{"kevin", "src20"}, got.EntityReferences)
	assert.Equal(t, models.ContentTypeNarrative, got.CulturalContext["content_type"])

	missing, err := repo.GetByContextHash(ctx, "no-such-hash", "de")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindFuzzyMatchesExactAndTrigram(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "translation_memory")
	repo := NewTranslationMemoryRepository(tdb.DB)
	ctx := context.Background()

	exact := newMemoryEntry("Bitcoin Stamps are permanent on-chain assets", "de", "hash-exact")
	require.NoError(t, repo.AddTranslation(ctx, exact))

	similar := newMemoryEntry("Bitcoin Stamps are permanent on-chain artifacts", "de", "hash-similar")
	require.NoError(t, repo.AddTranslation(ctx, similar))

	unrelated := newMemoryEntry("Completely different sentence about cooking", "de", "hash-unrelated")
	require.NoError(t, repo.AddTranslation(ctx, unrelated))

	matches, err := repo.FindFuzzyMatches(ctx,
		"Bitcoin Stamps are permanent on-chain assets", "en", "de", 0.4)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, exact.ID, matches[0].Entry.ID)
	assert.Equal(t, 1.0, matches[0].MatchScore)

	assert.Equal(t, similar.ID, matches[1].Entry.ID)
	assert.Greater(t, matches[1].MatchScore, 0.4)
	assert.Less(t, matches[1].MatchScore, 1.0)
}

func TestIncrementUsage(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "translation_memory")
	repo := NewTranslationMemoryRepository(tdb.DB)
	ctx := context.Background()

	entry := newMemoryEntry("usage counter test sentence", "fr", "hash-usage")
	require.NoError(t, repo.AddTranslation(ctx, entry))

	require.NoError(t, repo.IncrementUsage(ctx, entry.ID))
	require.NoError(t, repo.IncrementUsage(ctx, entry.ID))

	got, err := repo.GetByContextHash(ctx, "hash-usage", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, got.UsageCount)
}

func TestContentChangeLifecycle(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "translation_workflows", "content_changes")
	repo := NewContentChangeRepository(tdb.DB)
	ctx := context.Background()

	change := newChange(t, repo, "docs/en/narrative/kevin.md")

	pending, err := repo.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, change.ID, pending[0].ID)

	require.NoError(t, repo.UpdateStatus(ctx, change.ID, models.ChangeStatusCompleted))

	pending, err = repo.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.ChangeStatusCompleted])
}

func TestWorkflowCreateIdempotent(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "translation_workflows", "content_changes")
	changeRepo := NewContentChangeRepository(tdb.DB)
	repo := NewWorkflowRepository(tdb.DB)
	ctx := context.Background()

	change := newChange(t, changeRepo, "docs/en/guide/src20.md")

	first := &models.TranslationWorkflow{
		ChangeID:             change.ID,
		SourceLanguage:       "en",
		TargetLanguage:       "de",
		Status:               models.WorkflowStatusPending,
		Priority:             models.WorkflowPriorityHigh,
		CulturalReviewStatus: models.CulturalReviewPending,
	}
	require.NoError(t, repo.Create(ctx, first))

	duplicate := &models.TranslationWorkflow{
		ChangeID:             change.ID,
		SourceLanguage:       "en",
		TargetLanguage:       "de",
		Status:               models.WorkflowStatusPending,
		Priority:             models.WorkflowPriorityLow,
		CulturalReviewStatus: models.CulturalReviewPending,
	}
	require.NoError(t, repo.Create(ctx, duplicate))

	// The duplicate insert surfaces the winning row, priority included.
	assert.Equal(t, first.ID, duplicate.ID)
	assert.Equal(t, models.WorkflowPriorityHigh, duplicate.Priority)

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWorkflowStatusAndProgress(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "translation_workflows", "content_changes")
	changeRepo := NewContentChangeRepository(tdb.DB)
	repo := NewWorkflowRepository(tdb.DB)
	ctx := context.Background()

	change := newChange(t, changeRepo, "docs/en/guide/progress.md")
	workflow := &models.TranslationWorkflow{
		ChangeID:             change.ID,
		SourceLanguage:       "en",
		TargetLanguage:       "ja",
		Status:               models.WorkflowStatusPending,
		Priority:             models.WorkflowPriorityMedium,
		CulturalReviewStatus: models.CulturalReviewPending,
	}
	require.NoError(t, repo.Create(ctx, workflow))

	require.NoError(t, repo.UpdateProgress(ctx, workflow.ID, 10, 5, 4))
	got, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TotalSegments)
	assert.InDelta(t, 40.0, got.ProgressPercentage, 0.01)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, repo.UpdateStatus(ctx, workflow.ID, models.WorkflowStatusApproved))
	got, err = repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusApproved, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestCulturalEntityUpsertAndMentions(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "cultural_entities")
	repo := NewCulturalEntityRepository(tdb.DB)
	ctx := context.Background()

	entity := &models.CulturalEntity{
		EntityID:             models.EntityKevin,
		Name:                 "KEVIN",
		EntityType:           models.EntityTypeMascot,
		CulturalSignificance: models.SignificanceHigh,
		PreserveName:         true,
	}
	require.NoError(t, repo.Upsert(ctx, entity))
	require.NoError(t, repo.IncrementMentionCount(ctx, models.EntityKevin, 3))

	// Re-seeding must not reset the mention counter.
	entity.TranslationGuidelines = "Always uppercase."
	require.NoError(t, repo.Upsert(ctx, entity))

	got, err := repo.Get(ctx, models.EntityKevin)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.MentionCount)
	assert.Equal(t, "Always uppercase.", got.TranslationGuidelines)
	assert.NotNil(t, got.LastMentionedAt)
}

func TestValidationRuleQueries(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t, "validation_rules")
	repo := NewValidationRuleRepository(tdb.DB)
	ctx := context.Background()

	universal := &models.ValidationRule{
		RuleName:           "kevin-capitalization",
		RuleType:           models.RuleTypeCulturalPreservation,
		ValidationFunction: models.ValidationFuncKevinCapitalization,
		Severity:           models.RuleSeverityError,
		Active:             true,
	}
	require.NoError(t, repo.Upsert(ctx, universal))

	scoped := &models.ValidationRule{
		RuleName:           "pepe-context-presence",
		RuleType:           models.RuleTypeCulturalPreservation,
		ValidationFunction: models.ValidationFuncPepeContextPresence,
		Severity:           models.RuleSeverityWarning,
		Languages:          []string{"ja"},
		Active:             true,
	}
	require.NoError(t, repo.Upsert(ctx, scoped))

	forDe, err := repo.GetActive(ctx, "de")
	require.NoError(t, err)
	require.Len(t, forDe, 1)
	assert.Equal(t, "kevin-capitalization", forDe[0].RuleName)

	forJa, err := repo.GetActive(ctx, "ja")
	require.NoError(t, err)
	assert.Len(t, forJa, 2)

	// No language filter returns every active rule, scoped ones included.
	all, err := repo.GetActive(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.SetActive(ctx, "kevin-capitalization", false))
	forDe, err = repo.GetActive(ctx, "de")
	require.NoError(t, err)
	assert.Empty(t, forDe)
}
