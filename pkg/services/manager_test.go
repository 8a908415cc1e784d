package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/apperrors"
	"github.com/bitcoin-stamps/translation-engine/pkg/config"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

const testRuleSeedYAML = `rules:
  - rule_name: kevin-capitalization
    rule_type: cultural_preservation
    validation_function: kevin_capitalization
    severity: error
  - rule_name: pepe-context-presence
    rule_type: cultural_preservation
    validation_function: pepe_context_presence
    severity: warning
    languages:
      - ja
    active: false
`

type managerFixture struct {
	manager      TranslationManager
	cfg          *config.Config
	entityRepo   *mockEntityRepo
	ruleRepo     *mockRuleRepo
	memoryRepo   *mockMemoryRepo
	changeRepo   *mockChangeRepo
	workflowRepo *mockWorkflowRepo
	detector     *stubDetector
}

func newManagerFixture(t *testing.T, ruleSeed string) *managerFixture {
	t.Helper()

	rulePath := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulePath, []byte(ruleSeed), 0o644))

	cfg := &config.Config{
		Translation: config.TranslationConfig{
			Enabled:         true,
			SourceLanguage:  "en",
			TargetLanguages: []string{"de", "fr"},
			RuleSeedPath:    rulePath,
		},
	}

	registry := newTestRegistry(t)
	f := &managerFixture{
		cfg:          cfg,
		entityRepo:   &mockEntityRepo{},
		ruleRepo:     &mockRuleRepo{},
		memoryRepo:   &mockMemoryRepo{},
		changeRepo:   &mockChangeRepo{},
		workflowRepo: &mockWorkflowRepo{},
		detector:     &stubDetector{},
	}

	validator := NewCulturalValidator(registry, zap.NewNop())
	workflows := NewWorkflowService(f.workflowRepo, NewLoggingTranslator(zap.NewNop()), zap.NewNop())
	f.manager = NewTranslationManager(cfg, f.entityRepo, f.ruleRepo, f.memoryRepo,
		f.changeRepo, f.workflowRepo, registry, validator, f.detector, workflows, zap.NewNop())

	return f
}

func TestInitializeDisabledSubsystem(t *testing.T) {
	f := newManagerFixture(t, testRuleSeedYAML)
	f.cfg.Translation.Enabled = false

	err := f.manager.Initialize(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSubsystemDisabled)
	assert.False(t, f.detector.started)
}

func TestInitializeSeedsAndStartsDetection(t *testing.T) {
	f := newManagerFixture(t, testRuleSeedYAML)

	require.NoError(t, f.manager.Initialize(context.Background()))

	assert.True(t, f.detector.started)
	assert.NotEmpty(t, f.entityRepo.entities)

	require.Len(t, f.ruleRepo.rules, 2)
	assert.True(t, f.ruleRepo.rules[0].Active, "active defaults to true")
	assert.False(t, f.ruleRepo.rules[1].Active, "explicit active: false is honored")
}

func TestInitializeRejectsUnknownValidationFunction(t *testing.T) {
	f := newManagerFixture(t, `rules:
  - rule_name: ghost-rule
    validation_function: summon_ghost
    severity: error
`)

	err := f.manager.Initialize(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnknownValidation)
	assert.False(t, f.detector.started, "seeding failures stop startup before the watcher")
}

func TestStatusAggregation(t *testing.T) {
	f := newManagerFixture(t, testRuleSeedYAML)
	f.memoryRepo.countEntriesFunc = func(_ context.Context) (int, error) { return 42, nil }
	f.memoryRepo.averageQualityFunc = func(_ context.Context) (float64, error) { return 0.9, nil }
	f.entityRepo.entities = []*models.CulturalEntity{
		{EntityID: "kevin", MentionCount: 5},
		{EntityID: "src20", MentionCount: 0},
	}

	status, err := f.manager.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.Equal(t, 42, status.MemoryEntries)
	// 0.9 quality * 70 plus half the entities mentioned * 30.
	assert.InDelta(t, 78.0, status.CulturalHealthScore, 0.01)
}

func TestPreBuildHookDrainsPending(t *testing.T) {
	f := newManagerFixture(t, testRuleSeedYAML)
	seedWorkflow(t, f.workflowRepo, models.WorkflowStatusPending, false)

	processed, err := f.manager.PreBuildHook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
}

func TestPostBuildHookFlagsCriticalViolations(t *testing.T) {
	f := newManagerFixture(t, testRuleSeedYAML)
	f.memoryRepo.listRecentFunc = func(_ context.Context, limit int) ([]*models.TranslationMemoryEntry, error) {
		return []*models.TranslationMemoryEntry{
			{
				SourceText:     "KEVIN is the mascot",
				TargetText:     "Kevin est la mascotte",
				SourceLanguage: "en",
				TargetLanguage: "fr",
			},
			{
				SourceText:     "Plain sentence",
				TargetText:     "Phrase simple",
				SourceLanguage: "en",
				TargetLanguage: "fr",
			},
		}, nil
	}

	report, err := f.manager.PostBuildHook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.ResultCount)
	assert.GreaterOrEqual(t, report.CriticalViolations, 1)
	assert.NotEqual(t, models.HealthExcellent, report.OverallHealth)
}

func TestShutdownStopsDetector(t *testing.T) {
	f := newManagerFixture(t, testRuleSeedYAML)

	require.NoError(t, f.manager.Shutdown())
	assert.True(t, f.detector.stopped)
}
