package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

// testSeedYAML is a compact registry covering every entity class the
// detection and validation paths care about.
const testSeedYAML = `entities:
  - entity_id: kevin
    name: KEVIN
    entity_type: mascot
    cultural_significance: high
    preserve_name: true
    requires_context: true
    translation_guidelines: KEVIN is always uppercase and never translated.
    key_phrases:
      - first SRC-20 token
    meme_connection: true
    founding_story: true
  - entity_id: mikeinspace
    name: Mike In Space
    entity_type: founder
    cultural_significance: high
    preserve_name: true
    key_phrases:
      - creator of Bitcoin Stamps
    trinity_member: true
    founding_story: true
  - entity_id: reinamora
    name: Reinamora
    entity_type: founder
    cultural_significance: high
    preserve_name: true
    trinity_member: true
    founding_story: true
  - entity_id: arwyn
    name: Arwyn
    entity_type: founder
    cultural_significance: high
    preserve_name: true
    trinity_member: true
    founding_story: true
  - entity_id: trinity
    name: founding trinity
    entity_type: narrative
    cultural_significance: high
    requires_context: true
    aliases:
      - three founders
    founding_story: true
  - entity_id: rare_pepe
    name: Rare Pepe
    entity_type: cultural_icon
    cultural_significance: high
    preserve_name: true
    requires_context: true
    aliases:
      - Pepe
    meme_connection: true
  - entity_id: src20
    name: SRC-20
    entity_type: protocol
    cultural_significance: medium
    preserve_name: true
`

func newTestRegistry(t *testing.T) CulturalEntityRegistry {
	t.Helper()

	seedPath := filepath.Join(t.TempDir(), "entities.yaml")
	if err := os.WriteFile(seedPath, []byte(testSeedYAML), 0o644); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}

	registry, err := NewCulturalEntityRegistry(seedPath, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return registry
}

// mockMemoryRepo implements repositories.TranslationMemoryRepository.
type mockMemoryRepo struct {
	findFuzzyMatchesFunc func(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64) ([]*models.FuzzyMatchResult, error)
	countEntriesFunc     func(ctx context.Context) (int, error)
	averageQualityFunc   func(ctx context.Context) (float64, error)
	listRecentFunc       func(ctx context.Context, limit int) ([]*models.TranslationMemoryEntry, error)
}

func (m *mockMemoryRepo) AddTranslation(ctx context.Context, entry *models.TranslationMemoryEntry) error {
	return nil
}

func (m *mockMemoryRepo) GetByContextHash(ctx context.Context, contextHash, targetLanguage string) (*models.TranslationMemoryEntry, error) {
	return nil, nil
}

func (m *mockMemoryRepo) FindFuzzyMatches(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64) ([]*models.FuzzyMatchResult, error) {
	if m.findFuzzyMatchesFunc != nil {
		return m.findFuzzyMatchesFunc(ctx, sourceText, sourceLang, targetLang, threshold)
	}
	return nil, nil
}

func (m *mockMemoryRepo) IncrementUsage(ctx context.Context, entryID uuid.UUID) error {
	return nil
}

func (m *mockMemoryRepo) UpdateValidation(ctx context.Context, entryID uuid.UUID, qualityScore float64, trinityPassed bool, notes string) error {
	return nil
}

func (m *mockMemoryRepo) GetStats(ctx context.Context, language string) ([]*models.TranslationStats, error) {
	return nil, nil
}

func (m *mockMemoryRepo) CountEntries(ctx context.Context) (int, error) {
	if m.countEntriesFunc != nil {
		return m.countEntriesFunc(ctx)
	}
	return 0, nil
}

func (m *mockMemoryRepo) AverageQuality(ctx context.Context) (float64, error) {
	if m.averageQualityFunc != nil {
		return m.averageQualityFunc(ctx)
	}
	return 0, nil
}

func (m *mockMemoryRepo) ListRecent(ctx context.Context, limit int) ([]*models.TranslationMemoryEntry, error) {
	if m.listRecentFunc != nil {
		return m.listRecentFunc(ctx, limit)
	}
	return nil, nil
}

// mockChangeRepo implements repositories.ContentChangeRepository.
type mockChangeRepo struct {
	created       []*models.ContentChange
	statusUpdates map[uuid.UUID][]string
	createErr     error
}

func (m *mockChangeRepo) Create(ctx context.Context, change *models.ContentChange) error {
	if m.createErr != nil {
		return m.createErr
	}
	change.ID = uuid.New()
	m.created = append(m.created, change)
	return nil
}

func (m *mockChangeRepo) GetByID(ctx context.Context, changeID uuid.UUID) (*models.ContentChange, error) {
	for _, c := range m.created {
		if c.ID == changeID {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockChangeRepo) GetPending(ctx context.Context) ([]*models.ContentChange, error) {
	return m.created, nil
}

func (m *mockChangeRepo) UpdateStatus(ctx context.Context, changeID uuid.UUID, status string) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[uuid.UUID][]string)
	}
	m.statusUpdates[changeID] = append(m.statusUpdates[changeID], status)
	return nil
}

func (m *mockChangeRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	return map[string]int{}, nil
}

// mockWorkflowRepo implements repositories.WorkflowRepository.
type mockWorkflowRepo struct {
	workflows []*models.TranslationWorkflow
	createErr error

	updateStatusFunc   func(ctx context.Context, workflowID uuid.UUID, status models.WorkflowStatus) error
	updateProgressFunc func(ctx context.Context, workflowID uuid.UUID, total, translated, validated int) error
	updateReviewFunc   func(ctx context.Context, workflowID uuid.UUID, reviewer, status, notes string) error
}

func (m *mockWorkflowRepo) Create(ctx context.Context, workflow *models.TranslationWorkflow) error {
	if m.createErr != nil {
		return m.createErr
	}
	// Idempotent on (change, language), like the real repository.
	for _, w := range m.workflows {
		if w.ChangeID == workflow.ChangeID && w.TargetLanguage == workflow.TargetLanguage {
			*workflow = *w
			return nil
		}
	}
	workflow.ID = uuid.New()
	m.workflows = append(m.workflows, workflow)
	return nil
}

func (m *mockWorkflowRepo) GetByID(ctx context.Context, workflowID uuid.UUID) (*models.TranslationWorkflow, error) {
	for _, w := range m.workflows {
		if w.ID == workflowID {
			return w, nil
		}
	}
	return nil, nil
}

func (m *mockWorkflowRepo) GetActive(ctx context.Context) ([]*models.TranslationWorkflow, error) {
	var active []*models.TranslationWorkflow
	for _, w := range m.workflows {
		if !w.Status.IsTerminal() {
			active = append(active, w)
		}
	}
	return active, nil
}

func (m *mockWorkflowRepo) GetByChange(ctx context.Context, changeID uuid.UUID) ([]*models.TranslationWorkflow, error) {
	var out []*models.TranslationWorkflow
	for _, w := range m.workflows {
		if w.ChangeID == changeID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockWorkflowRepo) List(ctx context.Context, status models.WorkflowStatus, targetLanguage string, limit, offset int) ([]*models.TranslationWorkflow, error) {
	return m.workflows, nil
}

func (m *mockWorkflowRepo) UpdateStatus(ctx context.Context, workflowID uuid.UUID, status models.WorkflowStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, workflowID, status)
	}
	for _, w := range m.workflows {
		if w.ID == workflowID {
			w.Status = status
		}
	}
	return nil
}

func (m *mockWorkflowRepo) UpdateProgress(ctx context.Context, workflowID uuid.UUID, total, translated, validated int) error {
	if m.updateProgressFunc != nil {
		return m.updateProgressFunc(ctx, workflowID, total, translated, validated)
	}
	for _, w := range m.workflows {
		if w.ID == workflowID {
			w.TotalSegments = total
			w.TranslatedSegments = translated
			w.ValidatedSegments = validated
			w.ProgressPercentage = w.Progress()
		}
	}
	return nil
}

func (m *mockWorkflowRepo) UpdateCulturalReview(ctx context.Context, workflowID uuid.UUID, reviewer, status, notes string) error {
	if m.updateReviewFunc != nil {
		return m.updateReviewFunc(ctx, workflowID, reviewer, status, notes)
	}
	for _, w := range m.workflows {
		if w.ID == workflowID {
			w.CulturalReviewer = reviewer
			w.CulturalReviewStatus = status
			w.CulturalReviewNotes = notes
		}
	}
	return nil
}

func (m *mockWorkflowRepo) GetCulturalValidationQueue(ctx context.Context) ([]*models.CulturalValidationItem, error) {
	return nil, nil
}

func (m *mockWorkflowRepo) CountActive(ctx context.Context) (int, error) {
	active, _ := m.GetActive(ctx)
	return len(active), nil
}

// mockEntityRepo implements repositories.CulturalEntityRepository.
type mockEntityRepo struct {
	mentions map[string]int
	entities []*models.CulturalEntity
}

func (m *mockEntityRepo) Get(ctx context.Context, entityID string) (*models.CulturalEntity, error) {
	for _, e := range m.entities {
		if e.EntityID == entityID {
			return e, nil
		}
	}
	return nil, nil
}

func (m *mockEntityRepo) List(ctx context.Context) ([]*models.CulturalEntity, error) {
	return m.entities, nil
}

func (m *mockEntityRepo) Upsert(ctx context.Context, entity *models.CulturalEntity) error {
	m.entities = append(m.entities, entity)
	return nil
}

func (m *mockEntityRepo) IncrementMentionCount(ctx context.Context, entityID string, delta int) error {
	if m.mentions == nil {
		m.mentions = make(map[string]int)
	}
	m.mentions[entityID] += delta
	return nil
}

// mockRuleRepo implements repositories.ValidationRuleRepository.
type mockRuleRepo struct {
	rules []*models.ValidationRule
}

func (m *mockRuleRepo) GetActive(ctx context.Context, language string) ([]*models.ValidationRule, error) {
	var out []*models.ValidationRule
	for _, r := range m.rules {
		if r.Active && (language == "" || r.AppliesTo(language)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRuleRepo) GetByName(ctx context.Context, ruleName string) (*models.ValidationRule, error) {
	for _, r := range m.rules {
		if r.RuleName == ruleName {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRuleRepo) Upsert(ctx context.Context, rule *models.ValidationRule) error {
	for i, r := range m.rules {
		if r.RuleName == rule.RuleName {
			m.rules[i] = rule
			return nil
		}
	}
	m.rules = append(m.rules, rule)
	return nil
}

func (m *mockRuleRepo) SetActive(ctx context.Context, ruleName string, active bool) error {
	for _, r := range m.rules {
		if r.RuleName == ruleName {
			r.Active = active
		}
	}
	return nil
}

// stubDetector implements ChangeDetector without touching the filesystem.
type stubDetector struct {
	started bool
	stopped bool
}

func (d *stubDetector) Start(ctx context.Context) error { d.started = true; return nil }

func (d *stubDetector) Stop() error { d.stopped = true; return nil }

func (d *stubDetector) ProcessFile(ctx context.Context, path, changeType string) error { return nil }

// manualScheduler runs scheduled tasks only when fired, standing in for the
// debounce timers so tests control time.
type manualScheduler struct {
	tasks map[string]func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(map[string]func())}
}

func (s *manualScheduler) Schedule(key string, _ time.Duration, fn func()) {
	s.tasks[key] = fn
}

func (s *manualScheduler) Cancel(key string) { delete(s.tasks, key) }

func (s *manualScheduler) Stop() { s.tasks = map[string]func(){} }

// Fire runs and clears the task for key, reporting whether one was pending.
func (s *manualScheduler) Fire(key string) bool {
	fn, ok := s.tasks[key]
	if !ok {
		return false
	}
	delete(s.tasks, key)
	fn()
	return true
}
