package services

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bitcoin-stamps/translation-engine/pkg/apperrors"
	"github.com/bitcoin-stamps/translation-engine/pkg/config"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
)

// Cultural health score blend: storage quality dominates, entity mention
// coverage fills the rest.
const (
	qualityBlendWeight  = 70.0
	coverageBlendWeight = 30.0
)

// postBuildSweepLimit caps how many recent memory entries the post-build
// validation sweep inspects.
const postBuildSweepLimit = 200

// SubsystemStatus is the aggregate health report of the translation core.
type SubsystemStatus struct {
	Enabled             bool           `json:"enabled"`
	MemoryEntries       int            `json:"memory_entries"`
	PendingChanges      int            `json:"pending_changes"`
	ChangesByStatus     map[string]int `json:"changes_by_status"`
	ActiveWorkflows     int            `json:"active_workflows"`
	CulturalHealthScore float64        `json:"cultural_health_score"`
}

// ruleSeed is the YAML shape of one validation rule in the seed file.
type ruleSeed struct {
	RuleName           string   `yaml:"rule_name"`
	RuleType           string   `yaml:"rule_type"`
	SourcePattern      string   `yaml:"source_pattern"`
	TargetPattern      string   `yaml:"target_pattern"`
	ValidationFunction string   `yaml:"validation_function"`
	Languages          []string `yaml:"languages"`
	Severity           string   `yaml:"severity"`
	MessageTemplate    string   `yaml:"message_template"`
	ProtectsEntity     string   `yaml:"protects_entity"`
	CulturalRationale  string   `yaml:"cultural_rationale"`
	Active             *bool    `yaml:"active"`
}

type ruleSeedFile struct {
	Rules []ruleSeed `yaml:"rules"`
}

// knownValidationFunctions is the closed set of check identifiers a rule may
// reference. Seeding fails fast on anything else.
var knownValidationFunctions = map[string]bool{
	models.ValidationFuncKevinCapitalization: true,
	models.ValidationFuncFounderNameExact:    true,
	models.ValidationFuncPepeContextPresence: true,
	models.ValidationFuncTrinityContext:      true,
	models.ValidationFuncProtocolFormat:      true,
}

// TranslationManager owns the lifecycle of the translation subsystem and
// reports its aggregate health.
type TranslationManager interface {
	// Initialize seeds the store and starts change detection. Returns
	// apperrors.ErrSubsystemDisabled when the subsystem is toggled off.
	Initialize(ctx context.Context) error

	// Shutdown stops the watcher and pending debounce timers.
	Shutdown() error

	// Status aggregates counters and a cultural health score.
	Status(ctx context.Context) (*SubsystemStatus, error)

	// PreBuildHook drains pending workflows before a site build.
	PreBuildHook(ctx context.Context) (int, error)

	// PostBuildHook sweeps recent translations through cultural validation
	// after a build. Critical violations are logged, never fatal: the build
	// already succeeded.
	PostBuildHook(ctx context.Context) (*models.PreservationReport, error)
}

type translationManager struct {
	cfg          *config.Config
	entityRepo   repositories.CulturalEntityRepository
	ruleRepo     repositories.ValidationRuleRepository
	memoryRepo   repositories.TranslationMemoryRepository
	changeRepo   repositories.ContentChangeRepository
	workflowRepo repositories.WorkflowRepository
	registry     CulturalEntityRegistry
	validator    CulturalValidator
	detector     ChangeDetector
	workflows    WorkflowService
	logger       *zap.Logger
}

var _ TranslationManager = (*translationManager)(nil)

// NewTranslationManager creates a new TranslationManager.
func NewTranslationManager(
	cfg *config.Config,
	entityRepo repositories.CulturalEntityRepository,
	ruleRepo repositories.ValidationRuleRepository,
	memoryRepo repositories.TranslationMemoryRepository,
	changeRepo repositories.ContentChangeRepository,
	workflowRepo repositories.WorkflowRepository,
	registry CulturalEntityRegistry,
	validator CulturalValidator,
	detector ChangeDetector,
	workflows WorkflowService,
	logger *zap.Logger,
) TranslationManager {
	return &translationManager{
		cfg:          cfg,
		entityRepo:   entityRepo,
		ruleRepo:     ruleRepo,
		memoryRepo:   memoryRepo,
		changeRepo:   changeRepo,
		workflowRepo: workflowRepo,
		registry:     registry,
		validator:    validator,
		detector:     detector,
		workflows:    workflows,
		logger:       logger.Named("translation-manager"),
	}
}

func (m *translationManager) Initialize(ctx context.Context) error {
	if !m.cfg.Translation.Enabled {
		return apperrors.ErrSubsystemDisabled
	}

	if err := m.registry.Seed(ctx, m.entityRepo); err != nil {
		return fmt.Errorf("failed to seed cultural entities: %w", err)
	}
	if err := m.seedValidationRules(ctx); err != nil {
		return fmt.Errorf("failed to seed validation rules: %w", err)
	}

	if err := m.detector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start change detection: %w", err)
	}

	status, err := m.Status(ctx)
	if err != nil {
		m.logger.Warn("Failed to compute initial status", zap.Error(err))
	} else {
		m.logger.Info("Translation subsystem initialized",
			zap.Int("memory_entries", status.MemoryEntries),
			zap.Int("pending_changes", status.PendingChanges),
			zap.Int("active_workflows", status.ActiveWorkflows),
			zap.Float64("cultural_health", status.CulturalHealthScore))
	}

	return nil
}

// seedValidationRules loads the rule seed file and upserts every rule,
// failing fast on unknown validation function identifiers.
func (m *translationManager) seedValidationRules(ctx context.Context) error {
	path := m.cfg.Translation.RuleSeedPath
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rule seed file %s: %w", path, err)
	}

	var seed ruleSeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse rule seed file %s: %w", path, err)
	}

	for _, s := range seed.Rules {
		if s.RuleName == "" || s.ValidationFunction == "" {
			return fmt.Errorf("rule seed file %s: rule missing name or validation function", path)
		}
		if !knownValidationFunctions[s.ValidationFunction] {
			return fmt.Errorf("%w: %q in rule %s", apperrors.ErrUnknownValidation, s.ValidationFunction, s.RuleName)
		}

		active := true
		if s.Active != nil {
			active = *s.Active
		}

		rule := &models.ValidationRule{
			RuleName:           s.RuleName,
			RuleType:           s.RuleType,
			SourcePattern:      s.SourcePattern,
			TargetPattern:      s.TargetPattern,
			ValidationFunction: s.ValidationFunction,
			Languages:          s.Languages,
			Severity:           s.Severity,
			MessageTemplate:    s.MessageTemplate,
			ProtectsEntity:     s.ProtectsEntity,
			CulturalRationale:  s.CulturalRationale,
			Active:             active,
		}
		if err := m.ruleRepo.Upsert(ctx, rule); err != nil {
			return err
		}
	}

	m.logger.Info("Validation rules seeded", zap.Int("count", len(seed.Rules)))
	return nil
}

func (m *translationManager) Shutdown() error {
	if err := m.detector.Stop(); err != nil {
		return err
	}
	m.logger.Info("Translation subsystem shut down")
	return nil
}

func (m *translationManager) Status(ctx context.Context) (*SubsystemStatus, error) {
	memoryCount, err := m.memoryRepo.CountEntries(ctx)
	if err != nil {
		return nil, err
	}

	changeCounts, err := m.changeRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	activeWorkflows, err := m.workflowRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	health, err := m.culturalHealthScore(ctx)
	if err != nil {
		return nil, err
	}

	return &SubsystemStatus{
		Enabled:             m.cfg.Translation.Enabled,
		MemoryEntries:       memoryCount,
		PendingChanges:      changeCounts[models.ChangeStatusPending],
		ChangesByStatus:     changeCounts,
		ActiveWorkflows:     activeWorkflows,
		CulturalHealthScore: health,
	}, nil
}

// culturalHealthScore blends average translation quality with per-entity
// mention coverage into a 0-100 score.
func (m *translationManager) culturalHealthScore(ctx context.Context) (float64, error) {
	avgQuality, err := m.memoryRepo.AverageQuality(ctx)
	if err != nil {
		return 0, err
	}

	entities, err := m.entityRepo.List(ctx)
	if err != nil {
		return 0, err
	}

	coverage := 0.0
	if len(entities) > 0 {
		mentioned := 0
		for _, e := range entities {
			if e.MentionCount > 0 {
				mentioned++
			}
		}
		coverage = float64(mentioned) / float64(len(entities))
	}

	return avgQuality*qualityBlendWeight + coverage*coverageBlendWeight, nil
}

func (m *translationManager) PreBuildHook(ctx context.Context) (int, error) {
	processed, err := m.workflows.ProcessPendingWorkflows(ctx)
	if err != nil {
		return 0, fmt.Errorf("pre-build workflow drain failed: %w", err)
	}
	m.logger.Info("Pre-build hook completed", zap.Int("workflows_processed", processed))
	return processed, nil
}

func (m *translationManager) PostBuildHook(ctx context.Context) (*models.PreservationReport, error) {
	entries, err := m.memoryRepo.ListRecent(ctx, postBuildSweepLimit)
	if err != nil {
		return nil, fmt.Errorf("post-build sweep failed: %w", err)
	}

	var results []*models.CulturalValidationResult
	for _, entry := range entries {
		result, err := m.validator.ValidateTranslation(&ValidationContext{
			SourceText:     entry.SourceText,
			TargetText:     entry.TargetText,
			SourceLanguage: entry.SourceLanguage,
			TargetLanguage: entry.TargetLanguage,
			FilePath:       entry.FilePath,
		})
		if err != nil {
			m.logger.Warn("Skipping malformed memory entry in sweep",
				zap.String("entry_id", entry.ID.String()), zap.Error(err))
			continue
		}
		results = append(results, result)
	}

	report := m.validator.GeneratePreservationReport(results)
	if report.CriticalViolations > 0 {
		m.logger.Warn("Post-build sweep found critical cultural violations",
			zap.Int("critical_violations", report.CriticalViolations),
			zap.Float64("average_score", report.AverageScore),
			zap.String("overall_health", report.OverallHealth))
	} else {
		m.logger.Info("Post-build cultural sweep clean",
			zap.Int("translations_checked", len(results)),
			zap.Float64("average_score", report.AverageScore))
	}

	return report, nil
}
