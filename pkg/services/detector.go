package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/config"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
)

// Cultural priority scoring weights and tier thresholds.
const (
	kevinWeight       = 3
	trinityWeight     = 2
	pepeWeight        = 2
	highWindowWeight  = 1
	criticalThreshold = 5
	highThreshold     = 3
	mediumThreshold   = 1
)

// excludedInfraPatterns identify build and dependency paths whose edits never
// require retranslation.
var excludedInfraPatterns = []string{
	"node_modules", "dist/", ".cache", ".vitepress/cache", "logs/",
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml", ".git/",
}

// systemConfigPatterns identify configuration files whose edits affect every
// language, including the source language.
var systemConfigPatterns = []string{
	".vitepress/config", "package.json", "tsconfig", "config.yaml", "config.yml",
}

// ChangeDetector watches content directories, classifies edits by cultural
// impact and spawns translation workflows for affected languages.
type ChangeDetector interface {
	// Start begins watching the configured directories.
	Start(ctx context.Context) error

	// Stop clears pending debounce timers and releases the watcher.
	Stop() error

	// ProcessFile analyzes a single file edit immediately, bypassing the
	// debounce queue. Used by build hooks and tests.
	ProcessFile(ctx context.Context, path, changeType string) error
}

type changeDetector struct {
	cfg          *config.TranslationConfig
	changeRepo   repositories.ContentChangeRepository
	workflowRepo repositories.WorkflowRepository
	entityRepo   repositories.CulturalEntityRepository
	registry     CulturalEntityRegistry
	scheduler    DebounceScheduler
	logger       *zap.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ ChangeDetector = (*changeDetector)(nil)

// NewChangeDetector creates a new ChangeDetector.
func NewChangeDetector(
	cfg *config.TranslationConfig,
	changeRepo repositories.ContentChangeRepository,
	workflowRepo repositories.WorkflowRepository,
	entityRepo repositories.CulturalEntityRepository,
	registry CulturalEntityRegistry,
	scheduler DebounceScheduler,
	logger *zap.Logger,
) ChangeDetector {
	return &changeDetector{
		cfg:          cfg,
		changeRepo:   changeRepo,
		workflowRepo: workflowRepo,
		entityRepo:   entityRepo,
		registry:     registry,
		scheduler:    scheduler,
		logger:       logger.Named("change-detector"),
		done:         make(chan struct{}),
	}
}

func (d *changeDetector) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	d.watcher = watcher

	for _, dir := range d.cfg.WatchDirs {
		if err := d.watchRecursive(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go d.eventLoop(ctx)

	d.logger.Info("Change detection started",
		zap.Strings("watch_dirs", d.cfg.WatchDirs),
		zap.Int("debounce_millis", d.cfg.DebounceMillis))

	return nil
}

// watchRecursive registers a directory and all its subdirectories, skipping
// excluded infrastructure paths.
func (d *changeDetector) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if isExcludedInfraPath(path + "/") {
			return filepath.SkipDir
		}
		return d.watcher.Add(path)
	})
}

func (d *changeDetector) eventLoop(ctx context.Context) {
	debounce := time.Duration(d.cfg.DebounceMillis) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(ctx, event, debounce)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (d *changeDetector) handleEvent(ctx context.Context, event fsnotify.Event, debounce time.Duration) {
	path := event.Name
	if isExcludedInfraPath(path) {
		return
	}

	// New directories join the watch set; changes inside them arrive as
	// their own events.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := d.watcher.Add(path); err != nil {
				d.logger.Warn("Failed to watch new directory", zap.String("path", path), zap.Error(err))
			}
			return
		}
	}

	changeType := classifyEvent(event)
	if changeType == "" {
		return
	}
	if changeType == models.ChangeTypeDeleted {
		d.scheduler.Cancel(path)
	}

	d.scheduler.Schedule(path, debounce, func() {
		if err := d.ProcessFile(ctx, path, changeType); err != nil {
			// Per-file isolation: one bad file never halts the watcher.
			d.logger.Error("Failed to process file change",
				zap.String("path", path), zap.Error(err))
		}
	})
}

func classifyEvent(event fsnotify.Event) string {
	switch {
	case event.Op.Has(fsnotify.Create):
		return models.ChangeTypeCreated
	case event.Op.Has(fsnotify.Write):
		return models.ChangeTypeModified
	case event.Op.Has(fsnotify.Remove):
		return models.ChangeTypeDeleted
	case event.Op.Has(fsnotify.Rename):
		return models.ChangeTypeMoved
	default:
		return ""
	}
}

func (d *changeDetector) ProcessFile(ctx context.Context, path, changeType string) error {
	var content string
	if changeType != models.ChangeTypeDeleted {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = string(data)
	}

	change := d.analyzeContent(path, changeType, content)
	change.Branch, change.CommitHash = d.gitMetadata(ctx)
	change.ContentBefore, change.DiffText = d.gitSnapshot(ctx, path)

	if err := d.changeRepo.Create(ctx, change); err != nil {
		return fmt.Errorf("failed to persist content change: %w", err)
	}

	if err := d.changeRepo.UpdateStatus(ctx, change.ID, models.ChangeStatusProcessing); err != nil {
		return fmt.Errorf("failed to mark change processing: %w", err)
	}

	if err := d.spawnWorkflows(ctx, change); err != nil {
		if statusErr := d.changeRepo.UpdateStatus(ctx, change.ID, models.ChangeStatusFailed); statusErr != nil {
			d.logger.Error("Failed to mark change failed",
				zap.String("change_id", change.ID.String()), zap.Error(statusErr))
		}
		return err
	}

	d.bumpMentionCounts(ctx, content)

	if err := d.changeRepo.UpdateStatus(ctx, change.ID, models.ChangeStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark change completed: %w", err)
	}

	d.logger.Info("Content change processed",
		zap.String("path", path),
		zap.String("change_type", changeType),
		zap.String("cultural_priority", change.CulturalPriority),
		zap.Int("languages", len(change.AffectedLanguages)))

	return nil
}

// analyzeContent classifies a file edit: entity impact flags, cultural
// priority tier, numeric translation priority and affected languages.
func (d *changeDetector) analyzeContent(path, changeType, content string) *models.ContentChange {
	detected := d.registry.DetectEntities(content)
	windows := d.registry.ContextWindows(content)

	change := &models.ContentChange{
		FilePath:         path,
		ChangeType:       changeType,
		ContentAfter:     content,
		Summary:          fmt.Sprintf("%s %s", changeType, filepath.Base(path)),
		ProcessingStatus: models.ChangeStatusPending,
	}

	for _, id := range detected {
		entity := d.registry.Get(id)
		if entity == nil {
			continue
		}
		switch {
		case id == models.EntityKevin:
			change.AffectsKevin = true
		case entity.TrinityMember || id == models.EntityTrinity:
			change.AffectsTrinity = true
		case entity.MemeConnection:
			change.AffectsPepe = true
		}
	}

	highWindows := 0
	for _, w := range windows {
		if w.Significance == models.SignificanceHigh {
			highWindows++
		}
	}

	score := 0
	if change.AffectsKevin {
		score += kevinWeight
	}
	if change.AffectsTrinity {
		score += trinityWeight
	}
	if change.AffectsPepe {
		score += pepeWeight
	}
	score += highWindows * highWindowWeight

	switch {
	case score >= criticalThreshold:
		change.CulturalPriority = models.PriorityCritical
	case score >= highThreshold:
		change.CulturalPriority = models.PriorityHigh
	case score >= mediumThreshold:
		change.CulturalPriority = models.PriorityMedium
	default:
		change.CulturalPriority = models.PriorityLow
	}

	change.TranslationPriority = translationPriority(path, change, len(detected))
	change.RequiresRetranslation = requiresRetranslation(path, change.CulturalPriority)
	change.AffectedLanguages = d.affectedLanguages(path)

	return change
}

// translationPriority computes the 0-100 ordering score: base 50 plus path
// and entity-impact bonuses, capped at 100.
func translationPriority(path string, change *models.ContentChange, entityCount int) int {
	priority := 50
	lower := strings.ToLower(path)

	if isNarrativePath(lower) {
		priority += 20
	}
	if strings.Contains(lower, "src20") || strings.Contains(lower, "src721") ||
		strings.Contains(lower, "src101") || strings.Contains(lower, "protocol") {
		priority += 15
	}
	if strings.Contains(lower, "guide") {
		priority += 10
	}
	if strings.Contains(lower, "kevin") {
		priority += 25
	}

	if change.AffectsKevin {
		priority += 30
	}
	if change.AffectsTrinity {
		priority += 20
	}
	if change.AffectsPepe {
		priority += 15
	}

	entityBonus := entityCount * 5
	if entityBonus > 25 {
		entityBonus = 25
	}
	priority += entityBonus

	if priority > 100 {
		priority = 100
	}
	return priority
}

func requiresRetranslation(path, culturalPriority string) bool {
	if culturalPriority == models.PriorityCritical || culturalPriority == models.PriorityHigh {
		return true
	}
	return !isExcludedInfraPath(path)
}

// affectedLanguages decides which languages a change touches: system config
// edits affect every language including the source; content edits affect the
// target set, since watched content is authored in the source language.
func (d *changeDetector) affectedLanguages(path string) []string {
	if isSystemConfigPath(filepath.ToSlash(path)) {
		return append([]string{d.cfg.SourceLanguage}, d.cfg.TargetLanguages...)
	}
	return append([]string{}, d.cfg.TargetLanguages...)
}

// spawnWorkflows creates one pending workflow per affected target language.
// Creation is idempotent per (change, language), so a crash mid-sequence is
// safely retried on the next edit.
func (d *changeDetector) spawnWorkflows(ctx context.Context, change *models.ContentChange) error {
	if !change.RequiresRetranslation {
		return nil
	}

	reviewRequired := change.CulturalPriority == models.PriorityHigh ||
		change.CulturalPriority == models.PriorityCritical

	for _, language := range change.AffectedLanguages {
		if language == d.cfg.SourceLanguage {
			continue
		}

		workflow := &models.TranslationWorkflow{
			ChangeID:               change.ID,
			SourceLanguage:         d.cfg.SourceLanguage,
			TargetLanguage:         language,
			Status:                 models.WorkflowStatusPending,
			Priority:               models.WorkflowPriorityForChange(change.CulturalPriority),
			CulturalReviewRequired: reviewRequired,
			CulturalReviewStatus:   models.CulturalReviewPending,
			HumanReviewRequired:    reviewRequired,
		}
		if err := d.workflowRepo.Create(ctx, workflow); err != nil {
			return fmt.Errorf("failed to create workflow for %s: %w", language, err)
		}
	}

	return nil
}

// bumpMentionCounts increments the mention counter of every entity detected
// in the processed content. Increments are atomic per entity but not batched
// across the change.
func (d *changeDetector) bumpMentionCounts(ctx context.Context, content string) {
	for _, id := range d.registry.DetectEntities(content) {
		if err := d.entityRepo.IncrementMentionCount(ctx, id, 1); err != nil {
			d.logger.Warn("Failed to increment mention count",
				zap.String("entity_id", id), zap.Error(err))
		}
	}
}

// gitMetadata captures the current branch and commit hash. Failures are
// tolerated: content outside a git checkout just loses VCS attribution.
func (d *changeDetector) gitMetadata(ctx context.Context) (branch, commit string) {
	branchOut, err := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err == nil {
		branch = strings.TrimSpace(string(branchOut))
	}
	commitOut, err := exec.CommandContext(ctx, "git", "rev-parse", "HEAD").Output()
	if err == nil {
		commit = strings.TrimSpace(string(commitOut))
	}
	return branch, commit
}

// gitSnapshot captures the last committed version of a file and the working
// tree diff against it. Like gitMetadata, failures are tolerated: a file with
// no committed version, or one outside a checkout, just loses the snapshot.
func (d *changeDetector) gitSnapshot(ctx context.Context, path string) (before, diff string) {
	spec := "HEAD:./" + filepath.ToSlash(path)
	showOut, err := exec.CommandContext(ctx, "git", "show", spec).Output()
	if err == nil {
		before = string(showOut)
	}
	diffOut, err := exec.CommandContext(ctx, "git", "diff", "HEAD", "--", path).Output()
	if err == nil {
		diff = string(diffOut)
	}
	return before, diff
}

func (d *changeDetector) Stop() error {
	close(d.done)
	d.scheduler.Stop()
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
	}
	d.logger.Info("Change detection stopped")
	return nil
}

// Helper functions

func isExcludedInfraPath(path string) bool {
	normalized := filepath.ToSlash(strings.ToLower(path))
	for _, pattern := range excludedInfraPatterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}

func isSystemConfigPath(path string) bool {
	lower := strings.ToLower(path)
	for _, pattern := range systemConfigPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
