package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

// Preservation score adjustments.
const (
	baseScore        = 100.0
	criticalPenalty  = 30.0
	majorPenalty     = 15.0
	minorPenalty     = 5.0
	narrativeBonus   = 10.0
	maxTopSuggestion = 5
)

// foundingStoryMarkers flag text that tells the founding narrative.
var foundingStoryMarkers = []string{
	"three founders", "founding team", "founding trinity", "founded by",
}

// narrativePathMarkers identify file paths carrying narrative content, which
// earns the preservation bonus alongside titles.
var narrativePathMarkers = []string{"narrative", "story", "history", "lore"}

// ValidationContext carries one (source, translation) pair plus where it
// lives. All text fields are required.
type ValidationContext struct {
	SourceText     string `json:"source_text"`
	TargetText     string `json:"target_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	FilePath       string `json:"file_path,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
}

// CulturalValidator scores how well a proposed translation preserves
// protected cultural meaning. Bad translations produce violations, not
// errors; only malformed input fails.
type CulturalValidator interface {
	// ValidateTranslation runs every preservation check over the pair and
	// aggregates a preservation score.
	ValidateTranslation(vc *ValidationContext) (*models.CulturalValidationResult, error)

	// GeneratePreservationReport aggregates many validation results into a
	// health summary.
	GeneratePreservationReport(results []*models.CulturalValidationResult) *models.PreservationReport
}

type culturalValidator struct {
	registry CulturalEntityRegistry
	logger   *zap.Logger
}

var _ CulturalValidator = (*culturalValidator)(nil)

// NewCulturalValidator creates a new CulturalValidator.
func NewCulturalValidator(registry CulturalEntityRegistry, logger *zap.Logger) CulturalValidator {
	return &culturalValidator{
		registry: registry,
		logger:   logger.Named("cultural-validator"),
	}
}

func (v *culturalValidator) ValidateTranslation(vc *ValidationContext) (*models.CulturalValidationResult, error) {
	if vc == nil {
		return nil, fmt.Errorf("validation context is required")
	}
	if vc.SourceText == "" || vc.TargetText == "" {
		return nil, fmt.Errorf("source and target text are required")
	}
	if vc.SourceLanguage == "" || vc.TargetLanguage == "" {
		return nil, fmt.Errorf("source and target language are required")
	}

	result := &models.CulturalValidationResult{
		Trinity: models.TrinityValidation{
			AllMembersPreserved:  true,
			ConnectionsPreserved: true,
			FoundingStoryIntact:  true,
		},
		Kevin: models.KevinValidation{
			NamePreserved:                 true,
			CulturalSignificancePreserved: true,
			MemeConnectionMaintained:      true,
			OriginHistoryIntact:           true,
		},
	}

	v.checkKevin(vc, result)
	v.checkTrinity(vc, result)
	v.checkConnections(vc, result)
	v.checkProtocolFormat(vc, result)

	result.PreservationScore = v.preservationScore(vc, result.Violations)
	result.IsValid = countBySeverity(result.Violations, models.ViolationCritical) == 0

	v.logger.Debug("Translation validated",
		zap.String("target_language", vc.TargetLanguage),
		zap.Float64("score", result.PreservationScore),
		zap.Int("violations", len(result.Violations)))

	return result, nil
}

// checkKevin enforces the mascot's protected casing and cultural framing.
func (v *culturalValidator) checkKevin(vc *ValidationContext, result *models.CulturalValidationResult) {
	kevin := v.registry.Get(models.EntityKevin)
	if kevin == nil || !kevin.PreserveName {
		return
	}

	anyCase := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kevin.Name) + `\b`)
	sourceMentions := len(anyCase.FindAllString(vc.SourceText, -1))
	if sourceMentions == 0 {
		return
	}

	targetAll := anyCase.FindAllString(vc.TargetText, -1)
	exact := 0
	wrongCased := 0
	for _, occurrence := range targetAll {
		if occurrence == kevin.Name {
			exact++
		} else {
			wrongCased++
		}
	}

	if wrongCased > 0 {
		result.Kevin.NamePreserved = false
		result.Violations = append(result.Violations, models.CulturalViolation{
			Type:        models.ViolationNameChanged,
			Severity:    models.ViolationCritical,
			EntityID:    kevin.EntityID,
			Description: fmt.Sprintf("%s appears with altered casing %d time(s) in the translation", kevin.Name, wrongCased),
			Suggestion:  fmt.Sprintf("Always write the mascot's name as %s", kevin.Name),
		})
	}
	// Recased occurrences count toward the reference total so a single
	// wrong-cased mention is penalized once, as a casing violation.
	if exact+wrongCased < sourceMentions {
		result.Kevin.NamePreserved = false
		result.Violations = append(result.Violations, models.CulturalViolation{
			Type:        models.ViolationReferenceRemoved,
			Severity:    models.ViolationCritical,
			EntityID:    kevin.EntityID,
			Description: fmt.Sprintf("source mentions %s %d time(s) but the translation carries only %d", kevin.Name, sourceMentions, exact+wrongCased),
			Suggestion:  fmt.Sprintf("Keep every %s reference in the translation", kevin.Name),
		})
	}

	// Origin-history markers come from the mascot's key phrases.
	for _, phrase := range kevin.KeyPhrases {
		if containsFold(vc.SourceText, phrase) && !containsFold(vc.TargetText, phrase) {
			result.Kevin.OriginHistoryIntact = false
			result.Suggestions = append(result.Suggestions, models.EnhancementSuggestion{
				Priority:    models.SuggestionMedium,
				EntityID:    kevin.EntityID,
				Description: fmt.Sprintf("origin phrase %q was dropped; consider adding equivalent cultural context", phrase),
			})
		}
	}

	if kevin.MemeConnection && mentionsMemeCulture(vc.SourceText) && !mentionsMemeCulture(vc.TargetText) {
		result.Kevin.MemeConnectionMaintained = false
		result.Kevin.CulturalSignificancePreserved = false
		result.Violations = append(result.Violations, models.CulturalViolation{
			Type:        models.ViolationContextLost,
			Severity:    models.ViolationMajor,
			EntityID:    kevin.EntityID,
			Description: "meme culture connection present in source was dropped from the translation",
			Suggestion:  "Preserve the Rare Pepe / meme heritage framing around the mascot",
		})
	}
}

// checkTrinity verifies the founder trio survived translation.
func (v *culturalValidator) checkTrinity(vc *ValidationContext, result *models.CulturalValidationResult) {
	for _, entity := range v.registry.All() {
		if !entity.TrinityMember {
			continue
		}

		if strings.Contains(vc.SourceText, entity.Name) && !strings.Contains(vc.TargetText, entity.Name) {
			result.Trinity.AllMembersPreserved = false
			result.Violations = append(result.Violations, models.CulturalViolation{
				Type:        models.ViolationReferenceRemoved,
				Severity:    models.ViolationCritical,
				EntityID:    entity.EntityID,
				Description: fmt.Sprintf("founder %s is mentioned in the source but missing from the translation", entity.Name),
				Suggestion:  fmt.Sprintf("Founder names are never translated; restore %s verbatim", entity.Name),
			})
		}

		for _, phrase := range entity.KeyPhrases {
			if containsFold(vc.SourceText, phrase) && !containsFold(vc.TargetText, phrase) {
				result.Trinity.ConnectionsPreserved = false
				result.Suggestions = append(result.Suggestions, models.EnhancementSuggestion{
					Priority:    models.SuggestionHigh,
					EntityID:    entity.EntityID,
					Description: fmt.Sprintf("role phrase %q for %s was not carried into the translation", phrase, entity.Name),
				})
			}
		}
	}

	for _, marker := range foundingStoryMarkers {
		if containsFold(vc.SourceText, marker) && !containsFold(vc.TargetText, marker) {
			result.Trinity.FoundingStoryIntact = false
			break
		}
	}
}

// checkConnections emits medium-priority suggestions when a concept that
// requires surrounding context loses its contextual keywords in translation.
func (v *culturalValidator) checkConnections(vc *ValidationContext, result *models.CulturalValidationResult) {
	for _, entity := range v.registry.All() {
		if !entity.RequiresContext || entity.TrinityMember || entity.EntityID == models.EntityKevin {
			continue
		}
		if !containsFold(vc.SourceText, entity.Name) {
			continue
		}

		keywords := append([]string{entity.Name}, entity.Aliases...)
		found := false
		for _, kw := range keywords {
			if containsFold(vc.TargetText, kw) {
				found = true
				break
			}
		}
		if !found {
			result.Suggestions = append(result.Suggestions, models.EnhancementSuggestion{
				Priority:    models.SuggestionMedium,
				EntityID:    entity.EntityID,
				Description: fmt.Sprintf("%s is mentioned in the source; add explanatory context for it in the translation", entity.Name),
			})
		}
	}
}

// checkProtocolFormat flags inconsistent protocol identifier formatting in
// the target: loose variants (src20, src 20) should not outnumber the strict
// form (SRC-20).
func (v *culturalValidator) checkProtocolFormat(vc *ValidationContext, result *models.CulturalValidationResult) {
	for _, entity := range v.registry.All() {
		if entity.EntityType != models.EntityTypeProtocol {
			continue
		}

		loose := regexp.MustCompile(`(?i)\b` + looseProtocolPattern(entity.Name) + `\b`)
		all := loose.FindAllString(vc.TargetText, -1)
		if len(all) == 0 {
			continue
		}

		strict := 0
		for _, occurrence := range all {
			if occurrence == entity.Name {
				strict++
			}
		}
		if len(all)-strict > strict {
			result.Violations = append(result.Violations, models.CulturalViolation{
				Type:        models.ViolationNameChanged,
				Severity:    models.ViolationMinor,
				EntityID:    entity.EntityID,
				Description: fmt.Sprintf("inconsistent formatting of %s in the translation", entity.Name),
				Suggestion:  fmt.Sprintf("Use the standard form %s consistently", entity.Name),
			})
		}
	}
}

// looseProtocolPattern matches a protocol name with optional or missing
// separators, e.g. SRC-20 also matches src20 and src 20.
func looseProtocolPattern(name string) string {
	parts := strings.Split(name, "-")
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(escaped, `[\s-]?`)
}

func (v *culturalValidator) preservationScore(vc *ValidationContext, violations []models.CulturalViolation) float64 {
	score := baseScore
	score -= float64(countBySeverity(violations, models.ViolationCritical)) * criticalPenalty
	score -= float64(countBySeverity(violations, models.ViolationMajor)) * majorPenalty
	score -= float64(countBySeverity(violations, models.ViolationMinor)) * minorPenalty

	if vc.ContentType == models.ContentTypeTitle || isNarrativePath(vc.FilePath) {
		score += narrativeBonus
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (v *culturalValidator) GeneratePreservationReport(results []*models.CulturalValidationResult) *models.PreservationReport {
	report := &models.PreservationReport{ResultCount: len(results)}
	if len(results) == 0 {
		report.OverallHealth = models.HealthExcellent
		return report
	}

	var total float64
	suggestionCounts := make(map[string]int)
	for _, r := range results {
		total += r.PreservationScore
		report.CriticalViolations += countBySeverity(r.Violations, models.ViolationCritical)
		for _, s := range r.Suggestions {
			suggestionCounts[s.Description]++
		}
	}
	report.AverageScore = total / float64(len(results))

	type rankedSuggestion struct {
		text  string
		count int
	}
	ranked := make([]rankedSuggestion, 0, len(suggestionCounts))
	for text, count := range suggestionCounts {
		ranked = append(ranked, rankedSuggestion{text, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].text < ranked[j].text
	})
	for i := 0; i < len(ranked) && i < maxTopSuggestion; i++ {
		report.TopSuggestions = append(report.TopSuggestions, ranked[i].text)
	}

	switch {
	case report.AverageScore >= 90 && report.CriticalViolations == 0:
		report.OverallHealth = models.HealthExcellent
	case report.AverageScore >= 75 && report.CriticalViolations == 0:
		report.OverallHealth = models.HealthGood
	case report.AverageScore >= 50:
		report.OverallHealth = models.HealthNeedsAttention
	default:
		report.OverallHealth = models.HealthCritical
	}

	return report
}

// Helper functions

func countBySeverity(violations []models.CulturalViolation, severity string) int {
	n := 0
	for _, v := range violations {
		if v.Severity == severity {
			n++
		}
	}
	return n
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

var memeCultureTerms = []string{"rare pepe", "pepe", "meme"}

func mentionsMemeCulture(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range memeCultureTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func isNarrativePath(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range narrativePathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
