package handlers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bitcoin-stamps/translation-engine/pkg/apperrors"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/services"
)

// ValidationCheck is one named rule check over a (source, target) pair.
// Returns pass/fail and a tailored suggestion on failure.
type ValidationCheck func(source, target string) (bool, string)

// RuleCheckResult is the outcome of applying one validation rule.
type RuleCheckResult struct {
	RuleName   string `json:"rule_name"`
	Function   string `json:"function"`
	Severity   string `json:"severity"`
	Passed     bool   `json:"passed"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ValidationFuncRegistry resolves ValidationRule function identifiers to
// typed checks. Built once at startup; unknown identifiers fail fast instead
// of surfacing mid-request.
type ValidationFuncRegistry struct {
	checks map[string]ValidationCheck
}

// NewValidationFuncRegistry builds the registry against the cultural entity
// registry, which supplies the protected names the checks enforce.
func NewValidationFuncRegistry(entities services.CulturalEntityRegistry) *ValidationFuncRegistry {
	r := &ValidationFuncRegistry{checks: make(map[string]ValidationCheck)}

	r.checks[models.ValidationFuncKevinCapitalization] = func(source, target string) (bool, string) {
		kevin := entities.Get(models.EntityKevin)
		if kevin == nil {
			return true, ""
		}
		anyCase := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kevin.Name) + `\b`)
		for _, occurrence := range anyCase.FindAllString(target, -1) {
			if occurrence != kevin.Name {
				return false, fmt.Sprintf("write the mascot's name as %s, found %q", kevin.Name, occurrence)
			}
		}
		return true, ""
	}

	r.checks[models.ValidationFuncFounderNameExact] = func(source, target string) (bool, string) {
		for _, entity := range entities.All() {
			if !entity.TrinityMember {
				continue
			}
			if strings.Contains(source, entity.Name) && !strings.Contains(target, entity.Name) {
				return false, fmt.Sprintf("founder name %s must appear verbatim in the translation", entity.Name)
			}
		}
		return true, ""
	}

	r.checks[models.ValidationFuncPepeContextPresence] = func(source, target string) (bool, string) {
		return contextPresence(entities, models.EntityRarePepe, source, target,
			"add Rare Pepe cultural context to the translation")
	}

	r.checks[models.ValidationFuncTrinityContext] = func(source, target string) (bool, string) {
		return contextPresence(entities, models.EntityTrinity, source, target,
			"add founding trinity context to the translation")
	}

	r.checks[models.ValidationFuncProtocolFormat] = func(source, target string) (bool, string) {
		for _, entity := range entities.All() {
			if entity.EntityType != models.EntityTypeProtocol {
				continue
			}
			loose := regexp.MustCompile(`(?i)\b` + strings.ReplaceAll(regexp.QuoteMeta(entity.Name), `\-`, `[\s-]?`) + `\b`)
			all := loose.FindAllString(target, -1)
			strict := 0
			for _, occurrence := range all {
				if occurrence == entity.Name {
					strict++
				}
			}
			if len(all)-strict > strict {
				return false, fmt.Sprintf("use the standard form %s consistently", entity.Name)
			}
		}
		return true, ""
	}

	return r
}

// contextPresence checks that an entity mentioned in the source keeps at
// least one of its names in the target.
func contextPresence(entities services.CulturalEntityRegistry, entityID, source, target, suggestion string) (bool, string) {
	entity := entities.Get(entityID)
	if entity == nil {
		return true, ""
	}

	lowerSource := strings.ToLower(source)
	if !strings.Contains(lowerSource, strings.ToLower(entity.Name)) {
		return true, ""
	}

	lowerTarget := strings.ToLower(target)
	for _, name := range append([]string{entity.Name}, entity.Aliases...) {
		if strings.Contains(lowerTarget, strings.ToLower(name)) {
			return true, ""
		}
	}
	return false, suggestion
}

// Resolve returns the check for a function identifier.
func (r *ValidationFuncRegistry) Resolve(name string) (ValidationCheck, error) {
	check, ok := r.checks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownValidation, name)
	}
	return check, nil
}

// VerifyRules fails fast when any rule references an unknown function.
// Called at startup with the full active rule set.
func (r *ValidationFuncRegistry) VerifyRules(rules []*models.ValidationRule) error {
	for _, rule := range rules {
		if _, err := r.Resolve(rule.ValidationFunction); err != nil {
			return fmt.Errorf("rule %s: %w", rule.RuleName, err)
		}
	}
	return nil
}

// Apply runs every applicable rule against the pair.
func (r *ValidationFuncRegistry) Apply(rules []*models.ValidationRule, source, target, language string) ([]RuleCheckResult, error) {
	var results []RuleCheckResult
	for _, rule := range rules {
		if !rule.Active || !rule.AppliesTo(language) {
			continue
		}
		check, err := r.Resolve(rule.ValidationFunction)
		if err != nil {
			return nil, err
		}
		passed, suggestion := check(source, target)
		results = append(results, RuleCheckResult{
			RuleName:   rule.RuleName,
			Function:   rule.ValidationFunction,
			Severity:   rule.Severity,
			Passed:     passed,
			Suggestion: suggestion,
		})
	}
	return results, nil
}
