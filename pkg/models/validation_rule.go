package models

import "github.com/google/uuid"

// Rule type constants.
const (
	RuleTypeCulturalPreservation = "cultural_preservation"
	RuleTypeConsistency          = "consistency"
	RuleTypeTerminology          = "terminology"
	RuleTypeFormat               = "format"
)

// Rule severity constants.
const (
	RuleSeverityError   = "error"
	RuleSeverityWarning = "warning"
	RuleSeverityInfo    = "info"
)

// Validation function identifiers. Rules reference checks by one of these
// names; the handler layer resolves them through a typed registry at startup
// and fails fast on unknown identifiers.
const (
	ValidationFuncKevinCapitalization = "kevin_capitalization"
	ValidationFuncFounderNameExact    = "founder_name_exact"
	ValidationFuncPepeContextPresence = "pepe_context_presence"
	ValidationFuncTrinityContext      = "trinity_context_presence"
	ValidationFuncProtocolFormat      = "protocol_format_consistency"
)

// ValidationRule is a declarative check applied to (source, translation)
// pairs. Static configuration: seeded at startup, mutated only via the
// administrative API. Stored in validation_rules table.
type ValidationRule struct {
	ID            uuid.UUID `json:"id"`
	RuleName      string    `json:"rule_name"`
	RuleType      string    `json:"rule_type"`
	SourcePattern string    `json:"source_pattern"`
	TargetPattern string    `json:"target_pattern,omitempty"`

	// ValidationFunction names the check to invoke (see ValidationFunc*).
	ValidationFunction string `json:"validation_function"`

	// Languages limits applicability; empty means all languages.
	Languages []string `json:"languages,omitempty"`

	Severity        string `json:"severity"`
	MessageTemplate string `json:"message_template"`

	// ProtectsEntity links the rule to the cultural entity it guards.
	ProtectsEntity    string `json:"protects_entity,omitempty"`
	CulturalRationale string `json:"cultural_rationale,omitempty"`

	Active bool `json:"active"`
}

// AppliesTo reports whether the rule applies to the given target language.
func (r *ValidationRule) AppliesTo(language string) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range r.Languages {
		if l == language {
			return true
		}
	}
	return false
}
