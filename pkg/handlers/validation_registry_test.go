package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/apperrors"
	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/services"
)

const registrySeedYAML = `entities:
  - entity_id: kevin
    name: KEVIN
    entity_type: mascot
    cultural_significance: high
    preserve_name: true
  - entity_id: mikeinspace
    name: Mike In Space
    entity_type: founder
    cultural_significance: high
    preserve_name: true
    trinity_member: true
  - entity_id: trinity
    name: founding trinity
    entity_type: narrative
    cultural_significance: high
    requires_context: true
    aliases:
      - three founders
  - entity_id: rare_pepe
    name: Rare Pepe
    entity_type: cultural_icon
    cultural_significance: high
    aliases:
      - Pepe
  - entity_id: src20
    name: SRC-20
    entity_type: protocol
    cultural_significance: medium
`

func newFuncRegistry(t *testing.T) *ValidationFuncRegistry {
	t.Helper()

	seedPath := filepath.Join(t.TempDir(), "entities.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(registrySeedYAML), 0o644))

	entities, err := services.NewCulturalEntityRegistry(seedPath, zap.NewNop())
	require.NoError(t, err)
	return NewValidationFuncRegistry(entities)
}

func TestResolveUnknownFunction(t *testing.T) {
	r := newFuncRegistry(t)

	_, err := r.Resolve("made_up_check")
	assert.ErrorIs(t, err, apperrors.ErrUnknownValidation)
}

func TestVerifyRulesFailsFast(t *testing.T) {
	r := newFuncRegistry(t)

	valid := []*models.ValidationRule{
		{RuleName: "kevin-capitalization", ValidationFunction: models.ValidationFuncKevinCapitalization},
	}
	assert.NoError(t, r.VerifyRules(valid))

	broken := []*models.ValidationRule{
		{RuleName: "ghost-rule", ValidationFunction: "no_such_function"},
	}
	err := r.VerifyRules(broken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnknownValidation)
	assert.Contains(t, err.Error(), "ghost-rule")
}

func TestKevinCapitalizationCheck(t *testing.T) {
	r := newFuncRegistry(t)
	check, err := r.Resolve(models.ValidationFuncKevinCapitalization)
	require.NoError(t, err)

	passed, _ := check("KEVIN is great", "KEVIN est génial")
	assert.True(t, passed)

	passed, suggestion := check("KEVIN is great", "Kevin est génial")
	assert.False(t, passed)
	assert.Contains(t, suggestion, "KEVIN")
}

func TestFounderNameExactCheck(t *testing.T) {
	r := newFuncRegistry(t)
	check, err := r.Resolve(models.ValidationFuncFounderNameExact)
	require.NoError(t, err)

	passed, _ := check("Mike In Space built it", "Mike In Space l'a construit")
	assert.True(t, passed)

	passed, suggestion := check("Mike In Space built it", "Le fondateur l'a construit")
	assert.False(t, passed)
	assert.Contains(t, suggestion, "Mike In Space")
}

func TestPepeContextPresenceCheck(t *testing.T) {
	r := newFuncRegistry(t)
	check, err := r.Resolve(models.ValidationFuncPepeContextPresence)
	require.NoError(t, err)

	// Alias in the target satisfies the check.
	passed, _ := check("Inspired by Rare Pepe art", "Inspiré par l'art Pepe")
	assert.True(t, passed)

	passed, _ = check("Inspired by Rare Pepe art", "Inspiré par l'art numérique")
	assert.False(t, passed)

	// No mention in the source means nothing to preserve.
	passed, _ = check("A plain protocol description", "Une description")
	assert.True(t, passed)
}

func TestProtocolFormatCheck(t *testing.T) {
	r := newFuncRegistry(t)
	check, err := r.Resolve(models.ValidationFuncProtocolFormat)
	require.NoError(t, err)

	passed, _ := check("SRC-20 tokens", "Les jetons SRC-20 et SRC-20")
	assert.True(t, passed)

	passed, suggestion := check("SRC-20 tokens", "Les jetons src20 et src 20 et SRC-20")
	assert.False(t, passed)
	assert.Contains(t, suggestion, "SRC-20")
}

func TestApplyFiltersRules(t *testing.T) {
	r := newFuncRegistry(t)

	rules := []*models.ValidationRule{
		{
			RuleName:           "kevin-capitalization",
			ValidationFunction: models.ValidationFuncKevinCapitalization,
			Severity:           models.RuleSeverityError,
			Active:             true,
		},
		{
			RuleName:           "founder-names-exact",
			ValidationFunction: models.ValidationFuncFounderNameExact,
			Severity:           models.RuleSeverityError,
			Active:             false,
		},
		{
			RuleName:           "pepe-context-presence",
			ValidationFunction: models.ValidationFuncPepeContextPresence,
			Severity:           models.RuleSeverityWarning,
			Active:             true,
			Languages:          []string{"ja"},
		},
	}

	results, err := r.Apply(rules, "KEVIN and Kevin", "Kevin seulement", "de")
	require.NoError(t, err)

	// Inactive and out-of-language rules are skipped.
	require.Len(t, results, 1)
	assert.Equal(t, "kevin-capitalization", results[0].RuleName)
	assert.False(t, results[0].Passed)
	assert.NotEmpty(t, results[0].Suggestion)
}
