package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryRejectsMissingSeedFile(t *testing.T) {
	_, err := NewCulturalEntityRegistry(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestRegistryRejectsEmptySeed(t *testing.T) {
	path := writeSeedFile(t, "entities: []\n")
	_, err := NewCulturalEntityRegistry(path, zap.NewNop())
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicateEntity(t *testing.T) {
	path := writeSeedFile(t, `entities:
  - entity_id: kevin
    name: KEVIN
  - entity_id: kevin
    name: KEVIN
`)
	_, err := NewCulturalEntityRegistry(path, zap.NewNop())
	assert.ErrorContains(t, err, "duplicate")
}

func TestRegistryRejectsMissingName(t *testing.T) {
	path := writeSeedFile(t, `entities:
  - entity_id: kevin
`)
	_, err := NewCulturalEntityRegistry(path, zap.NewNop())
	assert.ErrorContains(t, err, "missing id or name")
}

func TestRegistryRejectsInvalidPattern(t *testing.T) {
	path := writeSeedFile(t, `entities:
  - entity_id: kevin
    name: KEVIN
    patterns:
      - "(unclosed"
`)
	_, err := NewCulturalEntityRegistry(path, zap.NewNop())
	assert.ErrorContains(t, err, "invalid detection pattern")
}

func TestDetectEntitiesByNameAndAlias(t *testing.T) {
	registry := newTestRegistry(t)

	detected := registry.DetectEntities("The three founders shipped Pepe-inspired art.")
	assert.Equal(t, []string{"trinity", "rare_pepe"}, detected)

	assert.Empty(t, registry.DetectEntities("Nothing of note here."))
}

func TestDetectEntitiesCaseInsensitive(t *testing.T) {
	registry := newTestRegistry(t)

	detected := registry.DetectEntities("kevin was mentioned in lowercase.")
	assert.Contains(t, detected, models.EntityKevin)
}

func TestDetectEntitiesWordBoundary(t *testing.T) {
	registry := newTestRegistry(t)

	// Substrings inside larger words do not count as mentions.
	assert.Empty(t, registry.DetectEntities("The kevinesque style is unrelated."))
}

func TestContextWindowsSignificance(t *testing.T) {
	registry := newTestRegistry(t)

	windows := registry.ContextWindows("KEVIN is the mascot everyone loves.")
	require.Len(t, windows, 1)
	assert.Equal(t, models.EntityKevin, windows[0].EntityID)
	assert.Equal(t, models.SignificanceHigh, windows[0].Significance)

	windows = registry.ContextWindows("SRC-20 is a token standard.")
	require.Len(t, windows, 1)
	assert.Equal(t, models.SignificanceMedium, windows[0].Significance)

	windows = registry.ContextWindows("Arwyn said hello.")
	require.Len(t, windows, 1)
	assert.Equal(t, models.SignificanceLow, windows[0].Significance)
}

func TestContextWindowsClampedToText(t *testing.T) {
	registry := newTestRegistry(t)

	text := "KEVIN rules."
	windows := registry.ContextWindows(text)
	require.Len(t, windows, 1)
	assert.Equal(t, text, windows[0].Text)
}

func TestContextWindowsMultibyteText(t *testing.T) {
	registry := newTestRegistry(t)

	text := strings.Repeat("あ", 150) + " KEVIN " + strings.Repeat("語", 150)
	windows := registry.ContextWindows(text)
	require.Len(t, windows, 1)

	// The radius counts runes, so the window never splits a multibyte
	// sequence and reaches a full hundred ideographs on each side.
	assert.True(t, utf8.ValidString(windows[0].Text))
	assert.Contains(t, windows[0].Text, strings.Repeat("あ", 99))
	assert.Contains(t, windows[0].Text, strings.Repeat("語", 99))
}

func TestIsHighSignificance(t *testing.T) {
	registry := newTestRegistry(t)

	assert.True(t, registry.IsHighSignificance(models.EntityKevin))
	assert.True(t, registry.IsHighSignificance("mikeinspace"))
	assert.False(t, registry.IsHighSignificance("src20"))
	assert.False(t, registry.IsHighSignificance("unknown"))
}

func TestRegistrySeedUpsertsAll(t *testing.T) {
	registry := newTestRegistry(t)
	repo := &mockEntityRepo{}

	require.NoError(t, registry.Seed(context.Background(), repo))
	assert.Len(t, repo.entities, len(registry.All()))
	assert.Equal(t, models.EntityKevin, repo.entities[0].EntityID)
}

func TestGetUnknownEntity(t *testing.T) {
	registry := newTestRegistry(t)
	assert.Nil(t, registry.Get("nonexistent"))
}
