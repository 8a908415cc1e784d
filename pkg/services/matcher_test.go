package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
)

func newTestMatcher(t *testing.T, memoryRepo *mockMemoryRepo) FuzzyMatcher {
	t.Helper()
	if memoryRepo == nil {
		memoryRepo = &mockMemoryRepo{}
	}
	return NewFuzzyMatcher(memoryRepo, newTestRegistry(t), zap.NewNop())
}

func TestCalculateSimilarity(t *testing.T) {
	m := newTestMatcher(t, nil)

	assert.Equal(t, 1.0, m.CalculateSimilarity("hello", "hello"))
	assert.Equal(t, 1.0, m.CalculateSimilarity("", ""))
	assert.InDelta(t, 1.0-1.0/3.0, m.CalculateSimilarity("abc", "abd"), 1e-9)
	assert.Equal(t, 0.0, m.CalculateSimilarity("abc", "xyz"))
}

func TestCalculateEditDistanceCaseInsensitive(t *testing.T) {
	m := newTestMatcher(t, nil)

	assert.Equal(t, 0, m.CalculateEditDistance("KEVIN", "kevin"))
	assert.Equal(t, 1, m.CalculateEditDistance("stamp", "stamps"))
	assert.Equal(t, 5, m.CalculateEditDistance("", "pepes"))
}

func TestFindBestMatchesEmptyCandidates(t *testing.T) {
	m := newTestMatcher(t, &mockMemoryRepo{})

	results, err := m.FindBestMatches(context.Background(), "brand new text", "en", "de", nil, 0.70)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindBestMatchesScoring(t *testing.T) {
	entry := &models.TranslationMemoryEntry{
		ID:               uuid.New(),
		SourceText:       "KEVIN is the mascot of Bitcoin Stamps",
		TargetText:       "KEVIN ist das Maskottchen von Bitcoin Stamps",
		TargetLanguage:   "de",
		FilePath:         "docs/en/narrative/kevin.md",
		EntityReferences: []string{"kevin"},
		CulturalContext:  map[string]any{"content_type": "narrative"},
	}
	repo := &mockMemoryRepo{
		findFuzzyMatchesFunc: func(_ context.Context, _, _, _ string, _ float64) ([]*models.FuzzyMatchResult, error) {
			return []*models.FuzzyMatchResult{{Entry: entry, MatchScore: 1.0}}, nil
		},
	}
	m := newTestMatcher(t, repo)

	content := &models.ContentContext{
		FilePath:    "docs/en/narrative/mascot.md",
		ContentType: "narrative",
		EntityIDs:   []string{"kevin"},
	}
	results, err := m.FindBestMatches(context.Background(),
		"KEVIN is the mascot of Bitcoin Stamps", "en", "de", content, 0.70)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 1.0, r.MatchScore)
	// Same directory (+0.2), same extension (+0.1), same content type (+0.2).
	assert.InDelta(t, 1.0, r.ContextSimilarity, 1e-9)
	// kevin overlaps (+0.15) and is high significance (+0.1).
	assert.InDelta(t, 0.75, r.CulturalRelevance, 1e-9)
	assert.InDelta(t, 1.0*0.4+1.0*0.3+0.75*0.3, r.OverallScore, 1e-9)
	assert.Equal(t, models.MatchActionReview, r.RecommendedAction)
	assert.NotEmpty(t, r.CulturalNotes)
}

func TestFindBestMatchesSortedByOverallScore(t *testing.T) {
	low := &models.TranslationMemoryEntry{ID: uuid.New(), SourceText: "a", TargetLanguage: "de"}
	high := &models.TranslationMemoryEntry{
		ID:               uuid.New(),
		SourceText:       "b",
		TargetLanguage:   "de",
		EntityReferences: []string{"kevin"},
	}
	repo := &mockMemoryRepo{
		findFuzzyMatchesFunc: func(_ context.Context, _, _, _ string, _ float64) ([]*models.FuzzyMatchResult, error) {
			return []*models.FuzzyMatchResult{
				{Entry: low, MatchScore: 0.71},
				{Entry: high, MatchScore: 0.95},
			}, nil
		},
	}
	m := newTestMatcher(t, repo)

	results, err := m.FindBestMatches(context.Background(), "KEVIN text", "en", "de", nil, 0.70)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].OverallScore, results[1].OverallScore)
	assert.Equal(t, high.ID, results[0].EntryID)
}

func TestClassifyMatchActionTable(t *testing.T) {
	tests := []struct {
		name     string
		overall  float64
		cultural float64
		want     string
	}{
		{"high score and relevance", 0.95, 0.85, models.MatchActionUse},
		{"good score low relevance", 0.75, 0.5, models.MatchActionReview},
		{"low score high relevance", 0.5, 0.75, models.MatchActionReview},
		{"both low", 0.5, 0.4, models.MatchActionReject},
		{"use boundary", 0.90, 0.80, models.MatchActionUse},
		{"just below use", 0.89, 0.85, models.MatchActionReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, models.ClassifyMatchAction(tt.overall, tt.cultural))
		})
	}
}

func TestSegmentText(t *testing.T) {
	m := newTestMatcher(t, nil)

	text := "KEVIN is the mascot of Bitcoin Stamps. Short! The founding trinity built the protocol together."
	segments := m.SegmentText(text, &models.ContentContext{FilePath: "docs/en/about.md"})

	// "Short!" is under the minimum segment length and is dropped.
	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[0].Index)
	assert.Contains(t, segments[0].EntityIDs, "kevin")
	assert.Contains(t, segments[1].EntityIDs, "trinity")
	assert.NotEqual(t, segments[0].ContextHash, segments[1].ContextHash)
}

func TestSegmentTextCountsRunesNotBytes(t *testing.T) {
	m := newTestMatcher(t, nil)

	// Six ideographs is eighteen bytes but still below the minimum segment
	// length, so only the second sentence survives.
	segments := m.SegmentText("短い断片です. これは翻訳メモリに残す価値のある長さの文です.", nil)
	require.Len(t, segments, 1)
	assert.Contains(t, segments[0].Text, "翻訳メモリ")
}

func TestSegmentTextHashDependsOnFilePath(t *testing.T) {
	m := newTestMatcher(t, nil)

	text := "KEVIN is the mascot of Bitcoin Stamps."
	a := m.SegmentText(text, &models.ContentContext{FilePath: "docs/en/a.md"})
	b := m.SegmentText(text, &models.ContentContext{FilePath: "docs/en/b.md"})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.NotEqual(t, a[0].ContextHash, b[0].ContextHash)
}
