package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
)

// DefaultFuzzyThreshold is the minimum string similarity for fuzzy reuse when
// the caller does not supply one.
const DefaultFuzzyThreshold = 0.70

// minSegmentLength filters out fragments too short to be worth remembering.
const minSegmentLength = 10

// sentenceBoundary splits prose into sentence-like segments.
var sentenceBoundary = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// Score weights for the combined fuzzy score.
const (
	matchWeight    = 0.4
	contextWeight  = 0.3
	culturalWeight = 0.3
)

// FuzzyMatcher produces ranked, explainable translation suggestions from
// translation memory.
type FuzzyMatcher interface {
	// FindBestMatches retrieves memory candidates for a source text and
	// scores each one by string similarity, context affinity and cultural
	// entity overlap. An empty candidate set returns an empty slice.
	FindBestMatches(ctx context.Context, sourceText, sourceLang, targetLang string, content *models.ContentContext, minThreshold float64) ([]*models.EnhancedMatchResult, error)

	// SegmentText splits text into sentence-like segments with per-segment
	// context hashes and detected entities. Segments shorter than 10
	// characters are skipped.
	SegmentText(text string, content *models.ContentContext) []models.TextSegment

	// CalculateEditDistance returns the Levenshtein distance between two
	// strings, case-insensitive.
	CalculateEditDistance(a, b string) int

	// CalculateSimilarity returns 1 - distance/maxLength, case-insensitive.
	// Two empty strings are identical (similarity 1).
	CalculateSimilarity(a, b string) float64
}

type fuzzyMatcher struct {
	memoryRepo repositories.TranslationMemoryRepository
	registry   CulturalEntityRegistry
	logger     *zap.Logger
}

var _ FuzzyMatcher = (*fuzzyMatcher)(nil)

// NewFuzzyMatcher creates a new FuzzyMatcher.
func NewFuzzyMatcher(memoryRepo repositories.TranslationMemoryRepository, registry CulturalEntityRegistry, logger *zap.Logger) FuzzyMatcher {
	return &fuzzyMatcher{
		memoryRepo: memoryRepo,
		registry:   registry,
		logger:     logger.Named("fuzzy-matcher"),
	}
}

func (m *fuzzyMatcher) FindBestMatches(ctx context.Context, sourceText, sourceLang, targetLang string, content *models.ContentContext, minThreshold float64) ([]*models.EnhancedMatchResult, error) {
	if minThreshold <= 0 {
		minThreshold = DefaultFuzzyThreshold
	}

	candidates, err := m.memoryRepo.FindFuzzyMatches(ctx, sourceText, sourceLang, targetLang, minThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve fuzzy candidates: %w", err)
	}

	sourceEntities := m.registry.DetectEntities(sourceText)

	results := make([]*models.EnhancedMatchResult, 0, len(candidates))
	for _, candidate := range candidates {
		contextSim := m.contextSimilarity(candidate.Entry, content)
		culturalRel := m.culturalRelevance(sourceEntities, candidate.Entry, content)
		overall := candidate.MatchScore*matchWeight + contextSim*contextWeight + culturalRel*culturalWeight

		results = append(results, &models.EnhancedMatchResult{
			EntryID:           candidate.Entry.ID,
			SourceText:        candidate.Entry.SourceText,
			TargetText:        candidate.Entry.TargetText,
			TargetLanguage:    candidate.Entry.TargetLanguage,
			MatchScore:        candidate.MatchScore,
			ContextSimilarity: contextSim,
			CulturalRelevance: culturalRel,
			OverallScore:      overall,
			RecommendedAction: models.ClassifyMatchAction(overall, culturalRel),
			CulturalNotes:     m.culturalNotes(sourceEntities),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})

	m.logger.Debug("Fuzzy match completed",
		zap.Int("candidates", len(candidates)),
		zap.String("target_language", targetLang))

	return results, nil
}

// contextSimilarity scores how well a stored entry's origin matches the
// current content context: 0.5 baseline, +0.2 same directory, +0.1 same file
// extension, +0.2 same content type, clamped to 1.
func (m *fuzzyMatcher) contextSimilarity(entry *models.TranslationMemoryEntry, content *models.ContentContext) float64 {
	score := 0.5
	if content == nil {
		return score
	}

	if entry.FilePath != "" && content.FilePath != "" {
		if filepath.Dir(entry.FilePath) == filepath.Dir(content.FilePath) {
			score += 0.2
		}
		if filepath.Ext(entry.FilePath) == filepath.Ext(content.FilePath) {
			score += 0.1
		}
	}

	if storedType, ok := entry.CulturalContext["content_type"].(string); ok && storedType == content.ContentType {
		score += 0.2
	}

	return clampUnit(score)
}

// culturalRelevance scores entity overlap between the query and a candidate:
// 0.5 baseline, +0.15 per overlapping entity capped at +0.45, +0.1 when any
// overlapping entity is in the highest-significance tier, clamped to 1.
func (m *fuzzyMatcher) culturalRelevance(sourceEntities []string, entry *models.TranslationMemoryEntry, content *models.ContentContext) float64 {
	score := 0.5

	known := make(map[string]bool, len(entry.EntityReferences))
	for _, id := range entry.EntityReferences {
		known[id] = true
	}
	if content != nil {
		for _, id := range content.EntityIDs {
			known[id] = true
		}
	}

	overlap := 0
	highSignificance := false
	for _, id := range sourceEntities {
		if known[id] {
			overlap++
			if m.registry.IsHighSignificance(id) {
				highSignificance = true
			}
		}
	}

	bonus := float64(overlap) * 0.15
	if bonus > 0.45 {
		bonus = 0.45
	}
	score += bonus
	if highSignificance {
		score += 0.1
	}

	return clampUnit(score)
}

// culturalNotes renders translator guidance for every entity detected in the
// source text, using the registry's guideline strings.
func (m *fuzzyMatcher) culturalNotes(sourceEntities []string) []string {
	var notes []string
	for _, id := range sourceEntities {
		entity := m.registry.Get(id)
		if entity == nil {
			continue
		}
		if entity.TranslationGuidelines != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", entity.Name, entity.TranslationGuidelines))
		} else if entity.PreserveName {
			notes = append(notes, fmt.Sprintf("%s: name must be preserved verbatim", entity.Name))
		}
	}
	return notes
}

func (m *fuzzyMatcher) SegmentText(text string, content *models.ContentContext) []models.TextSegment {
	raw := sentenceBoundary.Split(text, -1)

	var sentences []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) >= minSegmentLength {
			sentences = append(sentences, s)
		}
	}

	filePath := ""
	if content != nil {
		filePath = content.FilePath
	}

	segments := make([]models.TextSegment, 0, len(sentences))
	for i, sentence := range sentences {
		prev := ""
		if i > 0 {
			prev = sentences[i-1]
		}
		next := ""
		if i < len(sentences)-1 {
			next = sentences[i+1]
		}

		segments = append(segments, models.TextSegment{
			Text:        sentence,
			ContextHash: contextHash(sentence, prev, next, filePath),
			EntityIDs:   m.registry.DetectEntities(sentence),
			Index:       i,
		})
	}

	return segments
}

// contextHash derives a stable dedup key from a segment, its neighbors and
// its file path.
func contextHash(text, prev, next, filePath string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(prev))
	h.Write([]byte{0})
	h.Write([]byte(next))
	h.Write([]byte{0})
	h.Write([]byte(filePath))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func (m *fuzzyMatcher) CalculateEditDistance(a, b string) int {
	return levenshteinDistance(strings.ToLower(a), strings.ToLower(b))
}

func (m *fuzzyMatcher) CalculateSimilarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(m.CalculateEditDistance(a, b))/float64(maxLen)
}

// levenshteinDistance computes edit distance with the two-row dynamic
// programming formulation.
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := 0; j <= len(r2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func clampUnit(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}
