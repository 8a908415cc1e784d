package services

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bitcoin-stamps/translation-engine/pkg/models"
	"github.com/bitcoin-stamps/translation-engine/pkg/repositories"
)

// contextWindowRadius is the number of characters captured on each side of an
// entity mention when building a cultural context window.
const contextWindowRadius = 100

// highSignificanceVocab marks a context window as high significance when any
// of these terms appear in it: founder, origin and community vocabulary.
var highSignificanceVocab = []string{
	"founder", "founding", "created", "creator", "origin", "history",
	"community", "culture", "legend", "mascot", "first",
}

// mediumSignificanceVocab marks a window as medium significance: protocol and
// technical vocabulary.
var mediumSignificanceVocab = []string{
	"protocol", "standard", "token", "transaction", "blockchain",
	"implementation", "specification", "deploy", "mint",
}

// entitySeed is the YAML shape of one entity in the registry seed file.
type entitySeed struct {
	EntityID              string   `yaml:"entity_id"`
	Name                  string   `yaml:"name"`
	EntityType            string   `yaml:"entity_type"`
	CulturalSignificance  string   `yaml:"cultural_significance"`
	PreserveName          bool     `yaml:"preserve_name"`
	RequiresContext       bool     `yaml:"requires_context"`
	TranslationGuidelines string   `yaml:"translation_guidelines"`
	Aliases               []string `yaml:"aliases"`
	KeyPhrases            []string `yaml:"key_phrases"`
	Patterns              []string `yaml:"patterns"`
	TrinityMember         bool     `yaml:"trinity_member"`
	MemeConnection        bool     `yaml:"meme_connection"`
	FoundingStory         bool     `yaml:"founding_story"`
}

type entitySeedFile struct {
	Entities []entitySeed `yaml:"entities"`
}

// detectionGroup is one entity's compiled detection patterns.
type detectionGroup struct {
	entityID string
	patterns []*regexp.Regexp
}

// CulturalEntityRegistry is the single source of truth for protected entities:
// which names exist, how to detect them in free text, and how significant each
// one is. The matcher, validator and detector all query it instead of keeping
// their own entity lists.
type CulturalEntityRegistry interface {
	// Get returns an entity by ID, or nil when unknown.
	Get(entityID string) *models.CulturalEntity

	// All returns every registered entity.
	All() []*models.CulturalEntity

	// DetectEntities returns the IDs of entities mentioned in the text, in
	// registry order.
	DetectEntities(text string) []string

	// ContextWindows captures a text window around every entity mention,
	// tagged with the significance of the vocabulary it contains.
	ContextWindows(text string) []models.CulturalContextWindow

	// IsHighSignificance reports whether an entity sits in the highest
	// protection tier.
	IsHighSignificance(entityID string) bool

	// Seed upserts every registered entity into the store.
	Seed(ctx context.Context, repo repositories.CulturalEntityRepository) error
}

type culturalEntityRegistry struct {
	entities map[string]*models.CulturalEntity
	order    []string
	groups   []detectionGroup
	logger   *zap.Logger
}

var _ CulturalEntityRegistry = (*culturalEntityRegistry)(nil)

// NewCulturalEntityRegistry loads the registry from a YAML seed file. A
// missing or malformed seed file is a fatal configuration error.
func NewCulturalEntityRegistry(seedPath string, logger *zap.Logger) (CulturalEntityRegistry, error) {
	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity seed file %s: %w", seedPath, err)
	}

	var seed entitySeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse entity seed file %s: %w", seedPath, err)
	}
	if len(seed.Entities) == 0 {
		return nil, fmt.Errorf("entity seed file %s contains no entities", seedPath)
	}

	r := &culturalEntityRegistry{
		entities: make(map[string]*models.CulturalEntity, len(seed.Entities)),
		logger:   logger.Named("entity-registry"),
	}

	for _, s := range seed.Entities {
		if s.EntityID == "" || s.Name == "" {
			return nil, fmt.Errorf("entity seed file %s: entity missing id or name", seedPath)
		}
		if _, dup := r.entities[s.EntityID]; dup {
			return nil, fmt.Errorf("entity seed file %s: duplicate entity %s", seedPath, s.EntityID)
		}

		entity := &models.CulturalEntity{
			EntityID:              s.EntityID,
			Name:                  s.Name,
			EntityType:            s.EntityType,
			CulturalSignificance:  s.CulturalSignificance,
			PreserveName:          s.PreserveName,
			RequiresContext:       s.RequiresContext,
			TranslationGuidelines: s.TranslationGuidelines,
			Aliases:               s.Aliases,
			KeyPhrases:            s.KeyPhrases,
			TrinityMember:         s.TrinityMember,
			MemeConnection:        s.MemeConnection,
			FoundingStory:         s.FoundingStory,
		}

		group, err := compileDetectionGroup(s)
		if err != nil {
			return nil, err
		}

		r.entities[s.EntityID] = entity
		r.order = append(r.order, s.EntityID)
		r.groups = append(r.groups, group)
	}

	r.logger.Info("Cultural entity registry loaded",
		zap.Int("entities", len(r.order)),
		zap.String("seed_path", seedPath))

	return r, nil
}

// compileDetectionGroup builds the pattern set for one entity. Explicit
// patterns from the seed file take precedence; otherwise a word-boundary
// pattern is derived from the name and aliases.
func compileDetectionGroup(s entitySeed) (detectionGroup, error) {
	group := detectionGroup{entityID: s.EntityID}

	sources := s.Patterns
	if len(sources) == 0 {
		for _, term := range append([]string{s.Name}, s.Aliases...) {
			sources = append(sources, `(?i)\b`+regexp.QuoteMeta(term)+`\b`)
		}
	}

	for _, src := range sources {
		pattern, err := regexp.Compile(src)
		if err != nil {
			return group, fmt.Errorf("entity %s: invalid detection pattern %q: %w", s.EntityID, src, err)
		}
		group.patterns = append(group.patterns, pattern)
	}

	return group, nil
}

func (r *culturalEntityRegistry) Get(entityID string) *models.CulturalEntity {
	return r.entities[entityID]
}

func (r *culturalEntityRegistry) All() []*models.CulturalEntity {
	out := make([]*models.CulturalEntity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entities[id])
	}
	return out
}

func (r *culturalEntityRegistry) DetectEntities(text string) []string {
	var detected []string
	for _, group := range r.groups {
		for _, pattern := range group.patterns {
			if pattern.MatchString(text) {
				detected = append(detected, group.entityID)
				break
			}
		}
	}
	return detected
}

func (r *culturalEntityRegistry) ContextWindows(text string) []models.CulturalContextWindow {
	var windows []models.CulturalContextWindow
	for _, group := range r.groups {
		for _, pattern := range group.patterns {
			for _, loc := range pattern.FindAllStringIndex(text, -1) {
				window := contextWindow(text, loc[0], loc[1])
				windows = append(windows, models.CulturalContextWindow{
					EntityID:     group.entityID,
					Text:         window,
					Significance: classifyWindowSignificance(window),
				})
			}
		}
	}
	return windows
}

// contextWindow expands a match by contextWindowRadius runes on each side.
// The match offsets are byte positions, so expansion steps rune by rune to
// keep the cut points off the middle of a multibyte sequence.
func contextWindow(text string, start, end int) string {
	for i := 0; i < contextWindowRadius && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	for i := 0; i < contextWindowRadius && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}

// classifyWindowSignificance tags a context window high when it carries
// founder/origin/community vocabulary, medium for protocol/technical
// vocabulary, low otherwise.
func classifyWindowSignificance(window string) string {
	lower := strings.ToLower(window)
	for _, term := range highSignificanceVocab {
		if strings.Contains(lower, term) {
			return models.SignificanceHigh
		}
	}
	for _, term := range mediumSignificanceVocab {
		if strings.Contains(lower, term) {
			return models.SignificanceMedium
		}
	}
	return models.SignificanceLow
}

func (r *culturalEntityRegistry) IsHighSignificance(entityID string) bool {
	entity := r.entities[entityID]
	if entity == nil {
		return false
	}
	return entity.IsHighSignificance()
}

func (r *culturalEntityRegistry) Seed(ctx context.Context, repo repositories.CulturalEntityRepository) error {
	for _, id := range r.order {
		if err := repo.Upsert(ctx, r.entities[id]); err != nil {
			return fmt.Errorf("failed to seed cultural entity %s: %w", id, err)
		}
	}
	r.logger.Info("Cultural entities seeded", zap.Int("count", len(r.order)))
	return nil
}
