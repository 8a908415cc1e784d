package models

import "time"

// Entity type constants for protected cultural entities.
const (
	EntityTypeFounder      = "founder"
	EntityTypeMascot       = "mascot"
	EntityTypeProtocol     = "protocol"
	EntityTypeCulturalIcon = "cultural_icon"
	EntityTypeNarrative    = "narrative"
)

// Well-known entity IDs seeded at initialization. The detector, matcher and
// validator all reference entities through these IDs rather than re-declaring
// name lists.
const (
	EntityKevin         = "kevin"
	EntityMikeInSpace   = "mikeinspace"
	EntityArwyn         = "arwyn"
	EntityReinamora     = "reinamora"
	EntityTrinity       = "trinity"
	EntityRarePepe      = "rare_pepe"
	EntitySRC20         = "src20"
	EntitySRC721        = "src721"
	EntitySRC101        = "src101"
	EntityBitcoinStamps = "bitcoin_stamps"
	EntityCounterparty  = "counterparty"
)

// CulturalEntity is a named concept whose translation is subject to special
// preservation rules. Stored in cultural_entities table; seeded at startup
// from the registry seed file.
type CulturalEntity struct {
	EntityID   string `json:"entity_id"`
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`

	CulturalSignificance string `json:"cultural_significance"`

	// PreserveName means the display name must appear verbatim (exact
	// casing) in every translation of text that mentions it.
	PreserveName bool `json:"preserve_name"`

	// RequiresContext means translations should carry explanatory context
	// when the entity is introduced.
	RequiresContext bool `json:"requires_context"`

	TranslationGuidelines string `json:"translation_guidelines,omitempty"`

	// Aliases are alternate spellings/casings that count as mentions of
	// this entity when scanning source text.
	Aliases []string `json:"aliases,omitempty"`

	// KeyPhrases are role or story phrases tied to the entity whose loss in
	// a translation triggers an enhancement suggestion (e.g. a founder's
	// role description).
	KeyPhrases []string `json:"key_phrases,omitempty"`

	MentionCount    int        `json:"mention_count"`
	LastMentionedAt *time.Time `json:"last_mentioned_at,omitempty"`

	TrinityMember  bool `json:"trinity_member"`
	MemeConnection bool `json:"meme_connection"`
	FoundingStory  bool `json:"founding_story"`
}

// IsHighSignificance reports whether the entity sits in the highest
// protection tier (the mascot, the founder trio and the trinity concept).
func (e *CulturalEntity) IsHighSignificance() bool {
	return e.EntityID == EntityKevin || e.TrinityMember || e.EntityID == EntityTrinity
}
