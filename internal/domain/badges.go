package domain

import "fmt"

// CategoryID names a badge category. Each ID maps to exactly one counting rule.
type CategoryID string

const (
	CategoryConsistentPerformer CategoryID = "consistent-performer"
	CategoryApexAchiever        CategoryID = "apex-achiever"
	CategoryQuizMilestone       CategoryID = "quiz-milestone"
	CategoryPerfectScore        CategoryID = "perfect-score"
	CategorySpeedResponder      CategoryID = "speed-responder"
	CategoryTeamPerformer       CategoryID = "team-performer"
	CategoryTeamApex            CategoryID = "team-apex"
	CategoryClassroomStar       CategoryID = "classroom-star"
)

// KnownCategories lists every category the tracker knows how to count.
var KnownCategories = []CategoryID{
	CategoryConsistentPerformer,
	CategoryApexAchiever,
	CategoryQuizMilestone,
	CategoryPerfectScore,
	CategorySpeedResponder,
	CategoryTeamPerformer,
	CategoryTeamApex,
	CategoryClassroomStar,
}

func (c CategoryID) known() bool {
	for _, k := range KnownCategories {
		if k == c {
			return true
		}
	}
	return false
}

// BadgeTier is one threshold within a category. WindowSeconds is only used by
// Speed-Responder, where each tier counts answers in its own time band.
type BadgeTier struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Threshold     int     `json:"threshold"`
	WindowSeconds float64 `json:"windowSeconds,omitempty"`
}

// BadgeCategory is static configuration.
type BadgeCategory struct {
	ID    CategoryID  `json:"id"`
	Name  string      `json:"name"`
	Tiers []BadgeTier `json:"tiers"`
}

// Validate enforces strictly increasing thresholds (and windows for timed tiers).
func (c BadgeCategory) Validate() error {
	if !c.ID.known() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidBadgeCatalog, c.ID)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: category %s has no tiers", ErrInvalidBadgeCatalog, c.ID)
	}
	seen := make(map[string]struct{}, len(c.Tiers))
	for i, tier := range c.Tiers {
		if tier.ID == "" {
			return fmt.Errorf("%w: category %s tier %d has no id", ErrInvalidBadgeCatalog, c.ID, i)
		}
		if _, dup := seen[tier.ID]; dup {
			return fmt.Errorf("%w: category %s repeats tier %s", ErrInvalidBadgeCatalog, c.ID, tier.ID)
		}
		seen[tier.ID] = struct{}{}
		if tier.Threshold <= 0 {
			return fmt.Errorf("%w: tier %s threshold %d", ErrInvalidBadgeCatalog, tier.ID, tier.Threshold)
		}
		if c.ID == CategorySpeedResponder && tier.WindowSeconds <= 0 {
			return fmt.Errorf("%w: tier %s has no time window", ErrInvalidBadgeCatalog, tier.ID)
		}
		if i == 0 {
			continue
		}
		prev := c.Tiers[i-1]
		if tier.Threshold <= prev.Threshold {
			return fmt.Errorf("%w: tier %s threshold not above %s", ErrInvalidBadgeCatalog, tier.ID, prev.ID)
		}
		if c.ID == CategorySpeedResponder && tier.WindowSeconds <= prev.WindowSeconds {
			return fmt.Errorf("%w: tier %s window not above %s", ErrInvalidBadgeCatalog, tier.ID, prev.ID)
		}
	}
	return nil
}

// TierRef points at one tier of one category.
type TierRef struct {
	CategoryID CategoryID `json:"categoryId"`
	TierID     string     `json:"tierId"`
	Name       string     `json:"name"`
}

// BadgeProgress is the derived state of one category for one student.
// TierCounts is only populated for categories whose tiers count different things.
type BadgeProgress struct {
	StudentID       string         `json:"studentId"`
	CategoryID      CategoryID     `json:"categoryId"`
	CurrentCount    int            `json:"currentCount"`
	TierCounts      map[string]int `json:"tierCounts,omitempty"`
	UnlockedTierIDs []string       `json:"unlockedTierIds"`
}

// Unlocked reports whether tierID is in the unlocked set.
func (p BadgeProgress) Unlocked(tierID string) bool {
	for _, id := range p.UnlockedTierIDs {
		if id == tierID {
			return true
		}
	}
	return false
}

// BadgeResult is the outcome of a recompute.
type BadgeResult struct {
	Progress      []BadgeProgress `json:"progress"`
	NewlyUnlocked []TierRef       `json:"newlyUnlocked"`
}
