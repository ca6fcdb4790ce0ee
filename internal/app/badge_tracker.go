package app

import (
	"context"
	"fmt"
	"sort"

	"gamification-engine/internal/domain"
)

// EventLog is the per-student, append-only badge event history.
type EventLog interface {
	// AppendEvents stores events whose Key is not yet present and reports how many were new.
	AppendEvents(ctx context.Context, studentID string, events ...domain.Event) (int, error)
	// Events returns the history in append order.
	Events(ctx context.Context, studentID string) ([]domain.Event, error)
	ResetEvents(ctx context.Context, studentID string) error
}

// BadgeRepository persists the last derived badge state, used for unlock diffing and display.
type BadgeRepository interface {
	GetBadgeProgress(ctx context.Context, studentID string) ([]domain.BadgeProgress, error)
	SaveBadgeProgress(ctx context.Context, studentID string, progress []domain.BadgeProgress) error
}

// BadgeProgressTracker derives badge progress from an event history. It never
// increments stored counters, so recomputing the same history is a no-op.
type BadgeProgressTracker struct {
	catalog []domain.BadgeCategory
	badges  BadgeRepository
}

// NewBadgeProgressTracker validates catalog and builds a tracker. An empty
// catalog selects DefaultBadgeCatalog.
func NewBadgeProgressTracker(catalog []domain.BadgeCategory, badges BadgeRepository) (*BadgeProgressTracker, error) {
	if len(catalog) == 0 {
		catalog = DefaultBadgeCatalog()
	}
	seen := make(map[domain.CategoryID]struct{}, len(catalog))
	for _, category := range catalog {
		if err := category.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[category.ID]; dup {
			return nil, fmt.Errorf("%w: category %s listed twice", domain.ErrInvalidBadgeCatalog, category.ID)
		}
		seen[category.ID] = struct{}{}
	}
	return &BadgeProgressTracker{catalog: catalog, badges: badges}, nil
}

// Catalog returns the configured categories.
func (t *BadgeProgressTracker) Catalog() []domain.BadgeCategory {
	return t.catalog
}

// SpeedWindow is the widest Speed-Responder window; slower answers never count.
func (t *BadgeProgressTracker) SpeedWindow() float64 {
	widest := 0.0
	for _, category := range t.catalog {
		if category.ID != domain.CategorySpeedResponder {
			continue
		}
		for _, tier := range category.Tiers {
			if tier.WindowSeconds > widest {
				widest = tier.WindowSeconds
			}
		}
	}
	return widest
}

// Recompute re-derives every category from history, diffs the unlocked tiers
// against the last persisted state, and persists the new state.
func (t *BadgeProgressTracker) Recompute(ctx context.Context, studentID string, history []domain.Event) (domain.BadgeResult, error) {
	for _, ev := range history {
		if ev.StudentID != studentID {
			return domain.BadgeResult{}, fmt.Errorf("%w: %s in history of %s", domain.ErrForeignEvent, ev.Key, studentID)
		}
	}

	prior, err := t.GetProgress(ctx, studentID)
	if err != nil {
		return domain.BadgeResult{}, err
	}
	progress := Derive(t.catalog, studentID, history)

	var newly []domain.TierRef
	for i, category := range t.catalog {
		for _, tier := range category.Tiers {
			if progress[i].Unlocked(tier.ID) && !prior[i].Unlocked(tier.ID) {
				newly = append(newly, domain.TierRef{CategoryID: category.ID, TierID: tier.ID, Name: tier.Name})
			}
		}
	}
	if newly == nil {
		newly = []domain.TierRef{}
	}

	if err := t.badges.SaveBadgeProgress(ctx, studentID, progress); err != nil {
		return domain.BadgeResult{}, fmt.Errorf("save badge progress: %w", err)
	}
	return domain.BadgeResult{Progress: progress, NewlyUnlocked: newly}, nil
}

// GetProgress returns the persisted progress aligned with the catalog, one
// entry per category, zero-filled for categories never stored.
func (t *BadgeProgressTracker) GetProgress(ctx context.Context, studentID string) ([]domain.BadgeProgress, error) {
	stored, err := t.badges.GetBadgeProgress(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load badge progress: %w", err)
	}
	byCategory := make(map[domain.CategoryID]domain.BadgeProgress, len(stored))
	for _, p := range stored {
		byCategory[p.CategoryID] = p
	}
	out := make([]domain.BadgeProgress, len(t.catalog))
	for i, category := range t.catalog {
		p, ok := byCategory[category.ID]
		if !ok {
			p = domain.BadgeProgress{StudentID: studentID, CategoryID: category.ID, UnlockedTierIDs: []string{}}
		}
		out[i] = p
	}
	return out, nil
}

// Derive computes progress for every category of catalog from history alone.
// Events sharing a Key are counted once.
func Derive(catalog []domain.BadgeCategory, studentID string, history []domain.Event) []domain.BadgeProgress {
	var (
		completed  = make(map[string]struct{})
		perfect    = make(map[string]struct{})
		placements = make(map[domain.EventKind]map[domain.Mode]int)
		answers    []float64
		seen       = make(map[string]struct{}, len(history))
	)
	for _, ev := range history {
		if _, dup := seen[ev.Key]; dup {
			continue
		}
		seen[ev.Key] = struct{}{}

		switch ev.Kind {
		case domain.EventQuizCompleted:
			completed[ev.QuizID] = struct{}{}
			if ev.ScoreTotal > 0 && ev.ScoreRaw == ev.ScoreTotal {
				perfect[ev.QuizID] = struct{}{}
			}
		case domain.EventPerfectScore:
			perfect[ev.QuizID] = struct{}{}
		case domain.EventLeaderboardTop3, domain.EventLeaderboardTop1:
			if placements[ev.Kind] == nil {
				placements[ev.Kind] = make(map[domain.Mode]int)
			}
			placements[ev.Kind][ev.Mode]++
		case domain.EventFastCorrectAnswer:
			answers = append(answers, ev.ResponseSeconds)
		}
	}

	total := func(kind domain.EventKind) int {
		n := 0
		for _, c := range placements[kind] {
			n += c
		}
		return n
	}

	out := make([]domain.BadgeProgress, len(catalog))
	for i, category := range catalog {
		p := domain.BadgeProgress{StudentID: studentID, CategoryID: category.ID}
		switch category.ID {
		case domain.CategoryConsistentPerformer:
			p.CurrentCount = total(domain.EventLeaderboardTop3)
		case domain.CategoryApexAchiever:
			p.CurrentCount = total(domain.EventLeaderboardTop1)
		case domain.CategoryQuizMilestone:
			p.CurrentCount = len(completed)
		case domain.CategoryPerfectScore:
			p.CurrentCount = len(perfect)
		case domain.CategoryTeamPerformer:
			p.CurrentCount = placements[domain.EventLeaderboardTop3][domain.ModeTeam]
		case domain.CategoryTeamApex:
			p.CurrentCount = placements[domain.EventLeaderboardTop1][domain.ModeTeam]
		case domain.CategoryClassroomStar:
			p.CurrentCount = placements[domain.EventLeaderboardTop3][domain.ModeClassroom]
		case domain.CategorySpeedResponder:
			p.TierCounts = speedBands(category.Tiers, answers)
			for _, n := range p.TierCounts {
				p.CurrentCount += n
			}
		}
		p.UnlockedTierIDs = unlockedTiers(category, p)
		out[i] = p
	}
	return out
}

// speedBands counts answers per tier, where tier i covers [window(i-1), window(i)).
// An answer lands in exactly one band.
func speedBands(tiers []domain.BadgeTier, answers []float64) map[string]int {
	counts := make(map[string]int, len(tiers))
	for _, tier := range tiers {
		counts[tier.ID] = 0
	}
	for _, seconds := range answers {
		lower := 0.0
		for _, tier := range tiers {
			if seconds >= lower && seconds < tier.WindowSeconds {
				counts[tier.ID]++
				break
			}
			lower = tier.WindowSeconds
		}
	}
	return counts
}

func unlockedTiers(category domain.BadgeCategory, p domain.BadgeProgress) []string {
	unlocked := []string{}
	for _, tier := range category.Tiers {
		count := p.CurrentCount
		if p.TierCounts != nil {
			count = p.TierCounts[tier.ID]
		}
		if count >= tier.Threshold {
			unlocked = append(unlocked, tier.ID)
		}
	}
	sort.Strings(unlocked)
	return unlocked
}
