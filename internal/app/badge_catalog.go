package app

import "gamification-engine/internal/domain"

// DefaultBadgeCatalog is the built-in set of eight categories.
func DefaultBadgeCatalog() []domain.BadgeCategory {
	return []domain.BadgeCategory{
		{
			ID:   domain.CategoryConsistentPerformer,
			Name: "Consistent Performer",
			Tiers: []domain.BadgeTier{
				{ID: "podium-regular", Name: "Podium Regular", Threshold: 1},
				{ID: "steady-climber", Name: "Steady Climber", Threshold: 5},
				{ID: "reliable-star", Name: "Reliable Star", Threshold: 10},
				{ID: "pillar-of-the-class", Name: "Pillar of the Class", Threshold: 25},
			},
		},
		{
			ID:   domain.CategoryApexAchiever,
			Name: "Apex Achiever",
			Tiers: []domain.BadgeTier{
				{ID: "first-crown", Name: "First Crown", Threshold: 1},
				{ID: "summit-seeker", Name: "Summit Seeker", Threshold: 3},
				{ID: "peak-holder", Name: "Peak Holder", Threshold: 10},
			},
		},
		{
			ID:   domain.CategoryQuizMilestone,
			Name: "Quiz Milestone",
			Tiers: []domain.BadgeTier{
				{ID: "first-flight", Name: "First Flight", Threshold: 1},
				{ID: "explorer", Name: "Explorer", Threshold: 10},
				{ID: "voyager", Name: "Voyager", Threshold: 25},
				{ID: "trailblazer", Name: "Trailblazer", Threshold: 50},
			},
		},
		{
			ID:   domain.CategoryPerfectScore,
			Name: "Perfect Score",
			Tiers: []domain.BadgeTier{
				{ID: "flawless", Name: "Flawless", Threshold: 1},
				{ID: "sharpshooter", Name: "Sharpshooter", Threshold: 5},
				{ID: "perfectionist", Name: "Perfectionist", Threshold: 15},
			},
		},
		{
			ID:   domain.CategorySpeedResponder,
			Name: "Speed Responder",
			Tiers: []domain.BadgeTier{
				{ID: "lightning", Name: "Lightning", Threshold: 5, WindowSeconds: 5},
				{ID: "quick-thinker", Name: "Quick Thinker", Threshold: 10, WindowSeconds: 10},
				{ID: "steady-pace", Name: "Steady Pace", Threshold: 20, WindowSeconds: 30},
			},
		},
		{
			ID:   domain.CategoryTeamPerformer,
			Name: "Team Performer",
			Tiers: []domain.BadgeTier{
				{ID: "team-spirit", Name: "Team Spirit", Threshold: 1},
				{ID: "crew-anchor", Name: "Crew Anchor", Threshold: 5},
				{ID: "squad-legend", Name: "Squad Legend", Threshold: 15},
			},
		},
		{
			ID:   domain.CategoryTeamApex,
			Name: "Team Apex",
			Tiers: []domain.BadgeTier{
				{ID: "victory-lap", Name: "Victory Lap", Threshold: 1},
				{ID: "dynasty", Name: "Dynasty", Threshold: 5},
				{ID: "unbeatable-crew", Name: "Unbeatable Crew", Threshold: 10},
			},
		},
		{
			ID:   domain.CategoryClassroomStar,
			Name: "Classroom Star",
			Tiers: []domain.BadgeTier{
				{ID: "rising-star", Name: "Rising Star", Threshold: 1},
				{ID: "class-favorite", Name: "Class Favorite", Threshold: 5},
				{ID: "headliner", Name: "Headliner", Threshold: 15},
			},
		},
	}
}
