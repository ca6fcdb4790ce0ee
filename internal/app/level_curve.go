package app

import (
	"fmt"

	"gamification-engine/internal/domain"
)

// DefaultXPPerLevel is the width of every level.
const DefaultXPPerLevel = 500

// LevelCurve maps cumulative experience to a level. Progression is flat: every
// level is XPPerLevel wide.
type LevelCurve struct {
	xpPerLevel int
}

// NewLevelCurve builds a curve; non-positive widths fall back to DefaultXPPerLevel.
func NewLevelCurve(xpPerLevel int) LevelCurve {
	if xpPerLevel <= 0 {
		xpPerLevel = DefaultXPPerLevel
	}
	return LevelCurve{xpPerLevel: xpPerLevel}
}

// XPPerLevel returns the level width.
func (c LevelCurve) XPPerLevel() int {
	if c.xpPerLevel <= 0 {
		return DefaultXPPerLevel
	}
	return c.xpPerLevel
}

// LevelOf evaluates the curve at experience.
func (c LevelCurve) LevelOf(experience int) (domain.LevelInfo, error) {
	if experience < 0 {
		return domain.LevelInfo{}, fmt.Errorf("%w: %d", domain.ErrNegativeExperience, experience)
	}
	width := c.XPPerLevel()
	into := experience % width
	return domain.LevelInfo{
		Level:          experience/width + 1,
		XPIntoLevel:    into,
		XPForNextLevel: width,
		XPToNextLevel:  width - into,
	}, nil
}
