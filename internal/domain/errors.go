package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the base kind for unknown student, class or quiz references.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is the base kind for corrupt inputs and impossible state.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict is the base kind for duplicate writes.
	ErrConflict = errors.New("conflict")
)

var (
	// ErrClassNotFound is returned when a class has no roster.
	ErrClassNotFound = fmt.Errorf("class %w", ErrNotFound)
	// ErrStudentNotFound is returned when a student is unknown to the roster store.
	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz metadata could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrProgressionNotFound is returned by progression stores before a student's first completion.
	ErrProgressionNotFound = fmt.Errorf("progression %w", ErrNotFound)

	// ErrNegativeExperience signals an experience value below zero.
	ErrNegativeExperience = fmt.Errorf("negative experience: %w", ErrInvalidState)
	// ErrMalformedScore signals a score record that cannot be aggregated.
	ErrMalformedScore = fmt.Errorf("malformed score record: %w", ErrInvalidState)
	// ErrInvalidScope signals a ranking scope with an impossible combination.
	ErrInvalidScope = fmt.Errorf("invalid ranking scope: %w", ErrInvalidState)
	// ErrInvalidBadgeCatalog signals a badge configuration that breaks tier ordering.
	ErrInvalidBadgeCatalog = fmt.Errorf("invalid badge catalog: %w", ErrInvalidState)
	// ErrQuizMismatch signals a submission for a quiz not posted to the class, or in another mode.
	ErrQuizMismatch = fmt.Errorf("submission does not match quiz: %w", ErrInvalidState)
	// ErrForeignEvent signals an event history containing another student's events.
	ErrForeignEvent = fmt.Errorf("event belongs to another student: %w", ErrInvalidState)

	// ErrDuplicateSubmission is returned when a student submits the same quiz twice.
	ErrDuplicateSubmission = fmt.Errorf("duplicate submission: %w", ErrConflict)
)

// ErrBadgesPending is returned when a completion was credited with experience
// but its badge events could not be stored. RetryBadges finishes the update.
var ErrBadgesPending = errors.New("experience applied, badge update pending")
