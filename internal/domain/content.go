package domain

import (
	"time"

	"github.com/aula-cl/lectura/pkg/idx"
)

// Text is an assigned reading passage.
type Text struct {
	ID          idx.ID
	Title       string
	CourseLevel string
	Language    string // "es", "en", "val", "cat", "gal", "eus", "fr"
	Content     string

	// Free texts are readable on the free tier; the rest are premium-gated.
	Free bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Question is a multiple-choice quiz question for a text.
type Question struct {
	ID      idx.ID
	TextID  idx.ID
	Prompt  string
	Options []string

	// CorrectOption is the index into Options.
	CorrectOption int
}

// ReadingAttempt records one completed quiz run by either identity kind.
type ReadingAttempt struct {
	ID          idx.ID
	SubjectKind string // "account" or "subuser"
	SubjectID   string // account handle or sub-user id
	TextID      idx.ID

	TimeSpentSeconds float64
	Score            float64 // percentage 0..100

	CreatedAt time.Time
}
