// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles:
// storage, service, and the command handlers all import types without
// depending on each other.
package types

import "time"

// Student represents a student record.
//
// ID is the primary key. Zero means the record has not been persisted
// yet; once the store assigns an id it never changes.
type Student struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

// YearCount is one group of the birth-year aggregate: how many students
// were born in Year.
type YearCount struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

// DateLayout is the on-disk and command-line format of DateOfBirth.
const DateLayout = time.DateOnly
