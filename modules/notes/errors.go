package notes

import "errors"

var (
	// ErrTitleRequired is returned when a note has no title.
	ErrTitleRequired = errors.New("notes: title is required")

	// ErrInvalidCategory is returned for a category without slug or name.
	ErrInvalidCategory = errors.New("notes: category slug and name are required")

	// ErrUnknownCategory is returned when a note references a missing category.
	ErrUnknownCategory = errors.New("notes: unknown category")
)
