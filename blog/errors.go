package blog

import "errors"

var (
	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSlug is returned when a slug is already used on the same publish date.
	ErrDuplicateSlug = errors.New("slug already used for this publish date")

	// ErrDuplicateUsername is returned when an author username is taken.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = errors.New("invalid post status")
)
