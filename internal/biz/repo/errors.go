package repo

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate")

	// ErrDomainNotFound is returned when the sync document has no node for a domain
	ErrDomainNotFound = errors.New("sync domain not found")

	// ErrItemUnset is returned when a rule has no sync item-kind configured
	ErrItemUnset = errors.New("sync item not set")
)
