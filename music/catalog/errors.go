package catalog

import (
	"errors"
	"fmt"
)

// Common catalog errors that can be checked with errors.Is.
var (
	// ErrNotFound is returned when a track does not exist.
	ErrNotFound = errors.New("catalog: resource not found")

	// ErrRateLimited is returned when the catalog quota is exhausted.
	ErrRateLimited = errors.New("catalog: rate limit exceeded")

	// ErrUnavailable is returned when the catalog cannot be reached or refuses service.
	ErrUnavailable = errors.New("catalog: service unavailable")

	// ErrBadResponse is returned when the catalog answers with something that cannot be used.
	ErrBadResponse = errors.New("catalog: bad response")
)

// Error wraps an error with the catalog and resource that produced it.
// The underlying sentinel stays reachable through errors.Is and errors.As.
type Error struct {
	// Catalog is the name of the catalog that returned the error (e.g., "deezer").
	Catalog string

	// Resource is the kind of resource being accessed (e.g., "search", "track").
	Resource string

	// ID is the identifier of the resource (if applicable).
	ID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Catalog, e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Catalog, e.Resource, e.Err)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates an Error for a resource that was not found.
func NewNotFoundError(catalog, resource, id string) error {
	return &Error{Catalog: catalog, Resource: resource, ID: id, Err: ErrNotFound}
}

// NewRateLimitedError creates an Error for quota errors.
func NewRateLimitedError(catalog, resource string) error {
	return &Error{Catalog: catalog, Resource: resource, Err: ErrRateLimited}
}

// NewUnavailableError creates an Error for an unreachable catalog.
func NewUnavailableError(catalog, resource string, cause error) error {
	return &Error{Catalog: catalog, Resource: resource, Err: fmt.Errorf("%w: %v", ErrUnavailable, cause)}
}

// NewBadResponseError creates an Error for an unusable response.
func NewBadResponseError(catalog, resource, id string, detail string) error {
	return &Error{Catalog: catalog, Resource: resource, ID: id, Err: fmt.Errorf("%w: %s", ErrBadResponse, detail)}
}
