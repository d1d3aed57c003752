package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Repositories return these (optionally
// wrapped) and flows translate them into protocol errors.
//
//   - ErrNotFound: no resource with that identifier exists as of the read instant
//     (never created, not yet created, or already deleted)
//   - ErrConflict: a write raced another write on the same identifier
//   - ErrUnavailable: the backing store could not be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
