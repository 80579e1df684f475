package chronique

import "errors"

// ErrInvalidInput is returned when monitor input fails validation.
var ErrInvalidInput = errors.New("chronique: invalid input")

// ErrNotFound is returned when a monitor or event does not exist.
var ErrNotFound = errors.New("chronique: not found")

// ErrDuplicateMonitor is returned when a monitor for the same
// figure×topic pair already exists.
var ErrDuplicateMonitor = errors.New("chronique: monitor for this figure and topic already exists")

// ErrQuotaExceeded is returned when a resource limit is reached.
var ErrQuotaExceeded = errors.New("chronique: quota exceeded")

// ErrNoSearcher is returned when a search run is requested but no search
// collaborator is configured.
var ErrNoSearcher = errors.New("chronique: no searcher configured")
