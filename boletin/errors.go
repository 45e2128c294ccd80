// CLAUDE:SUMMARY Sentinel errors for the boletin service: empty query, invalid input, store unavailable, mail disabled.
package boletin

import (
	"errors"

	"github.com/hazyhaar/boletin/boletin/internal/search"
)

// ErrEmptyQuery is returned when a search names neither municipalities nor keywords.
var ErrEmptyQuery = search.ErrEmptyQuery

// ErrInvalidInput is returned for malformed dates, unknown sources, inverted
// ranges and invalid preference records.
var ErrInvalidInput = search.ErrInvalidInput

// ErrStoreUnavailable wraps archive failures.
var ErrStoreUnavailable = search.ErrStoreUnavailable

// ErrMailDisabled is returned by digest dispatch when no SMTP relay is configured.
var ErrMailDisabled = errors.New("boletin: mail transport not configured")
