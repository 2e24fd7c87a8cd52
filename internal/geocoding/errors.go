package geocoding

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the address could not be resolved. The user can fix it.
	ErrNotFound = errors.New("geocoding: address not found")
	// ErrUpstream means the provider was unreachable or answered with a non-OK status.
	ErrUpstream = errors.New("geocoding: upstream unavailable")
	// ErrMissingAPIKey is returned by NewClient when no key is configured.
	ErrMissingAPIKey = errors.New("geocoding: GOOGLE_MAPS_API_KEY is required")
)

const (
	notFoundMessage    = "Address not found. Try adding suburb + state/postcode (e.g. 'Brunswick VIC 3056') or check spelling."
	notStreetLevelHint = "Address not found at street level. Try adding suburb + state/postcode (e.g. 'Brunswick VIC 3056')."
)

// NotFoundError carries a message suitable for showing to the person who
// typed the address.
type NotFoundError struct {
	Query       string
	Message     string
	ZeroResults bool
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("geocoding %q: %s", e.Query, e.Message)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UpstreamError describes a provider failure: transport, timeout, non-200
// HTTP, undecodable body, or a status other than OK / ZERO_RESULTS.
type UpstreamError struct {
	Status     string
	HTTPStatus int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status != "":
		if e.Message != "" {
			return fmt.Sprintf("geocoding failed: status=%s: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("geocoding failed: status=%s", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("geocoding request: %v", e.Err)
	case e.HTTPStatus != 0:
		return fmt.Sprintf("geocoding API returned HTTP %d", e.HTTPStatus)
	}
	return "geocoding request failed"
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

// UserMessage returns the human-facing explanation for a not-found error, or
// the generic message when err carries none.
func UserMessage(err error) string {
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.Message != "" {
		return nf.Message
	}
	return notFoundMessage
}
