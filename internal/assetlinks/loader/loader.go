// Package loader provides the fetch strategies that retrieve declared
// relations for an authentication domain: directly from a web origin's
// well-known declaration, from installed application metadata, or from
// a central statement registry. Loaders implement assetlinks.Loader.
package loader

import "errors"

var (
	// ErrFetch is wrapped by errors caused by network or lookup
	// failure, including non-success responses from a registry. A
	// fetch failure is never cached and never reported as an empty
	// relation set.
	ErrFetch = errors.New("relation fetch failed")

	// ErrUnsupportedDomain is returned when a loader is invoked
	// against a domain kind it cannot handle. This is a contract
	// violation by the caller, not a retryable condition.
	ErrUnsupportedDomain = errors.New("unsupported authentication domain kind")

	// ErrDomainMismatch is returned when a claimed application domain
	// does not match the identity of the actually installed
	// application. This is the spoofing defense; it must never be
	// downgraded to a warning.
	ErrDomainMismatch = errors.New("claimed domain does not match installed application")
)
