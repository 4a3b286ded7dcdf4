package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/authdomain"
	"github.com/aspect-build/linktrust/internal/logx"
)

// Chain tries a list of loaders in priority order and returns the
// first successful result. A loader is skipped only when it cannot
// serve the domain kind or when its source was unreachable; a genuine
// parse or identity error from a reachable source fails the whole
// chain immediately, because falling through would mask malformed or
// spoofed upstream data.
type Chain struct {
	loaders []assetlinks.Loader
}

// NewChain creates a composite loader over the given loaders, in
// priority order.
func NewChain(loaders ...assetlinks.Loader) *Chain {
	return &Chain{loaders: loaders}
}

// Relations fetches from the first loader that can serve the source.
func (l *Chain) Relations(ctx context.Context, relationType string, source authdomain.AuthDomain) (authdomain.Set, error) {
	if len(l.loaders) == 0 {
		return nil, fmt.Errorf("%w: no loaders configured", ErrUnsupportedDomain)
	}

	var lastErr error
	for _, candidate := range l.loaders {
		targets, err := candidate.Relations(ctx, relationType, source)
		if err == nil {
			return targets, nil
		}

		if errors.Is(err, ErrUnsupportedDomain) {
			lastErr = err
			continue
		}
		if errors.Is(err, ErrFetch) {
			logx.Warnf("loader failed for %s, trying next: %v", source, err)
			lastErr = err
			continue
		}

		// Malformed data or a domain mismatch from a reachable source.
		return nil, err
	}

	return nil, lastErr
}
