package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/authdomain"
	"github.com/aspect-build/linktrust/internal/logx"
)

// WellKnownPath is the canonical location of a web origin's asset link
// declaration.
const WellKnownPath = "/.well-known/assetlinks.json"

// maxDeclarationSize bounds how much declaration content is read from
// an untrusted origin.
const maxDeclarationSize = 1 << 20

// Web retrieves relations for web authentication domains directly from
// the origin's well-known declaration.
type Web struct {
	client *http.Client
}

// NewWeb creates a web loader using the given HTTP client. The client
// is expected to enforce its own timeout; pass nil for
// http.DefaultClient.
func NewWeb(client *http.Client) *Web {
	if client == nil {
		client = http.DefaultClient
	}
	return &Web{client: client}
}

// Relations fetches and parses the source origin's declaration.
func (l *Web) Relations(ctx context.Context, relationType string, source authdomain.AuthDomain) (authdomain.Set, error) {
	if !source.IsWeb() {
		return nil, fmt.Errorf("%w: web loader requires a web domain, got %q", ErrUnsupportedDomain, source)
	}

	url := source.String() + WellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", ErrFetch, url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrFetch, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDeclarationSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFetch, url, err)
	}

	logx.Debugf("fetched %d byte declaration from %s", len(body), url)
	return assetlinks.ParseStatements(body, relationType)
}
