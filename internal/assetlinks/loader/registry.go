package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/authdomain"
	"github.com/aspect-build/linktrust/internal/fingerprint"
	"github.com/aspect-build/linktrust/internal/logx"
)

// DefaultRegistryEndpoint is the statement list endpoint of the public
// asset link registry.
const DefaultRegistryEndpoint = "https://digitalassetlinks.googleapis.com/v1/statements:list"

// Registry retrieves relations from a central statement registry.
// Only SHA-256 application fingerprints are supported, as that is the
// fingerprint type the registry indexes.
type Registry struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRegistry creates a registry loader that queries the given
// endpoint with the given API key. Pass "" for the endpoint to use
// DefaultRegistryEndpoint, and nil for the client to use
// http.DefaultClient.
func NewRegistry(endpoint, apiKey string, client *http.Client) *Registry {
	if endpoint == "" {
		endpoint = DefaultRegistryEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Registry{endpoint: endpoint, apiKey: apiKey, client: client}
}

// registry statement list response. This is a distinct, flatter schema
// than the well-known declaration parsed by assetlinks.ParseStatements
// and must not be conflated with it.
type registryResponse struct {
	Statements []registryStatement `json:"statements"`
}

type registryStatement struct {
	Target registryTarget `json:"target"`
}

type registryTarget struct {
	Web        *registryWebTarget `json:"web"`
	AndroidApp *registryAppTarget `json:"androidApp"`
}

type registryWebTarget struct {
	Site string `json:"site"`
}

type registryAppTarget struct {
	PackageName string              `json:"packageName"`
	Certificate registryCertificate `json:"certificate"`
}

type registryCertificate struct {
	SHA256Fingerprint string `json:"sha256Fingerprint"`
}

// Relations queries the registry for statements made by the source and
// extracts their targets.
func (l *Registry) Relations(ctx context.Context, relationType string, source authdomain.AuthDomain) (authdomain.Set, error) {
	reqURL, err := l.buildRequestURL(relationType, source)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build registry request: %v", ErrFetch, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: query registry: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: registry returned status %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDeclarationSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read registry response: %v", ErrFetch, err)
	}

	logx.Debugf("registry returned %d bytes for %s", len(body), source)
	return extractRegistryTargets(body)
}

func (l *Registry) buildRequestURL(relationType string, source authdomain.AuthDomain) (string, error) {
	params := url.Values{}
	params.Set("relation", relationType)
	params.Set("key", l.apiKey)
	params.Set("fields", "statements/target")

	if source.IsWeb() {
		params.Set("source.web.site", source.String())
	} else {
		hexFingerprint, err := fingerprint.Base64ToHex(source.Fingerprint())
		if err != nil {
			return "", fmt.Errorf("%w: source fingerprint: %v", assetlinks.ErrMalformedData, err)
		}
		params.Set("source.androidApp.packageName", source.PackageName())
		params.Set("source.androidApp.certificate.sha256Fingerprint", hexFingerprint)
	}

	return l.endpoint + "?" + params.Encode(), nil
}

func extractRegistryTargets(body []byte) (authdomain.Set, error) {
	var parsed registryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: registry response: %v", assetlinks.ErrMalformedData, err)
	}

	targets := authdomain.NewSet()
	for i, st := range parsed.Statements {
		switch {
		case st.Target.Web != nil:
			target, err := registrySiteDomain(st.Target.Web.Site)
			if err != nil {
				return nil, fmt.Errorf("registry statement %d: %w", i, err)
			}
			targets.Add(target)
		case st.Target.AndroidApp != nil:
			target, err := registryAppDomain(st.Target.AndroidApp)
			if err != nil {
				return nil, fmt.Errorf("registry statement %d: %w", i, err)
			}
			targets.Add(target)
		default:
			return nil, fmt.Errorf("%w: registry statement %d has neither web nor androidApp target", assetlinks.ErrMalformedData, i)
		}
	}

	return targets, nil
}

// registrySiteDomain normalizes a registry site string. The registry
// renders sites with an explicit DNS-root trailing dot; require it and
// strip it rather than slicing blindly.
func registrySiteDomain(site string) (authdomain.AuthDomain, error) {
	if site == "" {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: registry web target has empty site", assetlinks.ErrMalformedData)
	}

	normalized := strings.TrimSuffix(site, ".")
	domain, err := authdomain.FromWeb(normalized)
	if err != nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: registry web target %q: %v", assetlinks.ErrMalformedData, site, err)
	}
	return domain, nil
}

func registryAppDomain(app *registryAppTarget) (authdomain.AuthDomain, error) {
	if app.PackageName == "" {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: registry app target has empty packageName", assetlinks.ErrMalformedData)
	}
	if len(app.Certificate.SHA256Fingerprint) != assetlinks.ExpectedFingerprintLength {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: registry app target fingerprint %q has length %d, want %d",
			assetlinks.ErrMalformedData, app.Certificate.SHA256Fingerprint,
			len(app.Certificate.SHA256Fingerprint), assetlinks.ExpectedFingerprintLength)
	}

	b64, err := fingerprint.HexToBase64(app.Certificate.SHA256Fingerprint)
	if err != nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: registry app target fingerprint: %v", assetlinks.ErrMalformedData, err)
	}

	domain, err := authdomain.FromApp(app.PackageName, b64)
	if err != nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: registry app target: %v", assetlinks.ErrMalformedData, err)
	}
	return domain, nil
}
