package loader

import (
	"context"
	"fmt"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/authdomain"
)

// PackageIndex resolves locally installed applications. It stands in
// for the platform package manager at this boundary.
type PackageIndex interface {
	// DomainForPackage returns the authentication domain of the
	// installed application with the given package name, computed from
	// its actual signing certificate.
	DomainForPackage(packageName string) (authdomain.AuthDomain, error)

	// AssetStatements returns the application's embedded asset link
	// declaration. ok is false when the application declares none,
	// which is distinct from a lookup failure.
	AssetStatements(packageName string) (raw []byte, ok bool, err error)
}

// App retrieves relations for application authentication domains from
// the installed application's own metadata. Before trusting a
// declaration it verifies that the claimed domain matches the identity
// of the application actually installed under that package name.
type App struct {
	index PackageIndex
}

// NewApp creates an application metadata loader over the given package
// index.
func NewApp(index PackageIndex) *App {
	return &App{index: index}
}

// Relations verifies the source against the installed application and
// parses its embedded declaration. An installed application with no
// declaration has zero relations, which is not an error.
func (l *App) Relations(ctx context.Context, relationType string, source authdomain.AuthDomain) (authdomain.Set, error) {
	if !source.IsApp() {
		return nil, fmt.Errorf("%w: app loader requires an application domain, got %q", ErrUnsupportedDomain, source)
	}

	installed, err := l.index.DomainForPackage(source.PackageName())
	if err != nil {
		return nil, fmt.Errorf("%w: look up package %q: %v", ErrFetch, source.PackageName(), err)
	}
	if installed != source {
		return nil, fmt.Errorf("%w: %q", ErrDomainMismatch, source)
	}

	raw, ok, err := l.index.AssetStatements(source.PackageName())
	if err != nil {
		return nil, fmt.Errorf("%w: read asset statements of %q: %v", ErrFetch, source.PackageName(), err)
	}
	if !ok {
		return authdomain.NewSet(), nil
	}

	return assetlinks.ParseStatements(raw, relationType)
}
