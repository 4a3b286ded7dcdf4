package loader

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/aspect-build/linktrust/internal/authdomain"
)

// Package describes one locally installed application: its package
// name, the DER bytes of its signing certificate, and its embedded
// asset link declaration, if any.
type Package struct {
	Name            string
	SigningCert     []byte
	AssetStatements []byte
}

// StaticPackageIndex is a PackageIndex backed by a fixed package
// manifest. It serves platforms where the installed-application set is
// known up front, and tests.
type StaticPackageIndex struct {
	packages map[string]Package
}

// NewStaticPackageIndex builds an index from the given packages.
func NewStaticPackageIndex(packages ...Package) *StaticPackageIndex {
	idx := &StaticPackageIndex{packages: make(map[string]Package, len(packages))}
	for _, p := range packages {
		idx.packages[p.Name] = p
	}
	return idx
}

// DomainForPackage computes the installed application's domain from
// its signing certificate.
func (idx *StaticPackageIndex) DomainForPackage(packageName string) (authdomain.AuthDomain, error) {
	p, ok := idx.packages[packageName]
	if !ok {
		return authdomain.AuthDomain{}, fmt.Errorf("package %q is not installed", packageName)
	}
	return DomainForCertificate(packageName, p.SigningCert)
}

// AssetStatements returns the application's embedded declaration.
func (idx *StaticPackageIndex) AssetStatements(packageName string) ([]byte, bool, error) {
	p, ok := idx.packages[packageName]
	if !ok {
		return nil, false, fmt.Errorf("package %q is not installed", packageName)
	}
	if len(p.AssetStatements) == 0 {
		return nil, false, nil
	}
	return p.AssetStatements, true, nil
}

// DomainForCertificate derives the application authentication domain
// for a package signed with the given DER certificate.
func DomainForCertificate(packageName string, certDER []byte) (authdomain.AuthDomain, error) {
	if len(certDER) == 0 {
		return authdomain.AuthDomain{}, fmt.Errorf("package %q has no signing certificate", packageName)
	}
	digest := sha256.Sum256(certDER)
	b64 := base64.RawURLEncoding.EncodeToString(digest[:])
	return authdomain.FromApp(packageName, b64)
}
