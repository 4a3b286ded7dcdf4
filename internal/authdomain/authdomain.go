// Package authdomain defines the canonical identity value for trust
// resolution: either a web origin or an installed application bound to
// one signing certificate fingerprint.
//
// Canonical forms:
//
//	https://www.example.com
//	android://sha256:<unpadded urlsafe base64 fingerprint>@<package_name>
//
// Two domains are equal iff their canonical strings are equal.
package authdomain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidDomain is wrapped by all errors returned for strings that
// do not form a valid authentication domain.
var ErrInvalidDomain = errors.New("invalid authentication domain")

const (
	appScheme            = "android"
	appFingerprintPrefix = "sha256:"
)

// AuthDomain is an immutable, comparable authentication domain. The
// zero value is invalid; obtain values through Parse, FromWeb or
// FromApp.
type AuthDomain struct {
	canonical string
	app       bool
}

// Parse validates and canonicalizes an authentication domain string.
func Parse(s string) (AuthDomain, error) {
	if strings.HasPrefix(s, appScheme+"://") {
		return parseApp(s)
	}
	return FromWeb(s)
}

// FromWeb builds a web authentication domain from an origin string.
// The scheme and host are lowercased, a trailing DNS-root dot on the
// host is stripped, and any path, query or fragment is rejected.
func FromWeb(origin string) (AuthDomain, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return AuthDomain{}, fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return AuthDomain{}, fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidDomain, u.Scheme, origin)
	}
	if u.Host == "" {
		return AuthDomain{}, fmt.Errorf("%w: missing host in %q", ErrInvalidDomain, origin)
	}
	if u.Path != "" && u.Path != "/" {
		return AuthDomain{}, fmt.Errorf("%w: origin %q must not carry a path", ErrInvalidDomain, origin)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return AuthDomain{}, fmt.Errorf("%w: origin %q must not carry query, fragment or userinfo", ErrInvalidDomain, origin)
	}

	host := strings.ToLower(u.Host)
	if hostname, port := splitHostPort(host); port != "" {
		host = strings.TrimSuffix(hostname, ".") + ":" + port
	} else {
		host = strings.TrimSuffix(host, ".")
	}
	if host == "" || strings.HasPrefix(host, ":") {
		return AuthDomain{}, fmt.Errorf("%w: missing host in %q", ErrInvalidDomain, origin)
	}

	return AuthDomain{canonical: scheme + "://" + host}, nil
}

// FromApp builds an application authentication domain from a package
// name and the base64 form of its SHA-256 signing certificate
// fingerprint.
func FromApp(packageName, b64Fingerprint string) (AuthDomain, error) {
	if packageName == "" {
		return AuthDomain{}, fmt.Errorf("%w: empty package name", ErrInvalidDomain)
	}
	if strings.ContainsAny(packageName, "@/:") {
		return AuthDomain{}, fmt.Errorf("%w: package name %q contains reserved characters", ErrInvalidDomain, packageName)
	}
	if b64Fingerprint == "" {
		return AuthDomain{}, fmt.Errorf("%w: empty fingerprint", ErrInvalidDomain)
	}
	if strings.ContainsAny(b64Fingerprint, "@/:=+") {
		return AuthDomain{}, fmt.Errorf("%w: fingerprint %q is not unpadded URL-safe base64", ErrInvalidDomain, b64Fingerprint)
	}

	return AuthDomain{
		canonical: appScheme + "://" + appFingerprintPrefix + b64Fingerprint + "@" + packageName,
		app:       true,
	}, nil
}

func parseApp(s string) (AuthDomain, error) {
	body := strings.TrimPrefix(s, appScheme+"://")

	at := strings.LastIndexByte(body, '@')
	if at < 0 {
		return AuthDomain{}, fmt.Errorf("%w: %q is missing the fingerprint@package separator", ErrInvalidDomain, s)
	}

	fp := body[:at]
	pkg := body[at+1:]
	if !strings.HasPrefix(fp, appFingerprintPrefix) {
		return AuthDomain{}, fmt.Errorf("%w: %q fingerprint must use the %q algorithm prefix", ErrInvalidDomain, s, appFingerprintPrefix)
	}

	return FromApp(pkg, strings.TrimPrefix(fp, appFingerprintPrefix))
}

// IsWeb reports whether the domain identifies a web origin.
func (d AuthDomain) IsWeb() bool { return d.canonical != "" && !d.app }

// IsApp reports whether the domain identifies an installed application.
func (d AuthDomain) IsApp() bool { return d.app }

// PackageName returns the application package name, or "" for web
// domains.
func (d AuthDomain) PackageName() string {
	if !d.app {
		return ""
	}
	return d.canonical[strings.LastIndexByte(d.canonical, '@')+1:]
}

// Fingerprint returns the base64 signing certificate fingerprint, or
// "" for web domains.
func (d AuthDomain) Fingerprint() string {
	if !d.app {
		return ""
	}
	body := strings.TrimPrefix(d.canonical, appScheme+"://"+appFingerprintPrefix)
	return body[:strings.LastIndexByte(body, '@')]
}

// String returns the canonical domain string.
func (d AuthDomain) String() string { return d.canonical }

// splitHostPort separates an optional port without failing on
// port-less input, unlike net.SplitHostPort.
func splitHostPort(host string) (string, string) {
	i := strings.LastIndexByte(host, ':')
	if i < 0 || strings.ContainsAny(host[i+1:], "]") {
		return host, ""
	}
	return host[:i], host[i+1:]
}
