// Package assetlinks resolves and caches trust relations declared
// between authentication domains through asset link statement lists.
package assetlinks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aspect-build/linktrust/internal/authdomain"
	"github.com/aspect-build/linktrust/internal/fingerprint"
	"github.com/aspect-build/linktrust/internal/logx"
)

// ErrMalformedData is wrapped by all errors returned for declaration
// or snapshot content that is structurally invalid or violates a
// required shape. It is never repaired silently.
var ErrMalformedData = errors.New("malformed asset link data")

// Standard relation types from the Digital Asset Links vocabulary.
const (
	RelationGetLoginCreds = "delegate_permission/common.get_login_creds"
	RelationHandleAllURLs = "delegate_permission/common.handle_all_urls"
)

// ExpectedFingerprintLength is the length of a colon-delimited SHA-256
// hex digest (32 two-digit groups plus 31 separators). Declarations
// carrying fingerprints of any other length are rejected outright as a
// defense against truncated upstream data.
const ExpectedFingerprintLength = 95

const (
	namespaceWeb = "web"
	namespaceApp = "android_app"
	// legacy tag still found in older declarations
	namespaceAppLegacy = "android"
)

type statement struct {
	Relation []string        `json:"relation"`
	Target   statementTarget `json:"target"`
}

type statementTarget struct {
	Namespace              string   `json:"namespace"`
	Site                   *string  `json:"site"`
	PackageName            *string  `json:"package_name"`
	SHA256CertFingerprints []string `json:"sha256_cert_fingerprints"`
}

// ParseStatements extracts the set of target authentication domains
// declared with the given relation type from a raw asset link
// statement list. Statements for other relation types and statements
// with an unrecognized target namespace are skipped; structural
// problems in a matching statement fail the whole parse.
func ParseStatements(raw []byte, relationType string) (authdomain.Set, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: statement list must be a JSON array", ErrMalformedData)
	}

	var statements []statement
	if err := json.Unmarshal(trimmed, &statements); err != nil {
		return nil, fmt.Errorf("%w: statement list must be a JSON array: %v", ErrMalformedData, err)
	}

	targets := authdomain.NewSet()
	for i, st := range statements {
		if !containsString(st.Relation, relationType) {
			continue
		}

		switch st.Target.Namespace {
		case namespaceWeb:
			target, err := webTarget(st.Target)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}
			targets.Add(target)
		case namespaceApp, namespaceAppLegacy:
			target, err := appTarget(st.Target)
			if err != nil {
				return nil, fmt.Errorf("statement %d: %w", i, err)
			}
			targets.Add(target)
		default:
			logx.Warnf("skipping statement %d with unknown target namespace %q", i, st.Target.Namespace)
		}
	}

	return targets, nil
}

func webTarget(target statementTarget) (authdomain.AuthDomain, error) {
	if target.Site == nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: web target is missing \"site\"", ErrMalformedData)
	}
	domain, err := authdomain.FromWeb(*target.Site)
	if err != nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: web target site: %v", ErrMalformedData, err)
	}
	return domain, nil
}

func appTarget(target statementTarget) (authdomain.AuthDomain, error) {
	if target.PackageName == nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: app target is missing \"package_name\"", ErrMalformedData)
	}
	if len(target.SHA256CertFingerprints) == 0 {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: app target is missing \"sha256_cert_fingerprints\"", ErrMalformedData)
	}

	hexFingerprint := target.SHA256CertFingerprints[0]
	if len(hexFingerprint) != ExpectedFingerprintLength {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: fingerprint %q has length %d, want %d",
			ErrMalformedData, hexFingerprint, len(hexFingerprint), ExpectedFingerprintLength)
	}

	b64, err := fingerprint.HexToBase64(hexFingerprint)
	if err != nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: fingerprint: %v", ErrMalformedData, err)
	}

	domain, err := authdomain.FromApp(*target.PackageName, b64)
	if err != nil {
		return authdomain.AuthDomain{}, fmt.Errorf("%w: app target: %v", ErrMalformedData, err)
	}
	return domain, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
