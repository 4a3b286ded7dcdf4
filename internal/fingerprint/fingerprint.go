// Package fingerprint converts certificate fingerprints between the
// colon-delimited hexadecimal form used by asset link declarations and
// registry APIs, and the unpadded URL-safe base64 form used inside
// canonical authentication domain strings.
package fingerprint

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat is wrapped by all errors returned for malformed
// fingerprint input, in either direction.
var ErrInvalidFormat = errors.New("invalid fingerprint format")

const hexDigits = "0123456789ABCDEF"

// DecodeHex decodes a colon-delimited hex fingerprint such as
// "3A:0F:..." into raw bytes. Every byte group must be exactly two hex
// digits; case is ignored.
func DecodeHex(hexStr string) ([]byte, error) {
	if hexStr == "" {
		return nil, fmt.Errorf("%w: empty fingerprint", ErrInvalidFormat)
	}

	groups := strings.Split(hexStr, ":")
	data := make([]byte, len(groups))
	for i, group := range groups {
		if len(group) != 2 {
			return nil, fmt.Errorf("%w: byte group %q is not two hex digits", ErrInvalidFormat, group)
		}
		hi, err := hexDigit(group[0])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(group[1])
		if err != nil {
			return nil, err
		}
		data[i] = hi<<4 | lo
	}
	return data, nil
}

// EncodeHex renders raw bytes as uppercase two-digit hex pairs joined
// by colons, with no trailing colon.
func EncodeHex(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0F])
	}
	return sb.String()
}

// HexToBase64 converts a colon-delimited hex fingerprint to its
// canonical unpadded URL-safe base64 form.
func HexToBase64(hexStr string) (string, error) {
	data, err := DecodeHex(hexStr)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Base64ToHex converts a canonical base64 fingerprint back to
// colon-delimited uppercase hex.
func Base64ToHex(b64 string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return EncodeHex(data), nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("%w: %q is not a hex digit", ErrInvalidFormat, string(c))
	}
}
