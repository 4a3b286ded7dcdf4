package fingerprint

import (
	"errors"
	"strings"
	"testing"
)

func TestHexToBase64(t *testing.T) {
	tests := []struct {
		hex  string
		want string
	}{
		{"00", "AA"},
		{"FF", "_w"},
		{"00:01:02:03", "AAECAw"},
		{"DE:AD:BE:EF", "3q2-7w"},
		// lowercase input is accepted
		{"de:ad:be:ef", "3q2-7w"},
	}
	for _, tt := range tests {
		got, err := HexToBase64(tt.hex)
		if err != nil {
			t.Errorf("HexToBase64(%q): %v", tt.hex, err)
			continue
		}
		if got != tt.want {
			t.Errorf("HexToBase64(%q) = %q, want %q", tt.hex, got, tt.want)
		}
	}
}

func TestHexToBase64_Invalid(t *testing.T) {
	invalids := []string{
		"",
		"0",
		"000",
		"0G",
		"00:",
		":00",
		"00::11",
		"00:1",
		"0Z:11",
	}
	for _, in := range invalids {
		if _, err := HexToBase64(in); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("HexToBase64(%q): err = %v, want ErrInvalidFormat", in, err)
		}
	}
}

func TestBase64ToHex(t *testing.T) {
	got, err := Base64ToHex("3q2-7w")
	if err != nil {
		t.Fatalf("Base64ToHex: %v", err)
	}
	if got != "DE:AD:BE:EF" {
		t.Errorf("Base64ToHex = %q, want DE:AD:BE:EF", got)
	}
}

func TestBase64ToHex_Invalid(t *testing.T) {
	invalids := []string{
		"not base64!!", // illegal characters
		"AA==",         // padding is not part of the canonical form
		"3q2+7w",       // standard alphabet, not URL-safe
	}
	for _, in := range invalids {
		if _, err := Base64ToHex(in); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Base64ToHex(%q): err = %v, want ErrInvalidFormat", in, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	fingerprints := []string{
		"00",
		"DE:AD:BE:EF",
		// full length SHA-256 digest
		"B3:5A:21:FF:4E:F3:72:97:49:C0:77:13:B5:AE:9C:51:2D:E6:B2:1C:5D:D0:17:11:10:6F:FB:D5:DB:C5:F0:3A",
	}
	for _, hex := range fingerprints {
		b64, err := HexToBase64(hex)
		if err != nil {
			t.Fatalf("HexToBase64(%q): %v", hex, err)
		}
		back, err := Base64ToHex(b64)
		if err != nil {
			t.Fatalf("Base64ToHex(%q): %v", b64, err)
		}
		if back != strings.ToUpper(hex) {
			t.Errorf("round trip of %q = %q", hex, back)
		}
	}
}
