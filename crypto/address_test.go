package crypto

import (
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [20]byte
	for i := range raw {
		raw[i] = byte(i + 1)
	}

	encoded := MustNewAddress(raw).String()
	if !strings.HasPrefix(encoded, string(MarketPrefix)+"1") {
		t.Fatalf("encoded = %q, want %q prefix", encoded, MarketPrefix)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Raw() != raw {
		t.Fatalf("round trip mismatch: %x != %x", decoded.Raw(), raw)
	}
	if decoded.Prefix() != MarketPrefix {
		t.Fatalf("prefix = %q", decoded.Prefix())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-an-address"); err == nil {
		t.Fatalf("expected error for invalid bech32")
	}
	if _, err := DecodeAddress(""); err == nil {
		t.Fatalf("expected error for empty string")
	}
}

func TestDecodeAddressRejectsWrongLength(t *testing.T) {
	// A valid bech32 string whose payload is not 20 bytes.
	var raw [20]byte
	encoded := MustNewAddress(raw).String()
	truncated := encoded[:len(encoded)-10]
	if _, err := DecodeAddress(truncated); err == nil {
		t.Fatalf("expected error for truncated address")
	}
}

func TestNewAddressPanicsOnBadLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for short payload")
		}
	}()
	NewAddress(MarketPrefix, []byte{1, 2, 3})
}
