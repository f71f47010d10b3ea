package security

import (
	"strings"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	master, err := NewAEADCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}
	pair := CredentialPair{Username: "owner@example.com", Password: "s3cret!"}

	blob, wrappedKey, err := SealEnvelope(master, pair)
	if err != nil {
		t.Fatalf("SealEnvelope: %v", err)
	}
	if blob == "" || wrappedKey == "" {
		t.Fatal("empty blob or wrapped key")
	}
	if strings.Contains(blob, pair.Password) {
		t.Fatal("blob contains plaintext password")
	}

	got, err := OpenEnvelope(master, blob, wrappedKey)
	if err != nil {
		t.Fatalf("OpenEnvelope: %v", err)
	}
	if got != pair {
		t.Errorf("got %+v, want %+v", got, pair)
	}
}

func TestEnvelopeUniqueDataKeys(t *testing.T) {
	master, err := NewAEADCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}
	pair := CredentialPair{Username: "u", Password: "p"}
	_, key1, err := SealEnvelope(master, pair)
	if err != nil {
		t.Fatalf("SealEnvelope: %v", err)
	}
	_, key2, err := SealEnvelope(master, pair)
	if err != nil {
		t.Fatalf("SealEnvelope: %v", err)
	}
	if key1 == key2 {
		t.Fatal("two shares got the same wrapped data key")
	}
}

func TestOpenEnvelopeWrongMasterFails(t *testing.T) {
	master, err := NewAEADCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}
	other, err := NewAEADCipher(testKey(t))
	if err != nil {
		t.Fatalf("NewAEADCipher: %v", err)
	}
	blob, wrappedKey, err := SealEnvelope(master, CredentialPair{Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("SealEnvelope: %v", err)
	}
	if _, err := OpenEnvelope(other, blob, wrappedKey); err == nil {
		t.Fatal("OpenEnvelope with wrong master key should fail")
	}
}
