package cryptoutil

import (
	"encoding/hex"
	"testing"
)

func TestMerkleRootEmpty(t *testing.T) {
	got := MerkleRoot(nil)
	want := Sha256Hex([]byte(""))
	if got != want {
		t.Fatalf("MerkleRoot(nil) = %s, want %s", got, want)
	}
}

func TestMerkleRootSingle(t *testing.T) {
	id := Sha256Hex([]byte("tx1"))
	got := MerkleRoot([]string{id})
	// A single-element level is odd, so it's duplicated against itself.
	want := Sha256Hex([]byte(id + id))
	if got != want {
		t.Fatalf("MerkleRoot single = %s, want %s", got, want)
	}
}

func TestMerkleRootPair(t *testing.T) {
	a := Sha256Hex([]byte("tx1"))
	b := Sha256Hex([]byte("tx2"))
	got := MerkleRoot([]string{a, b})
	want := Sha256Hex([]byte(a + b))
	if got != want {
		t.Fatalf("MerkleRoot pair = %s, want %s", got, want)
	}
}

func TestMerkleRootOddCountDuplicatesLast(t *testing.T) {
	a := Sha256Hex([]byte("tx1"))
	b := Sha256Hex([]byte("tx2"))
	c := Sha256Hex([]byte("tx3"))

	ab := Sha256Hex([]byte(a + b))
	cc := Sha256Hex([]byte(c + c))
	want := Sha256Hex([]byte(ab + cc))

	got := MerkleRoot([]string{a, b, c})
	if got != want {
		t.Fatalf("MerkleRoot odd = %s, want %s", got, want)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}

	msg := "hello world"
	sig, err := Sign(kp.PrivateKeyHex, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !Verify(kp.PublicKeyHex, msg, sig) {
		t.Fatalf("Verify returned false for a valid signature")
	}

	if Verify(kp.PublicKeyHex, "different message", sig) {
		t.Fatalf("Verify returned true for a tampered message")
	}
}

func TestVerifyRejectsGarbageSignature(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if Verify(kp.PublicKeyHex, "msg", "deadbeef") {
		t.Fatalf("Verify accepted a garbage signature")
	}
}

func TestPublicKeyToAddressIsSha256Hex(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	addr, err := PublicKeyToAddress(kp.PublicKeyHex)
	if err != nil {
		t.Fatalf("PublicKeyToAddress: %v", err)
	}
	if len(addr) != 64 {
		t.Fatalf("address length = %d, want 64", len(addr))
	}
	pubBytes, err := hex.DecodeString(kp.PublicKeyHex)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if addr != Sha256Hex(pubBytes) {
		t.Fatalf("address = %s, want SHA-256 hex of the public key bytes", addr)
	}
}
