package cryptoutil

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/pkg/errors"
)

// KeyPair is a SECP256k1 private/public key pair with their hex encodings.
type KeyPair struct {
	PrivateKeyHex string
	PublicKeyHex  string
}

// GenerateKeyPair creates a new random SECP256k1 key pair. Raw scalar and
// uncompressed point bytes are hex-encoded, no DER.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return KeyPair{}, errors.Wrap(err, "generate secp256k1 key")
	}
	pub := priv.PubKey()
	return KeyPair{
		PrivateKeyHex: hex.EncodeToString(priv.Serialize()),
		PublicKeyHex:  hex.EncodeToString(pub.SerializeUncompressed()),
	}, nil
}

// Sign signs sha256(utf8(message)) with the private key and returns a hex
// signature encoded as raw compact bytes (no DER).
func Sign(privHex string, message string) (string, error) {
	privBytes, err := hex.DecodeString(privHex)
	if err != nil {
		return "", errors.Wrap(err, "decode private key")
	}
	priv, _ := btcec.PrivKeyFromBytes(privBytes)

	digest := sha256.Sum256([]byte(message))
	sig := ecdsa.SignCompact(priv, digest[:], false)
	return hex.EncodeToString(sig), nil
}

// Verify checks a hex signature over sha256(utf8(message)) against a hex
// public key.
func Verify(pubHex string, message string, sigHex string) bool {
	pubBytes, err := hex.DecodeString(pubHex)
	if err != nil {
		return false
	}
	pub, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}

	digest := sha256.Sum256([]byte(message))

	recoveredPub, _, err := ecdsa.RecoverCompact(sigBytes, digest[:])
	if err != nil {
		return false
	}
	return recoveredPub.IsEqual(pub)
}

// PublicKeyToAddress derives the 64-hex-character address from a hex public
// key: the plain SHA-256 hex digest of the raw public key bytes. No Base58,
// no checksum, no RIPEMD160.
func PublicKeyToAddress(pubHex string) (string, error) {
	pubBytes, err := hex.DecodeString(pubHex)
	if err != nil {
		return "", errors.Wrap(err, "decode public key")
	}
	return Sha256Hex(pubBytes), nil
}
