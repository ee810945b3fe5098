// Package signing implements Ed25519 signing and verification over
// canonical message bytes, with a fixed domain-separation prefix ahead
// of every signed hash, in the style of a domain-separated attestation
// signer: never sign raw bytes directly, always a (domain || hash)
// commitment.
package signing

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// Domain is the fixed domain-separation tag mixed into every signed
// message before it reaches Ed25519. Changing it invalidates every
// previously issued signature, which is the point: proofs from this
// pipeline can never be confused with signatures produced by some
// other signing context that happens to reuse the same key.
const Domain = "PROOFCORE_MANIFEST_V1"

// Algorithm is the fixed algorithm label carried in a SignatureBlock.
const Algorithm = "ed25519"

// Verdict is the outcome of a signature check.
type Verdict string

const (
	VerdictValid   Verdict = "VALID"
	VerdictInvalid Verdict = "INVALID"
	VerdictUnknown Verdict = "UNKNOWN"
)

var (
	// ErrSeedSize is returned when a seed is not exactly ed25519.SeedSize bytes.
	ErrSeedSize = errors.New("signing: seed must be exactly 32 bytes")
	// ErrKeySize is returned when a public key is not exactly ed25519.PublicKeySize bytes.
	ErrKeySize = errors.New("signing: public key must be exactly 32 bytes")
	// ErrSignatureSize is returned when a signature is not exactly ed25519.SignatureSize bytes.
	ErrSignatureSize = errors.New("signing: signature must be exactly 64 bytes")
)

// SignatureBlock is the attached-signature shape carried on a
// ProofInputManifest: a fixed algorithm label plus base64-encoded key
// material.
type SignatureBlock struct {
	Algorithm      string `json:"algorithm"`
	PublicKey      string `json:"public_key"`
	SignatureValue string `json:"signature_value"`
}

// GenerateSeed returns a fresh random Ed25519 seed.
func GenerateSeed() ([]byte, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("signing: generate seed: %w", err)
	}
	return seed, nil
}

func domainMessage(message []byte) []byte {
	h := sha256.Sum256(message)
	var buf bytes.Buffer
	buf.WriteString(Domain)
	buf.Write(h[:])
	out := sha256.Sum256(buf.Bytes())
	return out[:]
}

// Sign signs message under the given 32-byte seed and returns a
// populated SignatureBlock. The raw message is never signed directly;
// Sign hashes it, mixes in Domain, and signs that digest.
func Sign(seed []byte, message []byte) (SignatureBlock, error) {
	if len(seed) != ed25519.SeedSize {
		return SignatureBlock{}, ErrSeedSize
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	sig := ed25519.Sign(priv, domainMessage(message))
	return SignatureBlock{
		Algorithm:      Algorithm,
		PublicKey:      base64.StdEncoding.EncodeToString(pub),
		SignatureValue: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// Verify checks a SignatureBlock against message. It never returns
// VerdictValid on malformed input: a wrong-size key or signature is
// VerdictInvalid, and the only VerdictUnknown case is the caller
// reporting that no verifier is available at all (see VerifyAvailable).
func Verify(block SignatureBlock, message []byte) Verdict {
	if block.Algorithm != Algorithm {
		return VerdictInvalid
	}
	pub, err := base64.StdEncoding.DecodeString(block.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return VerdictInvalid
	}
	sig, err := base64.StdEncoding.DecodeString(block.SignatureValue)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return VerdictInvalid
	}
	if ed25519.Verify(ed25519.PublicKey(pub), domainMessage(message), sig) {
		return VerdictValid
	}
	return VerdictInvalid
}

// VerifyAvailable reports whether a verifier implementation is present
// in this build. The Go implementation always carries one; the
// embedded Python verifier may not (see pkg/bundle), in which case it
// must report VerdictUnknown rather than silently treating an
// unverifiable signature as valid.
func VerifyAvailable() bool { return true }
