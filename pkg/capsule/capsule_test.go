package capsule

import (
	"errors"
	"strings"
	"testing"
)

func validCapsule() Capsule {
	return Capsule{
		TRun:              1000,
		TTarget:           900,
		GatePolicyID:      "strict",
		ModelID:           "model-a",
		HashPrompt:        "sha256:abc",
		OutputHash:        "sha256:def",
		ContextMerkleRoot: "abc123",
	}
}

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	c := validCapsule()
	c.ModelID = ""
	if err := c.Validate(); !errors.Is(err, ErrMissingRequiredField) {
		t.Errorf("err = %v, want ErrMissingRequiredField", err)
	}
}

func TestValidateAcceptsFullyPopulatedCapsule(t *testing.T) {
	c := validCapsule()
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestCanonicalBytesDefaultsHashAlg(t *testing.T) {
	c := validCapsule()
	b, err := c.CanonicalBytes()
	if err != nil {
		t.Fatalf("CanonicalBytes: %v", err)
	}
	if c.HashAlg != "" {
		t.Errorf("CanonicalBytes must not mutate the receiver, HashAlg = %q", c.HashAlg)
	}
	if !strings.Contains(string(b), `"hash_alg":"sha256"`) {
		t.Errorf("expected default hash_alg in canonical bytes, got %s", b)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	c := validCapsule()
	h1, err := c.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := c.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected deterministic hash, got %s and %s", h1, h2)
	}
}

func TestHashChangesWithField(t *testing.T) {
	c1 := validCapsule()
	c2 := validCapsule()
	c2.OutputHash = "sha256:other"

	h1, err := c1.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := c2.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 == h2 {
		t.Error("expected different hashes for different output_hash values")
	}
}

func TestCanonicalBytesRejectsInvalidCapsule(t *testing.T) {
	c := Capsule{}
	if _, err := c.CanonicalBytes(); !errors.Is(err, ErrMissingRequiredField) {
		t.Errorf("err = %v, want ErrMissingRequiredField", err)
	}
}
