// Package capsule implements the forensic capsule: the immutable
// attestation record for one artifact at one moment, its canonical
// byte form, and its stable capsule hash.
package capsule

import (
	"errors"
	"fmt"

	"github.com/proofcore/proofcore/pkg/canon"
	"github.com/proofcore/proofcore/pkg/hashutil"
)

// ErrMissingRequiredField is returned when a required capsule field is empty.
var ErrMissingRequiredField = errors.New("capsule: missing required field")

// Capsule is the forensic capsule record. Required fields are plain
// values; fields that may be legitimately absent use omitempty so
// canon.Marshal drops them from the canonical bytes entirely.
type Capsule struct {
	TRun              int64  `json:"t_run"`
	TTarget           int64  `json:"t_target"`
	GatePolicyID      string `json:"gate_policy_id"`
	ModelID           string `json:"model_id"`
	HashPrompt        string `json:"hash_prompt"`
	OutputHash        string `json:"output_hash"`
	ContextMerkleRoot string `json:"context_merkle_root"`

	ArtifactType          string         `json:"artifact_type,omitempty"`
	Mode                  string         `json:"mode,omitempty"`
	HashAlg               string         `json:"hash_alg,omitempty"`
	SnapshotHash          string         `json:"snapshot_hash,omitempty"`
	NormalizationParamsID string         `json:"normalization_params_id,omitempty"`
	ProofInput            map[string]any `json:"proof_input,omitempty"`
	ProofInputHash        string         `json:"proof_input_hash,omitempty"`
}

// Validate checks that every required field is populated.
func (c *Capsule) Validate() error {
	required := map[string]string{
		"gate_policy_id":      c.GatePolicyID,
		"model_id":            c.ModelID,
		"hash_prompt":         c.HashPrompt,
		"output_hash":         c.OutputHash,
		"context_merkle_root": c.ContextMerkleRoot,
	}
	for name, v := range required {
		if v == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, name)
		}
	}
	return nil
}

// CanonicalBytes returns the capsule's canonical byte form. HashAlg
// defaults to "sha256" when unset, and a "sha256:" prefix on
// OutputHash is dropped so the raw hex is what gets hashed; both are
// applied to a copy and never mutate the caller's struct.
func (c *Capsule) CanonicalBytes() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cc := *c
	if cc.HashAlg == "" {
		cc.HashAlg = "sha256"
	}
	cc.OutputHash = hashutil.StripPrefix(cc.OutputHash)
	b, err := canon.Marshal(cc)
	if err != nil {
		return nil, fmt.Errorf("capsule: canonicalize: %w", err)
	}
	return b, nil
}

// Hash returns the lower-case hex SHA-256 of the capsule's canonical bytes.
func (c *Capsule) Hash() (string, error) {
	b, err := c.CanonicalBytes()
	if err != nil {
		return "", err
	}
	return hashutil.SumHex(b), nil
}
