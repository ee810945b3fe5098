// Package manifest implements the proof-input manifest: an open
// key/value metadata record whose canonical bytes explicitly exclude
// any attached signature block, so signing has a well-defined input.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/proofcore/proofcore/pkg/canon"
	"github.com/proofcore/proofcore/pkg/hashutil"
	"github.com/proofcore/proofcore/pkg/signing"
)

const signatureField = "signature"

// Manifest is an open metadata record plus an optional attached
// signature block.
type Manifest struct {
	Fields    map[string]any
	Signature *signing.SignatureBlock
}

// New returns a Manifest over a copy of fields. If fields itself
// carries a "signature" key it is stripped, since signatures are
// attached exclusively through Sign.
func New(fields map[string]any) *Manifest {
	m := &Manifest{Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		if k == signatureField {
			continue
		}
		m.Fields[k] = v
	}
	return m
}

// CanonicalBytes returns the manifest's canonical bytes, excluding any
// signature field.
func (m *Manifest) CanonicalBytes() ([]byte, error) {
	b, err := canon.Marshal(m.Fields)
	if err != nil {
		return nil, fmt.Errorf("manifest: canonicalize: %w", err)
	}
	return b, nil
}

// Hash returns the lower-case hex SHA-256 of the manifest's canonical bytes.
func (m *Manifest) Hash() (string, error) {
	b, err := m.CanonicalBytes()
	if err != nil {
		return "", err
	}
	return hashutil.SumHex(b), nil
}

// Sign signs the manifest's canonical bytes under seed and attaches
// the resulting signature block.
func (m *Manifest) Sign(seed []byte) error {
	b, err := m.CanonicalBytes()
	if err != nil {
		return err
	}
	block, err := signing.Sign(seed, b)
	if err != nil {
		return fmt.Errorf("manifest: sign: %w", err)
	}
	m.Signature = &block
	return nil
}

// VerifySignature recanonicalizes the manifest (with its signature
// stripped, as it always is) and checks the attached signature block
// against it. It returns VerdictUnknown, never VerdictValid, when no
// signature is attached.
func (m *Manifest) VerifySignature() (signing.Verdict, error) {
	if m.Signature == nil {
		return signing.VerdictUnknown, nil
	}
	b, err := m.CanonicalBytes()
	if err != nil {
		return signing.VerdictInvalid, err
	}
	return signing.Verify(*m.Signature, b), nil
}

// MarshalJSON emits the open fields plus, when present, the signature
// block under the "signature" key.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	if m.Signature != nil {
		out[signatureField] = m.Signature
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits a raw manifest document back into open fields
// and an optional signature block.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("manifest: unmarshal: %w", err)
	}

	m.Fields = make(map[string]any)
	for k, v := range raw {
		if k == signatureField {
			var block signing.SignatureBlock
			if err := json.Unmarshal(v, &block); err != nil {
				return fmt.Errorf("manifest: unmarshal signature: %w", err)
			}
			m.Signature = &block
			continue
		}
		// Decode with UseNumber so a field like "1.50" survives as the
		// json.Number "1.50" instead of collapsing to float64(1.5),
		// mirroring pkg/canon's decoder; otherwise CanonicalBytes would
		// re-serialize a field to different bytes than were signed.
		var val any
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.UseNumber()
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("manifest: unmarshal field %s: %w", k, err)
		}
		m.Fields[k] = val
	}
	return nil
}

// FromJSON parses a manifest document.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &m, nil
}
