package capsule

// Builder assembles a Capsule field by field through a fluent
// With-prefixed API, in the style of a validator attestation builder:
// accumulate fields, validate once, construct once.
type Builder struct {
	capsule Capsule
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithRun sets the run and target timestamps and gate policy.
func (b *Builder) WithRun(tRun, tTarget int64, gatePolicyID string) *Builder {
	b.capsule.TRun = tRun
	b.capsule.TTarget = tTarget
	b.capsule.GatePolicyID = gatePolicyID
	return b
}

// WithModel sets the model identifier and the hash of the prompt that
// produced the artifact.
func (b *Builder) WithModel(modelID, hashPrompt string) *Builder {
	b.capsule.ModelID = modelID
	b.capsule.HashPrompt = hashPrompt
	return b
}

// WithOutput sets the output artifact hash.
func (b *Builder) WithOutput(outputHash string) *Builder {
	b.capsule.OutputHash = outputHash
	return b
}

// WithContextRoot sets the context Merkle root.
func (b *Builder) WithContextRoot(root string) *Builder {
	b.capsule.ContextMerkleRoot = root
	return b
}

// WithArtifactMetadata sets the optional artifact descriptors.
func (b *Builder) WithArtifactMetadata(artifactType, mode, hashAlg string) *Builder {
	b.capsule.ArtifactType = artifactType
	b.capsule.Mode = mode
	b.capsule.HashAlg = hashAlg
	return b
}

// WithSnapshot sets the optional snapshot and normalization-params identifiers.
func (b *Builder) WithSnapshot(snapshotHash, normalizationParamsID string) *Builder {
	b.capsule.SnapshotHash = snapshotHash
	b.capsule.NormalizationParamsID = normalizationParamsID
	return b
}

// WithProofInput embeds a manifest inline alongside its hash.
func (b *Builder) WithProofInput(manifest map[string]any, manifestHash string) *Builder {
	b.capsule.ProofInput = manifest
	b.capsule.ProofInputHash = manifestHash
	return b
}

// Build validates the accumulated fields and returns the finished,
// immutable Capsule.
func (b *Builder) Build() (*Capsule, error) {
	if err := b.capsule.Validate(); err != nil {
		return nil, err
	}
	out := b.capsule
	return &out, nil
}
