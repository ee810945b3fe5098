package context

import (
	"encoding/hex"
	"fmt"

	"github.com/proofcore/proofcore/pkg/canon"
	"github.com/proofcore/proofcore/pkg/hashutil"
	"github.com/proofcore/proofcore/pkg/merkle"
)

// LeafBytes returns the canonical bytes of item: a mapping of exactly
// its four fields, sorted-key order imposed by canon.Marshal.
func LeafBytes(item Item) ([]byte, error) {
	b, err := canon.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("context: canonicalize item %s: %w", item.DocID, err)
	}
	return b, nil
}

// LeafHash returns SHA-256 of the item's canonical bytes.
func LeafHash(item Item) ([32]byte, error) {
	b, err := LeafBytes(item)
	if err != nil {
		return [32]byte{}, err
	}
	return hashutil.Sum(b), nil
}

// Root computes the context Merkle root over items in order. An empty
// slice yields merkle.EmptyRoot -- BuildTree alone rejects empty input,
// so that case is handled here rather than in the tree implementation.
func Root(items []Item) (string, error) {
	if len(items) == 0 {
		return hex.EncodeToString(merkle.EmptyRoot()), nil
	}

	leaves := make([][]byte, len(items))
	for i, it := range items {
		h, err := LeafHash(it)
		if err != nil {
			return "", err
		}
		leaves[i] = h[:]
	}

	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return "", fmt.Errorf("context: build tree: %w", err)
	}
	return tree.RootHex(), nil
}

// InclusionProof proves that items[index] belongs under the root
// computed from the full items slice.
func InclusionProof(items []Item, index int) (*merkle.InclusionProof, error) {
	if len(items) == 0 {
		return nil, merkle.ErrEmptyTree
	}
	leaves := make([][]byte, len(items))
	for i, it := range items {
		h, err := LeafHash(it)
		if err != nil {
			return nil, err
		}
		leaves[i] = h[:]
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("context: build tree: %w", err)
	}
	return tree.GenerateProof(index)
}

// VerifyInclusion verifies that item is included under rootHex per
// proof.
func VerifyInclusion(item Item, proof *merkle.InclusionProof, rootHex string) (bool, error) {
	leafHash, err := LeafHash(item)
	if err != nil {
		return false, err
	}
	root, err := hex.DecodeString(rootHex)
	if err != nil {
		return false, fmt.Errorf("context: decode root: %w", err)
	}
	return merkle.VerifyProof(leafHash[:], proof, root)
}
