package context

import (
	"testing"

	"github.com/proofcore/proofcore/pkg/merkle"
)

func sampleItems() []Item {
	return []Item{
		{DocID: "doc-1", ContentHash: "aaa", Timestamp: 100, SourceID: "src-1"},
		{DocID: "doc-2", ContentHash: "bbb", Timestamp: 200, SourceID: "src-2"},
		{DocID: "doc-3", ContentHash: "ccc", Timestamp: 300, SourceID: "src-1"},
	}
}

func TestRootEmptySetIsEmptyRootHex(t *testing.T) {
	root, err := Root(nil)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if root != want {
		t.Errorf("got %s, want %s", root, want)
	}
}

func TestRootIsDeterministic(t *testing.T) {
	items := sampleItems()
	r1, err := Root(items)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	r2, err := Root(items)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if r1 != r2 {
		t.Errorf("expected deterministic root, got %s and %s", r1, r2)
	}
}

func TestInclusionProofRoundTrip(t *testing.T) {
	items := sampleItems()
	root, err := Root(items)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	for i, item := range items {
		proof, err := InclusionProof(items, i)
		if err != nil {
			t.Fatalf("InclusionProof(%d): %v", i, err)
		}
		ok, err := VerifyInclusion(item, proof, root)
		if err != nil {
			t.Fatalf("VerifyInclusion(%d): %v", i, err)
		}
		if !ok {
			t.Errorf("item %d failed to verify inclusion under the computed root", i)
		}
	}
}

func TestVerifyInclusionRejectsWrongItem(t *testing.T) {
	items := sampleItems()
	root, err := Root(items)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	proof, err := InclusionProof(items, 0)
	if err != nil {
		t.Fatalf("InclusionProof: %v", err)
	}
	tampered := items[0]
	tampered.ContentHash = "tampered"
	ok, err := VerifyInclusion(tampered, proof, root)
	if err != nil {
		t.Fatalf("VerifyInclusion: %v", err)
	}
	if ok {
		t.Error("expected inclusion verification to fail for a tampered item")
	}
}

func TestInclusionProofOnEmptySetReturnsEmptyTreeError(t *testing.T) {
	_, err := InclusionProof(nil, 0)
	if err != merkle.ErrEmptyTree {
		t.Errorf("err = %v, want %v", err, merkle.ErrEmptyTree)
	}
}
