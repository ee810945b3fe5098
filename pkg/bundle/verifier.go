package bundle

import (
	"archive/zip"
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/proofcore/proofcore/pkg/capsule"
	"github.com/proofcore/proofcore/pkg/hashutil"
	"github.com/proofcore/proofcore/pkg/ledger"
	"github.com/proofcore/proofcore/pkg/manifest"
)

// Verdict mirrors the per-check VALID/INVALID/UNKNOWN outcome reported
// by both the Go verifier and the embedded Python verifier.
type Verdict string

const (
	VerdictValid   Verdict = "VALID"
	VerdictInvalid Verdict = "INVALID"
	VerdictUnknown Verdict = "UNKNOWN"
	// VerdictKnown is the ORIGIN_SPE-only verdict reported when the
	// manifest's signing public key matches a configured well-known
	// production key. ORIGIN_SPE never reports VerdictValid/Invalid;
	// its vocabulary is KNOWN/UNKNOWN.
	VerdictKnown Verdict = "KNOWN"
)

// Report is the full set of verdicts produced by an end-to-end verify
// run, in fixed reporting order.
type Report struct {
	Ledger          Verdict `json:"ledger"`
	CapsuleBinding  Verdict `json:"capsule_binding"`
	ProofInputHash  string  `json:"proof_input_hash"`
	Signature       Verdict `json:"signature"`
	OriginSPE       Verdict `json:"origin_spe"`
	Object          Verdict `json:"object,omitempty"`
}

// OK reports whether every applicable verdict in r is acceptable
// (VALID or, for the signature check, UNKNOWN). OriginSPE is
// informational and is not checked.
func (r Report) OK() bool {
	if r.Ledger != VerdictValid || r.CapsuleBinding != VerdictValid {
		return false
	}
	if r.Signature != VerdictValid && r.Signature != VerdictUnknown {
		return false
	}
	if r.Object != "" && r.Object != VerdictValid {
		return false
	}
	return true
}

// loadKnownKeys reads a file of base64-encoded Ed25519 public keys, one
// per line, and returns the set of their base64 text -- the same form
// SignatureBlock.PublicKey carries -- for membership checks by plain
// string comparison. Blank lines and lines starting with "#" are
// ignored.
func loadKnownKeys(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: open known keys file %s: %w", path, err)
	}
	defer f.Close()

	keys := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := base64.StdEncoding.DecodeString(line); err != nil {
			return nil, fmt.Errorf("bundle: known keys file %s: invalid base64 key %q: %w", path, line, err)
		}
		keys[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bundle: read known keys file %s: %w", path, err)
	}
	return keys, nil
}

// Verify extracts bundlePath to a temporary directory and runs the
// end-to-end check: recompute the capsule hash, verify the ledger
// chain, check capsule binding, check the manifest signature, compare
// the signing key against knownKeysPath (if non-empty) for ORIGIN_SPE,
// and, when artifactPath is non-empty, compare the artifact's hash
// against the capsule's recorded output hash.
func Verify(ctx context.Context, bundlePath, artifactPath, knownKeysPath string) (Report, error) {
	dir, err := os.MkdirTemp("", "proofcore-bundle-*")
	if err != nil {
		return Report{}, fmt.Errorf("bundle: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := extract(bundlePath, dir); err != nil {
		return Report{}, err
	}

	capsuleRaw, err := os.ReadFile(filepath.Join(dir, MemberCapsule))
	if err != nil {
		return Report{}, fmt.Errorf("bundle: read capsule: %w", err)
	}
	var c capsule.Capsule
	if err := json.Unmarshal(capsuleRaw, &c); err != nil {
		return Report{}, fmt.Errorf("bundle: parse capsule: %w", err)
	}
	capsuleHash, err := c.Hash()
	if err != nil {
		return Report{}, fmt.Errorf("bundle: hash capsule: %w", err)
	}

	store, err := ledger.Open(filepath.Join(dir, MemberLedger))
	if err != nil {
		return Report{}, fmt.Errorf("bundle: open ledger: %w", err)
	}
	defer store.Close()

	report := Report{OriginSPE: VerdictUnknown}

	if _, err := store.Verify(ctx); err == nil {
		report.Ledger = VerdictValid
	} else {
		report.Ledger = VerdictInvalid
	}

	// Binding is checked over every entry, independently of the chain
	// verdict, as the embedded Python verifier does.
	entries, err := store.All(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("bundle: read ledger entries: %w", err)
	}
	report.CapsuleBinding = VerdictInvalid
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].CapsuleHash == capsuleHash {
			report.CapsuleBinding = VerdictValid
			break
		}
	}

	manifestRaw, err := os.ReadFile(filepath.Join(dir, MemberProofInput))
	if err != nil {
		return Report{}, fmt.Errorf("bundle: read proof input: %w", err)
	}
	m, err := manifest.FromJSON(manifestRaw)
	if err != nil {
		return Report{}, fmt.Errorf("bundle: parse proof input: %w", err)
	}
	hash, err := m.Hash()
	if err != nil {
		return Report{}, fmt.Errorf("bundle: hash proof input: %w", err)
	}
	report.ProofInputHash = hash

	sigVerdict, err := m.VerifySignature()
	if err != nil {
		report.Signature = VerdictInvalid
	} else {
		report.Signature = Verdict(sigVerdict)
	}

	if knownKeysPath != "" && m.Signature != nil {
		knownKeys, err := loadKnownKeys(knownKeysPath)
		if err != nil {
			return Report{}, err
		}
		if knownKeys[m.Signature.PublicKey] {
			report.OriginSPE = VerdictKnown
		}
	}

	if artifactPath != "" {
		actual, err := hashutil.HashFile(artifactPath)
		if err != nil {
			return Report{}, fmt.Errorf("bundle: hash artifact: %w", err)
		}
		expected := hashutil.StripPrefix(c.OutputHash)
		if actual == expected {
			report.Object = VerdictValid
		} else {
			report.Object = VerdictInvalid
		}
	}

	return report, nil
}

func extract(bundlePath, destDir string) error {
	zr, err := zip.OpenReader(bundlePath)
	if err != nil {
		return fmt.Errorf("bundle: open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("bundle: create member dir: %w", err)
		}
		if err := extractOne(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("bundle: open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("bundle: create %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("bundle: extract member %s: %w", f.Name, err)
	}
	return nil
}
