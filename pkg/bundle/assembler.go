// Package bundle implements bundle assembly and verification: packing
// the capsule, ledger, and manifest into a single portable ZIP
// archive alongside a hermetic, embedded verifier, and running the
// equivalent end-to-end verification from Go.
package bundle

import (
	"archive/zip"
	"embed"
	"fmt"
	"io"
	"os"
)

// Fixed member names inside a bundle archive.
const (
	MemberCapsule      = "forensic_capsule.json"
	MemberLedger       = "ledger.sqlite"
	MemberProofInput   = "proof_input.json"
	MemberVerifyPy     = "verify/verify_bundle.py"
	MemberVerifyReadme = "verify/README.md"
)

//go:embed assets/verify_bundle.py assets/README.md
var verifierAssets embed.FS

// Assemble packages capsulePath, ledgerPath and manifestPath into a
// ZIP archive at outPath, copying the embedded verifier in byte for
// byte so every bundle ships with the verifier the Go implementation
// was built against.
func Assemble(capsulePath, ledgerPath, manifestPath, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("bundle: create %s: %w", outPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	if err := copyFileInto(zw, MemberCapsule, capsulePath); err != nil {
		return err
	}
	if err := copyFileInto(zw, MemberLedger, ledgerPath); err != nil {
		return err
	}
	if err := copyFileInto(zw, MemberProofInput, manifestPath); err != nil {
		return err
	}
	if err := copyEmbeddedInto(zw, MemberVerifyPy, "assets/verify_bundle.py"); err != nil {
		return err
	}
	if err := copyEmbeddedInto(zw, MemberVerifyReadme, "assets/README.md"); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("bundle: finalize archive: %w", err)
	}
	return nil
}

func copyFileInto(zw *zip.Writer, memberName, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("bundle: open %s: %w", srcPath, err)
	}
	defer src.Close()

	w, err := zw.Create(memberName)
	if err != nil {
		return fmt.Errorf("bundle: create member %s: %w", memberName, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("bundle: write member %s: %w", memberName, err)
	}
	return nil
}

func copyEmbeddedInto(zw *zip.Writer, memberName, assetPath string) error {
	data, err := verifierAssets.ReadFile(assetPath)
	if err != nil {
		return fmt.Errorf("bundle: read embedded asset %s: %w", assetPath, err)
	}
	w, err := zw.Create(memberName)
	if err != nil {
		return fmt.Errorf("bundle: create member %s: %w", memberName, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("bundle: write member %s: %w", memberName, err)
	}
	return nil
}
