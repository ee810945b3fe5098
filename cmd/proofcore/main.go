// Command proofcore builds, binds, and verifies forensic proof
// bundles: attest an artifact into the hash-chain ledger, generate
// inclusion proofs over its context set, verify a ledger or bundle,
// and assemble a portable verification bundle.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/proofcore/proofcore/pkg/bundle"
	"github.com/proofcore/proofcore/pkg/capsule"
	"github.com/proofcore/proofcore/pkg/config"
	pctx "github.com/proofcore/proofcore/pkg/context"
	"github.com/proofcore/proofcore/pkg/gate"
	"github.com/proofcore/proofcore/pkg/hashutil"
	"github.com/proofcore/proofcore/pkg/ledger"
	"github.com/proofcore/proofcore/pkg/manifest"
	"github.com/proofcore/proofcore/pkg/signing"
	"github.com/proofcore/proofcore/pkg/tvoc"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "attest":
		err = runAttest(os.Args[2:])
	case "proof":
		err = runProof(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	case "bundle":
		err = runBundle(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "proofcore: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("proofcore %s: %v", os.Args[1], err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: proofcore <command> [flags]

commands:
  attest   build a forensic capsule, compute its context Merkle root, and append it to the ledger
  proof    generate an inclusion proof for one context item
  verify   verify the ledger hash chain or a capsule's binding
  bundle   assemble or verify a portable proof bundle`)
}

// loadOrGenerateKeySeed loads an Ed25519 seed from path, generating and
// persisting one if it does not exist yet.
func loadOrGenerateKeySeed(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		seed, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil {
			return nil, fmt.Errorf("decode seed file %s: %w", path, decErr)
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("seed file %s has wrong size %d", path, len(seed))
		}
		return seed, nil
	}

	seed, err := signing.GenerateSeed()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)), 0o600); err != nil {
		return nil, fmt.Errorf("save seed file %s: %w", path, err)
	}
	log.Printf("generated new signing seed at %s", path)
	return seed, nil
}

func loadContextItems(path string) ([]pctx.Item, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context file %s: %w", path, err)
	}
	var items []pctx.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse context file %s: %w", path, err)
	}
	return items, nil
}

// parseTimestamp accepts either a Unix timestamp or a bare calendar
// year below 3000, the latter expanded to Jan 1 00:00:00 UTC of that
// year, as a CLI convenience.
func parseTimestamp(value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	if n > 0 && n < 3000 {
		return time.Date(int(n), 1, 1, 0, 0, 0, 0, time.UTC).Unix(), nil
	}
	return n, nil
}

func runAttest(args []string) error {
	fs := flag.NewFlagSet("attest", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a proofcore YAML config file")
	modelID := fs.String("model_id", "", "model identifier")
	hashPrompt := fs.String("hash_prompt", "", "hex SHA-256 hash of the prompt")
	outputFile := fs.String("output_file", "", "path to the artifact whose output is being attested")
	tTargetFlag := fs.String("t_target", "", "Unix timestamp or bare year for the decision boundary")
	gatePolicy := fs.String("gate_policy", "", "temporal gate policy: strict or none (defaults to config)")
	contextFile := fs.String("context_file", "", "path to a JSON array of context items")
	snapshotHash := fs.String("snapshot_hash", "", "optional hash of a model/config snapshot")
	outDir := fs.String("out", "", "directory to write forensic_capsule.json and proof_input.json into")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	policy := gate.Policy(cfg.Gate.DefaultPolicy)
	if *gatePolicy != "" {
		policy = gate.Policy(*gatePolicy)
	}

	if *modelID == "" || *hashPrompt == "" || *outputFile == "" || *tTargetFlag == "" {
		return fmt.Errorf("model_id, hash_prompt, output_file and t_target are required")
	}

	tTarget, err := parseTimestamp(*tTargetFlag)
	if err != nil {
		return err
	}
	tRun := time.Now().Unix()

	outputHash, err := hashutil.HashFile(*outputFile)
	if err != nil {
		return err
	}

	items, err := loadContextItems(*contextFile)
	if err != nil {
		return err
	}
	gated := gate.Apply(items, tTarget, policy)
	root, err := pctx.Root(gated.Items)
	if err != nil {
		return fmt.Errorf("compute context merkle root: %w", err)
	}

	built, err := capsule.NewBuilder().
		WithRun(tRun, tTarget, string(policy)).
		WithModel(*modelID, *hashPrompt).
		WithOutput(outputHash).
		WithContextRoot(root).
		WithSnapshot(*snapshotHash, "").
		Build()
	if err != nil {
		return err
	}

	capsuleHash, err := built.Hash()
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.LedgerDB, ledger.WithLogger(log.New(os.Stderr, "[ledger] ", log.LstdFlags)))
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Append(context.Background(), capsuleHash, tRun)
	if err != nil {
		return err
	}
	log.Printf("appended ledger entry id=%d entry_hash=%s", entry.ID, entry.EntryHash)

	var artifactText string
	if textBytes, err := os.ReadFile(*outputFile); err == nil {
		artifactText = string(textBytes)
	}
	tvocResult := tvoc.Detect(artifactText, tTarget, gated.HasPostTarget)
	if tvocResult.Verdict == tvoc.VerdictStrong {
		log.Printf("tvoc: STRONG violation, years=%v", tvocResult.ViolatingYears)
	}

	fields := map[string]any{
		"run_id":          uuid.New().String(),
		"capsule_hash":    capsuleHash,
		"entry_id":        entry.ID,
		"entry_hash":      entry.EntryHash,
		"t_run":           tRun,
		"t_target":        tTarget,
		"gate_policy_id":  string(policy),
		"has_post_target": gated.HasPostTarget,
		"tvoc_verdict":    string(tvocResult.Verdict),
	}
	m := manifest.New(fields)

	if cfg.Signing.SeedPath != "" {
		seed, err := loadOrGenerateKeySeed(cfg.Signing.SeedPath)
		if err != nil {
			return err
		}
		if err := m.Sign(seed); err != nil {
			return err
		}
	}

	if *outDir == "" {
		*outDir = "."
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	capsuleRaw, err := json.MarshalIndent(built, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*outDir, bundle.MemberCapsule), capsuleRaw, 0o644); err != nil {
		return err
	}
	manifestRaw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*outDir, bundle.MemberProofInput), manifestRaw, 0o644); err != nil {
		return err
	}

	fmt.Printf("capsule_hash: %s\n", capsuleHash)
	fmt.Printf("entry_id: %d\n", entry.ID)
	return nil
}

func runProof(args []string) error {
	fs := flag.NewFlagSet("proof", flag.ExitOnError)
	contextFile := fs.String("context_file", "", "path to a JSON array of context items")
	index := fs.Int("index", -1, "index of the context item to prove inclusion for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *contextFile == "" || *index < 0 {
		return fmt.Errorf("context_file and index are required")
	}

	items, err := loadContextItems(*contextFile)
	if err != nil {
		return err
	}
	if *index >= len(items) {
		return fmt.Errorf("index %d out of range for %d items", *index, len(items))
	}

	proof, err := pctx.InclusionProof(items, *index)
	if err != nil {
		return err
	}
	out, err := proof.ToJSON()
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a proofcore YAML config file")
	capsuleHash := fs.String("capsule_hash", "", "capsule hash to check binding for")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	store, err := ledger.Open(cfg.LedgerDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Verify(ctx); err != nil {
		fmt.Println("LEDGER: INVALID")
		return err
	}
	fmt.Println("LEDGER: VALID")

	if *capsuleHash != "" {
		entry, err := store.Bind(ctx, *capsuleHash)
		if err != nil {
			fmt.Println("CAPSULE_BINDING: INVALID")
			return err
		}
		fmt.Printf("CAPSULE_BINDING: VALID (entry_id=%d)\n", entry.ID)
	}
	return nil
}

func runBundle(args []string) error {
	fs := flag.NewFlagSet("bundle", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a proofcore YAML config file")
	assemble := fs.Bool("assemble", false, "assemble a bundle from a directory of outputs")
	verify := fs.Bool("verify", false, "verify a bundle")
	dir := fs.String("dir", "", "directory containing forensic_capsule.json, proof_input.json")
	ledgerPath := fs.String("ledger_db", "", "path to the ledger.sqlite file to include (with -assemble)")
	out := fs.String("out", "bundle.zip", "bundle path: written by -assemble, read by -verify")
	artifact := fs.String("artifact", "", "optional original artifact file to check OBJECT hash against")
	knownKey := fs.String("known_key", "", "path to a file of base64 Ed25519 public keys, one per line, for the ORIGIN_SPE verdict (defaults to config/PROOFCORE_KNOWN_KEY)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *knownKey == "" {
		*knownKey = cfg.Signing.KnownKeysPath
	}

	switch {
	case *assemble:
		if *dir == "" || *ledgerPath == "" {
			return fmt.Errorf("dir and ledger_db are required to assemble a bundle")
		}
		err := bundle.Assemble(
			filepath.Join(*dir, bundle.MemberCapsule),
			*ledgerPath,
			filepath.Join(*dir, bundle.MemberProofInput),
			*out,
		)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *out)
		return nil
	case *verify:
		report, err := bundle.Verify(context.Background(), *out, *artifact, *knownKey)
		if err != nil {
			return err
		}
		printBundleReport(report)
		if !report.OK() {
			os.Exit(1)
		}
		return nil
	default:
		return fmt.Errorf("one of -assemble or -verify is required")
	}
}

func printBundleReport(r bundle.Report) {
	fmt.Printf("LEDGER: %s\n", r.Ledger)
	fmt.Printf("CAPSULE_BINDING: %s\n", r.CapsuleBinding)
	fmt.Printf("PROOF_INPUT_HASH: %s\n", r.ProofInputHash)
	fmt.Printf("SIGNATURE: %s\n", r.Signature)
	fmt.Printf("ORIGIN_SPE: %s\n", r.OriginSPE)
	if r.Object != "" {
		object := "MISMATCH"
		if r.Object == bundle.VerdictValid {
			object = "MATCH"
		}
		fmt.Printf("OBJECT: %s\n", object)
	}
}
