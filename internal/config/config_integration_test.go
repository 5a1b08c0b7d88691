package config_test

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	appconfig "signalpilot/internal/config"
	"signalpilot/internal/svc"
)

// genTestPrivKey returns a valid hex-encoded secp256k1 private key for tests.
func genTestPrivKey(t *testing.T) string {
	t.Helper()
	// Use a deterministic small scalar to avoid randomness in hermetic tests.
	one := big.NewInt(1)
	key := new(ecdsa.PrivateKey)
	key.PublicKey.Curve = crypto.S256()
	key.D = one
	key.PublicKey.X, key.PublicKey.Y = crypto.S256().ScalarBaseMult(one.Bytes())
	h := hex.EncodeToString(key.D.Bytes())
	if len(h) < 64 {
		h = strings.Repeat("0", 64-len(h)) + h
	}
	return h
}

func TestLoadAndWireServiceContext(t *testing.T) {
	// Compose a minimal main config in a temp dir that references the real
	// etc/ section files via absolute paths.
	etcDir := filepath.Clean(filepath.Join("..", "..", "etc"))
	etcAbs, err := filepath.Abs(etcDir)
	if err != nil {
		t.Fatalf("Abs(%s) error: %v", etcDir, err)
	}
	signals := filepath.Join(etcAbs, "signals.yaml")
	scr := filepath.Join(etcAbs, "screener.yaml")
	brk := filepath.Join(etcAbs, "broker.yaml")
	sched := filepath.Join(etcAbs, "scheduler.yaml")

	// Env vars consumed by the section files.
	t.Setenv("BROKER_PRIVATE_KEY", genTestPrivKey(t))
	t.Setenv("BROKER_BASE_URL", "https://broker.example")
	t.Setenv("DESK_SIGNALS_URL", "https://signals.example/v1/feed")
	t.Setenv("DESK_SIGNALS_TOKEN", "test-token")

	mainYAML := []byte("" +
		"Name: pilot-test\n" +
		"Env: test\n" +
		"TTL:\n  Short: 10\n  Medium: 60\n  Long: 300\n\n" +
		"Signals:\n  File: " + signals + "\n\n" +
		"Screener:\n  File: " + scr + "\n\n" +
		"Broker:\n  File: " + brk + "\n\n" +
		"Scheduler:\n  File: " + sched + "\n")

	dir := t.TempDir()
	mainPath := filepath.Join(dir, "pilot.yaml")
	if err := os.WriteFile(mainPath, mainYAML, 0o600); err != nil {
		t.Fatalf("write temp main config: %v", err)
	}

	cfg, err := appconfig.Load(mainPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if cfg.Signals.Value == nil || cfg.Screener.Value == nil ||
		cfg.Broker.Value == nil || cfg.Scheduler.Value == nil {
		t.Fatalf("config sections not hydrated")
	}

	sc := svc.NewServiceContext(*cfg)
	if len(sc.Sources) == 0 {
		t.Fatalf("no signal sources built")
	}
	if sc.DefaultGateway == nil {
		t.Fatalf("no default broker gateway wired")
	}
	if sc.Ranker == nil || sc.Cooldown == nil || sc.Guard == nil {
		t.Fatalf("screening/ledger collaborators not wired")
	}
	if sc.Scheduler == nil {
		t.Fatalf("scheduler not built")
	}
}
