package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/internal/monitor"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
	"github.com/bft-labs/shmslot/pkg/shmslot"
)

// run executes the CLI in-process with an isolated home directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-format", "json", "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func memChannel(t *testing.T) shmslot.Config {
	t.Helper()
	cfg := shmslot.DefaultConfig()
	cfg.Backend = segment.BackendMemory
	cfg.Seed = t.Name()
	t.Cleanup(func() {
		mgr, _ := cfg.NewManager()
		if h, err := mgr.Open(cfg.Key()); err == nil {
			_ = mgr.Destroy(h)
		}
	})
	return cfg
}

func TestKeyCommand(t *testing.T) {
	out, err := run(t, "key", "--seed", "cam0", "--salt", "3")
	if err != nil {
		t.Fatal(err)
	}
	want := segment.DeriveKey("cam0", 3).String()
	if !strings.HasPrefix(out, want+"\t") {
		t.Errorf("key output = %q, want prefix %q", out, want)
	}

	out, err = run(t, "key", "0x00000041")
	if err != nil {
		t.Fatal(err)
	}
	if out != "0x00000041\t65\n" {
		t.Errorf("parsed key output = %q", out)
	}
}

func TestInvalidFlagValue(t *testing.T) {
	if _, err := run(t, "key", "--backend", "nfs"); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	cfgPath := filepath.Join(home, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("seed = \"from-file\"\nsalt = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHMSLOT_SALT", "2")

	out, err := run(t, "key", "--config", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if want := segment.DeriveKey("from-file", 2).String(); !strings.HasPrefix(out, want) {
		t.Errorf("key = %q, want %s", out, want)
	}

	out, err = run(t, "key", "--config", cfgPath, "--salt", "5")
	if err != nil {
		t.Fatal(err)
	}
	if want := segment.DeriveKey("from-file", 5).String(); !strings.HasPrefix(out, want) {
		t.Errorf("flag did not win: key = %q, want %s", out, want)
	}
}

func TestInspectJSON(t *testing.T) {
	cfg := memChannel(t)
	p, err := shmslot.OpenProducer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	f, _ := record.NewFrameDetections(4, 50, record.DetectionRecord{Width: 2, Height: 2, Confidence: 1})
	_ = p.Publish(f)

	out, err := run(t, "inspect", "--json", "--backend", "memory", "--seed", cfg.Seed)
	if err != nil {
		t.Fatal(err)
	}
	var s monitor.Sample
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("inspect output is not JSON: %v\n%s", err, out)
	}
	if s.Sequence != 1 || s.Frame == nil || *s.Frame.Frame != 4 || s.Attached != 2 {
		t.Errorf("sample = %+v", s)
	}
}

func TestResetCommand(t *testing.T) {
	cfg := memChannel(t)
	args := []string{"reset", "--backend", "memory", "--seed", cfg.Seed}

	out, err := run(t, args...)
	if err != nil || !strings.Contains(out, "no segment") {
		t.Fatalf("reset without segment = %q, %v", out, err)
	}

	p, err := shmslot.OpenProducer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	if _, err := run(t, args...); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("reset while attached = %v, want refusal", err)
	}
	out, err = run(t, append(args, "--force")...)
	if err != nil || !strings.Contains(out, "removed") {
		t.Errorf("forced reset = %q, %v", out, err)
	}
}

func TestProduceThenConsume(t *testing.T) {
	cfg := memChannel(t)
	dir := t.TempDir()

	script := filepath.Join(dir, "script.yaml")
	err := os.WriteFile(script, []byte(`
frames:
  - frame: 1
    detections:
      - {x: 1, y: 1, width: 2, height: 2, confidence: 0.5}
  - detections: []
  - frame: 9
    detections:
      - {x: 3, y: 3, width: 4, height: 4, confidence: 0.75}
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	common := []string{"--backend", "memory", "--seed", cfg.Seed}
	if _, err := run(t, append([]string{"produce", "--source", script}, common...)...); err != nil {
		t.Fatalf("produce: %v", err)
	}

	outPath := filepath.Join(dir, "frames.jsonl")
	stateDir := t.TempDir()
	args := append([]string{"consume", "--sink", "jsonl", "--out", outPath, "--state-dir", stateDir}, common...)
	if _, err := run(t, args...); err != nil {
		t.Fatalf("consume: %v", err)
	}

	fh, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	var docs []domain.FrameDoc
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		var d domain.FrameDoc
		if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
			t.Fatal(err)
		}
		docs = append(docs, d)
	}

	// Only the newest frame survives in the slot.
	if len(docs) != 2 || docs[0].Frame == nil || *docs[0].Frame != 9 || !docs[1].Done {
		t.Fatalf("consumed docs = %+v", docs)
	}

	mgr, _ := cfg.NewManager()
	if _, err := mgr.Open(cfg.Key()); err == nil {
		t.Error("segment not removed after a drained consume")
	}
	if _, err := os.Stat(filepath.Join(stateDir, "status.json")); err != nil {
		t.Errorf("no drain report: %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"a.yaml":     "yaml",
		"a.YML":      "yaml",
		"a.jsonl":    "jsonl",
		"-":          "jsonl",
		"a.msgpack":  "msgpack",
		"a.txt":      "",
		"noext":      "",
		"x/b.ndjson": "jsonl",
	}
	for in, want := range tests {
		if got := formatFromPath(in); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}
