package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `sketchbook: /tmp/sketches
runner: /opt/processing/processing-java
grace_period: 2s
osc:
  listen: 9100
  peer: 10.0.0.2:12001
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sketchbook != "/tmp/sketches" {
		t.Errorf("Sketchbook = %q, want %q", cfg.Sketchbook, "/tmp/sketches")
	}
	if cfg.Runner != "/opt/processing/processing-java" {
		t.Errorf("Runner = %q", cfg.Runner)
	}
	if cfg.GracePeriod.Duration != 2*time.Second {
		t.Errorf("GracePeriod = %v, want 2s", cfg.GracePeriod.Duration)
	}
	if cfg.OSC.Listen != 9100 {
		t.Errorf("OSC.Listen = %d, want 9100", cfg.OSC.Listen)
	}
	if cfg.ListenAddr() != ":9100" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
	if cfg.OSC.Peer != "10.0.0.2:12001" {
		t.Errorf("OSC.Peer = %q", cfg.OSC.Peer)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Runner != DefaultRunner {
		t.Errorf("Runner = %q, want %q", cfg.Runner, DefaultRunner)
	}
	if cfg.GracePeriod.Duration != DefaultGracePeriod {
		t.Errorf("GracePeriod = %v, want %v", cfg.GracePeriod.Duration, DefaultGracePeriod)
	}
	if cfg.OSC.Listen != DefaultListenPort {
		t.Errorf("OSC.Listen = %d, want %d", cfg.OSC.Listen, DefaultListenPort)
	}
	if cfg.OSC.Peer != DefaultPeer {
		t.Errorf("OSC.Peer = %q, want %q", cfg.OSC.Peer, DefaultPeer)
	}
	if len(cfg.Args) != 2 || cfg.Args[0] != "--sketch={sketch}" || cfg.Args[1] != "--run" {
		t.Errorf("Args = %v", cfg.Args)
	}
}

func TestLoadCommentsOnly(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `# sketchbook: /tmp/sketches
# grace_period: 1s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SketchExt != DefaultSketchExt {
		t.Errorf("SketchExt = %q, want %q", cfg.SketchExt, DefaultSketchExt)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "grace_period: soon\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadInvalidPeer(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "osc:\n  peer: nowhere\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for peer without port")
	}
}

func TestLoadInvalidExtension(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "sketch_ext: pde\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for extension without dot")
	}
}

func TestSplitPeer(t *testing.T) {
	t.Parallel()
	host, port, err := SplitPeer(":12000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "127.0.0.1" || port != 12000 {
		t.Errorf("got %s:%d, want 127.0.0.1:12000", host, port)
	}
}
