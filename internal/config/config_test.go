package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "asset_base: /srv/assets\nmodels: [a.glb, b.glb]\nprobe_timeout_ms: 250\nmargin: 1.6\nstatus_addr: :7070\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AssetBase != "/srv/assets" || len(cfg.Models) != 2 || cfg.ProbeTimeoutMS != 250 || cfg.Margin != 1.6 || cfg.StatusAddr != ":7070" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"models":["x.glb"],"declarative":["x.glb"],"width":640,"height":480,"skip_probe":true}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 480 || !cfg.SkipProbe || cfg.Declarative[0] != "x.glb" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "title=\"gallery\"\ntick_rate=30.0\nlog_level=\"debug\"\nmodels=[\"m.gltf\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Title != "gallery" || cfg.TickRate != 30 || cfg.LogLevel != "debug" || cfg.Models[0] != "m.gltf" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p = writeTempFile(t, d, "bad.yaml", "models: [unterminated\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(filepath.Join(d, "missing.toml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	if cfg.AssetBase != DefaultAssetBase || cfg.DefaultModel != DefaultModel {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Models) != 1 || cfg.Models[0] != DefaultModel {
		t.Fatalf("expected the default model as the only asset, got %v", cfg.Models)
	}
	if cfg.ProbeTimeout() != DefaultProbeTimeout || cfg.DeclarativeTimeout() != DefaultDeclarativeTimeout {
		t.Fatalf("unexpected timeouts %v %v", cfg.ProbeTimeout(), cfg.DeclarativeTimeout())
	}
	if cfg.StatusAddr != "" {
		t.Fatal("status API must stay disabled unless configured")
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{Models: []string{"a.glb", "b.glb"}, ProbeTimeoutMS: 100, LogLevel: "WARN"}.WithDefaults()
	if cfg.DefaultModel != "a.glb" {
		t.Fatalf("expected the first model as default, got %q", cfg.DefaultModel)
	}
	if cfg.ProbeTimeout() != 100*time.Millisecond {
		t.Fatalf("explicit timeout overwritten: %v", cfg.ProbeTimeout())
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("log level not normalized: %q", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{Models: []string{"a.glb"}, Declarative: []string{"b.glb"}}).Validate(); err == nil {
		t.Fatal("expected error for declarative asset outside models")
	}
	if err := (Config{Width: -1}).Validate(); err == nil {
		t.Fatal("expected error for negative width")
	}
	if err := (Config{}).WithDefaults().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
