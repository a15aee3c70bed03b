package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Recognizer.Mode != "deepspeech" {
		t.Fatalf("expected deepspeech recognizer, got %s", cfg.Recognizer.Mode)
	}
	if cfg.History.RetentionMode != "ephemeral" {
		t.Fatalf("expected ephemeral history, got %s", cfg.History.RetentionMode)
	}
	if cfg.Bus.Enabled {
		t.Fatal("expected bus disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ime.yaml")
	data := []byte("recognizer:\n  mode: mock\n  sample_rate: 8000\nhistory:\n  retention_mode: persistent\n  path: /tmp/h.db\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Recognizer.Mode != "mock" || cfg.Recognizer.SampleRate != 8000 {
		t.Fatalf("expected file values, got %+v", cfg.Recognizer)
	}
	if cfg.History.RetentionMode != "persistent" {
		t.Fatalf("expected persistent history")
	}
	// untouched sections keep defaults
	if cfg.Bus.Subject != "ime.transcript.committed" {
		t.Fatalf("expected default subject, got %q", cfg.Bus.Subject)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ime.yaml")
	if err := os.WriteFile(path, []byte("runtime_name: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigPath, path)
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RuntimeName != "from-file" {
		t.Fatalf("expected runtime name from file, got %s", cfg.RuntimeName)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_IME_BUS_ENABLED", "true")
	t.Setenv("LOQA_IME_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_IME_BUS_USERNAME", "alice")
	t.Setenv("LOQA_IME_BUS_PASSWORD", "secret")
	t.Setenv("LOQA_IME_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_IME_RECOGNIZER_MODE", "exec")
	t.Setenv("LOQA_IME_RECOGNIZER_COMMAND", "transcribe --json")
	t.Setenv("LOQA_IME_HISTORY_RETENTION_MODE", "session")
	t.Setenv("LOQA_IME_HISTORY_MAX_ENTRIES", "12")
	t.Setenv("LOQA_IME_TELEMETRY_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Bus.Enabled {
		t.Fatal("expected bus enabled override")
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Recognizer.Mode != "exec" || cfg.Recognizer.Command != "transcribe --json" {
		t.Fatalf("expected recognizer override, got %+v", cfg.Recognizer)
	}
	if cfg.History.RetentionMode != "session" || cfg.History.MaxEntries != 12 {
		t.Fatalf("expected history override, got %+v", cfg.History)
	}
	if cfg.Telemetry.LogLevel != "debug" {
		t.Fatalf("expected log level override")
	}
}

func TestValidateRejectsExecWithoutCommand(t *testing.T) {
	t.Setenv("LOQA_IME_RECOGNIZER_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	t.Setenv("LOQA_IME_RECOGNIZER_MODE", "vosk")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error")
	}
}
