package stt

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/go-audio/wav"
	"github.com/loqalabs/loqa-ime/internal/config"
)

func TestOpenMock(t *testing.T) {
	engine, err := Open(config.RecognizerConfig{Mode: "mock", SampleRate: 16000})
	if err != nil {
		t.Fatalf("open mock: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	if engine.SampleRate() != 16000 {
		t.Fatalf("expected 16000, got %d", engine.SampleRate())
	}
	stream, err := engine.NewStream()
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	stream.Feed(make([]int16, 320))
	stream.Feed(make([]int16, 80))
	text, err := stream.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if text != "[dictation samples=400]" {
		t.Fatalf("unexpected transcript %q", text)
	}
}

func TestOpenUnknownMode(t *testing.T) {
	if _, err := Open(config.RecognizerConfig{Mode: "vosk"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestExecEngineRequiresCommand(t *testing.T) {
	if _, err := NewExecEngine(config.RecognizerConfig{Mode: "exec", Command: "  "}); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestExecEngineTranscribes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script recognizer")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "recognize.sh")
	body := "#!/bin/sh\necho '{\"text\":\"hello world\",\"confidence\":0.9}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	engine, err := NewExecEngine(config.RecognizerConfig{Mode: "exec", Command: script, SampleRate: 16000, Language: "en"})
	if err != nil {
		t.Fatalf("new exec engine: %v", err)
	}
	stream, err := engine.NewStream()
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	stream.Feed([]int16{1, 2, 3, 4})
	text, err := stream.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("unexpected transcript %q", text)
	}
}

func TestExecEngineCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script recognizer")
	}
	script := filepath.Join(t.TempDir(), "fail.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho boom >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	engine, err := NewExecEngine(config.RecognizerConfig{Mode: "exec", Command: script, SampleRate: 16000})
	if err != nil {
		t.Fatalf("new exec engine: %v", err)
	}
	stream, _ := engine.NewStream()
	if _, err := stream.Finish(); err == nil {
		t.Fatal("expected command failure")
	}
}

func TestWriteSamplesToWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	samples := []int16{0, 1000, -1000, 32767, -32768}
	if err := writeSamplesToWav(file, samples, 16000); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	file.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer in.Close()
	dec := wav.NewDecoder(in)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 {
		t.Fatalf("unexpected format rate=%d chans=%d", dec.SampleRate, dec.NumChans)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Data))
	}
	for i, v := range samples {
		if buf.Data[i] != int(v) {
			t.Fatalf("sample %d: expected %d, got %d", i, v, buf.Data[i])
		}
	}
}
