//go:build !whisper_cpp

package stt

import (
	"errors"
	"testing"

	"github.com/loqalabs/loqa-ime/internal/config"
)

func TestWhisperWithoutBuildTag(t *testing.T) {
	_, err := Open(config.RecognizerConfig{Mode: "whisper"})
	if !errors.Is(err, ErrNotCompiled) {
		t.Fatalf("expected ErrNotCompiled, got %v", err)
	}
}
