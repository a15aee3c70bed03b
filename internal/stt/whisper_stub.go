//go:build !whisper_cpp

package stt

import "fmt"

// NewWhisperEngine reports that the binary was built without whisper.cpp.
// Rebuild with -tags whisper_cpp to enable it.
func NewWhisperEngine(modelPath, _ string) (Engine, error) {
	return nil, fmt.Errorf("whisper (model %s): %w", modelPath, ErrNotCompiled)
}
