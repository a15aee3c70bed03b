package stt

import (
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-ime/internal/config"
)

// Fixed model locations. These are not configurable.
const (
	DeepSpeechModelPath  = "/usr/share/mozilla/deepspeech/models/ds-model.pbmm"
	DeepSpeechScorerPath = "/usr/share/mozilla/deepspeech/models/ds-model.scorer"
	WhisperModelPath     = "/usr/share/whisper/models/ggml-base.en.bin"
)

// ErrNotCompiled is returned when a backend was excluded at build time.
var ErrNotCompiled = errors.New("recognizer backend not compiled in")

// Engine is a loaded speech model that hands out recognition streams.
type Engine interface {
	// SampleRate is the input rate the model requires, in Hz.
	SampleRate() int
	NewStream() (Stream, error)
	Close() error
}

// Stream accepts audio and is finalized exactly once.
type Stream interface {
	// Feed appends mono signed 16-bit samples at the engine sample rate.
	Feed(samples []int16)
	// Finish returns the transcript and releases the stream.
	Finish() (string, error)
	// Discard releases an unfinished stream.
	Discard()
}

// Open loads the engine selected by cfg.Mode.
func Open(cfg config.RecognizerConfig) (Engine, error) {
	switch cfg.Mode {
	case "deepspeech":
		return NewDeepSpeechEngine(DeepSpeechModelPath, DeepSpeechScorerPath)
	case "whisper":
		return NewWhisperEngine(WhisperModelPath, cfg.Language)
	case "exec":
		return NewExecEngine(cfg)
	case "mock":
		return NewMockEngine(cfg.SampleRate), nil
	default:
		return nil, fmt.Errorf("unknown recognizer mode %q", cfg.Mode)
	}
}
