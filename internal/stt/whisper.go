//go:build whisper_cpp

package stt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

type whisperEngine struct {
	model    whisper.Model
	language string
}

// NewWhisperEngine loads a ggml model through the whisper.cpp bindings.
func NewWhisperEngine(modelPath, language string) (Engine, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	return &whisperEngine{model: model, language: language}, nil
}

func (e *whisperEngine) SampleRate() int { return whisper.SampleRate }

func (e *whisperEngine) NewStream() (Stream, error) {
	wctx, err := e.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create whisper context: %w", err)
	}
	if e.language != "" {
		if err := wctx.SetLanguage(e.language); err != nil {
			return nil, fmt.Errorf("set whisper language: %w", err)
		}
	}
	return &whisperStream{ctx: wctx}, nil
}

func (e *whisperEngine) Close() error {
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}

// whisperStream buffers audio; whisper decodes the whole clip on Finish.
type whisperStream struct {
	ctx     whisper.Context
	samples []float32
}

func (s *whisperStream) Feed(samples []int16) {
	for _, v := range samples {
		s.samples = append(s.samples, float32(v)/32768.0)
	}
}

func (s *whisperStream) Finish() (string, error) {
	defer s.Discard()
	if err := s.ctx.Process(s.samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}
	var parts []string
	for {
		segment, err := s.ctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (s *whisperStream) Discard() {
	s.samples = nil
}
