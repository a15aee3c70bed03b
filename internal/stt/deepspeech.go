package stt

import (
	"fmt"

	astideepspeech "github.com/asticode/go-astideepspeech"
)

type deepSpeechEngine struct {
	model *astideepspeech.Model
}

// NewDeepSpeechEngine loads the model and enables the external scorer.
// Both steps must succeed.
func NewDeepSpeechEngine(modelPath, scorerPath string) (Engine, error) {
	model, err := astideepspeech.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("create deepspeech model: %w", err)
	}
	if err := model.EnableExternalScorer(scorerPath); err != nil {
		model.Close()
		return nil, fmt.Errorf("enable external scorer: %w", err)
	}
	return &deepSpeechEngine{model: model}, nil
}

func (e *deepSpeechEngine) SampleRate() int {
	return e.model.SampleRate()
}

func (e *deepSpeechEngine) NewStream() (Stream, error) {
	stream, err := e.model.NewStream()
	if err != nil {
		return nil, fmt.Errorf("create deepspeech stream: %w", err)
	}
	return &deepSpeechStream{stream: stream}, nil
}

func (e *deepSpeechEngine) Close() error {
	if e.model != nil {
		e.model.Close()
		e.model = nil
	}
	return nil
}

type deepSpeechStream struct {
	stream *astideepspeech.Stream
}

func (s *deepSpeechStream) Feed(samples []int16) {
	s.stream.FeedAudioContent(samples)
}

func (s *deepSpeechStream) Finish() (string, error) {
	text, err := s.stream.Finish()
	if err != nil {
		return "", fmt.Errorf("finish deepspeech stream: %w", err)
	}
	return text, nil
}

func (s *deepSpeechStream) Discard() {
	s.stream.Discard()
}
