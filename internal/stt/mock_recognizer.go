package stt

import "fmt"

type mockEngine struct {
	sampleRate int
}

// NewMockEngine returns an engine whose transcript describes the audio it was fed.
func NewMockEngine(sampleRate int) Engine {
	return &mockEngine{sampleRate: sampleRate}
}

func (m *mockEngine) SampleRate() int { return m.sampleRate }

func (m *mockEngine) NewStream() (Stream, error) { return &mockStream{}, nil }

func (m *mockEngine) Close() error { return nil }

type mockStream struct {
	samples int
}

func (s *mockStream) Feed(samples []int16) { s.samples += len(samples) }

func (s *mockStream) Finish() (string, error) {
	return fmt.Sprintf("[dictation samples=%d]", s.samples), nil
}

func (s *mockStream) Discard() {}
