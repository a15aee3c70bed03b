package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/loqalabs/loqa-ime/internal/config"
	"github.com/mattn/go-shellwords"
)

const execTimeout = 45 * time.Second

type execEngine struct {
	cmd []string
	cfg config.RecognizerConfig
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// NewExecEngine hands each finished stream to an external command as a WAV
// file and reads {"text": ...} from its stdout.
func NewExecEngine(cfg config.RecognizerConfig) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognizer command is empty")
	}
	return &execEngine{cmd: args, cfg: cfg}, nil
}

func (e *execEngine) SampleRate() int { return e.cfg.SampleRate }

func (e *execEngine) NewStream() (Stream, error) {
	return &execStream{engine: e}, nil
}

func (e *execEngine) Close() error { return nil }

type execStream struct {
	engine  *execEngine
	samples []int16
}

func (s *execStream) Feed(samples []int16) {
	s.samples = append(s.samples, samples...)
}

func (s *execStream) Discard() { s.samples = nil }

func (s *execStream) Finish() (string, error) {
	defer s.Discard()

	file, err := os.CreateTemp(os.TempDir(), "loqa_ime_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writeSamplesToWav(file, s.samples, s.engine.cfg.SampleRate); err != nil {
		return "", err
	}

	base := s.engine.cmd[0]
	cmdArgs := append([]string{}, s.engine.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", file.Name())
	if s.engine.cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", s.engine.cfg.Language)
	}

	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("recognizer command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return "", fmt.Errorf("decode recognizer response: %w", err)
	}
	return resp.Text, nil
}

func writeSamplesToWav(w io.WriteSeeker, samples []int16, sampleRate int) error {
	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, v := range samples {
		buffer.Data[i] = int(v)
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
