package dictation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-ime/internal/stt"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recorder struct {
	calls []string
}

func (r *recorder) add(call string) { r.calls = append(r.calls, call) }

func (r *recorder) joined() string { return strings.Join(r.calls, ",") }

type fakeCapture struct {
	rec        *recorder
	prepareErr error
	readErr    error
	short      int
}

func (f *fakeCapture) Prepare() error {
	f.rec.add("prepare")
	return f.prepareErr
}

func (f *fakeCapture) Read(buf []int16) (int, error) {
	f.rec.add("read")
	if f.readErr != nil {
		return 0, f.readErr
	}
	for i := range buf {
		buf[i] = 7
	}
	return len(buf) - f.short, nil
}

func (f *fakeCapture) Drop() error {
	f.rec.add("drop")
	return nil
}

type fakeEngine struct {
	rec       *recorder
	rate      int
	streamErr error
	fed       int
	text      string
}

func (e *fakeEngine) SampleRate() int { return e.rate }

func (e *fakeEngine) NewStream() (stt.Stream, error) {
	e.rec.add("stream")
	if e.streamErr != nil {
		return nil, e.streamErr
	}
	return &fakeStream{engine: e}, nil
}

func (e *fakeEngine) Close() error { return nil }

type fakeStream struct {
	engine *fakeEngine
}

func (s *fakeStream) Feed(samples []int16) {
	s.engine.rec.add("feed")
	s.engine.fed += len(samples)
}

func (s *fakeStream) Finish() (string, error) {
	s.engine.rec.add("finish")
	return s.engine.text, nil
}

func (s *fakeStream) Discard() { s.engine.rec.add("discard") }

type fakeOutput struct {
	rec     *recorder
	text    []string
	serials []uint32
}

func (o *fakeOutput) CommitString(text string) error {
	o.rec.add("commit_string")
	o.text = append(o.text, text)
	return nil
}

func (o *fakeOutput) Commit(serial uint32) error {
	o.rec.add("commit")
	o.serials = append(o.serials, serial)
	return nil
}

func newHandles() (*recorder, *fakeCapture, *fakeEngine, *fakeOutput, Handles) {
	rec := &recorder{}
	capture := &fakeCapture{rec: rec}
	engine := &fakeEngine{rec: rec, rate: 16000, text: "hello"}
	output := &fakeOutput{rec: rec}
	return rec, capture, engine, output, Handles{Capture: capture, Engine: engine, Output: output}
}

func TestRunCommitsWithSerial(t *testing.T) {
	rec, _, engine, output, h := newHandles()
	var outcomes []Outcome
	p := New(newLogger(), SinkFunc(func(_ context.Context, o Outcome) { outcomes = append(outcomes, o) }))

	p.Run(context.Background(), h, 5)

	want := "prepare,stream,read,drop,feed,finish,commit_string,commit"
	if rec.joined() != want {
		t.Fatalf("unexpected call order:\n got %s\nwant %s", rec.joined(), want)
	}
	if engine.fed != DurationSeconds*16000 {
		t.Fatalf("expected %d frames fed, got %d", DurationSeconds*16000, engine.fed)
	}
	if len(output.serials) != 1 || output.serials[0] != 5 {
		t.Fatalf("expected commit with serial 5, got %v", output.serials)
	}
	if output.text[0] != "hello" {
		t.Fatalf("unexpected committed text %q", output.text[0])
	}
	if len(outcomes) != 1 || !outcomes[0].Committed() {
		t.Fatalf("expected one committed outcome, got %+v", outcomes)
	}
	if outcomes[0].CaptureID == "" {
		t.Fatal("expected capture id")
	}
}

func TestRunPrepareFailure(t *testing.T) {
	rec, capture, _, output, h := newHandles()
	capture.prepareErr = errors.New("device busy")
	var got Outcome
	p := New(newLogger(), SinkFunc(func(_ context.Context, o Outcome) { got = o }))

	p.Run(context.Background(), h, 1)

	if rec.joined() != "prepare" {
		t.Fatalf("expected only prepare, got %s", rec.joined())
	}
	if len(output.serials) != 0 {
		t.Fatal("expected no commit")
	}
	if got.Stage != StagePrepare || got.Err == nil {
		t.Fatalf("unexpected outcome %+v", got)
	}
}

func TestRunStreamFailureStopsDevice(t *testing.T) {
	rec, _, engine, output, h := newHandles()
	engine.streamErr = errors.New("no stream")
	p := New(newLogger())

	p.Run(context.Background(), h, 1)

	if rec.joined() != "prepare,stream,drop" {
		t.Fatalf("unexpected calls %s", rec.joined())
	}
	if len(output.text) != 0 {
		t.Fatal("expected no commit")
	}
}

func TestRunReadFailureDoesNotCommit(t *testing.T) {
	rec, capture, engine, output, h := newHandles()
	capture.readErr = errors.New("overrun")
	var got Outcome
	p := New(newLogger(), SinkFunc(func(_ context.Context, o Outcome) { got = o }))

	p.Run(context.Background(), h, 3)

	if rec.joined() != "prepare,stream,read,discard,drop" {
		t.Fatalf("unexpected calls %s", rec.joined())
	}
	if engine.fed != 0 {
		t.Fatal("expected no audio fed after failed read")
	}
	if len(output.text) != 0 || len(output.serials) != 0 {
		t.Fatal("expected no commit")
	}
	if got.Stage != StageRead {
		t.Fatalf("expected read stage, got %s", got.Stage)
	}
}

func TestRunShortReadDoesNotCommit(t *testing.T) {
	_, capture, engine, output, h := newHandles()
	capture.short = 10
	var got Outcome
	p := New(newLogger(), SinkFunc(func(_ context.Context, o Outcome) { got = o }))

	p.Run(context.Background(), h, 3)

	if !errors.Is(got.Err, ErrIncompleteRecording) {
		t.Fatalf("expected ErrIncompleteRecording, got %v", got.Err)
	}
	if engine.fed != 0 || len(output.serials) != 0 {
		t.Fatal("expected no recognition or commit on short read")
	}
}

func TestRunLogsCharacterCount(t *testing.T) {
	_, _, engine, _, h := newHandles()
	engine.text = "héllo wörld"
	var out bytes.Buffer
	p := New(slog.New(slog.NewJSONHandler(&out, nil)))

	p.Run(context.Background(), h, 1)

	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if rec["msg"] != "dictation committed" {
			continue
		}
		if chars, _ := rec["chars"].(float64); chars != 11 {
			t.Fatalf("expected 11 characters logged, got %v", rec["chars"])
		}
		return
	}
	t.Fatal("no commit log line")
}
