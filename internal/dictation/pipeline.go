// Package dictation runs one capture-recognize-commit cycle against borrowed
// device, engine and input-method handles.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-ime/internal/stt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DurationSeconds is the fixed length of every recording.
const DurationSeconds = 2

// ErrIncompleteRecording is returned when the device delivered fewer frames than requested.
var ErrIncompleteRecording = errors.New("incomplete recording")

// Capture is the recording device.
type Capture interface {
	Prepare() error
	Read(buf []int16) (int, error)
	Drop() error
}

// Output commits text into the focused field.
type Output interface {
	CommitString(text string) error
	Commit(serial uint32) error
}

// Handles are owned by the session and lent to the pipeline for one run.
type Handles struct {
	Capture Capture
	Engine  stt.Engine
	Output  Output
}

// Stage names how far a run progressed.
type Stage string

const (
	StagePrepare   Stage = "prepare"
	StageStream    Stage = "stream"
	StageRead      Stage = "read"
	StageRecognize Stage = "recognize"
	StageCommit    Stage = "commit"
	StageCommitted Stage = "committed"
)

// Outcome describes a finished run.
type Outcome struct {
	CaptureID string
	Serial    uint32
	Stage     Stage
	Text      string
	Err       error
	Started   time.Time
	Finished  time.Time
}

// Committed reports whether text reached the compositor.
func (o Outcome) Committed() bool {
	return o.Err == nil && o.Stage == StageCommitted
}

// Sink observes outcomes. Record must not block for long: it runs on the
// dispatch goroutine.
type Sink interface {
	Record(ctx context.Context, o Outcome)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, o Outcome)

func (f SinkFunc) Record(ctx context.Context, o Outcome) { f(ctx, o) }

// Pipeline holds no state between runs other than its observers.
type Pipeline struct {
	log      *slog.Logger
	sinks    []Sink
	tracer   trace.Tracer
	clock    func() time.Time
	newID    func() string
	runs     metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func New(logger *slog.Logger, sinks ...Sink) *Pipeline {
	p := &Pipeline{
		log:    logger.With(slog.String("component", "dictation")),
		sinks:  sinks,
		tracer: otel.Tracer("github.com/loqalabs/loqa-ime/dictation"),
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	if err := p.initMetrics(otel.Meter("github.com/loqalabs/loqa-ime/dictation")); err != nil {
		p.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return p
}

func (p *Pipeline) initMetrics(meter metric.Meter) error {
	var err error
	if p.runs, err = meter.Int64Counter("loqa_ime.dictations", metric.WithDescription("Dictation runs by final stage")); err != nil {
		return err
	}
	if p.failures, err = meter.Int64Counter("loqa_ime.dictation.failures", metric.WithDescription("Dictation runs aborted before commit")); err != nil {
		return err
	}
	p.duration, err = meter.Float64Histogram("loqa_ime.dictation.duration_ms", metric.WithDescription("Wall time of a dictation run"), metric.WithUnit("ms"))
	return err
}

// Run records, recognizes and commits with serial. Failures are logged and
// reported to sinks; nothing is committed unless every step succeeds.
func (p *Pipeline) Run(ctx context.Context, h Handles, serial uint32) {
	out := Outcome{CaptureID: p.newID(), Serial: serial, Started: p.clock()}
	ctx, span := p.tracer.Start(ctx, "dictation.run", trace.WithAttributes(
		attribute.String("capture.id", out.CaptureID),
		attribute.Int64("ime.serial", int64(serial)),
	))
	log := p.log.With(slog.String("capture_id", out.CaptureID), slog.Any("serial", serial))

	out.Text, out.Stage, out.Err = p.run(h, log)
	if out.Err == nil {
		out.Stage, out.Err = commit(h.Output, out.Text, serial)
	}
	out.Finished = p.clock()

	if out.Err != nil {
		log.Warn("dictation aborted", slog.String("stage", string(out.Stage)), slog.String("error", out.Err.Error()))
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Stage))
	} else {
		log.Info("dictation committed", slog.Int("chars", utf8.RuneCountInString(out.Text)))
	}
	span.SetAttributes(attribute.String("dictation.stage", string(out.Stage)))
	span.End()

	p.observe(ctx, out)
	for _, sink := range p.sinks {
		sink.Record(ctx, out)
	}
}

func (p *Pipeline) run(h Handles, log *slog.Logger) (string, Stage, error) {
	if err := h.Capture.Prepare(); err != nil {
		return "", StagePrepare, fmt.Errorf("prepare capture: %w", err)
	}
	recording := true
	defer func() {
		if recording {
			_ = h.Capture.Drop()
		}
	}()

	stream, err := h.Engine.NewStream()
	if err != nil {
		return "", StageStream, fmt.Errorf("create stream: %w", err)
	}
	finished := false
	defer func() {
		if !finished {
			stream.Discard()
		}
	}()

	frames := DurationSeconds * h.Engine.SampleRate()
	buf := make([]int16, frames)
	log.Info("recording", slog.Int("seconds", DurationSeconds), slog.Int("frames", frames))
	n, err := h.Capture.Read(buf)
	if err != nil {
		return "", StageRead, fmt.Errorf("read capture: %w", err)
	}
	if n != frames {
		return "", StageRead, fmt.Errorf("%w: %d of %d frames", ErrIncompleteRecording, n, frames)
	}

	recording = false
	if err := h.Capture.Drop(); err != nil {
		log.Warn("failed to stop capture", slog.String("error", err.Error()))
	}

	log.Info("recognizing")
	stream.Feed(buf)

	finished = true
	text, err := stream.Finish()
	if err != nil {
		return "", StageRecognize, fmt.Errorf("finish stream: %w", err)
	}
	log.Debug("recognized", slog.String("text", text))
	return text, StageRecognize, nil
}

func commit(out Output, text string, serial uint32) (Stage, error) {
	if err := out.CommitString(text); err != nil {
		return StageCommit, fmt.Errorf("commit string: %w", err)
	}
	if err := out.Commit(serial); err != nil {
		return StageCommit, fmt.Errorf("commit: %w", err)
	}
	return StageCommitted, nil
}

func (p *Pipeline) observe(ctx context.Context, out Outcome) {
	attrs := metric.WithAttributes(attribute.String("stage", string(out.Stage)))
	if p.runs != nil {
		p.runs.Add(ctx, 1, attrs)
	}
	if out.Err != nil && p.failures != nil {
		p.failures.Add(ctx, 1, attrs)
	}
	if p.duration != nil {
		p.duration.Record(ctx, float64(out.Finished.Sub(out.Started).Milliseconds()), attrs)
	}
}
