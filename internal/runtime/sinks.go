package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-ime/internal/bus"
	"github.com/loqalabs/loqa-ime/internal/dictation"
	"github.com/loqalabs/loqa-ime/internal/history"
	"github.com/loqalabs/loqa-ime/internal/protocol"
)

func historySink(store *history.Store, engine string, logger *slog.Logger) dictation.Sink {
	return dictation.SinkFunc(func(ctx context.Context, o dictation.Outcome) {
		entry := history.Entry{
			CaptureID:  o.CaptureID,
			Serial:     o.Serial,
			Stage:      string(o.Stage),
			Text:       o.Text,
			Engine:     engine,
			StartedAt:  o.Started,
			FinishedAt: o.Finished,
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := store.Append(ctx, entry); err != nil {
			logger.Warn("failed to record dictation", slog.String("error", err.Error()))
		}
	})
}

func busSink(client *bus.Client, engine string, logger *slog.Logger) dictation.Sink {
	return dictation.SinkFunc(func(_ context.Context, o dictation.Outcome) {
		if !o.Committed() {
			return
		}
		msg := protocol.Transcript{
			CaptureID:  o.CaptureID,
			Serial:     o.Serial,
			Text:       o.Text,
			Engine:     engine,
			DurationMS: o.Finished.Sub(o.Started).Milliseconds(),
			Timestamp:  o.Finished.UTC(),
		}
		if err := client.PublishTranscript(msg); err != nil {
			logger.Warn("failed to publish transcript", slog.String("error", err.Error()))
		}
	})
}
