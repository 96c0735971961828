package livestate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/example/gasguard/internal/application"
)

// DocumentStream hands document requests to the external generator through a
// Redis stream.
type DocumentStream struct {
	client redis.Cmdable
	stream string
	maxLen int64
	logger *slog.Logger
}

var _ application.DocumentSink = (*DocumentStream)(nil)

// NewDocumentStream writes to "<prefix>documents". A positive maxLen caps the
// stream approximately.
func NewDocumentStream(client redis.Cmdable, prefix string, maxLen int64, logger *slog.Logger) *DocumentStream {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStream{
		client: client,
		stream: prefix + "documents",
		maxLen: maxLen,
		logger: logger.With(slog.String("component", "livestate.DocumentStream")),
	}
}

// Stream returns the stream key.
func (d *DocumentStream) Stream() string { return d.stream }

// RequestDocument appends the request to the stream.
func (d *DocumentStream) RequestDocument(ctx context.Context, request application.DocumentRequest) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal document request: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]any{
			"kind":         string(request.Kind),
			"event_id":     request.EventID,
			"equipment_id": request.EquipmentID,
			"payload":      string(payload),
		},
	}
	if d.maxLen > 0 {
		args.MaxLen = d.maxLen
		args.Approx = true
	}

	id, err := d.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", d.stream, err)
	}
	d.logger.Debug("document request queued",
		slog.String("stream_id", id),
		slog.String("kind", string(request.Kind)),
		slog.String("event_id", request.EventID),
	)
	return nil
}
