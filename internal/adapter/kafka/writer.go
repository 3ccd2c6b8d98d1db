package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes one message per classified cell to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, topic: topic, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load serializes every row and publishes them in a single WriteMessages call.
func (w *Writer) Load(ctx context.Context, result domain.Result) error {
	if len(result.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(result.Rows))
	for i, r := range result.Rows {
		msg, err := serializeToMessage(r, result.GeneratedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish to %s: %w", w.topic, err)
	}
	w.logger.Debug("published cell labels", "topic", w.topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// CellMessage is the JSON payload of one published cell.
type CellMessage struct {
	Lon         float64           `json:"lon"`
	Lat         float64           `json:"lat"`
	Year        int               `json:"year"`
	Labels      map[string]string `json:"labels"`
	FinalLabel  string            `json:"final_label"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// MessageKey is the partition key of a cell: "year|lat|lon".
func MessageKey(k domain.CellKey) []byte {
	return []byte(k.ID())
}

// serializeToMessage marshals a row into a Kafka message.
func serializeToMessage(r domain.Row, generatedAt time.Time) (kafkago.Message, error) {
	payload := CellMessage{
		Lon:         r.Key.Lon,
		Lat:         r.Key.Lat,
		Year:        r.Key.Year,
		Labels:      make(map[string]string, len(r.Labels)),
		FinalLabel:  r.Final.String(),
		GeneratedAt: generatedAt,
	}
	for _, g := range domain.CanonicalGases {
		if s, ok := r.Label(g); ok {
			payload.Labels[string(g)] = s.String()
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cell %v: %w", r.Key, err)
	}
	return kafkago.Message{
		Key:   MessageKey(r.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "final_label", Value: []byte(payload.FinalLabel)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
