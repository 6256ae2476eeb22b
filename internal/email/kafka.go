package email

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the record published for a downstream mail worker.
type Event struct {
	Template  Template          `json:"template"`
	Recipient string            `json:"recipient"`
	Data      map[string]string `json:"data"`
	QueuedAt  time.Time         `json:"queued_at"`
}

// KafkaSender publishes mail events keyed by recipient.
type KafkaSender struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	return newKafkaSender(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	})
}

func newKafkaSender(w messageWriter) *KafkaSender {
	return &KafkaSender{writer: w, now: time.Now}
}

func (k *KafkaSender) Send(ctx context.Context, tmpl Template, recipient string, data map[string]string) error {
	if !tmpl.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, tmpl)
	}

	value, err := json.Marshal(Event{
		Template:  tmpl,
		Recipient: recipient,
		Data:      data,
		QueuedAt:  k.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(recipient),
		Value: value,
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(tmpl)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}

	return nil
}

func (k *KafkaSender) Close() error {
	return k.writer.Close()
}
