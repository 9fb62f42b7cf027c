package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes alerts to a topic for downstream consumers, keyed by
// analysis id.
type KafkaSender struct {
	Writer messageWriter
}

func NewKafkaSender(brokers []string, topic string, timeout time.Duration) *KafkaSender {
	return &KafkaSender{Writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: timeout,
		MaxAttempts:  1,
	}}
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AnalysisID),
		Value: value,
		Time:  msg.At,
		Headers: []kafka.Header{
			{Key: "alert_level", Value: []byte(msg.Level)},
		},
	})
}

func (s *KafkaSender) Close() error {
	if s == nil || s.Writer == nil {
		return nil
	}
	return s.Writer.Close()
}
