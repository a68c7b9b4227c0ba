package kafka

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/dispatchly/fleetsync/internal/broker/messages"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w messageWriter
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func newProducerWithWriter(w messageWriter) *Producer {
	return &Producer{w: w}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}

// PublishChange сериализует событие изменения и публикует его в канал тенанта.
// Ключ — тип события, чтобы изменения одной сущности попадали в одну партицию.
func (p *Producer) PublishChange(ctx context.Context, channel string, ev messages.ChangeEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal change event")
	}
	return p.Publish(ctx, channel, []byte(ev.Type), b)
}
