package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Message is one delivery request for the external notification worker.
// Delivery is best-effort: the auth flow never waits on, or fails with,
// the channel.
type Message struct {
	To       string
	Template string
	Params   map[string]string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

const deliveryStream = "notify:outbound"

// StreamNotifier enqueues delivery requests onto a Redis stream consumed
// by the mail worker.
type StreamNotifier struct {
	queue *redis.Client
}

func NewStreamNotifier(queue *redis.Client) *StreamNotifier {
	return &StreamNotifier{queue: queue}
}

func (n *StreamNotifier) Send(ctx context.Context, msg Message) error {
	values := map[string]any{
		"to":       msg.To,
		"template": msg.Template,
	}
	for k, v := range msg.Params {
		values["param:"+k] = v
	}

	_, err := n.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: deliveryStream,
		Values: values,
	}).Result()
	return err
}

// LogNotifier writes deliveries to the log instead of a queue. Used in
// development when no worker is running.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info().
		Str("to", msg.To).
		Str("template", msg.Template).
		Msg("notification requested")
	return nil
}
