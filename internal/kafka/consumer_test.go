package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Start must return once the context is cancelled, with every worker
// drained and gone; a hang here means a worker stayed blocked on the
// error channel.
func TestConsumerStart_ReturnsAfterCancel(t *testing.T) {
	c := NewConsumer([]string{"127.0.0.1:1"}, "test-group", "test-topic", 4, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(context.Context, kafka.Message) error { return nil })
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
