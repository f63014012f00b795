package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message was processed and its offset
// may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	log     *zap.Logger
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, log: log, workers: workers}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	errs := make(chan error, c.workers)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if err := h(ctx, m); err != nil {
					errs <- err
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					errs <- err
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(errs)
	}()

	// stop closes the job feed and keeps draining errs until every
	// worker has exited; a worker blocked on errs would otherwise leak
	stop := func(err error) error {
		close(jobs)
		for e := range errs {
			c.log.Error("consumer worker", zap.String("topic", c.r.Config().Topic), zap.Error(e))
		}
		return err
	}

	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return stop(nil)
			}
			return stop(err)
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return stop(nil)
		}

		// drain worker errors without blocking the read loop
		select {
		case e := <-errs:
			c.log.Error("consumer worker", zap.String("topic", c.r.Config().Topic), zap.Error(e))
			time.Sleep(200 * time.Millisecond)
		default:
		}
	}
}
