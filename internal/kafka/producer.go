package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer writes messages through a buffered inbox so request handlers
// never block on the broker. Close flushes whatever is still queued.
type Producer struct {
	w       *kafka.Writer
	log     *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m, ok := <-p.inbox:
				if !ok {
					p.finish()
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.Error("kafka write failed",
			zap.String("topic", p.w.Topic),
			zap.ByteString("key", m.Key),
			zap.Error(err))
	}
}

// drain flushes whatever is already queued without closing the inbox,
// so a later Close stays safe.
func (p *Producer) drain() {
	for {
		select {
		case m, ok := <-p.inbox:
			if !ok {
				p.finish()
				return
			}
			p.write(m)
		default:
			p.finish()
			return
		}
	}
}

func (p *Producer) finish() {
	if err := p.w.Close(); err != nil {
		p.log.Warn("kafka writer close", zap.Error(err))
	}
	close(p.closeCh)
}

func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops accepting messages; the loop flushes the rest and exits.
func (p *Producer) Close() { close(p.inbox) }

// WaitClosed blocks until the flush finished.
func (p *Producer) WaitClosed() { <-p.closeCh }
