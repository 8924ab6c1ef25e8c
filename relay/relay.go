// Package relay 把家庭事件镜像到 RabbitMQ fanout 交换机，供外部消费者订阅
// 只做单向镜像，不参与房间投递和活动回放
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	defaultBuffer  = 256
	publishTimeout = 5 * time.Second
)

// Message 发往交换机的消息体
type Message struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	TS      int64  `json:"ts"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// Relay 异步发布，队列满时丢弃
type Relay struct {
	pub      publisher
	closers  []func() error
	exchange string

	mu     sync.Mutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

// Dial 连接 RabbitMQ 并声明 fanout 交换机
func Dial(url, exchange string) (*Relay, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	slog.Info("relay connected", "exchange", exchange)
	return newRelay(channel, exchange, defaultBuffer, channel.Close, conn.Close), nil
}

func newRelay(pub publisher, exchange string, buffer int, closers ...func() error) *Relay {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &Relay{
		pub:      pub,
		closers:  closers,
		exchange: exchange,
		queue:    make(chan Message, buffer),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

// Mirror 实现 realtime.Mirror，不阻塞调用方
func (r *Relay) Mirror(topic, event string, payload any) {
	msg := Message{Topic: topic, Event: event, Payload: payload, TS: time.Now().UnixMilli()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- msg:
	default:
		slog.Warn("relay: queue full, event dropped", "topic", topic, "event", event)
	}
}

func (r *Relay) loop() {
	defer close(r.done)
	for msg := range r.queue {
		if err := r.publish(msg); err != nil {
			slog.Error("relay: publish failed", "topic", msg.Topic, "event", msg.Event, "error", err)
		}
	}
}

func (r *Relay) publish(msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return r.pub.PublishWithContext(
		ctx,
		r.exchange, // exchange
		msg.Topic,  // routing key，fanout 忽略，便于下游过滤
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Type:        msg.Event,
			Timestamp:   time.UnixMilli(msg.TS),
			Body:        body,
		},
	)
}

// Close 发送完已入队的消息后关闭连接
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done

	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
