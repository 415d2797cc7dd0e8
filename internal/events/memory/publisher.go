package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
)

// Message is one published event.
type Message struct {
	Topic string
	Event any
}

// Publisher keeps published events in memory. It is used when no broker is
// configured and by tests.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	limit    int
	err      error
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// NewBoundedPublisher keeps only the most recent limit messages.
func NewBoundedPublisher(limit int) *Publisher {
	return &Publisher{limit: limit}
}

// FailWith makes every following Publish return err.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, Message{Topic: topic, Event: event})
	if p.limit > 0 && len(p.messages) > p.limit {
		p.messages = append(p.messages[:0], p.messages[len(p.messages)-p.limit:]...)
	}
	return nil
}

// Messages returns a copy of everything published so far.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := make([]Message, len(p.messages))
	copy(copied, p.messages)
	return copied
}

func (p *Publisher) Close() error {
	return nil
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
