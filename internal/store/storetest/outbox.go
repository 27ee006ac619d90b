package storetest

import (
	"context"
	"sync"
)

type Mail struct {
	To, Subject, Body string
}

// Outbox records sent mail. Set Err to make every send fail.
type Outbox struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
}

func (o *Outbox) Send(_ context.Context, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.sent = append(o.sent, Mail{To: to, Subject: subject, Body: body})
	return nil
}

func (o *Outbox) Sent() []Mail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Mail(nil), o.sent...)
}

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	Keys   []string
	Events []any
}

func (p *Publisher) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Keys = append(p.Keys, key)
	p.Events = append(p.Events, v)
	return nil
}

func (p *Publisher) Published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Keys...)
}
