package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Dispatcher runs updates one at a time per user, in arrival order, and
// different users concurrently.
type Dispatcher struct {
	handle func(context.Context, tgbotapi.Update)

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	wg     sync.WaitGroup
}

func NewDispatcher(handle func(context.Context, tgbotapi.Update)) *Dispatcher {
	return &Dispatcher{handle: handle, queues: make(map[int64][]tgbotapi.Update)}
}

// Dispatch queues u behind the user's pending updates.
func (d *Dispatcher) Dispatch(ctx context.Context, u tgbotapi.Update) {
	id := senderID(u)

	d.mu.Lock()
	pending, running := d.queues[id]
	d.queues[id] = append(pending, u)
	d.mu.Unlock()

	if !running {
		d.wg.Go(func() { d.drain(ctx, id) })
	}
}

// Wait blocks until every queued update has been handled.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// drain handles the user's queue until it is empty. The queue stays in the
// map while it is being handled, which marks the user as running.
func (d *Dispatcher) drain(ctx context.Context, id int64) {
	for {
		d.mu.Lock()
		q := d.queues[id]
		if len(q) == 0 {
			delete(d.queues, id)
			d.mu.Unlock()
			return
		}
		u := q[0]
		d.queues[id] = q[1:]
		d.mu.Unlock()

		d.handle(ctx, u)
	}
}

func senderID(u tgbotapi.Update) int64 {
	if from := u.SentFrom(); from != nil {
		return from.ID
	}
	return 0
}
