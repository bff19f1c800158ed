package chat

import (
	"context"
	"sync"

	"wishwell/internal/model"
)

// InboxSubscription is a live inbox view. It owns every listener it created;
// Close releases all of them. Updates delivers full recomputed snapshots with
// latest-wins semantics: a slow consumer sees the newest state, not a backlog.
type InboxSubscription struct {
	updates chan []model.InboxEntry
	stop    func()
	done    chan struct{}
	once    sync.Once
}

// Updates is closed after Close (or context cancellation) once the
// subscription has fully wound down.
func (s *InboxSubscription) Updates() <-chan []model.InboxEntry {
	return s.updates
}

func (s *InboxSubscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.stop()
	})
}

// push replaces any undelivered snapshot with the newest one. Single
// producer, so the loop terminates.
func (s *InboxSubscription) push(entries []model.InboxEntry) {
	for {
		select {
		case s.updates <- entries:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// SubscribeInbox starts a live inbox view for userID. The first snapshot is
// delivered immediately; afterwards every change to one of the user's
// conversations triggers a recompute. The subscription keeps running until
// Close is called or ctx is cancelled.
func (e *Engine) SubscribeInbox(ctx context.Context, userID string) (*InboxSubscription, error) {
	events, cancel, err := e.bus.SubscribeInbox(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub := &InboxSubscription{
		updates: make(chan []model.InboxEntry, 1),
		stop:    cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(sub.updates)

		if entries, err := e.Inbox(ctx, userID); err == nil {
			sub.push(entries)
		} else {
			e.log.Warn().Err(err).Str("user", userID).Msg("inbox snapshot failed")
		}

		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case <-sub.done:
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				entries, err := e.Inbox(ctx, userID)
				if err != nil {
					e.log.Warn().Err(err).Str("user", userID).Msg("inbox recompute failed")
					continue
				}
				sub.push(entries)
			}
		}
	}()

	return sub, nil
}
