package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulse/internal/models"
)

type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg string) error
}

// StatusNotifier forwards health transitions to a Sender from its own
// goroutine so a slow chat API never stalls frame ingestion.
type StatusNotifier struct {
	sender Sender
	log    *slog.Logger
	queue  chan string
	wait   func(context.Context, time.Duration) bool
	last   models.HealthStatus
}

func NewStatusNotifier(sender Sender, logger *slog.Logger) *StatusNotifier {
	return &StatusNotifier{
		sender: sender,
		log:    logger,
		queue:  make(chan string, 32),
		wait:   wait,
		last:   models.StatusUnknown,
	}
}

// Notify queues a message for ev when it enters warning or critical, or
// recovers from either. A full queue drops the message.
func (n *StatusNotifier) Notify(ev models.StatusEvent) {
	prev := n.last
	n.last = ev.Status
	msg, ok := message(prev, ev)
	if !ok || !n.sender.Enabled() {
		return
	}
	select {
	case n.queue <- msg:
	default:
		n.log.Warn("notification queue full, dropping", "status", ev.Status)
	}
}

func message(prev models.HealthStatus, ev models.StatusEvent) (string, bool) {
	switch ev.Status {
	case models.StatusWarning, models.StatusCritical:
		return fmt.Sprintf("ALERT %s at %s: %s. %s", ev.Title, ev.TimeLabel, ev.Description, ev.Details), true
	case models.StatusHealthy:
		if prev == models.StatusWarning || prev == models.StatusCritical {
			return fmt.Sprintf("RECOVERY %s at %s: %s", ev.Title, ev.TimeLabel, ev.Description), true
		}
	}
	return "", false
}

// Run delivers queued messages until ctx is done.
func (n *StatusNotifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			n.send(ctx, msg)
		}
	}
}

func (n *StatusNotifier) send(ctx context.Context, msg string) {
	const maxAttempts = 3
	var err error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		err = n.sender.Send(ctx, msg)
		if err == nil {
			return
		}
		if attempts == maxAttempts || !n.wait(ctx, time.Duration(attempts)*300*time.Millisecond) {
			break
		}
	}
	n.log.Warn("notify failed", "err", err, "attempts", attempts)
}

// wait pauses for d and reports false if ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
