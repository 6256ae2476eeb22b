package email

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/redmonkez12/account-service/internal/logging"
)

// Async sends in the background and only logs failures, so callers never block on delivery.
type Async struct {
	next    Sender
	logger  *logging.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Sender, logger *logging.Logger, timeout time.Duration) *Async {
	return &Async{next: next, logger: logger, timeout: timeout}
}

// Send always returns nil.
func (a *Async) Send(ctx context.Context, tmpl Template, recipient string, data map[string]string) error {
	data = maps.Clone(data)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		// the request context is usually gone by the time delivery runs
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Send(sendCtx, tmpl, recipient, data); err != nil {
			a.logger.Warn("failed to send email", "template", tmpl, "email", recipient, "error", err)
		}
	}()

	return nil
}

// Wait blocks until in-flight sends finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
