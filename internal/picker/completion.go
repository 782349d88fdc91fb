package picker

import (
	"context"
	"sync"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// Completion delivers the result of one pick: exactly one payload or nothing, exactly once.
// Whichever of Resolve or Dismiss runs first decides the result; later calls are ignored.
type Completion struct {
	once sync.Once
	ch   chan domain.ImagePayload
}

// NewCompletion returns an unresolved completion
func NewCompletion() *Completion {
	return &Completion{ch: make(chan domain.ImagePayload, 1)}
}

// Resolve completes the pick with p. It reports whether p was accepted.
func (c *Completion) Resolve(p domain.ImagePayload) bool {
	accepted := false
	c.once.Do(func() {
		c.ch <- p
		close(c.ch)
		accepted = true
	})
	return accepted
}

// Dismiss completes the pick without a value
func (c *Completion) Dismiss() bool {
	accepted := false
	c.once.Do(func() {
		close(c.ch)
		accepted = true
	})
	return accepted
}

// Wait blocks until the pick completes or ctx is done
func (c *Completion) Wait(ctx context.Context) (domain.ImagePayload, bool) {
	select {
	case p, ok := <-c.ch:
		return p, ok
	case <-ctx.Done():
		return domain.ImagePayload{}, false
	}
}
