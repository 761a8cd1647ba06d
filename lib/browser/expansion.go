package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
)

// Expansion reveals content that is loaded on demand after navigation.
// a nil Expansion leaves the page as loaded.
type Expansion interface {
	expand(ctx context.Context, tab *rod.Page) error
}

// None leaves the page as loaded.
type None struct{}

func (None) expand(context.Context, *rod.Page) error { return nil }

// ClickLoadMore repeatedly activates a "load more" control. Each attempt
// waits for the trigger to be present, scrolls it into view, clicks it and
// waits for the new content to settle. A trigger that never appears ends the
// expansion, this is how the end of the content is detected.
type ClickLoadMore struct {
	Selector    string
	MaxAttempts int
	// WaitTimeout bounds the wait for the trigger to become present.
	WaitTimeout time.Duration
	// SettleTimeout bounds the wait for new content after each click.
	SettleTimeout time.Duration
}

func (c ClickLoadMore) expand(ctx context.Context, tab *rod.Page) error {
	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var trigger *rod.Element
		err := bounded(tab, c.WaitTimeout, func(p *rod.Page) error {
			el, err := p.Element(c.Selector)
			trigger = el
			return err
		})
		if err != nil {
			slog.DebugContext(ctx, "load more trigger absent, stopping", "selector", c.Selector, "attempt", attempt)
			return nil
		}
		trigger = trigger.Context(ctx)

		err = trigger.ScrollIntoView()
		if err != nil {
			slog.DebugContext(ctx, "failed to scroll load more trigger into view, stopping", "attempt", attempt, "err", err)
			return nil
		}
		// a scripted click works even when the control is covered by
		// another element
		_, err = trigger.Eval(`() => this.click()`)
		if err != nil {
			slog.DebugContext(ctx, "failed to click load more trigger, stopping", "attempt", attempt, "err", err)
			return nil
		}

		settle(ctx, tab, c.SettleTimeout)
		slog.DebugContext(ctx, "loaded more content", "attempt", attempt)
	}

	slog.DebugContext(ctx, "load more attempts exhausted", "max_attempts", c.MaxAttempts)
	return nil
}

// ScrollToBottom scrolls the window to the end of the document up to Rounds
// times, stopping early once the document stops growing.
type ScrollToBottom struct {
	Rounds        int
	SettleTimeout time.Duration
}

func (s ScrollToBottom) expand(ctx context.Context, tab *rod.Page) error {
	previous := -1.0
	for round := 1; round <= s.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := tab.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
		if err != nil {
			slog.DebugContext(ctx, "failed to scroll, stopping", "round", round, "err", err)
			return nil
		}
		settle(ctx, tab, s.SettleTimeout)

		res, err := tab.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return nil
		}
		height := res.Value.Num()
		if height <= previous {
			slog.DebugContext(ctx, "document stopped growing", "round", round, "height", height)
			return nil
		}
		previous = height
	}
	return nil
}
