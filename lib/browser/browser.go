// Package browser drives a single browser session through the pages of a
// crawl. Every wait is bounded: navigation, DOM settling and waits for
// expansion triggers all run under a deadline, so no single page can hang a
// crawl.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("reviewharvest.lib.browser")

var (
	ErrSessionClosed = errors.New("browser session is closed")
	// ErrSessionLost marks a failure after which the browser no longer
	// answers, for example because the process crashed.
	ErrSessionLost = errors.New("browser session lost")
)

const (
	// how long the DOM must stay unchanged before a page counts as settled
	stableWindow = 500 * time.Millisecond
	// bound for checking whether the browser still answers after a failure
	probeTimeout = 5 * time.Second
)

type Options struct {
	// Headless runs without a visible window, for unattended runs.
	Headless bool
	// Bin is a path to a chromium binary, if empty one is detected or
	// downloaded by the launcher.
	Bin       string
	NoSandbox bool

	NavigationTimeout time.Duration
	// SettleTimeout bounds the wait for the DOM to stop changing after
	// navigation.
	SettleTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = 5 * time.Second
	}
	return o
}

// Page is a snapshot of a rendered document taken after all expansion
// actions completed.
type Page struct {
	URL  string
	HTML string
}

// Session is an exclusively owned browser with a single tab, pages are
// opened one after another in that tab.
type Session struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	tab      *rod.Page

	mutex  sync.Mutex
	closed bool
}

// Launch starts a browser. The returned session must be closed even when
// later steps fail, a failure to launch or connect is returned as is.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Launch")
	defer span.End()

	opts = opts.withDefaults()
	span.SetAttributes(attribute.Bool("headless", opts.Headless))

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlUrl, err := l.Launch()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to launch browser")
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlUrl)
	err = b.Connect()
	if err != nil {
		l.Kill()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect to browser")
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	tab, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		l.Kill()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open tab")
		return nil, fmt.Errorf("open tab: %w", err)
	}

	slog.InfoContext(ctx, "browser session started", "headless", opts.Headless, "control_url", controlUrl)

	return &Session{
		opts:     opts,
		launcher: l,
		browser:  b,
		tab:      tab,
	}, nil
}

// Close releases the browser, it is safe to call more than once.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	slog.Info("browser session closed")
	return err
}

// Open navigates to url, waits for the page to settle, applies expand and
// returns the resulting document.
func (s *Session) Open(ctx context.Context, url string, expand Expansion) (Page, error) {
	ctx, span := tracer.Start(ctx, "Open")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return Page{}, ErrSessionClosed
	}

	tab := s.tab.Context(ctx)

	fail := func(status string, err error) (Page, error) {
		err = s.checkSession(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return Page{}, err
	}

	slog.DebugContext(ctx, "navigating", "url", url)
	err := bounded(tab, s.opts.NavigationTimeout, func(nav *rod.Page) error {
		err := nav.Navigate(url)
		if err != nil {
			return fmt.Errorf("navigate to %s: %w", url, err)
		}
		err = nav.WaitLoad()
		if err != nil {
			return fmt.Errorf("wait for %s to load: %w", url, err)
		}
		return nil
	})
	if err != nil {
		return fail("failed to load page", err)
	}
	settle(ctx, tab, s.opts.SettleTimeout)

	if expand != nil {
		err = expand.expand(ctx, tab)
		if err != nil {
			return fail("failed to expand page", fmt.Errorf("expand %s: %w", url, err))
		}
	}

	html, err := tab.HTML()
	if err != nil {
		return fail("failed to read document", fmt.Errorf("read document of %s: %w", url, err))
	}

	current := url
	info, err := tab.Info()
	if err == nil && info.URL != "" {
		current = info.URL
	}

	return Page{URL: current, HTML: html}, nil
}

// checkSession marks err with ErrSessionLost when the browser stopped
// answering, a page level failure is returned as is.
func (s *Session) checkSession(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	probeErr := bounded(s.browser.Context(context.Background()), probeTimeout, func(b *rod.Browser) error {
		_, err := b.Version()
		return err
	})
	return sessionError(err, probeErr)
}

func sessionError(err, probeErr error) error {
	if probeErr == nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSessionLost, err)
}

// timeouter is implemented by *rod.Page and *rod.Browser.
type timeouter[T any] interface {
	Timeout(time.Duration) T
	CancelTimeout() T
}

// bounded runs fn with target limited to d, the deadline is released as soon
// as fn returns.
func bounded[T timeouter[T]](target T, d time.Duration, fn func(T) error) error {
	limited := target.Timeout(d)
	defer limited.CancelTimeout()
	return fn(limited)
}

// settle waits for the DOM to stop changing. hitting the bound is not an
// error, whatever rendered by then is used.
func settle(ctx context.Context, tab *rod.Page, bound time.Duration) {
	err := bounded(tab, bound, func(p *rod.Page) error {
		return p.WaitDOMStable(stableWindow, 0)
	})
	if err != nil && ctx.Err() == nil {
		slog.DebugContext(ctx, "page did not settle in time", "bound", bound, "err", err)
	}
}
