package dtek

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	// defaultOpTimeout bounds element operations that have no explicit wait.
	defaultOpTimeout = 10 * time.Second
)

// ChromeOptions configures the headless Chrome instance behind each page.
type ChromeOptions struct {
	Headless  bool
	ExecPath  string
	UserAgent string
}

// ChromeBrowser launches one Chrome process per page, so a page's Close
// releases everything it acquired.
type ChromeBrowser struct {
	opts ChromeOptions
}

func NewChromeBrowser(opts ChromeOptions) *ChromeBrowser {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &ChromeBrowser{opts: opts}
}

// NewPage starts Chrome and opens a blank tab.
func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.opts.UserAgent),
	)
	if b.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ExecPath))
	}

	// The browser outlives individual calls; it is bound to the page, not to ctx.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &chromePage{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}
	// An empty Run starts the browser so launch failures surface here. It must
	// run on the tab context itself: chromedp ties the browser's lifetime to
	// the context of the first Run.
	stop := context.AfterFunc(ctx, p.cancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		p.cancel()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	return p, nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions in the tab until they finish, ctx is done, the
// timeout (if positive) elapses, or the page is closed.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, 0, chromedp.Navigate(url))
}

func (p *chromePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

func (p *chromePage) WaitAttached(ctx context.Context, sel string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitReady(sel, chromedp.ByQuery))
}

func (p *chromePage) Attribute(ctx context.Context, sel, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := p.run(ctx, defaultOpTimeout, chromedp.AttributeValue(sel, name, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

func (p *chromePage) Value(ctx context.Context, sel string) (string, error) {
	var value string
	err := p.run(ctx, defaultOpTimeout, chromedp.Value(sel, &value, chromedp.ByQuery))
	return value, err
}

// Clear empties the input's value property, which typing and scripts
// change without touching the value attribute.
func (p *chromePage) Clear(ctx context.Context, sel string) error {
	return p.run(ctx, defaultOpTimeout, chromedp.SetValue(sel, "", chromedp.ByQuery))
}

func (p *chromePage) Type(ctx context.Context, sel, text string, delay time.Duration) error {
	actions := make([]chromedp.Action, 0, 2*len(text))
	for _, r := range text {
		actions = append(actions, chromedp.SendKeys(sel, string(r), chromedp.ByQuery))
		if delay > 0 {
			actions = append(actions, chromedp.Sleep(delay))
		}
	}
	return p.run(ctx, 0, actions...)
}

func (p *chromePage) Click(ctx context.Context, sel string) error {
	return p.run(ctx, defaultOpTimeout, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) Evaluate(ctx context.Context, script string) error {
	return p.run(ctx, defaultOpTimeout, chromedp.Evaluate(script, nil))
}

func (p *chromePage) OuterHTML(ctx context.Context, sel string) (string, error) {
	var html string
	err := p.run(ctx, defaultOpTimeout, chromedp.OuterHTML(sel, &html, chromedp.ByQuery))
	return html, err
}

func (p *chromePage) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close shuts the tab and the Chrome process. Safe to call more than once.
func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
