package dtek

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SessionState is a step of one scrape session. Sessions only move forward,
// and every exit path ends in StateClosed.
type SessionState int

const (
	StateLaunched SessionState = iota
	StateNavigated
	StateModalCleared
	StateAddressResolved
	StateResultsVisible
	StateExtracted
	StateClosed
)

var sessionStateNames = [...]string{
	StateLaunched:        "launched",
	StateNavigated:       "navigated",
	StateModalCleared:    "modal_cleared",
	StateAddressResolved: "address_resolved",
	StateResultsVisible:  "results_visible",
	StateExtracted:       "extracted",
	StateClosed:          "closed",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(sessionStateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return sessionStateNames[s]
}

var errEmptyValue = errors.New("empty value")

// Scraper runs scrape sessions against the provider page. Each call to
// ResolveAndExtract owns exactly one page and closes it before returning.
type Scraper struct {
	browser  Browser
	pageURL  string
	origin   string
	resolver *Resolver

	NavigateTimeout time.Duration
	ResultsTimeout  time.Duration
	DayTableTimeout time.Duration // today's table rows; a miss only degrades the result
	LoadSettle      time.Duration // after navigation, before touching the form
	RenderSettle    time.Duration // after the status block appears

	// onState, when set, observes every state transition.
	onState func(SessionState)
}

func NewScraper(browser Browser, pageURL string) (*Scraper, error) {
	origin, err := Origin(pageURL)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		browser:         browser,
		pageURL:         pageURL,
		origin:          origin,
		resolver:        NewResolver(),
		NavigateTimeout: 45 * time.Second,
		ResultsTimeout:  20 * time.Second,
		DayTableTimeout: 20 * time.Second,
		LoadSettle:      300 * time.Millisecond,
		RenderSettle:    700 * time.Millisecond,
	}, nil
}

// Resolver exposes the form resolver so its timings can be tuned.
func (s *Scraper) Resolver() *Resolver {
	return s.resolver
}

type session struct {
	page    Page
	addr    Address
	state   SessionState
	onState func(SessionState)
}

func (ss *session) advance(next SessionState) {
	log.Printf("[dtek] session %q: %s -> %s", ss.addr.String(), ss.state, next)
	ss.state = next
	if ss.onState != nil {
		ss.onState(next)
	}
}

func (ss *session) close() {
	if err := ss.page.Close(); err != nil {
		log.Printf("[dtek] close page: %v", err)
	}
	ss.advance(StateClosed)
}

// ResolveAndExtract resolves addr through the provider form and extracts the
// outage status and schedules. Address and page failures are fatal and typed;
// unreadable markup fragments only leave their fields nil.
func (s *Scraper) ResolveAndExtract(ctx context.Context, addr Address) (*ScrapeResult, error) {
	addr = addr.Trimmed()
	if field, missing := addr.missingField(); missing {
		return nil, &AddressNotResolvedError{Field: field, Err: errEmptyValue}
	}

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	ss := &session{page: page, addr: addr, state: StateLaunched, onState: s.onState}
	if ss.onState != nil {
		ss.onState(StateLaunched)
	}
	defer ss.close()

	return s.run(ctx, ss)
}

func (s *Scraper) run(ctx context.Context, ss *session) (*ScrapeResult, error) {
	navCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.NavigateTimeout > 0 {
		navCtx, cancel = context.WithTimeout(ctx, s.NavigateTimeout)
	}
	err := ss.page.Navigate(navCtx, s.pageURL)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", s.pageURL, err)
	}
	if err := ss.page.Sleep(ctx, s.LoadSettle); err != nil {
		return nil, err
	}
	ss.advance(StateNavigated)

	DismissModal(ctx, ss.page)
	ss.advance(StateModalCleared)

	if err := s.resolver.Resolve(ctx, ss.page, ss.addr); err != nil {
		return nil, err
	}
	resolved := ReadResolvedAddress(ctx, ss.page)
	ss.advance(StateAddressResolved)

	if err := ss.page.WaitVisible(ctx, statusSelector, s.ResultsTimeout); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResultsNotRendered, err)
	}
	if err := ss.page.Sleep(ctx, s.RenderSettle); err != nil {
		return nil, err
	}
	ss.advance(StateResultsVisible)

	if err := ss.page.WaitAttached(ctx, activeDayRowSelector, s.DayTableTimeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[dtek] %q: %v: today table not rendered: %v", ss.addr.String(), ErrExtractionDegraded, err)
	}

	html, err := ss.page.OuterHTML(ctx, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot page: %v", ErrResultsNotRendered, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse page: %v", ErrResultsNotRendered, err)
	}

	res, degraded := Extract(doc, s.origin)
	for _, d := range degraded {
		log.Printf("[dtek] %q: %v", ss.addr.String(), d)
	}
	res.ResolvedAddress = resolved
	ss.advance(StateExtracted)
	return res, nil
}
