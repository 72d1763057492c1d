package checker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/models"
	"no-lights-dtek/internal/tracker"
)

// Registry is the subset of registry.Registry the checker needs.
type Registry interface {
	List(ctx context.Context) ([]int64, error)
	Get(ctx context.Context, id int64) (*tracker.SubscriberState, error)
	Save(ctx context.Context, id int64, state tracker.SubscriberState) error
}

// Notifier delivers a rendered message to a subscriber.
type Notifier interface {
	Notify(ctx context.Context, subscriberID int64, text string) error
}

// EventRecorder persists status transitions for the history endpoint.
type EventRecorder interface {
	RecordStatusEvent(ctx context.Context, e *models.StatusEvent) error
}

// Options tune a Checker. Zero values fall back to defaults.
type Options struct {
	Clock        clockwork.Clock
	Events       EventRecorder // optional
	ViewerURL    string
	CheckTimeout time.Duration
	// NotifyFirstCheck sends a message for a subscriber's very first status.
	NotifyFirstCheck bool
}

const defaultCheckTimeout = 2 * time.Minute

// Checker re-checks every subscriber and notifies on status transitions.
type Checker struct {
	scraper  dtek.Extractor
	registry Registry
	notifier Notifier
	opts     Options
}

func New(scraper dtek.Extractor, registry Registry, notifier Notifier, opts Options) *Checker {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaultCheckTimeout
	}
	return &Checker{scraper: scraper, registry: registry, notifier: notifier, opts: opts}
}

// BatchStats summarizes one RunBatch pass.
type BatchStats struct {
	Checked  int
	Changed  int
	Notified int
	Failed   int
}

// Outcome is the result of checking a single subscriber.
type Outcome struct {
	Detection tracker.Detection
	Notified  bool
}

// RunBatch checks all subscribers one after another. A failing subscriber is
// logged and counted; it never stops the batch. Only listing the subscribers
// or cancellation of ctx ends the batch early.
func (c *Checker) RunBatch(ctx context.Context) (BatchStats, error) {
	var stats BatchStats

	ids, err := c.registry.List(ctx)
	if err != nil {
		return stats, err
	}
	log.Printf("[checker] batch started: %d subscribers", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			log.Printf("[checker] batch interrupted after %d subscribers", stats.Checked+stats.Failed)
			return stats, err
		}

		out, err := c.CheckOne(ctx, id)
		if err != nil {
			stats.Failed++
			log.Printf("[checker] subscriber %d check error: %v", id, err)
			continue
		}
		stats.Checked++
		if out.Detection.Changed {
			stats.Changed++
		}
		if out.Notified {
			stats.Notified++
		}
	}

	log.Printf("[checker] batch done: checked=%d changed=%d notified=%d failed=%d",
		stats.Checked, stats.Changed, stats.Notified, stats.Failed)
	return stats, nil
}

// CheckOne scrapes the subscriber's address, stores the new snapshot and
// sends a notification when the status changed.
func (c *Checker) CheckOne(ctx context.Context, id int64) (Outcome, error) {
	prev, err := c.registry.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.opts.CheckTimeout)
	res, err := c.scraper.ResolveAndExtract(checkCtx, prev.Address)
	cancel()
	if err != nil {
		return Outcome{}, fmt.Errorf("scrape %q: %w", prev.Address.String(), err)
	}

	now := c.opts.Clock.Now()
	d := tracker.Detect(prev, res, now)
	if err := c.registry.Save(ctx, id, d.Next); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Detection: d}
	if !d.Changed {
		return out, nil
	}

	log.Printf("[checker] subscriber %d is now %s (first=%t)", id, res.Current.Status, d.First)
	c.recordEvent(ctx, id, res, now)

	if d.First && !c.opts.NotifyFirstCheck {
		return out, nil
	}
	text := tracker.Format(res, d.Next, now, c.opts.ViewerURL)
	if err := c.notifier.Notify(ctx, id, text); err != nil {
		log.Printf("[checker] subscriber %d: notify failed: %v", id, err)
		return out, nil
	}
	out.Notified = true
	return out, nil
}

func (c *Checker) recordEvent(ctx context.Context, id int64, res *dtek.ScrapeResult, now time.Time) {
	if c.opts.Events == nil {
		return
	}
	addr := ""
	if res.ResolvedAddress.Text != nil {
		addr = *res.ResolvedAddress.Text
	}
	e := &models.StatusEvent{
		SubscriberID: id,
		Status:       string(res.Current.Status),
		Address:      addr,
		GroupName:    res.GroupName,
		Reason:       res.Current.Reason,
		Timestamp:    now,
	}
	if err := c.opts.Events.RecordStatusEvent(ctx, e); err != nil {
		log.Printf("[checker] subscriber %d: record status event: %v", id, err)
	}
}
