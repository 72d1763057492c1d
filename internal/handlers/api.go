package handlers

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/models"
	"no-lights-dtek/internal/registry"
	"no-lights-dtek/internal/tracker"
)

// HistoryStore reads recorded status events. Implemented by database.DB.
type HistoryStore interface {
	GetStatusHistory(ctx context.Context, subscriberID int64, from, to time.Time) ([]*models.StatusEvent, error)
}

// SubscriberStore reads subscriber snapshots. Implemented by registry.Registry.
type SubscriberStore interface {
	Get(ctx context.Context, id int64) (*tracker.SubscriberState, error)
}

type Handlers struct {
	Scraper     dtek.Extractor
	History     HistoryStore    // optional
	Subscribers SubscriberStore // optional
	Defaults    dtek.Address    // used for query params that are absent
	Clock       clockwork.Clock

	// Short-lived result cache so repeated clicks don't each open a browser.
	statusCache   map[dtek.Address]cachedStatus
	statusCacheMu sync.Mutex
}

type cachedStatus struct {
	res *dtek.ScrapeResult
	at  time.Time
}

const (
	// StatusCacheTTL is how long a scrape result is reused for the same address.
	StatusCacheTTL = 30 * time.Second
	// DefaultHistoryLookback is the default time range for history queries.
	DefaultHistoryLookback = 24 * time.Hour
	// MaxHistoryRange is the maximum allowed time range for history queries.
	MaxHistoryRange = 30 * 24 * time.Hour
)

const msgMissingAddress = "Передай city, street, house. Напр: /api/status?city=...&street=...&house=..."

func (h *Handlers) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

// queryOr returns the query param when present, even if empty, else def.
func queryOr(c *fiber.Ctx, key, def string) string {
	if c.Context().QueryArgs().Has(key) {
		return strings.TrimSpace(c.Query(key))
	}
	return strings.TrimSpace(def)
}

// GetStatus handles GET /api/status?city=&street=&house=[&pretty=1].
func (h *Handlers) GetStatus(c *fiber.Ctx) error {
	addr := dtek.Address{
		City:   queryOr(c, "city", h.Defaults.City),
		Street: queryOr(c, "street", h.Defaults.Street),
		House:  queryOr(c, "house", h.Defaults.House),
	}
	if addr.City == "" || addr.Street == "" || addr.House == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgMissingAddress})
	}

	res, err := h.status(c.UserContext(), addr)
	if err != nil {
		log.Printf("[api] status %q: %v", addr.String(), err)
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	if c.QueryBool("pretty") {
		pretty := *res
		pretty.FactHTML = beautify(res.FactHTML)
		pretty.WeekHTML = beautify(res.WeekHTML)
		res = &pretty
	}
	return c.JSON(res)
}

func (h *Handlers) status(ctx context.Context, addr dtek.Address) (*dtek.ScrapeResult, error) {
	now := h.now()

	h.statusCacheMu.Lock()
	if hit, ok := h.statusCache[addr]; ok && now.Sub(hit.at) < StatusCacheTTL {
		h.statusCacheMu.Unlock()
		return hit.res, nil
	}
	h.statusCacheMu.Unlock()

	res, err := h.Scraper.ResolveAndExtract(ctx, addr)
	if err != nil {
		return nil, err
	}

	h.statusCacheMu.Lock()
	if h.statusCache == nil {
		h.statusCache = make(map[dtek.Address]cachedStatus)
	}
	for k, v := range h.statusCache {
		if now.Sub(v.at) >= StatusCacheTTL {
			delete(h.statusCache, k)
		}
	}
	h.statusCache[addr] = cachedStatus{res: res, at: now}
	h.statusCacheMu.Unlock()
	return res, nil
}

func beautify(markup *string) *string {
	if markup == nil {
		return nil
	}
	out, err := dtek.BeautifyMarkup(*markup)
	if err != nil {
		log.Printf("[api] beautify markup: %v", err)
		return markup
	}
	return &out
}

// statusFor maps scrape errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dtek.ErrAddressNotResolved):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, dtek.ErrAddressFieldNotFound), errors.Is(err, dtek.ErrResultsNotRendered):
		return fiber.StatusBadGateway
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

// GetSubscriber returns the stored snapshot for a subscriber.
func (h *Handlers) GetSubscriber(c *fiber.Ctx) error {
	if h.Subscribers == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid subscriber id"})
	}

	state, err := h.Subscribers.Get(c.UserContext(), int64(id))
	if errors.Is(err, registry.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown subscriber"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load subscriber"})
	}
	return c.JSON(state)
}

// GetHistory returns status change events for a subscriber.
// Query params: ?from=2026-02-09T00:00:00Z&to=2026-02-10T00:00:00Z
// Defaults to the last 24 hours if not provided.
func (h *Handlers) GetHistory(c *fiber.Ctx) error {
	if h.History == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	subscriberID, err := c.ParamsInt("id")
	if err != nil || subscriberID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid subscriber id"})
	}

	now := h.now()
	from := now.Add(-DefaultHistoryLookback)
	to := now

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}

	// Cap to max history range.
	if to.Sub(from) > MaxHistoryRange {
		from = to.Add(-MaxHistoryRange)
	}

	events, err := h.History.GetStatusHistory(c.UserContext(), int64(subscriberID), from, to)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load history"})
	}

	if events == nil {
		events = make([]*models.StatusEvent, 0)
	}

	return c.JSON(models.StatusHistory{
		SubscriberID: int64(subscriberID),
		From:         from,
		To:           to,
		Events:       events,
	})
}
