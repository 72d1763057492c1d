package dtek

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Extractor is anything that can turn an address into a ScrapeResult.
type Extractor interface {
	ResolveAndExtract(ctx context.Context, addr Address) (*ScrapeResult, error)
}

// Guarded stops sending on-demand sessions to the provider after repeated
// page or browser failures. Unresolvable addresses do not count as failures.
type Guarded struct {
	next Extractor
	cb   *gobreaker.CircuitBreaker
}

func NewGuarded(next Extractor, failures uint32, cooldown time.Duration) *Guarded {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dtek",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
	return &Guarded{next: next, cb: cb}
}

// ResolveAndExtract forwards to the wrapped extractor unless the breaker is
// open, in which case it returns gobreaker.ErrOpenState.
func (g *Guarded) ResolveAndExtract(ctx context.Context, addr Address) (*ScrapeResult, error) {
	var addrErr error
	out, err := g.cb.Execute(func() (interface{}, error) {
		res, err := g.next.ResolveAndExtract(ctx, addr)
		if IsAddressError(err) {
			addrErr = err
			return nil, nil
		}
		return res, err
	})
	if addrErr != nil {
		return nil, addrErr
	}
	if err != nil {
		return nil, err
	}
	return out.(*ScrapeResult), nil
}
