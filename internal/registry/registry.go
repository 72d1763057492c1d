package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/tracker"
)

const (
	subscriberPrefix = "dtek:sub:"
	subscribersSet   = "dtek:subscribers"
)

// ErrNotFound is returned by Get for an unknown subscriber.
var ErrNotFound = errors.New("subscriber not found")

// Store is the opaque key-value collaborator. Implemented by cache.Cache.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	SAdd(ctx context.Context, key, member string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Registry maps a subscriber id to its last-known address and status snapshot.
// Reads and writes are not guarded against concurrent writers.
type Registry struct {
	store Store
}

func New(store Store) *Registry {
	return &Registry{store: store}
}

func subscriberKey(id int64) string {
	return subscriberPrefix + strconv.FormatInt(id, 10)
}

// Register sets the address for id, creating the subscriber if needed.
// Changing the address drops the tracked status so the next check starts fresh.
func (r *Registry) Register(ctx context.Context, id int64, addr dtek.Address, now time.Time) (tracker.SubscriberState, error) {
	addr = addr.Trimmed()

	prev, err := r.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		state := tracker.NewSubscriberState(addr, now)
		if err := r.Save(ctx, id, state); err != nil {
			return tracker.SubscriberState{}, err
		}
		if err := r.store.SAdd(ctx, subscribersSet, strconv.FormatInt(id, 10)); err != nil {
			return tracker.SubscriberState{}, fmt.Errorf("add subscriber %d: %w", id, err)
		}
		log.Printf("[registry] subscriber %d registered: %s", id, addr)
		return state, nil
	case err != nil:
		return tracker.SubscriberState{}, err
	}

	if prev.Address == addr {
		return *prev, nil
	}
	state := tracker.NewSubscriberState(addr, prev.CreatedAt)
	if err := r.Save(ctx, id, state); err != nil {
		return tracker.SubscriberState{}, err
	}
	log.Printf("[registry] subscriber %d address changed: %s -> %s", id, prev.Address, addr)
	return state, nil
}

// Get returns the stored snapshot for id, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id int64) (*tracker.SubscriberState, error) {
	raw, ok, err := r.store.Get(ctx, subscriberKey(id))
	if err != nil {
		return nil, fmt.Errorf("get subscriber %d: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	var state tracker.SubscriberState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode subscriber %d: %w", id, err)
	}
	return &state, nil
}

// Save overwrites the snapshot for id.
func (r *Registry) Save(ctx context.Context, id int64, state tracker.SubscriberState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode subscriber %d: %w", id, err)
	}
	if err := r.store.Set(ctx, subscriberKey(id), string(raw)); err != nil {
		return fmt.Errorf("save subscriber %d: %w", id, err)
	}
	return nil
}

// List returns all subscriber ids in no particular order.
func (r *Registry) List(ctx context.Context) ([]int64, error) {
	members, err := r.store.SMembers(ctx, subscribersSet)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			log.Printf("[registry] skipping invalid subscriber id %q", m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
