package dtek

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Form inputs, in the order the provider narrows them.
const (
	citySelector   = "#discon_form #city"
	streetSelector = "#discon_form #street"
	houseSelector  = "#discon_form #house_num"
)

const minResolvedLen = 2

var errNoInputID = errors.New("input has no id")

// Resolver fills the cascading city -> street -> house autocomplete fields.
// Durations are exported so callers and tests can tighten them.
type Resolver struct {
	FieldTimeout time.Duration // input must become visible within this
	ListTimeout  time.Duration // suggestion list and its first item
	KeyDelay     time.Duration // between typed characters
	ListSettle   time.Duration // after typing, before looking for the list
	SelectSettle time.Duration // after clicking a suggestion
}

// NewResolver returns a Resolver with timings that work against the live site.
func NewResolver() *Resolver {
	return &Resolver{
		FieldTimeout: 20 * time.Second,
		ListTimeout:  10 * time.Second,
		KeyDelay:     40 * time.Millisecond,
		ListSettle:   400 * time.Millisecond,
		SelectSettle: 150 * time.Millisecond,
	}
}

type formField struct {
	field    Field
	selector string
}

var formFields = []formField{
	{FieldCity, citySelector},
	{FieldStreet, streetSelector},
	{FieldHouse, houseSelector},
}

// Resolve commits city, street and house in strict order. The first failing
// field aborts the rest; there is no partial result.
func (r *Resolver) Resolve(ctx context.Context, page Page, addr Address) error {
	for _, f := range formFields {
		if _, err := r.resolveField(ctx, page, f, addr.value(f.field)); err != nil {
			return err
		}
	}
	return nil
}

// suggestionList addresses the autocomplete list that belongs to the input
// with the given id. Every input owns its own list.
func suggestionList(inputID string) (list, firstItem string) {
	list = "#" + inputID + "autocomplete-list.autocomplete-items"
	return list, list + " > div"
}

func (r *Resolver) resolveField(ctx context.Context, page Page, f formField, value string) (string, error) {
	if err := page.WaitVisible(ctx, f.selector, r.FieldTimeout); err != nil {
		return "", &AddressFieldNotFoundError{Field: f.field, Err: err}
	}
	inputID, ok, err := page.Attribute(ctx, f.selector, "id")
	if err != nil {
		return "", &AddressFieldNotFoundError{Field: f.field, Err: err}
	}
	if !ok || inputID == "" {
		return "", &AddressFieldNotFoundError{Field: f.field, Err: errNoInputID}
	}
	list, firstItem := suggestionList(inputID)

	if err := page.Clear(ctx, f.selector); err != nil {
		return "", &AddressNotResolvedError{Field: f.field, Err: fmt.Errorf("clear input: %w", err)}
	}
	if err := page.Type(ctx, f.selector, value, r.KeyDelay); err != nil {
		return "", &AddressNotResolvedError{Field: f.field, Err: fmt.Errorf("type value: %w", err)}
	}
	if err := page.Sleep(ctx, r.ListSettle); err != nil {
		return "", err
	}

	if err := page.WaitVisible(ctx, list, r.ListTimeout); err != nil {
		return "", &AddressNotResolvedError{Field: f.field, Err: fmt.Errorf("suggestion list: %w", err)}
	}
	if err := page.WaitVisible(ctx, firstItem, r.ListTimeout); err != nil {
		return "", &AddressNotResolvedError{Field: f.field, Err: fmt.Errorf("first suggestion: %w", err)}
	}
	if err := page.Click(ctx, firstItem); err != nil {
		return "", &AddressNotResolvedError{Field: f.field, Err: fmt.Errorf("select suggestion: %w", err)}
	}
	if err := page.Sleep(ctx, r.SelectSettle); err != nil {
		return "", err
	}

	got, err := page.Value(ctx, f.selector)
	if err != nil {
		return "", &AddressNotResolvedError{Field: f.field, Err: fmt.Errorf("read value: %w", err)}
	}
	got = strings.TrimSpace(got)
	if utf8.RuneCountInString(got) < minResolvedLen {
		return "", &AddressNotResolvedError{Field: f.field, Err: fmt.Errorf("selected value %q too short", got)}
	}
	return got, nil
}

// ReadResolvedAddress reads the values the form currently holds. Unreadable
// inputs yield nil fields.
func ReadResolvedAddress(ctx context.Context, page Page) ResolvedAddress {
	read := func(sel string) string {
		v, err := page.Value(ctx, sel)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	city, street, house := read(citySelector), read(streetSelector), read(houseSelector)
	return ResolvedAddress{
		City:   optional(city),
		Street: optional(street),
		House:  optional(house),
		Text:   optional(joinNonEmpty(city, street, house)),
	}
}
