package dtek

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type pick struct {
	input string
	value string
}

// fakePage simulates the provider form: an element is "visible" when its
// selector is in visible, and clicking a suggestion writes its value into
// the owning input.
type fakePage struct {
	visible map[string]bool
	ids     map[string]string
	picks   map[string]pick
	values  map[string]string
	typed   map[string]string
	html    string

	navErr  error
	evalErr error

	calls  []string
	closed int
}

func newFakePage() *fakePage {
	return &fakePage{
		visible: map[string]bool{},
		ids:     map[string]string{},
		picks:   map[string]pick{},
		values:  map[string]string{},
		typed:   map[string]string{},
	}
}

// newFormPage returns a page whose three inputs resolve to the given values.
func newFormPage(city, street, house string) *fakePage {
	p := newFakePage()
	p.addField(citySelector, "city", city)
	p.addField(streetSelector, "street", street)
	p.addField(houseSelector, "house_num", house)
	p.visible[statusSelector] = true
	p.visible[activeDayRowSelector] = true
	return p
}

func (p *fakePage) addField(sel, id, resolved string) {
	p.visible[sel] = true
	p.ids[sel] = id
	list, item := suggestionList(id)
	p.visible[list] = true
	p.visible[item] = true
	p.picks[item] = pick{input: sel, value: resolved}
}

func (p *fakePage) record(op, sel string) {
	p.calls = append(p.calls, op+" "+sel)
}

func (p *fakePage) touched(sel string) bool {
	for _, c := range p.calls {
		if strings.HasSuffix(c, " "+sel) {
			return true
		}
	}
	return false
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.record("navigate", url)
	return p.navErr
}

func (p *fakePage) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	p.record("wait", sel)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.visible[sel] {
		return fmt.Errorf("waiting for %s: %w", sel, context.DeadlineExceeded)
	}
	return nil
}

func (p *fakePage) WaitAttached(ctx context.Context, sel string, timeout time.Duration) error {
	p.record("attached", sel)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.visible[sel] {
		return fmt.Errorf("waiting for %s: %w", sel, context.DeadlineExceeded)
	}
	return nil
}

func (p *fakePage) Attribute(ctx context.Context, sel, name string) (string, bool, error) {
	p.record("attr", sel)
	if name != "id" {
		return "", false, nil
	}
	id, ok := p.ids[sel]
	return id, ok, nil
}

func (p *fakePage) Value(ctx context.Context, sel string) (string, error) {
	p.record("value", sel)
	return p.values[sel], nil
}

func (p *fakePage) Clear(ctx context.Context, sel string) error {
	p.record("clear", sel)
	p.values[sel] = ""
	return nil
}

func (p *fakePage) Type(ctx context.Context, sel, text string, delay time.Duration) error {
	p.record("type", sel)
	// Keys land after whatever the input already holds.
	p.values[sel] += text
	p.typed[sel] = p.values[sel]
	return nil
}

func (p *fakePage) Click(ctx context.Context, sel string) error {
	p.record("click", sel)
	if pk, ok := p.picks[sel]; ok {
		p.values[pk.input] = pk.value
	}
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string) error {
	p.record("eval", "script")
	return p.evalErr
}

func (p *fakePage) OuterHTML(ctx context.Context, sel string) (string, error) {
	p.record("outer", sel)
	return p.html, nil
}

func (p *fakePage) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func (p *fakePage) Close() error {
	p.closed++
	return nil
}

type fakeBrowser struct {
	page   *fakePage
	err    error
	opened int
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.opened++
	return b.page, nil
}
