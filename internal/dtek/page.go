package dtek

import (
	"context"
	"time"
)

// Page is a live, rendered provider page. Selectors are CSS selectors;
// operations that target an element act on the first match.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until sel is visible or timeout elapses.
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	// WaitAttached blocks until sel is present in the DOM or timeout elapses.
	WaitAttached(ctx context.Context, sel string, timeout time.Duration) error
	Attribute(ctx context.Context, sel, name string) (string, bool, error)
	// Value reads the current value property of an input.
	Value(ctx context.Context, sel string) (string, error)
	Clear(ctx context.Context, sel string) error
	// Type sends text one character at a time, pausing delay between keys.
	Type(ctx context.Context, sel, text string, delay time.Duration) error
	Click(ctx context.Context, sel string) error
	Evaluate(ctx context.Context, script string) error
	OuterHTML(ctx context.Context, sel string) (string, error)
	Sleep(ctx context.Context, d time.Duration) error
	Close() error
}

// Browser hands out pages. Every page must be closed by its receiver.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
}
