package dtek

import (
	"context"
	"log"
	"time"
)

const (
	modalCloseSelector = "[data-micromodal-close]"
	modalWaitTimeout   = 5 * time.Second
	modalCloseSettle   = 200 * time.Millisecond

	removeOverlayScript = `(() => {
	const overlay = document.querySelector(".modal__overlay");
	if (overlay) overlay.remove();
	document.body.style.overflow = "auto";
	return true;
})()`
)

// DismissModal makes sure no blocking overlay covers the form. It first tries
// the close control, then always strips the overlay and restores scrolling.
// A page without a modal is the normal case; nothing here is an error.
func DismissModal(ctx context.Context, page Page) {
	if err := page.WaitVisible(ctx, modalCloseSelector, modalWaitTimeout); err == nil {
		if err := page.Click(ctx, modalCloseSelector); err != nil {
			log.Printf("[dtek] modal close click failed: %v", err)
		} else {
			_ = page.Sleep(ctx, modalCloseSettle)
		}
	}

	if err := page.Evaluate(ctx, removeOverlayScript); err != nil {
		log.Printf("[dtek] overlay removal failed: %v", err)
	}
}
