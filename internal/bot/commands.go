package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	tele "gopkg.in/telebot.v3"

	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/registry"
	"no-lights-dtek/internal/tracker"
)

var errAddressFormat = errors.New("address must be <city>, <street>, <house>")

// parseAddress splits "city, street, house". Commas inside the street name are
// not supported; the house is always the last part.
func parseAddress(text string) (dtek.Address, error) {
	parts := strings.Split(text, ",")
	if len(parts) < 3 {
		return dtek.Address{}, errAddressFormat
	}
	addr := dtek.Address{
		City:   parts[0],
		Street: strings.Join(parts[1:len(parts)-1], ","),
		House:  parts[len(parts)-1],
	}.Trimmed()
	if addr.City == "" || addr.Street == "" || addr.House == "" {
		return dtek.Address{}, errAddressFormat
	}
	return addr, nil
}

// ── Simple commands ──────────────────────────────────────────────────

func (b *Bot) handleStart(c tele.Context) error {
	log.Printf("[bot] /start from user %d (@%s)", c.Sender().ID, c.Sender().Username)
	return c.Send(msgStart, tele.ModeHTML, mainMenu)
}

func (b *Bot) handleHelp(c tele.Context) error {
	log.Printf("[bot] /help from user %d (@%s)", c.Sender().ID, c.Sender().Username)
	return c.Send(msgHelp, htmlOpts)
}

func (b *Bot) handleCancel(c tele.Context) error {
	log.Printf("[bot] /cancel from user %d (@%s)", c.Sender().ID, c.Sender().Username)
	b.setAwaiting(c.Chat().ID, false)
	return c.Send(msgCancelled, mainMenu)
}

// ── /address ─────────────────────────────────────────────────────────

func (b *Bot) handleAddress(c tele.Context) error {
	log.Printf("[bot] /address from user %d (@%s)", c.Sender().ID, c.Sender().Username)
	if args := strings.TrimSpace(c.Message().Payload); args != "" {
		return b.saveAddress(c, args)
	}
	b.setAwaiting(c.Chat().ID, true)
	return c.Send(msgAddressPrompt, htmlOpts)
}

func (b *Bot) saveAddress(c tele.Context, text string) error {
	addr, err := parseAddress(text)
	if err != nil {
		return c.Send(msgAddressInvalid, htmlOpts)
	}
	b.setAwaiting(c.Chat().ID, false)

	ctx := context.Background()
	chatID := c.Chat().ID
	prev, err := b.subs.Get(ctx, chatID)
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		log.Printf("[bot] get subscriber %d: %v", chatID, err)
		return c.Send(msgError)
	}
	if prev != nil && prev.Address == addr {
		return c.Send(fmt.Sprintf(msgAddressUnchanged, html.EscapeString(addr.String())), htmlOpts)
	}

	if _, err := b.subs.Register(ctx, chatID, addr, b.clock.Now()); err != nil {
		log.Printf("[bot] register subscriber %d: %v", chatID, err)
		return c.Send(msgError)
	}
	return c.Send(fmt.Sprintf(msgAddressSaved, html.EscapeString(addr.String())), tele.ModeHTML, mainMenu)
}

// ── /status ──────────────────────────────────────────────────────────

func (b *Bot) handleStatus(c tele.Context) error {
	log.Printf("[bot] /status from user %d (@%s)", c.Sender().ID, c.Sender().Username)
	ctx := context.Background()
	chatID := c.Chat().ID

	state, err := b.subs.Get(ctx, chatID)
	if errors.Is(err, registry.ErrNotFound) {
		return c.Send(msgNoAddress)
	}
	if err != nil {
		log.Printf("[bot] get subscriber %d: %v", chatID, err)
		return c.Send(msgError)
	}

	if err := c.Send(msgChecking); err != nil {
		log.Printf("[bot] send to %d: %v", chatID, err)
	}

	res, err := b.status.Status(ctx, state.Address)
	switch {
	case errors.Is(err, ErrAddressRejected):
		return c.Send(fmt.Sprintf(msgCheckNotFound, html.EscapeString(state.Address.String())), htmlOpts)
	case errors.Is(err, ErrUnavailable):
		return c.Send(msgCheckBusy)
	case err != nil:
		log.Printf("[bot] status for %d: %v", chatID, err)
		return c.Send(fmt.Sprintf(msgCheckFailed, html.EscapeString(err.Error())), htmlOpts)
	}

	return c.Send(tracker.Format(res, *state, b.clock.Now(), b.viewerURL), htmlOpts)
}
