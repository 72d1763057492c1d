package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	tele "gopkg.in/telebot.v3"

	"no-lights-dtek/internal/dtek"
	"no-lights-dtek/internal/tracker"
)

// Subscribers is the part of registry.Registry the bot uses.
type Subscribers interface {
	Register(ctx context.Context, id int64, addr dtek.Address, now time.Time) (tracker.SubscriberState, error)
	Get(ctx context.Context, id int64) (*tracker.SubscriberState, error)
}

// StatusSource runs an on-demand check. Implemented by APIClient.
type StatusSource interface {
	Status(ctx context.Context, addr dtek.Address) (*dtek.ScrapeResult, error)
}

// Bot wraps the Telegram bot and its address conversation.
type Bot struct {
	bot       *tele.Bot
	subs      Subscribers
	status    StatusSource
	clock     clockwork.Clock
	viewerURL string

	// chats waiting for an address after a bare /address
	awaiting map[int64]bool
	mu       sync.Mutex
}

var htmlOpts = &tele.SendOptions{ParseMode: tele.ModeHTML}

var mainMenu = &tele.ReplyMarkup{
	ResizeKeyboard: true,
	ReplyKeyboard: [][]tele.ReplyButton{
		{{Text: menuBtnAddress}, {Text: menuBtnStatus}},
	},
}

// New creates and configures the Telegram bot.
func New(token string, subs Subscribers, status StatusSource, viewerURL string) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	bot := newBot(subs, status, viewerURL)
	bot.bot = b
	bot.registerHandlers()

	if err := b.SetCommands([]tele.Command{
		{Text: "address", Description: "Вказати адресу"},
		{Text: "status", Description: "Перевірити стан зараз"},
		{Text: "help", Description: "Довідка про команди"},
	}); err != nil {
		log.Printf("[bot] failed to set commands: %v", err)
	}

	return bot, nil
}

func newBot(subs Subscribers, status StatusSource, viewerURL string) *Bot {
	return &Bot{
		subs:      subs,
		status:    status,
		clock:     clockwork.NewRealClock(),
		viewerURL: viewerURL,
		awaiting:  make(map[int64]bool),
	}
}

// Start begins polling for Telegram updates. Call as a goroutine.
func (b *Bot) Start() {
	log.Println("[bot] starting Telegram bot polling...")
	b.bot.Start()
}

// Stop gracefully stops the bot.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// TeleBot returns the underlying telebot instance (used by the notifier).
func (b *Bot) TeleBot() *tele.Bot {
	return b.bot
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle("/address", b.handleAddress)
	b.bot.Handle("/status", b.handleStatus)
	b.bot.Handle("/cancel", b.handleCancel)

	b.bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) setAwaiting(chatID int64, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.awaiting[chatID] = true
	} else {
		delete(b.awaiting, chatID)
	}
}

func (b *Bot) isAwaiting(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaiting[chatID]
}

// ── Text handler (router) ────────────────────────────────────────────

func (b *Bot) handleText(c tele.Context) error {
	switch c.Text() {
	case menuBtnAddress:
		return b.handleAddress(c)
	case menuBtnStatus:
		return b.handleStatus(c)
	}
	if b.isAwaiting(c.Chat().ID) {
		return b.saveAddress(c, c.Text())
	}
	return nil
}
