package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tele "gopkg.in/telebot.v3"

	"no-lights-dtek/internal/mq"
)

// TelegramNotifier delivers rendered status messages straight to the
// subscriber's chat. It implements checker.Notifier.
type TelegramNotifier struct {
	bot *tele.Bot
}

func NewNotifier(b *tele.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: b}
}

// Notify sends text to the chat identified by subscriberID.
func (n *TelegramNotifier) Notify(_ context.Context, subscriberID int64, text string) error {
	chat := &tele.Chat{ID: subscriberID}
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, DisableNotification: IsQuietHour()}
	if _, err := n.bot.Send(chat, text, opts); err != nil {
		return sendError(subscriberID, err)
	}
	return nil
}

// ErrChatGone marks chats Telegram will never deliver to again.
var ErrChatGone = errors.New("chat gone")

func sendError(chatID int64, err error) error {
	if isGoneError(err) {
		return fmt.Errorf("chat %d: %w: %w", chatID, ErrChatGone, err)
	}
	return fmt.Errorf("send to chat %d: %w", chatID, err)
}

// HandleStatusChange is the mq.Handler for the status change queue.
func (n *TelegramNotifier) HandleStatusChange(ctx context.Context, body []byte) error {
	msg, err := mq.DecodeStatusChange(body)
	if err != nil {
		return err
	}
	if err := n.Notify(ctx, msg.SubscriberID, msg.Text); err != nil {
		if errors.Is(err, ErrChatGone) {
			log.Printf("[bot] dropped status change for %d: %v", msg.SubscriberID, err)
			return nil
		}
		return err
	}
	log.Printf("[bot] delivered status change to %d (queued %s)", msg.SubscriberID, msg.When.Format("15:04:05"))
	return nil
}

// isGoneError reports whether Telegram will never deliver to this chat again.
func isGoneError(err error) bool {
	return errors.Is(err, tele.ErrChatNotFound) ||
		errors.Is(err, tele.ErrBlockedByUser) ||
		errors.Is(err, tele.ErrUserIsDeactivated) ||
		errors.Is(err, tele.ErrKickedFromGroup) ||
		errors.Is(err, tele.ErrKickedFromSuperGroup)
}

var kyiv = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}()

// IsQuietHour reports whether it is night in Kyiv (23:00-07:00), when
// messages go out without sound.
func IsQuietHour() bool {
	return isQuietAt(time.Now())
}

func isQuietAt(t time.Time) bool {
	h := t.In(kyiv).Hour()
	return h >= 23 || h < 7
}
