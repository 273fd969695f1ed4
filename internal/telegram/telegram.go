package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "hackwatch/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64

	// Offline skips the getMe token check. Tests only.
	Offline bool
}

// Adapter is a send-only Telegram client for one fixed chat. The bot never
// polls for updates; it exists purely as a notification sink.
type Adapter struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, bot: b, log: log}, nil
}

// Send delivers one HTML-formatted message to the configured chat.
//
// telebot doesn't thread a context through Send, so cancellation is
// checked up front and the call itself is bounded by the bot's HTTP client
// timeout.
func (a *Adapter) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	_, err := a.bot.Send(tele.ChatID(a.cfg.ChatID), text, &tele.SendOptions{
		ParseMode: tele.ModeHTML,
	})
	if err != nil {
		return err
	}
	a.log.Debug("message sent",
		logx.Int64("chat_id", a.cfg.ChatID),
		logx.Duration("took", time.Since(start)))
	return nil
}
