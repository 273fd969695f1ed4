package notifier

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"hackwatch/internal/storage"
	"hackwatch/internal/twitter"
	logx "hackwatch/pkg/logx"
)

// Sender delivers one already-formatted HTML message to the fixed
// destination chat. Implemented by internal/telegram.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type Config struct {
	// RatePerSec paces sends; Telegram allows roughly one message per second
	// per chat. Default 1.
	RatePerSec int
	RetryMax   int           // per-message transient retries; default 2
	RetryBase  time.Duration // default 500ms

	SendTimeout time.Duration // per-send bound; default 10s
}

// Service delivers cycle results to Telegram: one message per tweet,
// sequentially oldest-to-newest, plus a trailing summary. Sends are
// independent: one failure is logged and the batch continues.
type Service struct {
	cfg     Config
	sender  Sender
	store   storage.Store // may be nil; delivery history only
	log     logx.Logger
	limiter *rate.Limiter
}

func New(cfg Config, sender Sender, store storage.Store, log logx.Logger) *Service {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		sender: sender,
		store:  store,
		log:    log,
		// Burst 1 keeps sends strictly paced; the batch is sequential anyway.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
	}
}

// DeliverBatch sends one message per tweet in the given order and returns the
// number delivered. Callers pass tweets sorted ascending by id so chat order
// matches posting order.
func (s *Service) DeliverBatch(ctx context.Context, tweets []twitter.Tweet) int {
	sent := 0
	for _, t := range tweets {
		if err := ctx.Err(); err != nil {
			s.log.Warn("batch delivery interrupted",
				logx.Int("sent", sent),
				logx.Int("total", len(tweets)),
				logx.Err(err))
			return sent
		}
		err := s.send(ctx, Format(t))
		s.recordDelivery(t, err)
		if err != nil {
			s.log.Warn("tweet delivery failed; continuing batch",
				logx.Uint64("tweet_id", t.ID),
				logx.String("author", t.Author.Username),
				logx.Err(err))
			continue
		}
		sent++
	}
	s.log.Info("batch delivered", logx.Int("sent", sent), logx.Int("total", len(tweets)))
	return sent
}

// DeliverSummary sends the trailing per-cycle summary message.
func (s *Service) DeliverSummary(ctx context.Context, total int, counts []CategoryCount) error {
	return s.send(ctx, FormatSummary(total, counts))
}

// DeliverStartup sends the continuous-mode startup banner.
func (s *Service) DeliverStartup(ctx context.Context, interval time.Duration, categories []string) error {
	return s.send(ctx, FormatStartup(interval, categories))
}

// send paces one message through the rate limiter and retries transient
// failures a bounded number of times.
func (s *Service) send(ctx context.Context, text string) error {
	maxAttempts := 1 + s.cfg.RetryMax

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err := s.sender.Send(callCtx, text)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if permanentSend(err) || attempt >= maxAttempts {
			break
		}

		delay := s.cfg.RetryBase * (1 << (attempt - 1))
		s.log.Debug("send retry scheduled",
			logx.Int("attempt", attempt+1),
			logx.Duration("delay", delay),
			logx.Err(err))
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return ctx.Err()
		case <-t.C:
		}
	}
	return lastErr
}

// permanentSend reports a rejection retrying cannot fix: malformed HTML,
// unknown chat, bot blocked. Flood control (429) and server errors stay
// retryable.
func permanentSend(err error) bool {
	var te *tele.Error
	if errors.As(err, &te) {
		return te.Code >= 400 && te.Code < 500 && te.Code != http.StatusTooManyRequests
	}
	return false
}

// recordDelivery appends to the delivery history. Detached short context:
// history writes should neither block on nor be cancelled by the batch.
func (s *Service) recordDelivery(t twitter.Tweet, sendErr error) {
	if s.store == nil {
		return
	}
	rec := storage.DeliveryRecord{
		At:         time.Now(),
		TweetID:    t.ID,
		Author:     t.Author.Username,
		Categories: t.Categories,
		Delivered:  sendErr == nil,
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.AppendDelivery(ctx, rec); err != nil {
		s.log.Debug("delivery record append failed", logx.Err(err))
	}
}
