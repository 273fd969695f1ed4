package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"hackwatch/internal/storage"
	"hackwatch/internal/twitter"
	logx "hackwatch/pkg/logx"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	errs     []error // consumed per call; nil past the end
}

func (f *fakeSender) Send(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.messages)
	f.messages = append(f.messages, text)
	if call < len(f.errs) {
		return f.errs[call]
	}
	return nil
}

type memRecorder struct {
	mu   sync.Mutex
	recs []storage.DeliveryRecord
}

func (m *memRecorder) Watermark(ctx context.Context) (uint64, bool, error) { return 0, false, nil }
func (m *memRecorder) SetWatermark(ctx context.Context, id uint64) error   { return nil }
func (m *memRecorder) Close() error                                         { return nil }
func (m *memRecorder) AppendDelivery(ctx context.Context, rec storage.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

// fastConfig keeps pacing and retries out of test wall time.
func fastConfig() Config {
	return Config{RatePerSec: 1000, RetryMax: 0, RetryBase: time.Millisecond}
}

func batch() []twitter.Tweet {
	return []twitter.Tweet{
		{ID: 100, Text: "one", Author: twitter.Author{Username: "alice"}, Categories: []string{"hackathons"}},
		{ID: 101, Text: "two", Author: twitter.Author{Username: "bob"}, Categories: []string{"funding"}},
		{ID: 102, Text: "three", Author: twitter.Author{Username: "carol"}},
	}
}

func TestDeliverBatchSendsInOrder(t *testing.T) {
	fs := &fakeSender{}
	svc := New(fastConfig(), fs, nil, logx.Nop())

	sent := svc.DeliverBatch(context.Background(), batch())
	if sent != 3 {
		t.Fatalf("expected 3 sent, got %d", sent)
	}
	if len(fs.messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(fs.messages))
	}
	if !strings.Contains(fs.messages[0], "@alice") || !strings.Contains(fs.messages[2], "@carol") {
		t.Fatalf("messages out of order: %v", fs.messages)
	}
}

func TestDeliverBatchContinuesAfterFailure(t *testing.T) {
	fs := &fakeSender{errs: []error{nil, errors.New("telegram: 502")}}
	rec := &memRecorder{}
	svc := New(fastConfig(), fs, rec, logx.Nop())

	sent := svc.DeliverBatch(context.Background(), batch())
	if sent != 2 {
		t.Fatalf("one failure should not stop the batch; sent=%d", sent)
	}
	if len(fs.messages) != 3 {
		t.Fatalf("all 3 tweets should be attempted, got %d", len(fs.messages))
	}

	if len(rec.recs) != 3 {
		t.Fatalf("expected 3 delivery records, got %d", len(rec.recs))
	}
	if rec.recs[0].TweetID != 100 || !rec.recs[0].Delivered {
		t.Fatalf("unexpected first record: %+v", rec.recs[0])
	}
	if rec.recs[1].Delivered || rec.recs[1].Error == "" {
		t.Fatalf("failed send should record the error: %+v", rec.recs[1])
	}
}

func TestDeliverBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fs := &fakeSender{}
	svc := New(fastConfig(), fs, nil, logx.Nop())
	if sent := svc.DeliverBatch(ctx, batch()); sent != 0 {
		t.Fatalf("cancelled batch should send nothing, sent=%d", sent)
	}
	if len(fs.messages) != 0 {
		t.Fatalf("no sends expected after cancel, got %d", len(fs.messages))
	}
}

func TestSendRetriesTransientFailure(t *testing.T) {
	fs := &fakeSender{errs: []error{errors.New("timeout"), nil}}
	cfg := fastConfig()
	cfg.RetryMax = 2
	svc := New(cfg, fs, nil, logx.Nop())

	if err := svc.DeliverSummary(context.Background(), 0, nil); err != nil {
		t.Fatalf("retry should recover: %v", err)
	}
	if len(fs.messages) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fs.messages))
	}
}

func TestSendDoesNotRetryPermanentRejection(t *testing.T) {
	bad := &tele.Error{Code: 400, Description: "Bad Request: can't parse entities"}
	fs := &fakeSender{errs: []error{bad, nil}}
	cfg := fastConfig()
	cfg.RetryMax = 2
	svc := New(cfg, fs, nil, logx.Nop())

	err := svc.DeliverSummary(context.Background(), 0, nil)
	if !errors.Is(err, bad) {
		t.Fatalf("expected the rejection to surface, got %v", err)
	}
	if len(fs.messages) != 1 {
		t.Fatalf("Telegram rejections must not be retried, got %d attempts", len(fs.messages))
	}
}

func TestSendRetriesFloodControl(t *testing.T) {
	flood := &tele.Error{Code: 429, Description: "Too Many Requests: retry after 1"}
	fs := &fakeSender{errs: []error{flood, nil}}
	cfg := fastConfig()
	cfg.RetryMax = 2
	svc := New(cfg, fs, nil, logx.Nop())

	if err := svc.DeliverSummary(context.Background(), 0, nil); err != nil {
		t.Fatalf("flood control should be retried: %v", err)
	}
	if len(fs.messages) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fs.messages))
	}
}

func TestSendGivesUpAfterRetryBudget(t *testing.T) {
	boom := errors.New("boom")
	fs := &fakeSender{errs: []error{boom, boom, boom, boom}}
	cfg := fastConfig()
	cfg.RetryMax = 2
	svc := New(cfg, fs, nil, logx.Nop())

	err := svc.DeliverSummary(context.Background(), 0, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected final error, got %v", err)
	}
	if len(fs.messages) != 3 {
		t.Fatalf("expected 1+2 attempts, got %d", len(fs.messages))
	}
}
