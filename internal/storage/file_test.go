package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logx "hackwatch/pkg/logx"
)

func newFileStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "last_tweet_id.txt")
	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestFileWatermarkAbsent(t *testing.T) {
	s, _ := newFileStore(t)
	id, ok, err := s.Watermark(context.Background())
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if ok || id != 0 {
		t.Fatalf("expected absent watermark, got id=%d ok=%v", id, ok)
	}
}

func TestFileWatermarkRoundTrip(t *testing.T) {
	s, path := newFileStore(t)
	ctx := context.Background()

	if err := s.SetWatermark(ctx, 1234567890123456789); err != nil {
		t.Fatalf("SetWatermark: %v", err)
	}
	id, ok, err := s.Watermark(ctx)
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if !ok || id != 1234567890123456789 {
		t.Fatalf("expected 1234567890123456789, got id=%d ok=%v", id, ok)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.TrimSpace(string(b)); got != "1234567890123456789" {
		t.Fatalf("watermark file should hold the decimal id, got %q", got)
	}
}

func TestFileWatermarkCorruptTreatedAsAbsent(t *testing.T) {
	s, path := newFileStore(t)
	if err := os.WriteFile(path, []byte("not a number\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	id, ok, err := s.Watermark(context.Background())
	if err != nil {
		t.Fatalf("corrupt watermark should not be fatal: %v", err)
	}
	if ok || id != 0 {
		t.Fatalf("corrupt watermark should read as absent, got id=%d ok=%v", id, ok)
	}
}

func TestFileAppendDelivery(t *testing.T) {
	s, path := newFileStore(t)
	ctx := context.Background()

	recs := []DeliveryRecord{
		{TweetID: 100, Author: "alice", Categories: []string{"hackathons"}, Delivered: true},
		{TweetID: 101, Author: "bob", Delivered: false, Error: "telegram: 502"},
	}
	for _, r := range recs {
		if err := s.AppendDelivery(ctx, r); err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}

	logPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".deliveries.jsonl"
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), string(b))
	}
	if !strings.Contains(lines[0], `"tweet_id":100`) || !strings.Contains(lines[0], `"delivered":true`) {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"error":"telegram: 502"`) {
		t.Fatalf("unexpected second line: %s", lines[1])
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "bolt", Path: "x"}, logx.Nop())
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
