package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	logx "hackwatch/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <path>                   (watermark; decimal id as the whole content)
//   - <prefix>.deliveries.jsonl (append-only JSON Lines delivery log)
//
// The watermark is written atomically (tmp + rename) so a crash mid-write
// never leaves a corrupt file.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	watermarkPath string
	deliveryFile  *os.File
}

type deliveryLine struct {
	At         string   `json:"at"`
	TweetID    uint64   `json:"tweet_id"`
	Author     string   `json:"author,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Delivered  bool     `json:"delivered"`
	Error      string   `json:"error,omitempty"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	df, err := os.OpenFile(prefix+".deliveries.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:           log,
		watermarkPath: path,
		deliveryFile:  df,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveryFile != nil {
		err := s.deliveryFile.Close()
		s.deliveryFile = nil
		return err
	}
	return nil
}

func (s *fileStore) Watermark(ctx context.Context) (uint64, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.watermarkPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	raw := strings.TrimSpace(string(b))
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		// A corrupt watermark is treated as absent rather than fatal; the
		// worst case is duplicate delivery, which at-least-once allows.
		s.log.Warn("watermark file corrupt; treating as absent",
			logx.String("path", s.watermarkPath),
			logx.String("content", raw))
		return 0, false, nil
	}
	return id, true, nil
}

func (s *fileStore) SetWatermark(ctx context.Context, id uint64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.watermarkPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(id, 10)), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.watermarkPath)
}

func (s *fileStore) AppendDelivery(ctx context.Context, rec DeliveryRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveryFile == nil {
		return errors.New("delivery log closed")
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	line := deliveryLine{
		At:         rec.At.Format(time.RFC3339Nano),
		TweetID:    rec.TweetID,
		Author:     rec.Author,
		Categories: rec.Categories,
		Delivered:  rec.Delivered,
		Error:      rec.Error,
	}
	return json.NewEncoder(s.deliveryFile).Encode(line)
}
