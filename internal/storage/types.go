package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": watermark file + JSON Lines delivery log
//   - "sqlite": SQLite database file (optional build tag)
//
// For the file driver, Path is the watermark file itself; its entire content
// is the decimal watermark id. The delivery log lives next to it.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryRecord logs one delivered (or failed) notification.
// Keep it compact and schema-stable.
type DeliveryRecord struct {
	At         time.Time
	TweetID    uint64
	Author     string
	Categories []string
	Delivered  bool
	Error      string
}
