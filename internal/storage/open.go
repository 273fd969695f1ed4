package storage

import (
	"context"
	"errors"
	"strings"

	logx "hackwatch/pkg/logx"
)

// Store persists the delivery watermark and the delivery history.
//
// The watermark is the highest tweet id processed in any prior cycle; its
// absence (ok=false) is a valid initial state meaning "no floor".
type Store interface {
	Watermark(ctx context.Context) (id uint64, ok bool, err error)
	SetWatermark(ctx context.Context, id uint64) error
	AppendDelivery(ctx context.Context, rec DeliveryRecord) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
