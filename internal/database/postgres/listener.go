package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// CatalogListener turns NOTIFY catalog_changed into reload signals.
type CatalogListener struct {
	url string
}

var _ database.CatalogWatcher = (*CatalogListener)(nil)

func NewCatalogListener(url string) *CatalogListener {
	return &CatalogListener{url: url}
}

// WatchCatalogs listens on its own connection. Bursts of notifications are
// coalesced into one pending signal. A reconnect also signals, since
// notifications may have been missed while disconnected.
func (l *CatalogListener) WatchCatalogs(ctx context.Context) (<-chan struct{}, error) {
	listener := pq.NewListener(l.url, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("catalog listener connection problem", "event", ev, "error", err)
			}
		})
	if err := listener.Listen(database.CatalogChangedChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen %s: %w", database.CatalogChangedChannel, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer listener.Close()

		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n := <-listener.Notify:
				if n != nil {
					logger.Debug("catalog changed", "table", n.Extra)
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case <-ticker.C:
				if err := listener.Ping(); err != nil {
					logger.Debug("catalog listener ping failed", "error", err)
				}
			}
		}
	}()
	return out, nil
}
