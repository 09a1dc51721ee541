package realtime

import (
	"context"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const listenerPingInterval = 90 * time.Second

// NotificationHandler receives a NOTIFY payload. An empty payload signals that
// the connection was re-established and notifications may have been missed.
type NotificationHandler func(payload string)

// Listener relays PostgreSQL LISTEN/NOTIFY messages on one channel.
type Listener struct {
	dsn         string
	channel     string
	minInterval time.Duration
	maxInterval time.Duration
	logger      *zap.Logger
}

// NewListener configures a listener; Run opens the connection.
func NewListener(dsn, channel string, minReconnect, maxReconnect time.Duration, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		dsn:         dsn,
		channel:     channel,
		minInterval: minReconnect,
		maxInterval: maxReconnect,
		logger:      logger,
	}
}

// Run listens until ctx is cancelled, invoking handle for each notification.
func (l *Listener) Run(ctx context.Context, handle NotificationHandler) error {
	pl := pq.NewListener(l.dsn, l.minInterval, l.maxInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("realtime listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	defer pl.Close() //nolint:errcheck

	if err := pl.Listen(l.channel); err != nil {
		return err
	}
	l.logger.Info("realtime listener started", zap.String("channel", l.channel))

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pl.Notify:
			if n == nil {
				handle("")
				continue
			}
			handle(n.Extra)
		case <-time.After(listenerPingInterval):
			if err := pl.Ping(); err != nil {
				l.logger.Warn("realtime listener ping failed", zap.Error(err))
			}
		}
	}
}
