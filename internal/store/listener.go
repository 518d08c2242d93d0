// internal/store/listener.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ChangeListener subscribes to a postgres NOTIFY channel and invokes a reload
// callback when tables change outside this process, e.g. bulk imports or
// edits made from the database console. Bursts of notifications are
// coalesced into one call per debounce window.
type ChangeListener struct {
	dsn      string
	channel  string
	debounce time.Duration
	logger   *logrus.Logger
	reload   func(ctx context.Context) error
}

func NewChangeListener(dsn, channel string, debounce time.Duration, logger *logrus.Logger, reload func(ctx context.Context) error) *ChangeListener {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &ChangeListener{
		dsn:      dsn,
		channel:  channel,
		debounce: debounce,
		logger:   logger,
		reload:   reload,
	}
}

// Run blocks until ctx is cancelled.
func (l *ChangeListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, 10*time.Second, time.Minute, l.onEvent)
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.logger.WithField("channel", l.channel).Info("Listening for inventory changes")

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case n := <-listener.Notify:
			// A nil notification means the connection was re-established and
			// events may have been missed.
			table := ""
			if n != nil {
				table = n.Extra
			}
			l.logger.WithField("table", table).Debug("Inventory change notification")
			if timer == nil {
				timer = time.NewTimer(l.debounce)
				pending = timer.C
			}

		case <-pending:
			timer, pending = nil, nil
			if err := l.reload(ctx); err != nil {
				l.logger.WithError(err).Warn("Failed to reload after change notification")
			}

		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}

func (l *ChangeListener) onEvent(ev pq.ListenerEventType, err error) {
	if err == nil {
		return
	}
	fields := logrus.Fields{"channel": l.channel, "event": ev}
	l.logger.WithFields(fields).WithError(err).Warn("Change listener connection event")
}
