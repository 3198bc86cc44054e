package service

import (
	"context"
	"time"

	"github.com/clearledger/claimflow/internal/application/port"
)

const dispatchBatchSize = 50

// NotificationDispatcher drains the notification outbox. Delivery failures
// are recorded on the row and never retried within the same batch; a claim
// transition is already committed by the time its notification is picked up.
type NotificationDispatcher struct {
	outbox   port.NotificationRepository
	notifier port.Notifier
	logger   Logger
	interval time.Duration
	now      func() time.Time
}

// NewNotificationDispatcher creates a new dispatcher
func NewNotificationDispatcher(
	outbox port.NotificationRepository,
	notifier port.Notifier,
	logger Logger,
	interval time.Duration,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		outbox:   outbox,
		notifier: notifier,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// DispatchPending sends one batch of pending notifications and returns how
// many were delivered.
func (d *NotificationDispatcher) DispatchPending(ctx context.Context) (int, error) {
	pending, err := d.outbox.ListPending(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range pending {
		if err := d.notifier.Send(ctx, n); err != nil {
			d.logger.Error("Failed to deliver notification",
				"notification_id", n.ID, "claim_id", n.ClaimID, "error", err)
			if markErr := d.outbox.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				d.logger.Error("Failed to mark notification failed",
					"notification_id", n.ID, "error", markErr)
			}
			continue
		}

		if err := d.outbox.MarkSent(ctx, n.ID, d.now()); err != nil {
			d.logger.Error("Failed to mark notification sent",
				"notification_id", n.ID, "error", err)
			continue
		}
		sent++
	}

	return sent, nil
}

// Run dispatches on the configured interval until the context is cancelled
func (d *NotificationDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sent, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("Notification dispatch failed", "error", err)
			} else if sent > 0 {
				d.logger.Info("Notifications dispatched", "count", sent)
			}
		}
	}
}
