// Package engine contains the decision core: it turns restock events into
// per-channel delivery attempts and owns the retry lifecycle of each attempt.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/channel"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/models"
	"github.com/pritamp-cmyk/New-Inventory-management-system/internal/store"
)

type Dispatcher struct {
	subs    *store.Subscriptions
	logs    *store.DeliveryLogs
	prefs   *store.Preferences
	senders channel.Registry
	logger  *slog.Logger
}

func New(subs *store.Subscriptions, logs *store.DeliveryLogs, prefs *store.Preferences, senders channel.Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{subs: subs, logs: logs, prefs: prefs, senders: senders, logger: logger}
}

// OnRestock processes one 0 to positive stock transition for a product. Send
// failures are recorded on the delivery log and never returned; only store
// errors propagate to the caller.
func (d *Dispatcher) OnRestock(ctx context.Context, productID uint, newStock int) error {
	if newStock <= 0 {
		d.logger.Warn("ignoring restock with non-positive stock", "product_id", productID, "stock", newStock)
		return nil
	}
	subs, err := d.subs.ListActiveByProduct(ctx, productID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		d.logger.Info("no active subscribers for product", "product_id", productID)
		return nil
	}
	d.logger.Info("dispatching restock notifications", "product_id", productID, "subscribers", len(subs))
	for _, sub := range subs {
		if err := d.dispatchOne(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// dispatchOne runs a single dispatch pass for one subscription. The claim is
// one conditional UPDATE, so the row is never locked across channel I/O.
func (d *Dispatcher) dispatchOne(ctx context.Context, sub models.Subscription) error {
	claimed, err := d.subs.Claim(ctx, sub.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// Another restock signal already owns this dispatch pass.
		return nil
	}

	pref, err := d.prefs.Get(ctx, sub.UserID)
	if err != nil {
		if relErr := d.subs.Release(ctx, sub.ID); relErr != nil {
			d.logger.Error("failed to release claimed subscription", "subscription_id", sub.ID, "error", relErr)
		}
		return err
	}

	// An empty enabled set still fulfills the intent, with zero log entries.
	var (
		wg        sync.WaitGroup
		createErr error
		attempted int
	)
	for _, ch := range pref.EnabledChannels() {
		entry, err := d.logs.Create(ctx, sub, ch, models.RestockMessage)
		if err != nil {
			d.logger.Error("failed to create delivery log entry",
				"subscription_id", sub.ID, "channel", ch, "error", err)
			createErr = err
			continue
		}
		attempted++
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.attempt(ctx, entry)
		}()
	}
	wg.Wait()

	// Store errors are not send failures: if nothing was recorded, put the
	// claim back so a requeued event can run the pass again.
	if createErr != nil && attempted == 0 {
		if relErr := d.subs.Release(ctx, sub.ID); relErr != nil {
			d.logger.Error("failed to release claimed subscription", "subscription_id", sub.ID, "error", relErr)
		}
		return createErr
	}

	if err := d.subs.MarkFulfilled(ctx, sub.ID, time.Now().UTC()); err != nil {
		// A concurrent pass finishing first is success, not a conflict.
		if !errors.Is(err, models.ErrInvalidTransition) {
			return err
		}
	}
	// A partial pass keeps its recorded entries but still surfaces the miss.
	return createErr
}

// attempt performs one send and records the outcome on the entry. Failures of
// one channel never touch sibling channels.
func (d *Dispatcher) attempt(ctx context.Context, entry models.DeliveryLog) {
	sender, ok := d.senders.Sender(entry.Channel)
	var sendErr error
	if !ok {
		sendErr = fmt.Errorf("no sender registered for channel %s", entry.Channel)
	} else {
		sendErr = sender.Send(ctx, entry.UserID, entry.Message)
	}
	if sendErr != nil {
		d.logger.Error("delivery failed",
			"log_id", entry.ID, "user_id", entry.UserID, "channel", entry.Channel, "error", sendErr)
		if err := d.logs.MarkFailed(ctx, entry.ID, sendErr); err != nil {
			d.logger.Error("failed to record delivery failure", "log_id", entry.ID, "error", err)
		}
		return
	}
	if err := d.logs.MarkSent(ctx, entry.ID, time.Now().UTC()); err != nil {
		d.logger.Error("failed to record delivery success", "log_id", entry.ID, "error", err)
		return
	}
	d.logger.Info("delivery sent", "log_id", entry.ID, "user_id", entry.UserID, "channel", entry.Channel)
}

// Retry re-attempts a failed delivery. The claim bumps retry_count and moves
// the entry to RETRIED before the send runs, so concurrent retries of the
// same entry cannot both send. Returns the entry after the attempt.
func (d *Dispatcher) Retry(ctx context.Context, logID uint) (models.DeliveryLog, error) {
	entry, err := d.logs.ClaimRetry(ctx, logID)
	if err != nil {
		return models.DeliveryLog{}, err
	}
	d.logger.Info("retrying delivery", "log_id", entry.ID, "attempt", entry.RetryCount, "channel", entry.Channel)
	d.attempt(ctx, entry)
	return d.logs.Get(ctx, logID)
}
