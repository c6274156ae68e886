// Package inventory feeds stock-change events from the inventory
// collaborator's queue into the dispatcher.
package inventory

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue is the durable queue the inventory service publishes stock changes to.
const Queue = "stock-events"

// StockEvent is the payload published on every stock change.
type StockEvent struct {
	ProductID     uint `json:"product_id"`
	PreviousStock int  `json:"previous_stock"`
	NewStock      int  `json:"new_stock"`
}

// Restocked reports whether the event is a zero to positive transition.
// Increases while already in stock do not re-fire notifications.
func (e StockEvent) Restocked() bool {
	return e.PreviousStock == 0 && e.NewStock > 0
}

// RestockHandler receives edge-triggered restock events.
type RestockHandler interface {
	OnRestock(ctx context.Context, productID uint, newStock int) error
}

// Consumer drains the stock-events queue.
type Consumer struct {
	ch       *amqp.Channel
	dispatch RestockHandler
	logger   *slog.Logger
}

func NewConsumer(conn *amqp.Connection, dispatch RestockHandler, logger *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(Queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, dispatch: dispatch, logger: logger}, nil
}

// Run consumes until the context is cancelled or the channel closes. Each
// delivery is handled on its own goroutine.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.Consume(Queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	c.logger.Info("stock event consumer started", "queue", Queue)
	for {
		select {
		case <-ctx.Done():
			return c.ch.Close()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			go c.Handle(ctx, d)
		}
	}
}

// Handle processes one delivery. Malformed payloads are discarded; dispatch
// store errors requeue the event for another attempt.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	var ev StockEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		c.logger.Error("discarding malformed stock event", "error", err)
		d.Nack(false, false)
		return
	}
	if !ev.Restocked() {
		d.Ack(false)
		return
	}
	if err := c.dispatch.OnRestock(ctx, ev.ProductID, ev.NewStock); err != nil {
		c.logger.Error("restock dispatch failed, requeueing", "product_id", ev.ProductID, "error", err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}
