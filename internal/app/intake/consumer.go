// Package intake consumes order-intake and kitchen-status messages from the
// floor queue and turns them into store mutations. It is the broker-side
// counterpart of the HTTP intake boundary.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"waiterboard/internal/assignment"
	"waiterboard/internal/common/logger"
	"waiterboard/internal/common/mq"
	"waiterboard/internal/domain"
	"waiterboard/internal/metrics"
	"waiterboard/internal/store"
)

var (
	errRequeue = errors.New("requeue")     // nack(requeue=true)
	errDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

// OrderCreatedMsg arrives on mq.KeyOrderCreated.
type OrderCreatedMsg struct {
	Type    string  `json:"type"`
	TableID *string `json:"table_id,omitempty"`
	Total   float64 `json:"total"`
}

// KitchenStatusMsg arrives on mq.KeyKitchenStatus.
type KitchenStatusMsg struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by,omitempty"`
}

// StatusPublisher fans out status changes; satisfied by *mq.Client.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, u mq.StatusUpdate) error
}

type Consumer struct {
	log      *logger.Logger
	orders   *store.Store
	engine   *assignment.Engine
	client   *mq.Client
	notify   StatusPublisher
	name     string
	prefetch int
}

func New(log *logger.Logger, orders *store.Store, engine *assignment.Engine, client *mq.Client, name string, prefetch int) *Consumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Consumer{log: log, orders: orders, engine: engine, client: client, notify: client, name: name, prefetch: prefetch}
}

// Run consumes until ctx is cancelled. Malformed messages go to the DLQ;
// transient failures are requeued.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.client.Consume(mq.FloorQueue, c.name, c.prefetch)
	if err != nil {
		return err
	}
	c.log.Info("consumer_started", map[string]any{"queue": mq.FloorQueue, "prefetch": c.prefetch})

	for {
		select {
		case <-ctx.Done():
			c.log.Info("consumer_stopped", nil)
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			switch err := c.processOne(ctx, d); {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errDLQ):
				_ = d.Nack(false, false)
			default:
				_ = d.Nack(false, true)
			}
		}
	}
}

func (c *Consumer) processOne(ctx context.Context, d amqp.Delivery) error {
	switch d.RoutingKey {
	case mq.KeyOrderCreated:
		return c.handleOrderCreated(d.Body)
	case mq.KeyKitchenStatus:
		return c.handleKitchenStatus(ctx, d.Body)
	default:
		c.log.Warn("unknown_routing_key", map[string]any{"key": d.RoutingKey})
		return errDLQ
	}
}

func (c *Consumer) handleOrderCreated(body []byte) error {
	var msg OrderCreatedMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return errDLQ
	}
	o, err := c.orders.Create(domain.OrderType(msg.Type), msg.TableID, msg.Total, time.Now().UTC())
	if err != nil {
		// Invalid intake payloads never become valid on retry.
		c.log.Error("order_create_rejected", err, map[string]any{"type": msg.Type})
		return errDLQ
	}
	metrics.OrdersCreatedTotal.Inc()
	c.log.Info("order_created", map[string]any{"order_id": o.ID, "type": o.Type, "total": o.Total})
	return nil
}

func (c *Consumer) handleKitchenStatus(ctx context.Context, body []byte) error {
	var msg KitchenStatusMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return errDLQ
	}
	if msg.OrderID == "" {
		return errDLQ
	}
	prev, err := c.orders.Get(msg.OrderID)
	if err != nil {
		// The create message may still be in flight behind us.
		return errRequeue
	}
	o, err := c.engine.AdvanceStatus(msg.OrderID, domain.OrderStatus(msg.Status))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidState):
		// Stale or duplicate progression; dropping it is the idempotent choice.
		c.log.Debug("stale_kitchen_status", map[string]any{"order_id": msg.OrderID, "status": msg.Status})
		return nil
	case errors.Is(err, domain.ErrInvalidArgument):
		return errDLQ
	default:
		return errRequeue
	}

	if o.Status != prev.Status {
		if err := c.notify.PublishStatus(ctx, mq.StatusUpdate{
			OrderID: o.ID, OldStatus: string(prev.Status), NewStatus: string(o.Status),
			ChangedBy: msg.ChangedBy, Timestamp: time.Now().UTC(),
		}); err != nil {
			c.log.Error("notify_publish_failed", err, map[string]any{"order_id": o.ID})
		}
	}
	return nil
}
