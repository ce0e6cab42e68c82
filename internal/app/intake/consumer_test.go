package intake

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"waiterboard/internal/assignment"
	"waiterboard/internal/common/logger"
	"waiterboard/internal/common/mq"
	"waiterboard/internal/domain"
	"waiterboard/internal/store"
)

type capturePublisher struct{ updates []mq.StatusUpdate }

func (p *capturePublisher) PublishStatus(_ context.Context, u mq.StatusUpdate) error {
	p.updates = append(p.updates, u)
	return nil
}

func newConsumer(t *testing.T) (*Consumer, *store.Store, *capturePublisher) {
	t.Helper()
	orders := store.New()
	pub := &capturePublisher{}
	c := New(logger.New("intake-test"), orders, assignment.New(orders), nil, "test", 1)
	c.notify = pub
	return c, orders, pub
}

func delivery(t *testing.T, key string, v any) amqp.Delivery {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return amqp.Delivery{RoutingKey: key, Body: b}
}

func TestHandleOrderCreated(t *testing.T) {
	c, orders, _ := newConsumer(t)

	d := delivery(t, mq.KeyOrderCreated, OrderCreatedMsg{Type: "takeout", Total: 18})
	if err := c.processOne(context.Background(), d); err != nil {
		t.Fatalf("process: %v", err)
	}
	snap := orders.Snapshot(nil)
	if len(snap) != 1 || snap[0].Status != domain.StatusPending || snap[0].Total != 18 {
		t.Fatalf("order not created: %+v", snap)
	}
}

func TestMalformedMessagesGoToDLQ(t *testing.T) {
	c, _, _ := newConsumer(t)

	cases := []amqp.Delivery{
		{RoutingKey: mq.KeyOrderCreated, Body: []byte("not json")},
		{RoutingKey: mq.KeyKitchenStatus, Body: []byte("not json")},
		{RoutingKey: "floor.unknown", Body: []byte("{}")},
	}
	for _, d := range cases {
		if err := c.processOne(context.Background(), d); !errors.Is(err, errDLQ) {
			t.Fatalf("key %s: want errDLQ, got %v", d.RoutingKey, err)
		}
	}

	// Structurally valid but business-invalid intake never retries.
	d := delivery(t, mq.KeyOrderCreated, OrderCreatedMsg{Type: "drive-thru", Total: 5})
	if err := c.processOne(context.Background(), d); !errors.Is(err, errDLQ) {
		t.Fatalf("invalid order type: want errDLQ, got %v", err)
	}
}

func TestKitchenStatusAdvancesAndNotifies(t *testing.T) {
	c, orders, pub := newConsumer(t)
	o, _ := orders.Create(domain.TypeTakeout, nil, 10, time.Now().UTC())

	d := delivery(t, mq.KeyKitchenStatus, KitchenStatusMsg{OrderID: o.ID, Status: "preparing", ChangedBy: "chef-1"})
	if err := c.processOne(context.Background(), d); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, _ := orders.Get(o.ID)
	if got.Status != domain.StatusPreparing {
		t.Fatalf("status not advanced: %+v", got)
	}
	if len(pub.updates) != 1 || pub.updates[0].NewStatus != "preparing" || pub.updates[0].ChangedBy != "chef-1" {
		t.Fatalf("notification wrong: %+v", pub.updates)
	}

	// Duplicate progressions are dropped quietly, not retried forever.
	stale := delivery(t, mq.KeyKitchenStatus, KitchenStatusMsg{OrderID: o.ID, Status: "preparing"})
	if err := c.processOne(context.Background(), stale); err != nil {
		t.Fatalf("stale status must be acked: %v", err)
	}
	if len(pub.updates) != 1 {
		t.Fatalf("stale status must not notify")
	}
}

func TestKitchenStatusForUnknownOrderRequeues(t *testing.T) {
	c, _, _ := newConsumer(t)
	d := delivery(t, mq.KeyKitchenStatus, KitchenStatusMsg{OrderID: "not-yet", Status: "preparing"})
	if err := c.processOne(context.Background(), d); !errors.Is(err, errRequeue) {
		t.Fatalf("want errRequeue while the create is in flight, got %v", err)
	}
}
