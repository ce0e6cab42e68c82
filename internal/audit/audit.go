// Package audit records every claim, deliver and release in Postgres.
// Release is the one place an established assignment is undone, so each row
// carries the acting waiter and, for releases, a mandatory reason.
package audit

import (
	"context"
	"fmt"
	"time"

	"waiterboard/internal/common/db"
)

const (
	ActionClaim   = "claim"
	ActionDeliver = "deliver"
	ActionRelease = "release"
)

type Entry struct {
	OrderID    string
	Actor      string
	Action     string
	Reason     string
	OccurredAt time.Time
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type PG struct {
	conn *db.Conn
}

func NewPG(conn *db.Conn) *PG { return &PG{conn: conn} }

func (p *PG) Record(ctx context.Context, e Entry) error {
	if e.Action == ActionRelease && e.Reason == "" {
		return fmt.Errorf("release audit entry requires a reason")
	}
	_, err := p.conn.Exec(ctx, `
		INSERT INTO assignment_audit (order_id, actor, action, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.OrderID, e.Actor, e.Action, e.Reason, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Nop discards entries; used in tests and HTTP-only deployments.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
