// Package directory reads the externally-owned waiters table. The core never
// writes here and never validates waiter ids against it; it exists for the
// dashboard's listing and display names.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"waiterboard/internal/common/db"
	"waiterboard/internal/domain"
)

type PG struct {
	conn *db.Conn
}

func NewPG(conn *db.Conn) *PG { return &PG{conn: conn} }

func (p *PG) List(ctx context.Context) ([]domain.Waiter, error) {
	rows, err := p.conn.Query(ctx, `SELECT id, name, role FROM waiters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list waiters: %w", err)
	}
	defer rows.Close()

	var out []domain.Waiter
	for rows.Next() {
		var w domain.Waiter
		if err := rows.Scan(&w.ID, &w.Name, &w.Role); err != nil {
			return nil, fmt.Errorf("scan waiter: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (p *PG) Get(ctx context.Context, id string) (domain.Waiter, bool, error) {
	var w domain.Waiter
	err := p.conn.QueryRow(ctx, `SELECT id, name, role FROM waiters WHERE id=$1`, id).
		Scan(&w.ID, &w.Name, &w.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Waiter{}, false, nil
	}
	if err != nil {
		return domain.Waiter{}, false, fmt.Errorf("get waiter: %w", err)
	}
	return w, true, nil
}
