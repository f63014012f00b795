package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGFeed stores notifications in a table with a serial seq column; the
// seq preserves insertion order within a role, the id unique constraint
// makes Append idempotent.
type PGFeed struct{ DB *pgxpool.Pool }

var _ Feed = (*PGFeed)(nil)

func (r *PGFeed) Append(ctx context.Context, e Event) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, role, message, order_id, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Role), e.Message, e.OrderID, e.Read, e.CreatedAt)
	return err
}

func (r *PGFeed) Get(ctx context.Context, id string) (*Event, error) {
	var e Event
	var role string
	err := r.DB.QueryRow(ctx, `
		SELECT id, role, message, COALESCE(order_id,''), read, created_at
		FROM notifications WHERE id=$1`, id).
		Scan(&e.ID, &role, &e.Message, &e.OrderID, &e.Read, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Role = Role(role)
	return &e, nil
}

func (r *PGFeed) List(ctx context.Context, role Role, sinceID string) ([]Event, error) {
	q := `
		SELECT id, role, message, COALESCE(order_id,''), read, created_at
		FROM notifications WHERE role=$1 ORDER BY seq`
	args := []any{string(role)}
	if sinceID != "" {
		q = `
		SELECT id, role, message, COALESCE(order_id,''), read, created_at
		FROM notifications
		WHERE role=$1 AND seq > COALESCE((SELECT seq FROM notifications WHERE id=$2), 0)
		ORDER BY seq`
		args = append(args, sinceID)
	}
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var role string
		if err := rows.Scan(&e.ID, &role, &e.Message, &e.OrderID, &e.Read, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Role = Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGFeed) MarkRead(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *PGFeed) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *PGFeed) ClearAll(ctx context.Context, role Role) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM notifications WHERE role=$1`, string(role))
	return err
}
