package orders

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the postgres order store. Schema: an orders table with a
// version column and a unique index on (user_id, external_id), plus an
// order_lines table keyed by order_id.
type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

func (r *PGStore) Create(ctx context.Context, o *Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, external_id, user_id, status,
		                   payment_method, payment_status, payment_ref, shipping_address,
		                   subtotal_cents, discount_cents, delivery_fee_cents, total_cents,
		                   version, ordered_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		o.ID, o.Number, o.ExternalID, o.UserID, string(o.Status),
		string(o.PaymentMethod), string(o.PaymentStatus), o.PaymentRef, addr,
		o.SubtotalCents, o.DiscountCents, o.DeliveryFeeCents, o.TotalCents,
		o.Version, o.OrderedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateExternalID
		}
		return err
	}
	for _, l := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, product_id, size, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, l.ProductID, l.Size, l.Qty, l.UnitPriceCents); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

const orderCols = `id, order_number, COALESCE(external_id,''), user_id, status,
	payment_method, payment_status, payment_ref, shipping_address,
	subtotal_cents, discount_cents, delivery_fee_cents, total_cents,
	version, ordered_at, updated_at`

func (r *PGStore) scanOrder(ctx context.Context, row pgx.Row) (*Order, error) {
	var o Order
	var status, method, pay string
	var addr []byte
	err := row.Scan(&o.ID, &o.Number, &o.ExternalID, &o.UserID, &status,
		&method, &pay, &o.PaymentRef, &addr,
		&o.SubtotalCents, &o.DiscountCents, &o.DeliveryFeeCents, &o.TotalCents,
		&o.Version, &o.OrderedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(method)
	o.PaymentStatus = PaymentStatus(pay)
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGStore) loadLines(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, size, qty, unit_price_cents
		FROM order_lines WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ProductID, &l.Size, &l.Qty, &l.UnitPriceCents); err != nil {
			return err
		}
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

func (r *PGStore) Get(ctx context.Context, id string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id)
	return r.scanOrder(ctx, row)
}

func (r *PGStore) GetByNumber(ctx context.Context, number string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE order_number=$1`, number)
	return r.scanOrder(ctx, row)
}

func (r *PGStore) GetByExternalID(ctx context.Context, userID, externalID string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 AND external_id=$2`, userID, externalID)
	return r.scanOrder(ctx, row)
}

func (r *PGStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders WHERE user_id=$1 ORDER BY ordered_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

// ApplyTransition uses a conditional UPDATE guarded by the version column.
// Zero rows affected means either the order is gone or the version moved.
func (r *PGStore) ApplyTransition(ctx context.Context, id string, expectedVersion int64, to Status, pay PaymentStatus) (*Order, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status=$3, payment_status=$4, version=version+1, updated_at=now()
		WHERE id=$1 AND version=$2`,
		id, expectedVersion, string(to), string(pay))
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err // ErrNotFound
		}
		return nil, ErrVersionConflict
	}
	return r.Get(ctx, id)
}
