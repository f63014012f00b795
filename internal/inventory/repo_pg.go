package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGLedger is the postgres ledger. Stock lives in product_stock keyed by
// (product_id, size); reservations carry a RESERVED/RELEASED status so
// release can be replayed safely.
type PGLedger struct{ DB *pgxpool.Pool }

var _ Ledger = (*PGLedger)(nil)

func (r *PGLedger) Product(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, sku, name, price_cents FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT size, stock FROM product_stock WHERE product_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	p.Stock = make(map[string]int)
	for rows.Next() {
		var size string
		var stock int
		if err := rows.Scan(&size, &stock); err != nil {
			return nil, err
		}
		p.Stock[size] = stock
	}
	return &p, rows.Err()
}

// ReserveOrder locks each (product, size) row FOR UPDATE, decrements and
// records the reservation. Any shortfall rolls the transaction back, so
// a partial reserve never commits.
func (r *PGLedger) ReserveOrder(ctx context.Context, orderID string, lines []Line) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// retry short-circuit: full reservation already held for this order
	var n int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE order_id=$1 AND status='RESERVED'`, orderID).Scan(&n); err != nil {
		return err
	}
	if n == len(lines) && n > 0 {
		return nil
	}

	for _, l := range lines {
		var stock int
		err := tx.QueryRow(ctx, `
			SELECT stock FROM product_stock
			WHERE product_id=$1 AND size=$2 FOR UPDATE`, l.ProductID, l.Size).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return &InsufficientStockError{ProductID: l.ProductID, Size: l.Size, Requested: l.Qty, Available: 0}
		}
		if err != nil {
			return err
		}
		if stock < l.Qty {
			return &InsufficientStockError{ProductID: l.ProductID, Size: l.Size, Requested: l.Qty, Available: stock}
		}
		if _, err := tx.Exec(ctx, `
			UPDATE product_stock SET stock = stock - $3
			WHERE product_id=$1 AND size=$2`, l.ProductID, l.Size, l.Qty); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations(order_id, product_id, size, qty, status)
			VALUES ($1,$2,$3,$4,'RESERVED')
			ON CONFLICT (order_id, product_id, size)
			DO UPDATE SET qty=EXCLUDED.qty, status='RESERVED'`,
			orderID, l.ProductID, l.Size, l.Qty); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGLedger) ReleaseOrder(ctx context.Context, orderID string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT product_id, size, qty FROM reservations
		WHERE order_id=$1 AND status='RESERVED' FOR UPDATE`, orderID)
	if err != nil {
		return false, err
	}
	var recs []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Size, &l.Qty); err != nil {
			rows.Close()
			return false, err
		}
		recs = append(recs, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}
	if len(recs) == 0 {
		return false, nil // nothing reserved, or already released
	}

	for _, l := range recs {
		if _, err := tx.Exec(ctx, `
			UPDATE product_stock SET stock = stock + $3
			WHERE product_id=$1 AND size=$2`, l.ProductID, l.Size, l.Qty); err != nil {
			return false, err
		}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE reservations SET status='RELEASED'
		WHERE order_id=$1 AND status='RESERVED'`, orderID); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
